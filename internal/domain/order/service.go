package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ehr/emrapi/internal/domain/encounter"
)

// EncounterSaver persists an encounter aggregate; *encounter.Service satisfies it.
type EncounterSaver interface {
	SaveEncounter(ctx context.Context, enc *encounter.Encounter) error
}

// EmrOrderService attaches drug orders to encounters.
type EmrOrderService struct {
	mapper     DrugOrderMapper
	encounters EncounterSaver
	logger     zerolog.Logger
}

func NewEmrOrderService(mapper DrugOrderMapper, encounters EncounterSaver, logger zerolog.Logger) *EmrOrderService {
	return &EmrOrderService{mapper: mapper, encounters: encounters, logger: logger}
}

// Save maps every request, appends the resulting orders to enc after its
// existing orders in request order, and saves enc once. A mapping failure
// leaves enc untouched and nothing is saved.
func (s *EmrOrderService) Save(ctx context.Context, reqs []DrugOrderRequest, enc *encounter.Encounter) error {
	if enc == nil {
		return errors.New("encounter is required")
	}

	mapped := make([]*encounter.DrugOrder, 0, len(reqs))
	for i, req := range reqs {
		o, err := s.mapper.Map(ctx, req, enc)
		if err != nil {
			return fmt.Errorf("drug order %d: %w", i, err)
		}
		mapped = append(mapped, o)
	}

	existing := len(enc.Orders)
	for _, o := range mapped {
		enc.AddOrder(o)
	}
	if err := s.encounters.SaveEncounter(ctx, enc); err != nil {
		enc.Orders = enc.Orders[:existing]
		return err
	}

	s.logger.Info().
		Str("encounter_id", enc.ID.String()).
		Int("added", len(mapped)).
		Int("orders", len(enc.Orders)).
		Msg("drug orders saved")
	return nil
}
