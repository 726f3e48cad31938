package encounter

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Service struct {
	repo   Repository
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now}
}

func (s *Service) CreateVisit(ctx context.Context, v *Visit) error {
	if v.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if v.StartDatetime.IsZero() {
		v.StartDatetime = s.now().UTC()
	}
	if v.StopDatetime != nil && v.StopDatetime.Before(v.StartDatetime) {
		return fmt.Errorf("stop_datetime must not precede start_datetime")
	}
	return s.repo.CreateVisit(ctx, v)
}

func (s *Service) GetVisit(ctx context.Context, id uuid.UUID) (*Visit, error) {
	return s.repo.GetVisit(ctx, id)
}

// SaveEncounter validates and persists the whole encounter aggregate.
func (s *Service) SaveEncounter(ctx context.Context, enc *Encounter) error {
	if enc.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if enc.EncounterTypeID == uuid.Nil {
		return fmt.Errorf("encounter_type_id is required")
	}
	if enc.EncounterDatetime.IsZero() {
		enc.EncounterDatetime = s.now().UTC()
	}
	for i, o := range enc.Obs {
		if o.ConceptID == uuid.Nil {
			return fmt.Errorf("obs[%d]: concept_id is required", i)
		}
		if o.ObsDatetime.IsZero() {
			o.ObsDatetime = enc.EncounterDatetime
		}
	}
	if err := s.repo.SaveEncounter(ctx, enc); err != nil {
		return fmt.Errorf("save encounter %s: %w", enc.ID, err)
	}
	s.logger.Debug().
		Str("encounter_id", enc.ID.String()).
		Int("obs", len(enc.Obs)).
		Int("orders", len(enc.Orders)).
		Msg("encounter saved")
	return nil
}

func (s *Service) GetEncounter(ctx context.Context, id uuid.UUID) (*Encounter, error) {
	return s.repo.GetEncounter(ctx, id)
}

// VoidEncounter soft-deletes an encounter. Voided encounters are ignored by
// the ADT queries.
func (s *Service) VoidEncounter(ctx context.Context, id uuid.UUID, reason string) error {
	if reason == "" {
		return fmt.Errorf("void reason is required")
	}
	enc, err := s.repo.GetEncounter(ctx, id)
	if err != nil {
		return err
	}
	if enc.Voided {
		return nil
	}
	enc.Void(reason, s.now().UTC())
	return s.SaveEncounter(ctx, enc)
}
