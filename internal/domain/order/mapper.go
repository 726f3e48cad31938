package order

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ehr/emrapi/internal/domain/encounter"
)

// DrugOrderMapper turns a request into an order for enc.
type DrugOrderMapper interface {
	Map(ctx context.Context, req DrugOrderRequest, enc *encounter.Encounter) (*encounter.DrugOrder, error)
}

// OpenMRSDrugOrderMapper validates requests, resolves the drug and fills in
// the concept and action defaults.
type OpenMRSDrugOrderMapper struct {
	drugs DrugLookup
	now   func() time.Time
}

func NewDrugOrderMapper(drugs DrugLookup) *OpenMRSDrugOrderMapper {
	return &OpenMRSDrugOrderMapper{drugs: drugs, now: time.Now}
}

func (m *OpenMRSDrugOrderMapper) Map(ctx context.Context, req DrugOrderRequest, enc *encounter.Encounter) (*encounter.DrugOrder, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	drugID := uuid.MustParse(req.DrugUUID)
	drug, err := m.drugs.GetDrug(ctx, drugID)
	if err != nil {
		return nil, fmt.Errorf("drug %s: %w", drugID, err)
	}
	if drug.Retired {
		return nil, fmt.Errorf("drug %s: %w", drugID, ErrDrugRetired)
	}

	o := &encounter.DrugOrder{
		EncounterID:    enc.ID,
		PatientID:      enc.PatientID,
		ConceptID:      drug.ConceptID,
		DrugID:         drug.ID,
		Action:         req.Action,
		Dose:           req.Dose,
		DoseUnits:      optional(req.DoseUnits),
		Frequency:      optional(req.Frequency),
		Route:          optional(req.Route),
		Quantity:       req.Quantity,
		ScheduledDate:  req.ScheduledDate,
		AutoExpireDate: req.AutoExpireDate,
		Instructions:   optional(req.Instructions),
		DateActivated:  m.now().UTC(),
	}
	if req.ConceptUUID != "" {
		c := uuid.MustParse(req.ConceptUUID)
		o.ConceptID = &c
	}
	if o.Action == "" {
		o.Action = ActionNew
	}
	return o, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
