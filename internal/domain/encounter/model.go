package encounter

import (
	"time"

	"github.com/google/uuid"
)

// Visit maps to the visit table.
type Visit struct {
	ID            uuid.UUID    `db:"id" json:"id"`
	PatientID     uuid.UUID    `db:"patient_id" json:"patient_id"`
	VisitTypeID   *uuid.UUID   `db:"visit_type_id" json:"visit_type_id,omitempty"`
	LocationID    *uuid.UUID   `db:"location_id" json:"location_id,omitempty"`
	StartDatetime time.Time    `db:"date_started" json:"start_datetime"`
	StopDatetime  *time.Time   `db:"date_stopped" json:"stop_datetime,omitempty"`
	Voided        bool         `db:"voided" json:"voided"`
	Encounters    []*Encounter `json:"encounters,omitempty"`
	CreatedAt     time.Time    `db:"created_at" json:"created_at"`
}

// IsActive reports whether the visit has not been stopped.
func (v *Visit) IsActive() bool {
	return v.StopDatetime == nil
}

// Encounter maps to the encounter table. Obs and Orders are loaded with it.
type Encounter struct {
	ID                uuid.UUID      `db:"id" json:"id"`
	VisitID           *uuid.UUID     `db:"visit_id" json:"visit_id,omitempty"`
	PatientID         uuid.UUID      `db:"patient_id" json:"patient_id"`
	EncounterTypeID   uuid.UUID      `db:"encounter_type_id" json:"encounter_type_id"`
	EncounterDatetime time.Time      `db:"encounter_datetime" json:"encounter_datetime"`
	LocationID        *uuid.UUID     `db:"location_id" json:"location_id,omitempty"`
	Voided            bool           `db:"voided" json:"voided"`
	DateVoided        *time.Time     `db:"date_voided" json:"date_voided,omitempty"`
	VoidReason        *string        `db:"void_reason" json:"void_reason,omitempty"`
	Obs               []*Observation `json:"obs,omitempty"`
	Orders            []Order        `json:"orders,omitempty"`
	CreatedAt         time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at" json:"updated_at"`
}

// AddOrder appends o after any orders already on the encounter.
func (e *Encounter) AddOrder(o Order) {
	e.Orders = append(e.Orders, o)
}

// ActiveObs returns the non-voided observations in recorded order.
func (e *Encounter) ActiveObs() []*Observation {
	var out []*Observation
	for _, o := range e.Obs {
		if !o.Voided {
			out = append(out, o)
		}
	}
	return out
}

// Void marks the encounter voided with the given reason.
func (e *Encounter) Void(reason string, at time.Time) {
	e.Voided = true
	e.DateVoided = &at
	e.VoidReason = &reason
}

// Observation maps to the obs table. Only coded values are modelled.
type Observation struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	EncounterID uuid.UUID  `db:"encounter_id" json:"encounter_id"`
	ConceptID   uuid.UUID  `db:"concept_id" json:"concept_id"`
	ValueCoded  *uuid.UUID `db:"value_coded" json:"value_coded,omitempty"`
	ObsDatetime time.Time  `db:"obs_datetime" json:"obs_datetime"`
	Voided      bool       `db:"voided" json:"voided"`
}

// Order types stored in orders.order_type.
const (
	OrderTypeDrug = "drug"
)

// Order is any clinical order attached to an encounter.
type Order interface {
	OrderID() uuid.UUID
	OrderType() string
}

// DrugOrder maps to an orders row with order_type = 'drug'.
type DrugOrder struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	EncounterID    uuid.UUID  `db:"encounter_id" json:"encounter_id"`
	PatientID      uuid.UUID  `db:"patient_id" json:"patient_id"`
	ConceptID      *uuid.UUID `db:"concept_id" json:"concept_id,omitempty"`
	DrugID         uuid.UUID  `db:"drug_id" json:"drug_id"`
	Action         string     `db:"action" json:"action"`
	Dose           *float64   `db:"dose" json:"dose,omitempty"`
	DoseUnits      *string    `db:"dose_units" json:"dose_units,omitempty"`
	Frequency      *string    `db:"frequency" json:"frequency,omitempty"`
	Route          *string    `db:"route" json:"route,omitempty"`
	Quantity       *float64   `db:"quantity" json:"quantity,omitempty"`
	ScheduledDate  *time.Time `db:"scheduled_date" json:"scheduled_date,omitempty"`
	AutoExpireDate *time.Time `db:"auto_expire_date" json:"auto_expire_date,omitempty"`
	Instructions   *string    `db:"instructions" json:"instructions,omitempty"`
	SortWeight     int        `db:"sort_weight" json:"sort_weight"`
	DateActivated  time.Time  `db:"date_activated" json:"date_activated"`
	Voided         bool       `db:"voided" json:"voided"`
}

func (d *DrugOrder) OrderID() uuid.UUID { return d.ID }
func (d *DrugOrder) OrderType() string  { return OrderTypeDrug }
