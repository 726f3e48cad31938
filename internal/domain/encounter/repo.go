package encounter

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrEncounterNotFound = errors.New("encounter not found")
	ErrVisitNotFound     = errors.New("visit not found")
)

type Repository interface {
	CreateVisit(ctx context.Context, v *Visit) error
	GetVisit(ctx context.Context, id uuid.UUID) (*Visit, error)
	// SaveEncounter writes the encounter row, its new observations and its
	// orders in a single transaction. Orders are stored with their position
	// in enc.Orders so they read back in the same sequence.
	SaveEncounter(ctx context.Context, enc *Encounter) error
	GetEncounter(ctx context.Context, id uuid.UUID) (*Encounter, error)
	ListByVisit(ctx context.Context, visitID uuid.UUID) ([]*Encounter, error)
}
