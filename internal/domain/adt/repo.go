package adt

import (
	"context"

	"github.com/google/uuid"

	"github.com/ehr/emrapi/internal/domain/encounter"
)

// EncounterTypes are the configured consult and admission encounter types.
type EncounterTypes struct {
	Consult   uuid.UUID
	Admission uuid.UUID
}

// VisitRepository is the read-only view of visits used by the evaluator.
type VisitRepository interface {
	// FindCandidateVisits returns visits in scope together with their
	// consult and admission encounters and those encounters' observations.
	// Implementations may return extra visits or encounters; the evaluator
	// filters again.
	FindCandidateVisits(ctx context.Context, scope Scope, types EncounterTypes, dispositionConcept uuid.UUID) ([]*encounter.Visit, error)
}
