// Package adt finds visits whose most recent consult disposition is
// "Admit to hospital" and that have no admission encounter after it.
package adt

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/ehr/emrapi/internal/domain/encounter"
	"github.com/ehr/emrapi/internal/platform/reporting"
)

// QueryName identifies the awaiting-admission query in results and logs.
const QueryName = "awaiting-admission"

var ErrNoEvaluator = errors.New("awaiting admission query has no evaluator")

// AwaitingAdmissionVisitQuery selects visits awaiting admission. Build it
// with Evaluator.Query so it carries its evaluator.
type AwaitingAdmissionVisitQuery struct {
	// Location restricts results to visits at the visit location that
	// supports this location.
	Location *uuid.UUID
	// ActiveOnly drops visits that have been stopped.
	ActiveOnly bool

	evaluator *Evaluator
}

var _ reporting.VisitQuery = (*AwaitingAdmissionVisitQuery)(nil)

func (q *AwaitingAdmissionVisitQuery) Name() string { return QueryName }

func (q *AwaitingAdmissionVisitQuery) Evaluate(ctx context.Context, ectx *reporting.EvaluationContext) (*reporting.VisitQueryResult, error) {
	if q.evaluator == nil {
		return nil, ErrNoEvaluator
	}
	return q.evaluator.Evaluate(ctx, q, ectx)
}

// Scope is the eligible visit universe. Nil fields are unrestricted.
type Scope struct {
	LocationID *uuid.UUID
	Patients   *reporting.Cohort
	Visits     *reporting.VisitIDSet
	ActiveOnly bool
}

// Admits reports whether v falls inside the scope. Voided visits never do.
func (s Scope) Admits(v *encounter.Visit) bool {
	if v.Voided {
		return false
	}
	if s.ActiveOnly && !v.IsActive() {
		return false
	}
	if s.LocationID != nil && (v.LocationID == nil || *v.LocationID != *s.LocationID) {
		return false
	}
	if s.Patients != nil && !s.Patients.Contains(v.PatientID) {
		return false
	}
	if s.Visits != nil && !s.Visits.Contains(v.ID) {
		return false
	}
	return true
}
