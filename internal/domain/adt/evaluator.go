package adt

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ehr/emrapi/internal/domain/concept"
	"github.com/ehr/emrapi/internal/domain/disposition"
	"github.com/ehr/emrapi/internal/domain/encounter"
	"github.com/ehr/emrapi/internal/domain/location"
	"github.com/ehr/emrapi/internal/platform/reporting"
)

// ConceptResolver resolves namespaced concept keys; *concept.Service satisfies it.
type ConceptResolver interface {
	GetConceptByKey(ctx context.Context, k concept.Key) (*concept.Concept, error)
}

// LocationResolver finds the visit location for a location; *location.Service satisfies it.
type LocationResolver interface {
	GetLocationThatSupportsVisits(ctx context.Context, id uuid.UUID) (*location.Location, error)
}

// Evaluator evaluates AwaitingAdmissionVisitQuery against a VisitRepository.
// It never writes and holds no per-call state, so one Evaluator can serve
// concurrent evaluations.
type Evaluator struct {
	repo       VisitRepository
	descriptor *disposition.Descriptor
	concepts   ConceptResolver
	locations  LocationResolver
	types      EncounterTypes
	logger     zerolog.Logger
}

// NewEvaluator fails with disposition.ErrDispositionNotConfigured when the
// descriptor has no disposition concept. locations may be nil, in which case
// query locations are matched as given.
func NewEvaluator(repo VisitRepository, descriptor *disposition.Descriptor, concepts ConceptResolver,
	locations LocationResolver, types EncounterTypes, logger zerolog.Logger) (*Evaluator, error) {
	if err := descriptor.Validate(); err != nil {
		return nil, err
	}
	if repo == nil {
		return nil, errors.New("adt: visit repository is required")
	}
	if concepts == nil {
		return nil, errors.New("adt: concept resolver is required")
	}
	if types.Consult == uuid.Nil || types.Admission == uuid.Nil {
		return nil, errors.New("adt: consult and admission encounter types are required")
	}
	return &Evaluator{
		repo:       repo,
		descriptor: descriptor,
		concepts:   concepts,
		locations:  locations,
		types:      types,
		logger:     logger,
	}, nil
}

// Query returns an awaiting-admission query bound to this evaluator.
func (e *Evaluator) Query(locationID *uuid.UUID, activeOnly bool) *AwaitingAdmissionVisitQuery {
	return &AwaitingAdmissionVisitQuery{Location: locationID, ActiveOnly: activeOnly, evaluator: e}
}

func (e *Evaluator) Evaluate(ctx context.Context, q *AwaitingAdmissionVisitQuery, ectx *reporting.EvaluationContext) (*reporting.VisitQueryResult, error) {
	if err := e.descriptor.Validate(); err != nil {
		return nil, err
	}
	if ectx == nil {
		ectx = &reporting.EvaluationContext{}
	}

	admit, err := e.concepts.GetConceptByKey(ctx, concept.EmrAPIKey(disposition.AdmitToHospital))
	if err != nil {
		return nil, fmt.Errorf("resolve admit concept: %w", err)
	}

	scope, err := e.scope(ctx, q, ectx)
	if err != nil {
		return nil, err
	}

	visits, err := e.repo.FindCandidateVisits(ctx, scope, e.types, e.descriptor.DispositionConcept)
	if err != nil {
		return nil, fmt.Errorf("load candidate visits: %w", err)
	}

	res := reporting.NewVisitQueryResult(q, ectx)
	for _, v := range visits {
		if scope.Admits(v) && e.awaitingAdmission(v, admit.ID) {
			res.MemberIDs.Add(v.ID)
		}
	}

	e.logger.Debug().
		Int("candidates", len(visits)).
		Int("members", res.MemberIDs.Len()).
		Msg("awaiting admission evaluated")
	return res, nil
}

func (e *Evaluator) scope(ctx context.Context, q *AwaitingAdmissionVisitQuery, ectx *reporting.EvaluationContext) (Scope, error) {
	s := Scope{
		Patients:   ectx.BaseCohort,
		Visits:     ectx.BaseVisits,
		ActiveOnly: q.ActiveOnly,
	}
	if q.Location == nil {
		return s, nil
	}

	loc := *q.Location
	if e.locations != nil {
		visitLoc, err := e.locations.GetLocationThatSupportsVisits(ctx, loc)
		switch {
		case err == nil:
			loc = visitLoc.ID
		case errors.Is(err, location.ErrNoVisitLocation), errors.Is(err, location.ErrLocationNotFound):
			e.logger.Debug().Str("location_id", loc.String()).Msg("no visit location found, matching location as given")
		default:
			return Scope{}, fmt.Errorf("resolve visit location: %w", err)
		}
	}
	s.LocationID = &loc
	return s, nil
}

// awaitingAdmission applies the disposition rule to one visit: the latest
// non-voided consult carrying a disposition must say admit, and no
// non-voided admission encounter may follow it.
func (e *Evaluator) awaitingAdmission(v *encounter.Visit, admitConcept uuid.UUID) bool {
	var (
		consult *encounter.Encounter
		dispo   *encounter.Observation
	)
	for _, enc := range v.Encounters {
		if enc.Voided || enc.EncounterTypeID != e.types.Consult {
			continue
		}
		obs := e.dispositionObs(enc)
		if obs == nil {
			continue
		}
		if consult == nil || encounterAfter(enc, consult) {
			consult, dispo = enc, obs
		}
	}
	if consult == nil || dispo.ValueCoded == nil || *dispo.ValueCoded != admitConcept {
		return false
	}

	for _, enc := range v.Encounters {
		if enc.Voided || enc.EncounterTypeID != e.types.Admission {
			continue
		}
		if enc.EncounterDatetime.After(consult.EncounterDatetime) {
			return false
		}
	}
	return true
}

// dispositionObs returns the latest non-voided disposition observation of enc.
func (e *Evaluator) dispositionObs(enc *encounter.Encounter) *encounter.Observation {
	var latest *encounter.Observation
	for _, o := range enc.ActiveObs() {
		if !e.descriptor.IsDisposition(o.ConceptID) {
			continue
		}
		if latest == nil || o.ObsDatetime.After(latest.ObsDatetime) ||
			(o.ObsDatetime.Equal(latest.ObsDatetime) && idAfter(o.ID, latest.ID)) {
			latest = o
		}
	}
	return latest
}

// encounterAfter orders encounters by datetime, then by id bytes.
func encounterAfter(a, b *encounter.Encounter) bool {
	if !a.EncounterDatetime.Equal(b.EncounterDatetime) {
		return a.EncounterDatetime.After(b.EncounterDatetime)
	}
	return idAfter(a.ID, b.ID)
}

func idAfter(a, b uuid.UUID) bool {
	return bytes.Compare(a[:], b[:]) > 0
}
