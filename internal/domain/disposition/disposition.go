// Package disposition describes where a consult's disposition outcome is
// recorded and which coded outcomes are well known.
package disposition

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ehr/emrapi/internal/domain/concept"
)

var ErrDispositionNotConfigured = errors.New("disposition concept is not configured")

// Codes of the well-known disposition outcomes in the emrapi source.
const (
	AdmitToHospital        = "Admit to hospital"
	Death                  = "Death"
	Discharge              = "Discharge"
	TransferOutOfHospital  = "Transfer out of hospital"
	dispositionConceptCode = "Disposition"
	dispositionSetCode     = "Disposition Concept Set"
)

// Descriptor locates the disposition observation within an encounter.
type Descriptor struct {
	DispositionSetConcept uuid.UUID
	DispositionConcept    uuid.UUID
}

func (d *Descriptor) GetDispositionConcept() uuid.UUID {
	return d.DispositionConcept
}

// IsDisposition reports whether an observation of conceptID carries a disposition.
func (d *Descriptor) IsDisposition(conceptID uuid.UUID) bool {
	return d != nil && d.DispositionConcept != uuid.Nil && conceptID == d.DispositionConcept
}

// Validate fails when no disposition concept is configured.
func (d *Descriptor) Validate() error {
	if d == nil || d.DispositionConcept == uuid.Nil {
		return ErrDispositionNotConfigured
	}
	return nil
}

// ConceptLookup resolves concept keys; *concept.Service satisfies it.
type ConceptLookup interface {
	GetConceptByKey(ctx context.Context, k concept.Key) (*concept.Concept, error)
}

type Service struct {
	concepts ConceptLookup
}

func NewService(concepts ConceptLookup) *Service {
	return &Service{concepts: concepts}
}

// GetDispositionDescriptor builds the descriptor from the emrapi concept
// mappings. The set concept is optional; the disposition concept is not.
func (s *Service) GetDispositionDescriptor(ctx context.Context) (*Descriptor, error) {
	disp, err := s.concepts.GetConceptByKey(ctx, concept.EmrAPIKey(dispositionConceptCode))
	if err != nil {
		if errors.Is(err, concept.ErrConceptNotFound) {
			return nil, ErrDispositionNotConfigured
		}
		return nil, fmt.Errorf("load disposition concept: %w", err)
	}

	d := &Descriptor{DispositionConcept: disp.ID}
	set, err := s.concepts.GetConceptByKey(ctx, concept.EmrAPIKey(dispositionSetCode))
	switch {
	case err == nil:
		d.DispositionSetConcept = set.ID
	case !errors.Is(err, concept.ErrConceptNotFound):
		return nil, fmt.Errorf("load disposition set concept: %w", err)
	}
	return d, nil
}

// Outcome resolves the concept of a well-known disposition code such as
// AdmitToHospital.
func (s *Service) Outcome(ctx context.Context, code string) (uuid.UUID, error) {
	c, err := s.concepts.GetConceptByKey(ctx, concept.EmrAPIKey(code))
	if err != nil {
		return uuid.Nil, fmt.Errorf("disposition outcome %q: %w", code, err)
	}
	return c.ID, nil
}
