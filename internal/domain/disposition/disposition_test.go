package disposition

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/ehr/emrapi/internal/domain/concept"
)

type mockLookup struct {
	concepts map[concept.Key]*concept.Concept
	err      error
}

func (m *mockLookup) GetConceptByKey(_ context.Context, k concept.Key) (*concept.Concept, error) {
	if m.err != nil {
		return nil, m.err
	}
	c, ok := m.concepts[k]
	if !ok {
		return nil, concept.ErrConceptNotFound
	}
	return c, nil
}

func newLookup(codes ...string) *mockLookup {
	m := &mockLookup{concepts: make(map[concept.Key]*concept.Concept)}
	for _, code := range codes {
		m.concepts[concept.EmrAPIKey(code)] = &concept.Concept{ID: uuid.New(), Name: code}
	}
	return m
}

func TestGetDispositionDescriptor(t *testing.T) {
	lookup := newLookup("Disposition", "Disposition Concept Set")
	svc := NewService(lookup)

	d, err := svc.GetDispositionDescriptor(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.GetDispositionConcept() != lookup.concepts[concept.EmrAPIKey("Disposition")].ID {
		t.Error("unexpected disposition concept")
	}
	if d.DispositionSetConcept != lookup.concepts[concept.EmrAPIKey("Disposition Concept Set")].ID {
		t.Error("unexpected disposition set concept")
	}
	if err := d.Validate(); err != nil {
		t.Errorf("expected valid descriptor, got %v", err)
	}
}

func TestGetDispositionDescriptor_SetOptional(t *testing.T) {
	svc := NewService(newLookup("Disposition"))

	d, err := svc.GetDispositionDescriptor(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.DispositionSetConcept != uuid.Nil {
		t.Error("expected nil set concept")
	}
}

func TestGetDispositionDescriptor_NotConfigured(t *testing.T) {
	svc := NewService(newLookup())

	_, err := svc.GetDispositionDescriptor(context.Background())
	if !errors.Is(err, ErrDispositionNotConfigured) {
		t.Errorf("expected ErrDispositionNotConfigured, got %v", err)
	}
}

func TestGetDispositionDescriptor_LookupFailure(t *testing.T) {
	boom := errors.New("connection reset")
	svc := NewService(&mockLookup{err: boom})

	_, err := svc.GetDispositionDescriptor(context.Background())
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped lookup error, got %v", err)
	}
}

func TestDescriptor_Validate(t *testing.T) {
	var nilDesc *Descriptor
	if !errors.Is(nilDesc.Validate(), ErrDispositionNotConfigured) {
		t.Error("expected nil descriptor to be invalid")
	}
	if !errors.Is((&Descriptor{}).Validate(), ErrDispositionNotConfigured) {
		t.Error("expected empty descriptor to be invalid")
	}
}

func TestDescriptor_IsDisposition(t *testing.T) {
	d := &Descriptor{DispositionConcept: uuid.New()}
	if !d.IsDisposition(d.DispositionConcept) {
		t.Error("expected disposition concept to match")
	}
	if d.IsDisposition(uuid.New()) {
		t.Error("expected other concept not to match")
	}
	if (&Descriptor{}).IsDisposition(uuid.Nil) {
		t.Error("unconfigured descriptor must not match the nil concept")
	}
}

func TestOutcome(t *testing.T) {
	lookup := newLookup(AdmitToHospital)
	svc := NewService(lookup)

	id, err := svc.Outcome(context.Background(), AdmitToHospital)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != lookup.concepts[concept.EmrAPIKey(AdmitToHospital)].ID {
		t.Error("unexpected outcome concept")
	}
	if _, err := svc.Outcome(context.Background(), Death); !errors.Is(err, concept.ErrConceptNotFound) {
		t.Errorf("expected ErrConceptNotFound for unmapped outcome, got %v", err)
	}
}
