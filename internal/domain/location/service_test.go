package location

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

type mockRepo struct {
	locations map[uuid.UUID]*Location
}

func newMockRepo() *mockRepo {
	return &mockRepo{locations: make(map[uuid.UUID]*Location)}
}

func (m *mockRepo) add(name string, parent *Location, tags ...string) *Location {
	l := &Location{ID: uuid.New(), Name: name, Tags: tags}
	if parent != nil {
		l.ParentID = &parent.ID
	}
	m.locations[l.ID] = l
	return l
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Location, error) {
	l, ok := m.locations[id]
	if !ok {
		return nil, ErrLocationNotFound
	}
	return l, nil
}

func TestGetLocationThatSupportsVisits_Self(t *testing.T) {
	repo := newMockRepo()
	hospital := repo.add("Hospital", nil, TagSupportsVisits)
	svc := NewService(repo)

	got, err := svc.GetLocationThatSupportsVisits(context.Background(), hospital.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != hospital.ID {
		t.Errorf("expected %s, got %s", hospital.Name, got.Name)
	}
}

func TestGetLocationThatSupportsVisits_Ancestor(t *testing.T) {
	repo := newMockRepo()
	hospital := repo.add("Hospital", nil, TagSupportsVisits)
	wing := repo.add("East Wing", hospital, "Login Location")
	ward := repo.add("Ward 3", wing)
	svc := NewService(repo)

	got, err := svc.GetLocationThatSupportsVisits(context.Background(), ward.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != hospital.ID {
		t.Errorf("expected Hospital, got %s", got.Name)
	}
}

func TestGetLocationThatSupportsVisits_NoneTagged(t *testing.T) {
	repo := newMockRepo()
	root := repo.add("Root", nil)
	leaf := repo.add("Leaf", root)
	svc := NewService(repo)

	_, err := svc.GetLocationThatSupportsVisits(context.Background(), leaf.ID)
	if !errors.Is(err, ErrNoVisitLocation) {
		t.Errorf("expected ErrNoVisitLocation, got %v", err)
	}
}

func TestGetLocationThatSupportsVisits_Cycle(t *testing.T) {
	repo := newMockRepo()
	a := repo.add("A", nil)
	b := repo.add("B", a)
	a.ParentID = &b.ID
	svc := NewService(repo)

	_, err := svc.GetLocationThatSupportsVisits(context.Background(), a.ID)
	if !errors.Is(err, ErrNoVisitLocation) {
		t.Errorf("expected ErrNoVisitLocation for cyclic hierarchy, got %v", err)
	}
}

func TestGetLocationThatSupportsVisits_Unknown(t *testing.T) {
	svc := NewService(newMockRepo())

	_, err := svc.GetLocationThatSupportsVisits(context.Background(), uuid.New())
	if !errors.Is(err, ErrLocationNotFound) {
		t.Errorf("expected ErrLocationNotFound, got %v", err)
	}
}

func TestLocation_HasTag(t *testing.T) {
	l := &Location{Tags: []string{"Login Location", TagSupportsVisits}}
	if !l.HasTag(TagSupportsVisits) {
		t.Error("expected tag to be present")
	}
	if l.HasTag("Admission Location") {
		t.Error("expected tag to be absent")
	}
}
