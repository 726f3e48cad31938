package location

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// maxDepth bounds the parent walk so a cyclic hierarchy cannot loop forever.
const maxDepth = 64

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) GetLocation(ctx context.Context, id uuid.UUID) (*Location, error) {
	return s.repo.GetByID(ctx, id)
}

// GetLocationThatSupportsVisits returns the location itself if it is tagged
// as a visit location, otherwise its nearest tagged ancestor.
func (s *Service) GetLocationThatSupportsVisits(ctx context.Context, id uuid.UUID) (*Location, error) {
	next := &id
	for depth := 0; next != nil && depth < maxDepth; depth++ {
		loc, err := s.repo.GetByID(ctx, *next)
		if err != nil {
			return nil, fmt.Errorf("load location %s: %w", *next, err)
		}
		if loc.HasTag(TagSupportsVisits) {
			return loc, nil
		}
		next = loc.ParentID
	}
	return nil, fmt.Errorf("%w: %s", ErrNoVisitLocation, id)
}
