package concept

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// GetConcept resolves a "source:code" key to a concept.
func (s *Service) GetConcept(ctx context.Context, key string) (*Concept, error) {
	k, err := ParseKey(key)
	if err != nil {
		return nil, err
	}
	return s.GetConceptByKey(ctx, k)
}

func (s *Service) GetConceptByKey(ctx context.Context, k Key) (*Concept, error) {
	c, err := s.repo.GetByMapping(ctx, k.Source, k.Code)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", k, err)
	}
	return c, nil
}

func (s *Service) GetConceptByID(ctx context.Context, id uuid.UUID) (*Concept, error) {
	return s.repo.GetByID(ctx, id)
}
