package concept

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Concept, error)
	GetByMapping(ctx context.Context, source, code string) (*Concept, error)
}
