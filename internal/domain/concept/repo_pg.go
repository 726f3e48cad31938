package concept

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/emrapi/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (r *repoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const conceptCols = `c.id, c.name, c.retired, c.created_at`

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Concept, error) {
	return scanConcept(r.conn(ctx).QueryRow(ctx, `SELECT `+conceptCols+` FROM concept c WHERE c.id = $1`, id))
}

func (r *repoPG) GetByMapping(ctx context.Context, source, code string) (*Concept, error) {
	c, err := scanConcept(r.conn(ctx).QueryRow(ctx, `
		SELECT `+conceptCols+`
		FROM concept c
		JOIN concept_reference_map m ON m.concept_id = c.id
		WHERE m.source = $1 AND m.code = $2 AND c.retired = FALSE`, source, code))
	if err != nil {
		return nil, fmt.Errorf("concept %s:%s: %w", source, code, err)
	}
	return c, nil
}

func scanConcept(row pgx.Row) (*Concept, error) {
	var c Concept
	if err := row.Scan(&c.ID, &c.Name, &c.Retired, &c.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConceptNotFound
		}
		return nil, err
	}
	return &c, nil
}
