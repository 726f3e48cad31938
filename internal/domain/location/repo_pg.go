package location

import (
	"context"
	"errors"

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

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Location, error) {
	var l Location
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT l.id, l.name, l.parent_location_id, l.retired, l.created_at,
			COALESCE(array_agg(t.name) FILTER (WHERE t.name IS NOT NULL), '{}')
		FROM location l
		LEFT JOIN location_tag_map m ON m.location_id = l.id
		LEFT JOIN location_tag t ON t.id = m.location_tag_id
		WHERE l.id = $1
		GROUP BY l.id`, id,
	).Scan(&l.ID, &l.Name, &l.ParentID, &l.Retired, &l.CreatedAt, &l.Tags)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLocationNotFound
		}
		return nil, err
	}
	return &l, nil
}
