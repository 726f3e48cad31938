package order

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/emrapi/internal/platform/db"
)

var (
	ErrDrugNotFound = errors.New("drug not found")
	ErrDrugRetired  = errors.New("drug is retired")
)

// Drug maps to the drug table.
type Drug struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	Name       string     `db:"name" json:"name"`
	ConceptID  *uuid.UUID `db:"concept_id" json:"concept_id,omitempty"`
	DosageForm *string    `db:"dosage_form" json:"dosage_form,omitempty"`
	Strength   *string    `db:"strength" json:"strength,omitempty"`
	Retired    bool       `db:"retired" json:"retired"`
}

// DrugLookup resolves drugs referenced by order requests.
type DrugLookup interface {
	GetDrug(ctx context.Context, id uuid.UUID) (*Drug, error)
}

type drugRepoPG struct {
	pool *pgxpool.Pool
}

func NewDrugRepo(pool *pgxpool.Pool) DrugLookup {
	return &drugRepoPG{pool: pool}
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (r *drugRepoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

func (r *drugRepoPG) GetDrug(ctx context.Context, id uuid.UUID) (*Drug, error) {
	var d Drug
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, name, concept_id, dosage_form, strength, retired
		FROM drug WHERE id = $1`, id,
	).Scan(&d.ID, &d.Name, &d.ConceptID, &d.DosageForm, &d.Strength, &d.Retired)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDrugNotFound
		}
		return nil, err
	}
	return &d, nil
}
