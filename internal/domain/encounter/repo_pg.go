package encounter

import (
	"context"
	"errors"
	"fmt"
	"time"

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
	Begin(ctx context.Context) (pgx.Tx, error)
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

const visitCols = `id, patient_id, visit_type_id, location_id, date_started, date_stopped, voided, created_at`

const encCols = `id, visit_id, patient_id, encounter_type_id, encounter_datetime, location_id,
	voided, date_voided, void_reason, created_at, updated_at`

const obsCols = `id, encounter_id, concept_id, value_coded, obs_datetime, voided`

const drugOrderCols = `id, encounter_id, patient_id, concept_id, drug_id, action, dose, dose_units,
	frequency, route, quantity, scheduled_date, auto_expire_date, instructions,
	sort_weight, date_activated, voided`

func (r *repoPG) CreateVisit(ctx context.Context, v *Visit) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO visit (id, patient_id, visit_type_id, location_id, date_started, date_stopped, voided)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`,
		v.ID, v.PatientID, v.VisitTypeID, v.LocationID, v.StartDatetime, v.StopDatetime, v.Voided,
	).Scan(&v.CreatedAt)
}

func (r *repoPG) GetVisit(ctx context.Context, id uuid.UUID) (*Visit, error) {
	var v Visit
	err := r.conn(ctx).QueryRow(ctx, `SELECT `+visitCols+` FROM visit WHERE id = $1`, id).Scan(
		&v.ID, &v.PatientID, &v.VisitTypeID, &v.LocationID, &v.StartDatetime, &v.StopDatetime,
		&v.Voided, &v.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVisitNotFound
		}
		return nil, err
	}
	encs, err := r.ListByVisit(ctx, id)
	if err != nil {
		return nil, err
	}
	v.Encounters = encs
	return &v, nil
}

func (r *repoPG) SaveEncounter(ctx context.Context, enc *Encounter) error {
	tx, err := r.conn(ctx).Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if enc.ID == uuid.Nil {
		enc.ID = uuid.New()
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO encounter (id, visit_id, patient_id, encounter_type_id, encounter_datetime,
			location_id, voided, date_voided, void_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			visit_id = EXCLUDED.visit_id,
			encounter_type_id = EXCLUDED.encounter_type_id,
			encounter_datetime = EXCLUDED.encounter_datetime,
			location_id = EXCLUDED.location_id,
			voided = EXCLUDED.voided,
			date_voided = EXCLUDED.date_voided,
			void_reason = EXCLUDED.void_reason,
			updated_at = NOW()
		RETURNING created_at, updated_at`,
		enc.ID, enc.VisitID, enc.PatientID, enc.EncounterTypeID, enc.EncounterDatetime,
		enc.LocationID, enc.Voided, enc.DateVoided, enc.VoidReason,
	).Scan(&enc.CreatedAt, &enc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save encounter: %w", err)
	}

	for _, o := range enc.Obs {
		if o.ID == uuid.Nil {
			o.ID = uuid.New()
		}
		o.EncounterID = enc.ID
		_, err = tx.Exec(ctx, `
			INSERT INTO obs (id, encounter_id, concept_id, value_coded, obs_datetime, voided)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO UPDATE SET voided = EXCLUDED.voided`,
			o.ID, o.EncounterID, o.ConceptID, o.ValueCoded, o.ObsDatetime, o.Voided,
		)
		if err != nil {
			return fmt.Errorf("save obs: %w", err)
		}
	}

	for i, ord := range enc.Orders {
		d, ok := ord.(*DrugOrder)
		if !ok {
			return fmt.Errorf("save order %d: unsupported order type %q", i, ord.OrderType())
		}
		if d.ID == uuid.Nil {
			d.ID = uuid.New()
		}
		d.EncounterID = enc.ID
		d.PatientID = enc.PatientID
		d.SortWeight = i
		err = tx.QueryRow(ctx, `
			INSERT INTO orders (id, encounter_id, patient_id, order_type, concept_id, drug_id, action,
				dose, dose_units, frequency, route, quantity, scheduled_date, auto_expire_date,
				instructions, sort_weight, voided, date_activated)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
				COALESCE($18, NOW()))
			ON CONFLICT (id) DO UPDATE SET
				sort_weight = EXCLUDED.sort_weight,
				voided = EXCLUDED.voided
			RETURNING date_activated`,
			d.ID, d.EncounterID, d.PatientID, OrderTypeDrug, d.ConceptID, d.DrugID, d.Action,
			d.Dose, d.DoseUnits, d.Frequency, d.Route, d.Quantity, d.ScheduledDate, d.AutoExpireDate,
			d.Instructions, d.SortWeight, d.Voided, activatedAt(d),
		).Scan(&d.DateActivated)
		if err != nil {
			return fmt.Errorf("save order %d: %w", i, err)
		}
	}

	return tx.Commit(ctx)
}

func activatedAt(d *DrugOrder) *time.Time {
	if d.DateActivated.IsZero() {
		return nil
	}
	return &d.DateActivated
}

func (r *repoPG) GetEncounter(ctx context.Context, id uuid.UUID) (*Encounter, error) {
	enc, err := r.scanEncounter(r.conn(ctx).QueryRow(ctx, `SELECT `+encCols+` FROM encounter WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	byID := map[uuid.UUID]*Encounter{enc.ID: enc}
	if err := r.loadObs(ctx, byID); err != nil {
		return nil, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+drugOrderCols+` FROM orders
		WHERE encounter_id = $1 AND order_type = $2
		ORDER BY sort_weight, date_activated`, id, OrderTypeDrug)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var d DrugOrder
		if err := rows.Scan(
			&d.ID, &d.EncounterID, &d.PatientID, &d.ConceptID, &d.DrugID, &d.Action, &d.Dose, &d.DoseUnits,
			&d.Frequency, &d.Route, &d.Quantity, &d.ScheduledDate, &d.AutoExpireDate, &d.Instructions,
			&d.SortWeight, &d.DateActivated, &d.Voided,
		); err != nil {
			return nil, err
		}
		enc.Orders = append(enc.Orders, &d)
	}
	return enc, rows.Err()
}

// ListByVisit returns the visit's encounters with their observations, oldest first.
func (r *repoPG) ListByVisit(ctx context.Context, visitID uuid.UUID) ([]*Encounter, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+encCols+` FROM encounter
		WHERE visit_id = $1
		ORDER BY encounter_datetime, id`, visitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Encounter
	byID := make(map[uuid.UUID]*Encounter)
	for rows.Next() {
		enc, err := r.scanEncounter(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, enc)
		byID[enc.ID] = enc
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}
	return out, r.loadObs(ctx, byID)
}

func (r *repoPG) loadObs(ctx context.Context, byID map[uuid.UUID]*Encounter) error {
	ids := make([]uuid.UUID, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+obsCols+` FROM obs
		WHERE encounter_id = ANY($1)
		ORDER BY obs_datetime, id`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var o Observation
		if err := rows.Scan(&o.ID, &o.EncounterID, &o.ConceptID, &o.ValueCoded, &o.ObsDatetime, &o.Voided); err != nil {
			return err
		}
		if enc := byID[o.EncounterID]; enc != nil {
			enc.Obs = append(enc.Obs, &o)
		}
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *repoPG) scanEncounter(row rowScanner) (*Encounter, error) {
	var e Encounter
	err := row.Scan(
		&e.ID, &e.VisitID, &e.PatientID, &e.EncounterTypeID, &e.EncounterDatetime, &e.LocationID,
		&e.Voided, &e.DateVoided, &e.VoidReason, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEncounterNotFound
		}
		return nil, err
	}
	return &e, nil
}
