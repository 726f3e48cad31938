package adt

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/emrapi/internal/domain/encounter"
	"github.com/ehr/emrapi/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) VisitRepository {
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

// Candidate visits: in scope and holding at least one live consult with a
// live disposition observation.
const candidateVisitsSQL = `
	SELECT v.id, v.patient_id, v.visit_type_id, v.location_id, v.date_started, v.date_stopped, v.voided, v.created_at
	FROM visit v
	WHERE v.voided = FALSE
		AND ($1::uuid IS NULL OR v.location_id = $1)
		AND ($2::uuid[] IS NULL OR v.patient_id = ANY($2))
		AND ($3::uuid[] IS NULL OR v.id = ANY($3))
		AND ($4::boolean = FALSE OR v.date_stopped IS NULL)
		AND EXISTS (
			SELECT 1 FROM encounter e
			JOIN obs o ON o.encounter_id = e.id
			WHERE e.visit_id = v.id
				AND e.voided = FALSE
				AND e.encounter_type_id = $5
				AND o.voided = FALSE
				AND o.concept_id = $6
		)
	ORDER BY v.id`

const visitEncountersSQL = `
	SELECT id, visit_id, patient_id, encounter_type_id, encounter_datetime, location_id,
		voided, date_voided, void_reason, created_at, updated_at
	FROM encounter
	WHERE visit_id = ANY($1) AND encounter_type_id = ANY($2) AND voided = FALSE
	ORDER BY visit_id, encounter_datetime, id`

const dispositionObsSQL = `
	SELECT id, encounter_id, concept_id, value_coded, obs_datetime, voided
	FROM obs
	WHERE encounter_id = ANY($1) AND concept_id = $2 AND voided = FALSE`

func (r *repoPG) FindCandidateVisits(ctx context.Context, scope Scope, types EncounterTypes, dispositionConcept uuid.UUID) ([]*encounter.Visit, error) {
	var patients, visitIDs []uuid.UUID
	if scope.Patients != nil {
		patients = scope.Patients.Slice()
	}
	if scope.Visits != nil {
		visitIDs = scope.Visits.Slice()
	}

	rows, err := r.conn(ctx).Query(ctx, candidateVisitsSQL,
		scope.LocationID, patients, visitIDs, scope.ActiveOnly, types.Consult, dispositionConcept)
	if err != nil {
		return nil, err
	}
	var visits []*encounter.Visit
	byID := make(map[uuid.UUID]*encounter.Visit)
	for rows.Next() {
		var v encounter.Visit
		if err := rows.Scan(&v.ID, &v.PatientID, &v.VisitTypeID, &v.LocationID, &v.StartDatetime,
			&v.StopDatetime, &v.Voided, &v.CreatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		visits = append(visits, &v)
		byID[v.ID] = &v
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(visits) == 0 {
		return visits, nil
	}

	encs, err := r.loadEncounters(ctx, byID, types)
	if err != nil {
		return nil, err
	}
	if err := r.loadDispositionObs(ctx, encs, dispositionConcept); err != nil {
		return nil, err
	}
	return visits, nil
}

func (r *repoPG) loadEncounters(ctx context.Context, visits map[uuid.UUID]*encounter.Visit, types EncounterTypes) (map[uuid.UUID]*encounter.Encounter, error) {
	ids := make([]uuid.UUID, 0, len(visits))
	for id := range visits {
		ids = append(ids, id)
	}
	rows, err := r.conn(ctx).Query(ctx, visitEncountersSQL, ids, []uuid.UUID{types.Consult, types.Admission})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	encs := make(map[uuid.UUID]*encounter.Encounter)
	for rows.Next() {
		var e encounter.Encounter
		if err := rows.Scan(&e.ID, &e.VisitID, &e.PatientID, &e.EncounterTypeID, &e.EncounterDatetime,
			&e.LocationID, &e.Voided, &e.DateVoided, &e.VoidReason, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		if e.VisitID == nil {
			continue
		}
		if v := visits[*e.VisitID]; v != nil {
			v.Encounters = append(v.Encounters, &e)
			encs[e.ID] = &e
		}
	}
	return encs, rows.Err()
}

func (r *repoPG) loadDispositionObs(ctx context.Context, encs map[uuid.UUID]*encounter.Encounter, dispositionConcept uuid.UUID) error {
	if len(encs) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(encs))
	for id := range encs {
		ids = append(ids, id)
	}
	rows, err := r.conn(ctx).Query(ctx, dispositionObsSQL, ids, dispositionConcept)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var o encounter.Observation
		if err := rows.Scan(&o.ID, &o.EncounterID, &o.ConceptID, &o.ValueCoded, &o.ObsDatetime, &o.Voided); err != nil {
			return err
		}
		if e := encs[o.EncounterID]; e != nil {
			e.Obs = append(e.Obs, &o)
		}
	}
	return rows.Err()
}
