// internal/pipeline/store/postgres.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"

	pipelineerrors "hiring-pipeline/internal/common/errors"
	"hiring-pipeline/internal/models"
	"hiring-pipeline/internal/pipeline/stage"
)

// Schema holds the DDL for the Postgres backend. The timeline_events table
// is insert-only: no UPDATE or DELETE statement exists anywhere in this
// package.
const Schema = `
CREATE TABLE IF NOT EXISTS applications (
	id            TEXT PRIMARY KEY,
	candidate_id  TEXT NOT NULL,
	job_id        TEXT NOT NULL,
	current_stage TEXT NOT NULL,
	stage_data    JSONB NOT NULL,
	rejection     JSONB,
	timeline      JSONB NOT NULL,
	version       INTEGER NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS timeline_events (
	application_id TEXT NOT NULL,
	seq            INTEGER NOT NULL,
	event_id       TEXT NOT NULL,
	stage          TEXT NOT NULL,
	ts             TIMESTAMPTZ NOT NULL,
	description    TEXT NOT NULL,
	actor_id       TEXT NOT NULL,
	actor_kind     TEXT NOT NULL,
	automated      BOOLEAN NOT NULL,
	PRIMARY KEY (application_id, seq)
);
`

const applicationColumns = `id, candidate_id, job_id, current_stage, stage_data, rejection, timeline, version, created_at, updated_at`

// PostgresStore persists applications in PostgreSQL. Concurrent mutations
// of one application are resolved optimistically: the UPDATE carries the
// version the writer read, and a lost race surfaces as
// CONCURRENT_MODIFICATION for the caller to retry.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an open database handle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the tables when they do not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return pipelineerrors.NewStorageQueryFailed("ensure schema", err)
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, app *models.Application) error {
	stageData, rejection, timeline, err := encodeApplication(app)
	if err != nil {
		return pipelineerrors.NewStorageQueryFailed("encode application", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return pipelineerrors.NewStorageUnavailable(err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO applications (
			id, candidate_id, job_id, current_stage, stage_data,
			rejection, timeline, version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		app.ID, app.CandidateID, app.JobID, string(app.CurrentStage),
		stageData, rejection, timeline, app.Version, app.CreatedAt, app.UpdatedAt,
	)
	if err != nil {
		return pipelineerrors.NewStorageQueryFailed("insert application", err)
	}

	if err := insertEvents(ctx, tx, app.ID, app.Timeline); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return pipelineerrors.NewStorageQueryFailed("commit create", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*models.Application, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+applicationColumns+`
		FROM applications WHERE id = $1`, id)
	return scanApplication(id, row)
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Application, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+applicationColumns+`
		FROM applications ORDER BY created_at`)
	if err != nil {
		return nil, pipelineerrors.NewStorageQueryFailed("list applications", err)
	}
	defer rows.Close()

	var out []*models.Application
	for rows.Next() {
		app, err := scanApplication("", rows)
		if err != nil {
			return nil, err
		}
		out = append(out, app)
	}
	if err := rows.Err(); err != nil {
		return nil, pipelineerrors.NewStorageQueryFailed("list applications", err)
	}
	return out, nil
}

func (s *PostgresStore) Update(ctx context.Context, id string, fn func(app *models.Application) error) (*models.Application, error) {
	app, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	readVersion := app.Version
	priorEvents := len(app.Timeline)

	if err := fn(app); err != nil {
		return nil, err
	}
	app.Version = readVersion + 1

	stageData, rejection, timeline, err := encodeApplication(app)
	if err != nil {
		return nil, pipelineerrors.NewStorageQueryFailed("encode application", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, pipelineerrors.NewStorageUnavailable(err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE applications
		SET current_stage = $1, stage_data = $2, rejection = $3,
		    timeline = $4, version = $5, updated_at = $6
		WHERE id = $7 AND version = $8`,
		string(app.CurrentStage), stageData, rejection, timeline,
		app.Version, app.UpdatedAt, id, readVersion,
	)
	if err != nil {
		return nil, pipelineerrors.NewStorageQueryFailed("update application", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, pipelineerrors.NewStorageQueryFailed("update application", err)
	}
	if affected == 0 {
		// Row exists (Get succeeded) but the version moved underneath us.
		return nil, pipelineerrors.NewConcurrentModification(id)
	}

	if err := insertEvents(ctx, tx, id, app.Timeline[priorEvents:]); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, pipelineerrors.NewStorageQueryFailed("commit update", err)
	}
	return app, nil
}

func (s *PostgresStore) EventsFor(ctx context.Context, id string) ([]models.TimelineEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT event_id, seq, stage, ts, description, actor_id, actor_kind, automated
		FROM timeline_events
		WHERE application_id = $1
		ORDER BY seq`, id)
	if err != nil {
		return nil, pipelineerrors.NewStorageQueryFailed("list events", err)
	}
	defer rows.Close()

	var out []models.TimelineEvent
	for rows.Next() {
		var ev models.TimelineEvent
		var actorKind string
		var st string
		if err := rows.Scan(&ev.ID, &ev.Seq, &st, &ev.Timestamp, &ev.Description,
			&ev.Actor.ID, &actorKind, &ev.Automated); err != nil {
			return nil, pipelineerrors.NewStorageQueryFailed("scan event", err)
		}
		ev.Stage = stageFromDB(st)
		ev.Actor.Kind = models.ActorKind(actorKind)
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, pipelineerrors.NewStorageQueryFailed("list events", err)
	}
	if out == nil {
		// Distinguish "no events" from "no application".
		if _, err := s.Get(ctx, id); err != nil {
			return nil, err
		}
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanApplication(id string, row rowScanner) (*models.Application, error) {
	var app models.Application
	var currentStage string
	var stageData, timeline []byte
	var rejection sql.NullString

	err := row.Scan(
		&app.ID, &app.CandidateID, &app.JobID, &currentStage,
		&stageData, &rejection, &timeline, &app.Version,
		&app.CreatedAt, &app.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, pipelineerrors.NewApplicationNotFound(id)
	}
	if err != nil {
		return nil, pipelineerrors.NewStorageQueryFailed("scan application", err)
	}

	app.CurrentStage = stageFromDB(currentStage)
	if err := json.Unmarshal(stageData, &app.StageData); err != nil {
		return nil, pipelineerrors.NewStorageQueryFailed("decode stage data", err)
	}
	if err := json.Unmarshal(timeline, &app.Timeline); err != nil {
		return nil, pipelineerrors.NewStorageQueryFailed("decode timeline", err)
	}
	if rejection.Valid {
		var rec models.RejectionRecord
		if err := json.Unmarshal([]byte(rejection.String), &rec); err != nil {
			return nil, pipelineerrors.NewStorageQueryFailed("decode rejection", err)
		}
		app.Rejection = &rec
	}
	return &app, nil
}

func encodeApplication(app *models.Application) (stageData, rejection, timeline interface{}, err error) {
	sd, err := json.Marshal(app.StageData)
	if err != nil {
		return nil, nil, nil, err
	}
	tl, err := json.Marshal(app.Timeline)
	if err != nil {
		return nil, nil, nil, err
	}
	var rj interface{}
	if app.Rejection != nil {
		b, err := json.Marshal(app.Rejection)
		if err != nil {
			return nil, nil, nil, err
		}
		rj = b
	}
	return sd, rj, tl, nil
}

// stageFromDB trusts the stored value; rows are only ever written through
// the engine, which validates stages before they reach the store.
func stageFromDB(s string) stage.Stage {
	return stage.Stage(s)
}

func insertEvents(ctx context.Context, tx *sql.Tx, appID string, events []models.TimelineEvent) error {
	for _, ev := range events {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO timeline_events (
				application_id, seq, event_id, stage, ts,
				description, actor_id, actor_kind, automated
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			appID, ev.Seq, ev.ID, string(ev.Stage), ev.Timestamp,
			ev.Description, ev.Actor.ID, string(ev.Actor.Kind), ev.Automated,
		)
		if err != nil {
			return pipelineerrors.NewStorageQueryFailed("insert event", err)
		}
	}
	return nil
}
