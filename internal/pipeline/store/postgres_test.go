// internal/pipeline/store/postgres_test.go
package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pipelineerrors "hiring-pipeline/internal/common/errors"
	"hiring-pipeline/internal/models"
	"hiring-pipeline/internal/pipeline/stage"
)

var pgColumns = []string{
	"id", "candidate_id", "job_id", "current_stage", "stage_data",
	"rejection", "timeline", "version", "created_at", "updated_at",
}

func appRow(version int) *sqlmock.Rows {
	created := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(pgColumns).AddRow(
		"app-1", "cand-1", "job-1", "applied",
		[]byte(`{"applied":{"assignedTests":["go-basics"],"assignedCaseStudies":[]}}`),
		nil,
		[]byte(`[{"id":"e0","seq":0,"stage":"applied","timestamp":"2026-08-01T00:00:00Z","description":"application submitted","actor":{"id":"r1","kind":"human"},"automated":false}]`),
		version, created, created,
	)
}

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresStore(db), mock
}

func TestPostgresStoreGet(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT (.+) FROM applications WHERE id = \$1`).
		WithArgs("app-1").
		WillReturnRows(appRow(2))

	app, err := s.Get(context.Background(), "app-1")
	require.NoError(t, err)
	assert.Equal(t, "app-1", app.ID)
	assert.Equal(t, stage.Applied, app.CurrentStage)
	assert.Equal(t, 2, app.Version)

	applied, ok := app.StageData[stage.Applied].(*models.AppliedPayload)
	require.True(t, ok)
	assert.Equal(t, []string{"go-basics"}, applied.AssignedTests)

	require.Len(t, app.Timeline, 1)
	assert.Equal(t, models.ActorKindHuman, app.Timeline[0].Actor.Kind)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreGetNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT (.+) FROM applications WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := s.Get(context.Background(), "missing")
	assert.Equal(t, pipelineerrors.ErrCodeApplicationNotFound, pipelineerrors.CodeOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreCreate(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO applications`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO timeline_events`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	app := newApp("app-1", time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, s.Create(context.Background(), app))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreUpdate(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT (.+) FROM applications WHERE id = \$1`).
		WithArgs("app-1").
		WillReturnRows(appRow(2))
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE applications`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// Only the event appended by fn is inserted, not the whole timeline.
	mock.ExpectExec(`INSERT INTO timeline_events`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	updated, err := s.Update(context.Background(), "app-1", func(app *models.Application) error {
		app.CurrentStage = stage.Qualified
		app.Timeline = append(app.Timeline, models.TimelineEvent{
			ID: "e1", Seq: app.NextSeq(), Stage: stage.Qualified, Timestamp: time.Now().UTC(),
		})
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, updated.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// The UPDATE is guarded by the version read at the start; zero affected
// rows means another writer got there first.
func TestPostgresStoreUpdateVersionConflict(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT (.+) FROM applications WHERE id = \$1`).
		WithArgs("app-1").
		WillReturnRows(appRow(2))
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE applications`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := s.Update(context.Background(), "app-1", func(app *models.Application) error {
		app.CurrentStage = stage.Qualified
		return nil
	})
	require.Error(t, err)
	assert.Equal(t, pipelineerrors.ErrCodeConcurrentModification, pipelineerrors.CodeOf(err))
	assert.True(t, pipelineerrors.IsRetryable(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreUpdateDomainErrorSkipsWrite(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT (.+) FROM applications WHERE id = \$1`).
		WithArgs("app-1").
		WillReturnRows(appRow(2))

	_, err := s.Update(context.Background(), "app-1", func(app *models.Application) error {
		return pipelineerrors.NewAlreadyInStage("applied")
	})
	assert.Equal(t, pipelineerrors.ErrCodeAlreadyInStage, pipelineerrors.CodeOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreEventsFor(t *testing.T) {
	s, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{
		"event_id", "seq", "stage", "ts", "description", "actor_id", "actor_kind", "automated",
	}).
		AddRow("e0", 0, "applied", time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), "application submitted", "r1", "human", false).
		AddRow("e1", 1, "qualified", time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC), "advanced from applied to qualified", "pipeline", "system", true)

	mock.ExpectQuery(`SELECT (.+) FROM timeline_events`).
		WithArgs("app-1").
		WillReturnRows(rows)

	events, err := s.EventsFor(context.Background(), "app-1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, stage.Qualified, events[1].Stage)
	assert.True(t, events[1].Automated)
	assert.NoError(t, mock.ExpectationsWereMet())
}
