// internal/pipeline/store/store.go

// Package store owns the persisted state of applications: the record per
// application and its append-only timeline. Two backends exist: an
// in-memory store and a PostgreSQL store. Both serialize mutations per
// application and hand out snapshot copies to readers.
package store

import (
	"context"

	"hiring-pipeline/internal/models"
)

// Store is the application record store. Update is the per-application
// mutual-exclusion scope: fn runs with exclusive ownership of the record,
// and its mutations (stage pointer, stage payloads, timeline events) commit
// atomically as one unit or not at all.
type Store interface {
	// Create persists a new application record.
	Create(ctx context.Context, app *models.Application) error
	// Get returns a snapshot copy of the application.
	Get(ctx context.Context, id string) (*models.Application, error)
	// List returns snapshot copies of every application. The copies are
	// mutually consistent per record; the aggregator computes stats from
	// this snapshot without blocking writers.
	List(ctx context.Context) ([]*models.Application, error)
	// Update applies fn to the application under its exclusion scope and
	// commits the result. A domain error returned by fn aborts the commit
	// and is surfaced unchanged.
	Update(ctx context.Context, id string, fn func(app *models.Application) error) (*models.Application, error)
	// EventsFor returns the application's timeline in insertion order.
	// Events are write-once: no update or delete path exists.
	EventsFor(ctx context.Context, id string) ([]models.TimelineEvent, error)
}
