// internal/pipeline/store/memory.go
package store

import (
	"context"
	"sort"
	"sync"

	pipelineerrors "hiring-pipeline/internal/common/errors"
	"hiring-pipeline/internal/models"
)

// MemoryStore keeps applications in process memory. Each application has
// its own mutex, so transitions on different applications never contend;
// the outer lock only guards the map structure.
type MemoryStore struct {
	mu   sync.RWMutex
	apps map[string]*memoryEntry
}

type memoryEntry struct {
	mu  sync.Mutex
	app *models.Application
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{apps: make(map[string]*memoryEntry)}
}

func (s *MemoryStore) Create(_ context.Context, app *models.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.apps[app.ID]; exists {
		return pipelineerrors.NewConcurrentModification(app.ID)
	}
	s.apps[app.ID] = &memoryEntry{app: app.Clone()}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*models.Application, error) {
	entry, err := s.entry(id)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.app.Clone(), nil
}

func (s *MemoryStore) List(_ context.Context) ([]*models.Application, error) {
	s.mu.RLock()
	entries := make([]*memoryEntry, 0, len(s.apps))
	for _, e := range s.apps {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	out := make([]*models.Application, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, e.app.Clone())
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) Update(_ context.Context, id string, fn func(app *models.Application) error) (*models.Application, error) {
	entry, err := s.entry(id)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	// fn works on a copy; the stored record only changes on success, so a
	// failed transition leaves no partial mutation behind.
	draft := entry.app.Clone()
	if err := fn(draft); err != nil {
		return nil, err
	}
	draft.Version++
	entry.app = draft
	return draft.Clone(), nil
}

func (s *MemoryStore) EventsFor(_ context.Context, id string) ([]models.TimelineEvent, error) {
	app, err := s.Get(context.Background(), id)
	if err != nil {
		return nil, err
	}
	return app.Timeline, nil
}

func (s *MemoryStore) entry(id string) (*memoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.apps[id]
	if !ok {
		return nil, pipelineerrors.NewApplicationNotFound(id)
	}
	return entry, nil
}
