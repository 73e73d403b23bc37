// Package memory provides a process-local, non-durable note store.
// It backs tests and throwaway sessions.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/aretw0/notenest/pkg/core"
)

var errNoID = errors.New("note has no ID")

// Repository implements core.Repository in memory.
type Repository struct {
	mu    sync.RWMutex
	notes map[int64]core.Note
}

// NewRepository creates an empty in-memory repository.
func NewRepository() *Repository {
	return &Repository{notes: make(map[int64]core.Note)}
}

// Initialize is a no-op; the table exists from construction.
func (r *Repository) Initialize(ctx context.Context) error { return nil }

// List returns copies of every note, ID descending.
func (r *Repository) List(ctx context.Context) ([]core.Note, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	notes := make([]core.Note, 0, len(r.notes))
	for _, n := range r.notes {
		notes = append(notes, n.Clone())
	}
	sort.Slice(notes, func(i, j int) bool { return notes[i].ID > notes[j].ID })
	return notes, nil
}

// Get returns a copy of the note with id.
func (r *Repository) Get(ctx context.Context, id int64) (core.Note, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, ok := r.notes[id]
	if !ok {
		return core.Note{}, core.ErrNotFound
	}
	return n.Clone(), nil
}

// FindByRemoteID implements core.RemoteIndex.
func (r *Repository) FindByRemoteID(ctx context.Context, remoteID string) (core.Note, error) {
	if remoteID == "" {
		return core.Note{}, core.ErrNotFound
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, n := range r.notes {
		if n.RemoteID == remoteID {
			return n.Clone(), nil
		}
	}
	return core.Note{}, core.ErrNotFound
}

// Save stores a copy of n, replacing any record with the same ID.
func (r *Repository) Save(ctx context.Context, n core.Note) error {
	if n.ID == 0 {
		return core.Storage("save", errNoID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.notes[n.ID] = n.Clone()
	return nil
}

// Delete removes the note with id if present.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.notes, id)
	return nil
}

// Close is a no-op.
func (r *Repository) Close() error { return nil }

// ComponentType implements introspection.Component.
func (r *Repository) ComponentType() string { return "memory" }

var (
	_ core.Repository  = (*Repository)(nil)
	_ core.RemoteIndex = (*Repository)(nil)
)
