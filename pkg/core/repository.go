package core

import "context"

// Repository defines the contract of the local note store.
// Adhering to this interface keeps the core independent of the underlying
// storage mechanism (files, SQLite, memory).
type Repository interface {
	// Initialize provisions the table on first open. Opening an already
	// initialized store must not alter existing data.
	Initialize(ctx context.Context) error

	// List returns every note ordered by ID descending. An empty store yields
	// an empty slice, not an error.
	List(ctx context.Context) ([]Note, error)

	// Get retrieves a note by ID, returning ErrNotFound when absent.
	Get(ctx context.Context, id int64) (Note, error)

	// Save replaces the record with the same ID entirely, or inserts it.
	// Readers never observe a partially written record.
	Save(ctx context.Context, n Note) error

	// Delete removes the record with that ID. Deleting an absent ID is a no-op.
	Delete(ctx context.Context, id int64) error

	// Close releases the underlying resources.
	Close() error
}

// RemoteIndex is implemented by repositories that can look a note up by the
// identifier the remote sink assigned to it.
type RemoteIndex interface {
	FindByRemoteID(ctx context.Context, remoteID string) (Note, error)
}

// Watchable is implemented by repositories that can report changes made to
// the store outside of this process.
type Watchable interface {
	Watch(ctx context.Context, pattern string) (<-chan Event, error)
}

// Sink is the remote note service. Create performs a single unconditional
// write and returns the identifier the service assigned.
type Sink interface {
	Create(ctx context.Context, n Note) (string, error)
}
