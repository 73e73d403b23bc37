// Package sqlite stores notes in a single SQLite table through database/sql
// and the pure Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/aretw0/notenest/pkg/core"
)

// schema provisions the notes table. The full note is kept as a JSON record;
// remote_id is duplicated into its own column so it can be indexed.
const schema = `
CREATE TABLE IF NOT EXISTS notes (
    id INTEGER PRIMARY KEY,
    remote_id TEXT,
    record TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notes_remote_id ON notes(remote_id) WHERE remote_id IS NOT NULL;
`

const upsert = `
INSERT INTO notes (id, remote_id, record) VALUES (?, ?, ?)
ON CONFLICT(id) DO UPDATE SET remote_id = excluded.remote_id, record = excluded.record
`

var errNoID = errors.New("note has no ID")

// Config holds the configuration for the SQLite repository.
type Config struct {
	Path     string // database file; ":memory:" for a throwaway store
	ReadOnly bool
	Logger   *slog.Logger
}

// Repository implements core.Repository on SQLite.
type Repository struct {
	mu     sync.RWMutex
	db     *sql.DB
	config Config
	ready  bool // table exists
	closed bool
}

// NewRepository opens the database handle. The table is provisioned by
// Initialize.
func NewRepository(config Config) (*Repository, error) {
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	dsn := config.Path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	if config.ReadOnly {
		dsn = "file:" + config.Path + "?mode=ro&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, core.Storage("open", err)
	}
	// Single writer: one connection serializes statements.
	db.SetMaxOpenConns(1)
	return &Repository{db: db, config: config}, nil
}

// Initialize creates the table if it does not exist yet. In read-only mode it
// only checks for it; a missing table reads as empty.
func (r *Repository) Initialize(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.config.ReadOnly {
		var name string
		err := r.db.QueryRowContext(ctx, `SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'notes'`).Scan(&name)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			r.ready = false
			return nil
		case err != nil:
			return core.Storage("initialize", err)
		}
		r.ready = true
		return nil
	}

	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return core.Storage("initialize", fmt.Errorf("create schema: %w", err))
	}
	r.ready = true
	r.config.Logger.Debug("sqlite table ready", "path", r.config.Path)
	return nil
}

func (r *Repository) isReady() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ready
}

// List returns every note, ID descending.
func (r *Repository) List(ctx context.Context) ([]core.Note, error) {
	notes := make([]core.Note, 0)
	if !r.isReady() {
		return notes, nil
	}

	rows, err := r.db.QueryContext(ctx, `SELECT record FROM notes ORDER BY id DESC`)
	if err != nil {
		return nil, core.Storage("list", err)
	}
	defer rows.Close()

	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, core.Storage("list", err)
		}
		n, err := decode(raw)
		if err != nil {
			return nil, core.Storage("list", err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, core.Storage("list", err)
	}
	return notes, nil
}

// Get retrieves a note by ID.
func (r *Repository) Get(ctx context.Context, id int64) (core.Note, error) {
	return r.queryOne(ctx, "get", `SELECT record FROM notes WHERE id = ?`, id)
}

// FindByRemoteID implements core.RemoteIndex.
func (r *Repository) FindByRemoteID(ctx context.Context, remoteID string) (core.Note, error) {
	if remoteID == "" {
		return core.Note{}, core.ErrNotFound
	}
	return r.queryOne(ctx, "find", `SELECT record FROM notes WHERE remote_id = ? LIMIT 1`, remoteID)
}

func (r *Repository) queryOne(ctx context.Context, op, query string, arg any) (core.Note, error) {
	if !r.isReady() {
		return core.Note{}, core.ErrNotFound
	}

	var raw string
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Note{}, core.ErrNotFound
	}
	if err != nil {
		return core.Note{}, core.Storage(op, err)
	}
	n, err := decode(raw)
	if err != nil {
		return core.Note{}, core.Storage(op, err)
	}
	return n, nil
}

// Save upserts the note in its own transaction.
func (r *Repository) Save(ctx context.Context, n core.Note) error {
	if r.config.ReadOnly {
		return core.ErrReadOnly
	}
	if n.ID == 0 {
		return core.Storage("save", errNoID)
	}

	data, err := json.Marshal(core.ToRecord(n))
	if err != nil {
		return core.Storage("save", fmt.Errorf("serialize note %d: %w", n.ID, err))
	}
	remoteID := sql.NullString{String: n.RemoteID, Valid: n.RemoteID != ""}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Storage("save", err)
	}
	defer tx.Rollback() // no-op after commit

	if _, err := tx.ExecContext(ctx, upsert, n.ID, remoteID, string(data)); err != nil {
		return core.Storage("save", err)
	}
	if err := tx.Commit(); err != nil {
		return core.Storage("save", err)
	}
	return nil
}

// Delete removes the note with id. Absent ids are a no-op.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	if r.config.ReadOnly {
		return core.ErrReadOnly
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id); err != nil {
		return core.Storage("delete", err)
	}
	return nil
}

// Close closes the database handle.
func (r *Repository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	r.ready = false
	return r.db.Close()
}

// ComponentType implements introspection.Component.
func (r *Repository) ComponentType() string { return "sqlite" }

func decode(raw string) (core.Note, error) {
	var rec core.Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return core.Note{}, fmt.Errorf("invalid record: %w", err)
	}
	return rec.Note()
}

var (
	_ core.Repository  = (*Repository)(nil)
	_ core.RemoteIndex = (*Repository)(nil)
)
