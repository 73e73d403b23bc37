package fs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/notenest/pkg/core"
)

const (
	// DefaultSystemDir holds the manifest and the index cache.
	DefaultSystemDir = ".notenest"
	// TableName is the directory holding one file per note.
	TableName = "notes"
	// KeyPath names the primary key of the table.
	KeyPath = "id"

	manifestVersion = 1
)

var errNoID = errors.New("note has no ID")

// Repository implements core.Repository on a directory of record files.
//
// Layout:
//
//	<root>/notes/<id>.json|yaml   one record per note
//	<root>/.notenest/table.json   table manifest
//	<root>/.notenest/index.json   disposable remote-id index
type Repository struct {
	Path        string
	config      Config
	serializer  Serializer
	serializers map[string]Serializer
	cache       *cache

	mu            sync.RWMutex
	readOnly      bool
	watcherActive bool
	lastReconcile *time.Time
}

// Config holds the configuration for the filesystem repository.
type Config struct {
	Path         string
	MustExist    bool
	ReadOnly     bool
	Strict       bool
	Format       string // "json" (default) or "yaml"
	SystemDir    string // default ".notenest"
	Logger       *slog.Logger
	ErrorHandler func(error) // watcher errors; logged when nil
}

// manifest describes the table to anyone opening the directory.
type manifest struct {
	Version int    `json:"version"`
	Table   string `json:"table"`
	KeyPath string `json:"keyPath"`
}

// NewRepository creates a new filesystem-backed repository. It performs no
// I/O; call Initialize before use.
func NewRepository(config Config) (*Repository, error) {
	if config.SystemDir == "" {
		config.SystemDir = DefaultSystemDir
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	serializer, err := SerializerFor(config.Format, config.Strict)
	if err != nil {
		return nil, err
	}
	return &Repository{
		Path:        config.Path,
		config:      config,
		serializer:  serializer,
		serializers: DefaultSerializers(config.Strict),
		cache:       newCache(config.Path, config.SystemDir),
		readOnly:    config.ReadOnly,
	}, nil
}

func (r *Repository) tableDir() string {
	return filepath.Join(r.Path, TableName)
}

func (r *Repository) manifestPath() string {
	return filepath.Join(r.Path, r.config.SystemDir, "table.json")
}

// Initialize provisions the table on first open.
//
// Workflow:
//  1. Check (or create) the root directory.
//  2. Create the table directory.
//  3. Write the manifest when it is missing; an existing one is only checked.
//
// Running it against an initialized store changes nothing on disk.
func (r *Repository) Initialize(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if r.config.MustExist || r.readOnly {
		info, err := os.Stat(r.Path)
		if os.IsNotExist(err) {
			return core.Storage("initialize", fmt.Errorf("store path does not exist: %s", r.Path))
		}
		if err != nil {
			return core.Storage("initialize", err)
		}
		if !info.IsDir() {
			return core.Storage("initialize", fmt.Errorf("store path is not a directory: %s", r.Path))
		}
	}

	m, err := r.readManifest()
	switch {
	case err == nil:
		if m.Table != TableName || m.KeyPath != KeyPath {
			return core.Storage("initialize", fmt.Errorf("manifest describes table %q keyed by %q", m.Table, m.KeyPath))
		}
	case !os.IsNotExist(err):
		return core.Storage("initialize", err)
	case r.readOnly:
		// Nothing to provision; an absent table reads as empty.
	default:
		if err := r.writeManifest(); err != nil {
			return core.Storage("initialize", err)
		}
	}

	if r.readOnly {
		return nil
	}
	if err := os.MkdirAll(r.tableDir(), 0755); err != nil {
		return core.Storage("initialize", err)
	}
	return nil
}

func (r *Repository) readManifest() (manifest, error) {
	var m manifest
	data, err := os.ReadFile(r.manifestPath())
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("invalid manifest: %w", err)
	}
	return m, nil
}

func (r *Repository) writeManifest() error {
	path := r.manifestPath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(manifest{Version: manifestVersion, Table: TableName, KeyPath: KeyPath}, "", "  ")
	if err != nil {
		return err
	}
	r.config.Logger.Debug("provisioning table", "path", r.Path)
	return writeFileAtomic(path, data, 0644)
}

func (r *Repository) relPath(id int64, ext string) string {
	return filepath.ToSlash(filepath.Join(TableName, strconv.FormatInt(id, 10)+ext))
}

// parseID extracts the note id from a record file name. ok is false for
// files that are not records.
func (r *Repository) parseID(name string) (id int64, ext string, ok bool) {
	base := filepath.Base(name)
	if isTempFile(base) {
		return 0, "", false
	}
	ext = filepath.Ext(base)
	if _, known := r.serializers[ext]; !known {
		return 0, "", false
	}
	id, err := strconv.ParseInt(strings.TrimSuffix(base, ext), 10, 64)
	if err != nil || id == 0 {
		return 0, "", false
	}
	return id, ext, true
}

// Save persists a note as a single record file, replacing any previous
// version regardless of its format.
//
// Workflow:
//  1. Refuse writes in read-only mode and notes without an ID.
//  2. Serialize the record and write it atomically.
//  3. Remove a copy of the record in another format, if any.
//  4. Refresh the remote-id index.
func (r *Repository) Save(ctx context.Context, n core.Note) error {
	if r.isReadOnly() {
		return core.ErrReadOnly
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if n.ID == 0 {
		return core.Storage("save", errNoID)
	}

	data, err := r.serializer.Marshal(core.ToRecord(n))
	if err != nil {
		return core.Storage("save", fmt.Errorf("serialize note %d: %w", n.ID, err))
	}

	if err := os.MkdirAll(r.tableDir(), 0755); err != nil {
		return core.Storage("save", err)
	}

	rel := r.relPath(n.ID, r.serializer.Ext())
	full := filepath.Join(r.Path, rel)
	if err := writeFileAtomic(full, data, 0644); err != nil {
		return core.Storage("save", err)
	}

	for ext := range r.serializers {
		if ext == r.serializer.Ext() {
			continue
		}
		stale := r.relPath(n.ID, ext)
		if err := os.Remove(filepath.Join(r.Path, stale)); err == nil {
			r.cache.Delete(stale)
		}
	}

	if info, err := os.Stat(full); err == nil {
		r.cache.Set(rel, &indexEntry{ID: n.ID, RemoteID: n.RemoteID, LastModified: info.ModTime()})
	}
	r.saveCache()
	return nil
}

// Get retrieves a note by ID.
func (r *Repository) Get(ctx context.Context, id int64) (core.Note, error) {
	if err := ctx.Err(); err != nil {
		return core.Note{}, err
	}

	n, _, err := r.read(id)
	return n, err
}

// read tries the configured format first, then the others.
func (r *Repository) read(id int64) (core.Note, os.FileInfo, error) {
	exts := []string{r.serializer.Ext()}
	for ext := range r.serializers {
		if ext != r.serializer.Ext() {
			exts = append(exts, ext)
		}
	}

	for _, ext := range exts {
		full := filepath.Join(r.Path, r.relPath(id, ext))
		n, info, err := r.readFile(full, ext)
		if os.IsNotExist(err) {
			continue
		}
		return n, info, err
	}
	return core.Note{}, nil, core.ErrNotFound
}

func (r *Repository) readFile(full, ext string) (core.Note, os.FileInfo, error) {
	data, err := os.ReadFile(full)
	if err != nil {
		if os.IsNotExist(err) {
			return core.Note{}, nil, err
		}
		return core.Note{}, nil, core.Storage("read", err)
	}
	info, err := os.Stat(full)
	if err != nil {
		return core.Note{}, nil, core.Storage("read", err)
	}

	rec, err := r.serializers[ext].Unmarshal(data)
	if err != nil {
		return core.Note{}, nil, core.Storage("read", fmt.Errorf("%s: %w", filepath.Base(full), err))
	}
	n, err := rec.Note()
	if err != nil {
		return core.Note{}, nil, core.Storage("read", fmt.Errorf("%s: %w", filepath.Base(full), err))
	}
	return n, info, nil
}

// List returns every note, ID descending.
//
// Strategy:
//  1. Load the index cache.
//  2. Read every record file in the table directory.
//  3. Refresh index entries and prune the ones whose files are gone.
//  4. Save the cache back to disk (best effort).
func (r *Repository) List(ctx context.Context) ([]core.Note, error) {
	if err := r.cache.Load(); err != nil {
		r.config.Logger.Warn("index cache unreadable, rebuilding", "error", err)
	}

	entries, err := os.ReadDir(r.tableDir())
	if os.IsNotExist(err) {
		return []core.Note{}, nil
	}
	if err != nil {
		return nil, core.Storage("list", err)
	}

	notes := make([]core.Note, 0, len(entries))
	seen := make(map[string]bool)
	ids := make(map[int64]string)
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if e.IsDir() {
			continue
		}
		id, ext, ok := r.parseID(e.Name())
		if !ok {
			continue
		}
		if prev, dup := ids[id]; dup {
			r.config.Logger.Warn("note stored in two formats, keeping the first", "id", id, "kept", prev, "skipped", ext)
			continue
		}

		n, info, err := r.readFile(filepath.Join(r.tableDir(), e.Name()), ext)
		if os.IsNotExist(err) {
			continue // removed while listing
		}
		if err != nil {
			return nil, err
		}

		rel := r.relPath(id, ext)
		ids[id] = ext
		seen[rel] = true
		r.cache.Set(rel, &indexEntry{ID: n.ID, RemoteID: n.RemoteID, LastModified: info.ModTime()})
		notes = append(notes, n)
	}

	r.cache.Prune(seen)
	r.saveCache()

	sort.Slice(notes, func(i, j int) bool { return notes[i].ID > notes[j].ID })
	return notes, nil
}

// FindByRemoteID implements core.RemoteIndex. It answers from the index cache
// when the matching file is unchanged and falls back to a full List, which
// also rebuilds the cache.
func (r *Repository) FindByRemoteID(ctx context.Context, remoteID string) (core.Note, error) {
	if remoteID == "" {
		return core.Note{}, core.ErrNotFound
	}
	if err := r.cache.Load(); err != nil {
		r.config.Logger.Warn("index cache unreadable, rebuilding", "error", err)
	}

	var candidates []string
	r.cache.Range(func(rel string, entry *indexEntry) bool {
		if entry.RemoteID == remoteID {
			candidates = append(candidates, rel)
		}
		return true
	})

	for _, rel := range candidates {
		full := filepath.Join(r.Path, rel)
		info, err := os.Stat(full)
		if err != nil {
			continue
		}
		if _, fresh := r.cache.Get(rel, info.ModTime()); !fresh {
			continue
		}
		_, ext, ok := r.parseID(rel)
		if !ok {
			continue
		}
		n, _, err := r.readFile(full, ext)
		if err == nil && n.RemoteID == remoteID {
			return n, nil
		}
	}

	notes, err := r.List(ctx)
	if err != nil {
		return core.Note{}, err
	}
	for _, n := range notes {
		if n.RemoteID == remoteID {
			return n, nil
		}
	}
	return core.Note{}, core.ErrNotFound
}

// Delete removes the record of id in any format. Absent ids are a no-op.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	if r.isReadOnly() {
		return core.ErrReadOnly
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for ext := range r.serializers {
		rel := r.relPath(id, ext)
		if err := os.Remove(filepath.Join(r.Path, rel)); err != nil && !os.IsNotExist(err) {
			return core.Storage("delete", err)
		}
		r.cache.Delete(rel)
	}
	r.saveCache()
	return nil
}

// Close flushes the index cache.
func (r *Repository) Close() error {
	if r.isReadOnly() {
		return nil
	}
	return r.cache.Save()
}

// saveCache persists the index. The index can always be rebuilt, so a failure
// is logged and never fails the caller.
func (r *Repository) saveCache() {
	if r.isReadOnly() {
		return
	}
	if err := r.cache.Save(); err != nil {
		r.config.Logger.Warn("failed to save index cache", "error", err)
	}
}

func (r *Repository) isReadOnly() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.readOnly
}

// Reconcile compares the index cache with the table directory and returns an
// event for every record that appeared, changed, or disappeared since the
// cache was last refreshed. The cache is refreshed as a side effect.
func (r *Repository) Reconcile(ctx context.Context) ([]core.Event, error) {
	if err := r.cache.Load(); err != nil {
		r.config.Logger.Warn("index cache unreadable, rebuilding", "error", err)
	}
	before := r.cache.Snapshot()

	if _, err := r.List(ctx); err != nil {
		return nil, err
	}
	after := r.cache.Snapshot()

	now := time.Now().Unix()
	var events []core.Event
	for rel, cur := range after {
		prev, ok := before[rel]
		switch {
		case !ok:
			events = append(events, core.Event{Type: core.EventCreate, ID: cur.ID, RemoteID: cur.RemoteID, Timestamp: now})
		case !prev.LastModified.Equal(cur.LastModified):
			events = append(events, core.Event{Type: core.EventModify, ID: cur.ID, RemoteID: cur.RemoteID, Timestamp: now})
		}
	}
	for rel, prev := range before {
		if _, ok := after[rel]; !ok {
			events = append(events, core.Event{Type: core.EventDelete, ID: prev.ID, RemoteID: prev.RemoteID, Timestamp: now})
		}
	}
	sort.Slice(events, func(i, j int) bool { return events[i].ID < events[j].ID })

	r.recordReconcile()
	return events, nil
}

var (
	_ core.Repository  = (*Repository)(nil)
	_ core.RemoteIndex = (*Repository)(nil)
	_ core.Watchable   = (*Repository)(nil)
)
