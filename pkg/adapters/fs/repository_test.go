package fs_test

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/notenest/pkg/adapters/fs"
	"github.com/aretw0/notenest/pkg/core"
)

// setupRepo creates an initialized repository in a fresh directory.
func setupRepo(t *testing.T, opts ...func(*fs.Config)) (*fs.Repository, string) {
	t.Helper()

	root := filepath.Join(t.TempDir(), "store")
	cfg := fs.Config{Path: root}
	for _, opt := range opts {
		opt(&cfg)
	}

	repo, err := fs.NewRepository(cfg)
	require.NoError(t, err)
	require.NoError(t, repo.Initialize(context.Background()))
	t.Cleanup(func() { _ = repo.Close() })
	return repo, root
}

func withFormat(format string) func(*fs.Config) {
	return func(c *fs.Config) { c.Format = format }
}

func sampleNotes() []core.Note {
	ts := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	reminder := ts.Add(24 * time.Hour)
	return []core.Note{
		{ID: 1, Title: "Text", Content: core.TextContent{Text: "line one\nline two"}, Category: "Work", Color: core.ColorYellow, Reminder: &reminder, CreatedAt: ts, UpdatedAt: ts},
		{ID: 2, RemoteID: "5f0c", Title: "List", Content: core.ListContent{Items: []string{"milk", "eggs"}}, Color: core.ColorBlue, Pinned: true, CreatedAt: ts, UpdatedAt: ts},
		{ID: 3, Title: "Empty list", Content: core.ListContent{Items: []string{}}, Color: core.ColorBlue, CreatedAt: ts, UpdatedAt: ts},
		{ID: 4, Title: "Image", Content: core.ImageContent{Blob: core.Blob{MediaType: "image/png", Data: []byte{1, 2, 3}}}, Color: core.ColorBlack, CreatedAt: ts, UpdatedAt: ts},
		{ID: 5, Title: "Audio", Content: core.AudioContent{Blob: core.Blob{MediaType: "audio/webm", Data: []byte("clip")}}, Color: core.ColorPink, CreatedAt: ts, UpdatedAt: ts},
		{ID: 6, Title: "Drawing", Content: core.DrawingContent{Data: "data:image/png;base64,AAAA"}, Color: core.ColorWhite, CreatedAt: ts, UpdatedAt: ts},
		{ID: 7, Title: "Empty text", Content: core.TextContent{}, Color: core.ColorRed, CreatedAt: ts, UpdatedAt: ts},
		{ID: 8, Title: "Empty image", Content: core.ImageContent{Blob: core.Blob{MediaType: "image/png"}}, Color: core.ColorGreen, CreatedAt: ts, UpdatedAt: ts},
	}
}

func TestInitialize(t *testing.T) {
	t.Run("Creates Table and Manifest", func(t *testing.T) {
		_, root := setupRepo(t)

		info, err := os.Stat(filepath.Join(root, "notes"))
		require.NoError(t, err)
		assert.True(t, info.IsDir())

		data, err := os.ReadFile(filepath.Join(root, ".notenest", "table.json"))
		require.NoError(t, err)
		var manifest map[string]any
		require.NoError(t, json.Unmarshal(data, &manifest))
		assert.Equal(t, map[string]any{"version": 1.0, "table": "notes", "keyPath": "id"}, manifest)
	})

	t.Run("Is Idempotent", func(t *testing.T) {
		repo, root := setupRepo(t)
		ctx := context.Background()
		require.NoError(t, repo.Save(ctx, sampleNotes()[0]))

		manifestPath := filepath.Join(root, ".notenest", "table.json")
		before, err := os.Stat(manifestPath)
		require.NoError(t, err)

		for i := 0; i < 3; i++ {
			require.NoError(t, repo.Initialize(ctx))
		}

		after, err := os.Stat(manifestPath)
		require.NoError(t, err)
		assert.Equal(t, before.ModTime(), after.ModTime())

		notes, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Len(t, notes, 1)
	})

	t.Run("Fails if MustExist and Missing", func(t *testing.T) {
		repo, err := fs.NewRepository(fs.Config{Path: filepath.Join(t.TempDir(), "missing"), MustExist: true})
		require.NoError(t, err)

		err = repo.Initialize(context.Background())
		assert.ErrorIs(t, err, core.ErrStorage)
	})

	t.Run("Rejects Foreign Manifest", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(root, ".notenest"), 0755))
		require.NoError(t, os.WriteFile(filepath.Join(root, ".notenest", "table.json"), []byte(`{"version":1,"table":"users","keyPath":"email"}`), 0644))

		repo, err := fs.NewRepository(fs.Config{Path: root})
		require.NoError(t, err)
		assert.ErrorIs(t, repo.Initialize(context.Background()), core.ErrStorage)
	})

	t.Run("Unknown Format", func(t *testing.T) {
		_, err := fs.NewRepository(fs.Config{Path: t.TempDir(), Format: "toml"})
		assert.Error(t, err)
	})
}

func TestRoundTrip(t *testing.T) {
	for _, format := range []string{"json", "yaml"} {
		t.Run(format, func(t *testing.T) {
			repo, _ := setupRepo(t, withFormat(format))
			ctx := context.Background()

			for _, n := range sampleNotes() {
				require.NoError(t, repo.Save(ctx, n))
			}

			for _, want := range sampleNotes() {
				got, err := repo.Get(ctx, want.ID)
				require.NoError(t, err, want.Title)
				assert.Equal(t, want, got, want.Title)
			}

			notes, err := repo.List(ctx)
			require.NoError(t, err)
			require.Len(t, notes, len(sampleNotes()))
			for i := 1; i < len(notes); i++ {
				assert.Greater(t, notes[i-1].ID, notes[i].ID, "list must be id descending")
			}
		})
	}
}

func TestSave(t *testing.T) {
	t.Run("Upserts Replace the Whole Record", func(t *testing.T) {
		repo, root := setupRepo(t)
		ctx := context.Background()

		n := sampleNotes()[0]
		require.NoError(t, repo.Save(ctx, n))

		n.Title = "Retitled"
		n.Category = ""
		n.Reminder = nil
		require.NoError(t, repo.Save(ctx, n))

		notes, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, notes, 1)
		assert.Equal(t, n, notes[0])

		files, err := os.ReadDir(filepath.Join(root, "notes"))
		require.NoError(t, err)
		assert.Len(t, files, 1)
	})

	t.Run("Switching Format Keeps One Record", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "store")
		ctx := context.Background()
		n := sampleNotes()[1]

		jsonRepo, err := fs.NewRepository(fs.Config{Path: root})
		require.NoError(t, err)
		require.NoError(t, jsonRepo.Initialize(ctx))
		require.NoError(t, jsonRepo.Save(ctx, n))

		yamlRepo, err := fs.NewRepository(fs.Config{Path: root, Format: "yaml"})
		require.NoError(t, err)
		got, err := yamlRepo.Get(ctx, n.ID)
		require.NoError(t, err)
		assert.Equal(t, n, got)

		n.Title = "Now YAML"
		require.NoError(t, yamlRepo.Save(ctx, n))

		_, err = os.Stat(filepath.Join(root, "notes", "2.json"))
		assert.True(t, os.IsNotExist(err))
		_, err = os.Stat(filepath.Join(root, "notes", "2.yaml"))
		assert.NoError(t, err)
	})

	t.Run("Rejects Zero ID", func(t *testing.T) {
		repo, _ := setupRepo(t)
		err := repo.Save(context.Background(), core.Note{Title: "x"})
		assert.ErrorIs(t, err, core.ErrStorage)
	})
}

func TestDelete(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	for _, n := range sampleNotes()[:3] {
		require.NoError(t, repo.Save(ctx, n))
	}

	require.NoError(t, repo.Delete(ctx, 2))
	require.NoError(t, repo.Delete(ctx, 2), "second delete is a no-op")
	require.NoError(t, repo.Delete(ctx, 999), "absent id is a no-op")

	_, err := repo.Get(ctx, 2)
	assert.ErrorIs(t, err, core.ErrNotFound)

	notes, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, int64(3), notes[0].ID)
	assert.Equal(t, int64(1), notes[1].ID)
}

func TestList(t *testing.T) {
	t.Run("Empty Store", func(t *testing.T) {
		repo, _ := setupRepo(t)
		notes, err := repo.List(context.Background())
		require.NoError(t, err)
		assert.NotNil(t, notes)
		assert.Empty(t, notes)
	})

	t.Run("Skips Foreign and Temp Files", func(t *testing.T) {
		repo, root := setupRepo(t)
		ctx := context.Background()
		require.NoError(t, repo.Save(ctx, sampleNotes()[0]))

		dir := filepath.Join(root, "notes")
		require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# hi"), 0644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, fs.TempFilePrefix+"123"), []byte("{"), 0644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "draft.json"), []byte("{}"), 0644))

		notes, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Len(t, notes, 1)
	})

	t.Run("Reports Corrupt Records", func(t *testing.T) {
		repo, root := setupRepo(t)
		require.NoError(t, os.WriteFile(filepath.Join(root, "notes", "9.json"), []byte("{ nope"), 0644))

		_, err := repo.List(context.Background())
		assert.ErrorIs(t, err, core.ErrStorage)
	})

	t.Run("Rejects Mismatched Content", func(t *testing.T) {
		repo, root := setupRepo(t)
		record := `{"id":9,"title":"x","type":"list","content":"not a list","color":"blue"}`
		require.NoError(t, os.WriteFile(filepath.Join(root, "notes", "9.json"), []byte(record), 0644))

		_, err := repo.Get(context.Background(), 9)
		assert.ErrorIs(t, err, core.ErrStorage)
		assert.ErrorIs(t, err, core.ErrValidation)
	})
}

func TestFindByRemoteID(t *testing.T) {
	repo, root := setupRepo(t)
	ctx := context.Background()
	for _, n := range sampleNotes() {
		require.NoError(t, repo.Save(ctx, n))
	}

	t.Run("Hit", func(t *testing.T) {
		got, err := repo.FindByRemoteID(ctx, "5f0c")
		require.NoError(t, err)
		assert.Equal(t, int64(2), got.ID)
	})

	t.Run("Miss", func(t *testing.T) {
		_, err := repo.FindByRemoteID(ctx, "nope")
		assert.ErrorIs(t, err, core.ErrNotFound)
	})

	t.Run("Self Heals a Corrupt Index", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(root, ".notenest", "index.json"), []byte("garbage"), 0644))

		got, err := repo.FindByRemoteID(ctx, "5f0c")
		require.NoError(t, err)
		assert.Equal(t, int64(2), got.ID)

		data, err := os.ReadFile(filepath.Join(root, ".notenest", "index.json"))
		require.NoError(t, err)
		assert.True(t, json.Valid(data), "index should be rebuilt")
	})

	t.Run("Sees Records Written by Other Processes", func(t *testing.T) {
		record := `{"id":50,"remoteId":"external","title":"x","type":"text","content":"","color":"blue"}`
		require.NoError(t, os.WriteFile(filepath.Join(root, "notes", "50.json"), []byte(record), 0644))

		got, err := repo.FindByRemoteID(ctx, "external")
		require.NoError(t, err)
		assert.Equal(t, int64(50), got.ID)
	})
}

func TestReadOnly(t *testing.T) {
	_, root := setupRepo(t)
	ctx := context.Background()

	writer, err := fs.NewRepository(fs.Config{Path: root})
	require.NoError(t, err)
	require.NoError(t, writer.Save(ctx, sampleNotes()[0]))

	repo, err := fs.NewRepository(fs.Config{Path: root, ReadOnly: true})
	require.NoError(t, err)
	require.NoError(t, repo.Initialize(ctx))

	assert.ErrorIs(t, repo.Save(ctx, sampleNotes()[1]), core.ErrReadOnly)
	assert.ErrorIs(t, repo.Delete(ctx, 1), core.ErrReadOnly)

	notes, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, notes, 1)

	state, ok := repo.State().(fs.RepositoryState)
	require.True(t, ok)
	assert.True(t, state.ReadOnly)
	assert.Equal(t, "json", state.Format)
}

func TestReconcile(t *testing.T) {
	repo, root := setupRepo(t)
	ctx := context.Background()
	for _, n := range sampleNotes()[:2] {
		require.NoError(t, repo.Save(ctx, n))
	}

	dir := filepath.Join(root, "notes")
	require.NoError(t, os.Remove(filepath.Join(dir, "1.json")))
	record := `{"id":60,"title":"external","type":"text","content":"","color":"blue"}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "60.json"), []byte(record), 0644))

	events, err := repo.Reconcile(ctx)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, core.EventDelete, events[0].Type)
	assert.Equal(t, int64(1), events[0].ID)
	assert.Equal(t, core.EventCreate, events[1].Type)
	assert.Equal(t, int64(60), events[1].ID)

	events, err = repo.Reconcile(ctx)
	require.NoError(t, err)
	assert.Empty(t, events)

	state := repo.State().(fs.RepositoryState)
	assert.NotNil(t, state.LastReconcile)
}

func TestWatch(t *testing.T) {
	repo, root := setupRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := repo.Watch(ctx, "7*")
	require.NoError(t, err)

	dir := filepath.Join(root, "notes")
	record := `{"id":%d,"title":"external","type":"text","content":"","color":"blue"}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "123.json"), []byte(fmt.Sprintf(record, 123)), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "777.json"), []byte(fmt.Sprintf(record, 777)), 0644))

	select {
	case e := <-events:
		assert.Equal(t, int64(777), e.ID, "only ids matching the pattern are reported")
		assert.Equal(t, core.EventCreate, e.Type)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for create event")
	}

	require.NoError(t, os.Remove(filepath.Join(dir, "777.json")))
	select {
	case e := <-events:
		assert.Equal(t, int64(777), e.ID)
		assert.Equal(t, core.EventDelete, e.Type)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for delete event")
	}

	cancel()
	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-events:
			return !ok
		default:
			return false
		}
	}, 5*time.Second, 20*time.Millisecond, "events channel should close after cancel")
}

func TestWatch_InvalidPattern(t *testing.T) {
	repo, _ := setupRepo(t)
	_, err := repo.Watch(context.Background(), "[")
	assert.Error(t, err)
}
