package platform_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/notenest/internal/platform"
	"github.com/aretw0/notenest/pkg/adapters/fs"
	"github.com/aretw0/notenest/pkg/adapters/memory"
	"github.com/aretw0/notenest/pkg/adapters/sqlite"
	"github.com/aretw0/notenest/pkg/core"
)

type countingSink struct {
	calls atomic.Int32
	err   error
}

func (s *countingSink) Create(ctx context.Context, n core.Note) (string, error) {
	s.calls.Add(1)
	if s.err != nil {
		return "", s.err
	}
	return "remote-" + n.Title, nil
}

func TestInit(t *testing.T) {
	ctx := context.Background()

	t.Run("FS Creates Table", func(t *testing.T) {
		storePath := filepath.Join(t.TempDir(), "store")

		repo, err := platform.Init(ctx, storePath)
		require.NoError(t, err)
		defer repo.Close()

		fsRepo, ok := repo.(*fs.Repository)
		require.True(t, ok, "expected fs repository")
		assert.Equal(t, storePath, fsRepo.Path)
		assert.DirExists(t, filepath.Join(storePath, fs.TableName))
		assert.FileExists(t, filepath.Join(storePath, fs.DefaultSystemDir, "table.json"))
	})

	t.Run("FS Must Exist", func(t *testing.T) {
		_, err := platform.Init(ctx, filepath.Join(t.TempDir(), "missing"), platform.WithMustExist(true))
		assert.ErrorIs(t, err, core.ErrStorage)
	})

	t.Run("FS Custom System Dir", func(t *testing.T) {
		storePath := t.TempDir()
		repo, err := platform.Init(ctx, storePath, platform.WithSystemDir(".meta"), platform.WithFormat("yaml"))
		require.NoError(t, err)
		defer repo.Close()
		assert.FileExists(t, filepath.Join(storePath, ".meta", "table.json"))

		require.NoError(t, repo.Save(ctx, core.Note{ID: 1, Title: "yaml", Content: core.TextContent{}}))
		assert.FileExists(t, filepath.Join(storePath, fs.TableName, "1.yaml"))
	})

	t.Run("SQLite In Directory", func(t *testing.T) {
		storePath := filepath.Join(t.TempDir(), "nested", "store")
		repo, err := platform.Init(ctx, storePath, platform.WithAdapter(platform.AdapterSQLite))
		require.NoError(t, err)
		defer repo.Close()

		assert.IsType(t, &sqlite.Repository{}, repo)
		assert.FileExists(t, filepath.Join(storePath, platform.SQLiteFile))
	})

	t.Run("SQLite Explicit File", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "custom.db")
		repo, err := platform.Init(ctx, dbPath, platform.WithAdapter(platform.AdapterSQLite))
		require.NoError(t, err)
		defer repo.Close()
		assert.FileExists(t, dbPath)
	})

	t.Run("Memory", func(t *testing.T) {
		repo, err := platform.Init(ctx, "", platform.WithAdapter(platform.AdapterMemory))
		require.NoError(t, err)
		assert.IsType(t, &memory.Repository{}, repo)
	})

	t.Run("Injected Repository", func(t *testing.T) {
		injected := memory.NewRepository()
		repo, err := platform.Init(ctx, "ignored", platform.WithRepository(injected), platform.WithAdapter("nope"))
		require.NoError(t, err)
		assert.Same(t, injected, repo)
	})

	t.Run("Unknown Adapter", func(t *testing.T) {
		_, err := platform.Init(ctx, t.TempDir(), platform.WithAdapter("s3"))
		assert.ErrorContains(t, err, "unknown adapter")
	})

	t.Run("Read Only Creates Nothing", func(t *testing.T) {
		storePath := t.TempDir()
		repo, err := platform.Init(ctx, storePath, platform.WithReadOnly(true))
		require.NoError(t, err)
		defer repo.Close()

		entries, err := os.ReadDir(storePath)
		require.NoError(t, err)
		assert.Empty(t, entries)
		assert.ErrorIs(t, repo.Save(ctx, core.Note{ID: 1, Title: "x"}), core.ErrReadOnly)
	})
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	t.Run("Local Only", func(t *testing.T) {
		svc, err := platform.New(ctx, t.TempDir())
		require.NoError(t, err)
		defer svc.Close()

		n, err := svc.Save(ctx, core.Note{Title: "Groceries"})
		require.NoError(t, err)
		assert.NotZero(t, n.ID)
		assert.Empty(t, n.RemoteID)
	})

	t.Run("With Sink", func(t *testing.T) {
		sink := &countingSink{}
		svc, err := platform.New(ctx, "", platform.WithAdapter(platform.AdapterMemory), platform.WithSink(sink))
		require.NoError(t, err)
		defer svc.Close()

		n, err := svc.Save(ctx, core.Note{Title: "Standup"})
		require.NoError(t, err)
		assert.Equal(t, "remote-Standup", n.RemoteID)
		assert.Equal(t, int32(1), sink.calls.Load())
	})

	t.Run("Offline Policy", func(t *testing.T) {
		sink := &countingSink{err: &core.RemoteError{Status: 500, Message: "down"}}
		svc, err := platform.New(ctx, "",
			platform.WithAdapter(platform.AdapterMemory),
			platform.WithSink(sink),
			platform.WithOffline(true),
		)
		require.NoError(t, err)
		defer svc.Close()

		n, err := svc.Save(ctx, core.Note{Title: "Standup"})
		var offline *core.OfflineError
		require.True(t, errors.As(err, &offline))
		assert.NotZero(t, n.ID)
		assert.Empty(t, n.RemoteID)
	})

	t.Run("Default Policy Fails", func(t *testing.T) {
		sink := &countingSink{err: &core.RemoteError{Status: 500}}
		svc, err := platform.New(ctx, "", platform.WithAdapter(platform.AdapterMemory), platform.WithSink(sink))
		require.NoError(t, err)
		defer svc.Close()

		_, err = svc.Save(ctx, core.Note{Title: "Standup"})
		require.ErrorIs(t, err, core.ErrRemote)

		notes, err := svc.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, notes)
	})
}

func TestPush(t *testing.T) {
	ctx := context.Background()
	storePath := t.TempDir()

	// Seed the store with notes written while offline.
	svc, err := platform.New(ctx, storePath)
	require.NoError(t, err)
	for _, title := range []string{"one", "two"} {
		_, err := svc.Save(ctx, core.Note{Title: title})
		require.NoError(t, err)
	}
	require.NoError(t, svc.Close())

	t.Run("Requires Sink", func(t *testing.T) {
		_, err := platform.Push(ctx, storePath)
		assert.ErrorContains(t, err, "no remote sink")
	})

	t.Run("Attaches Remote IDs", func(t *testing.T) {
		sink := &countingSink{}
		pushed, err := platform.Push(ctx, storePath, platform.WithSink(sink))
		require.NoError(t, err)
		assert.Equal(t, 2, pushed)

		pushed, err = platform.Push(ctx, storePath, platform.WithSink(sink))
		require.NoError(t, err)
		assert.Zero(t, pushed, "already attached notes are not posted again")
		assert.Equal(t, int32(2), sink.calls.Load())
	})
}
