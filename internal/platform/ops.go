package platform

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/aretw0/notenest/pkg/adapters/fs"
	"github.com/aretw0/notenest/pkg/adapters/memory"
	"github.com/aretw0/notenest/pkg/adapters/sqlite"
	"github.com/aretw0/notenest/pkg/core"
)

// SQLiteFile is the database file created inside a store directory by the
// sqlite adapter.
const SQLiteFile = "notenest.db"

// Init opens and initializes the repository selected by the options.
// The uri is adapter-specific: a directory for "fs", a directory or .db file
// for "sqlite", ignored for "memory".
func Init(ctx context.Context, uri string, opts ...Option) (core.Repository, error) {
	return initRepository(ctx, uri, apply(opts))
}

func initRepository(ctx context.Context, uri string, o *options) (core.Repository, error) {
	if o.repository != nil {
		return o.repository, nil
	}

	var (
		repo core.Repository
		err  error
	)
	switch o.adapter {
	case AdapterFS, "":
		repo, err = initFS(uri, o)
	case AdapterSQLite:
		repo, err = initSQLite(uri, o)
	case AdapterMemory:
		repo = memory.NewRepository()
	default:
		return nil, fmt.Errorf("unknown adapter: %s", o.adapter)
	}
	if err != nil {
		return nil, err
	}

	if err := repo.Initialize(ctx); err != nil {
		_ = repo.Close()
		return nil, err
	}
	return repo, nil
}

// resolvePath applies the dev sandbox to a user supplied store path.
func resolvePath(path string, o *options) string {
	bypass := o.readOnly || !o.devSafety
	useTemp := o.forceTemp || (IsDevRun() && !bypass)
	resolved := ResolveStorePath(path, useTemp)

	if IsDevRun() && o.logger != nil {
		switch {
		case o.readOnly:
			o.logger.Debug("running in READ-ONLY mode (bypassing dev sandbox)", "path", resolved)
		case bypass:
			o.logger.Warn("running in UNSAFE mode (bypassing dev sandbox)", "path", resolved)
		default:
			o.logger.Debug("running in SAFE mode (dev sandbox enabled)", "path", resolved)
		}
	}
	if useTemp && resolved != path && o.logger != nil {
		o.logger.Warn("store redirected to sandbox", "original_path", path, "resolved_path", resolved)
	}
	return resolved
}

func initFS(path string, o *options) (core.Repository, error) {
	return fs.NewRepository(fs.Config{
		Path:         resolvePath(path, o),
		MustExist:    o.mustExist,
		ReadOnly:     o.readOnly,
		Strict:       o.strict,
		Format:       o.format,
		SystemDir:    o.systemDir,
		Logger:       o.logger,
		ErrorHandler: o.errorHandler,
	})
}

func initSQLite(path string, o *options) (core.Repository, error) {
	dbPath := resolvePath(path, o)
	if !strings.HasSuffix(dbPath, ".db") {
		dbPath = filepath.Join(dbPath, SQLiteFile)
	}
	if !o.readOnly && !o.mustExist {
		if err := ensureDir(filepath.Dir(dbPath)); err != nil {
			return nil, err
		}
	}
	return sqlite.NewRepository(sqlite.Config{
		Path:     dbPath,
		ReadOnly: o.readOnly,
		Logger:   o.logger,
	})
}

// Push opens the store at uri and sends every note that has no remote
// identity yet to the sink. It returns how many notes were attached.
func Push(ctx context.Context, uri string, opts ...Option) (int, error) {
	o := apply(opts)
	if o.sink == nil && o.endpoint == "" {
		return 0, fmt.Errorf("push: no remote sink configured")
	}
	o.mustExist = true

	svc, err := newService(ctx, uri, o)
	if err != nil {
		return 0, err
	}
	defer svc.Close()

	n, err := svc.PushPending(ctx)
	if o.logger != nil {
		o.logger.Info("push finished", slog.Int("pushed", n), slog.Any("error", err))
	}
	return n, err
}
