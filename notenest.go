package notenest

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/notenest/internal/platform"
	"github.com/aretw0/notenest/pkg/core"
)

// Version is the release of the library and its binaries.
const Version = "0.3.0"

// --- Configuration ---

// Option defines a functional option for configuring a note store.
type Option = platform.Option

// Adapter names accepted by WithAdapter.
const (
	AdapterFS     = platform.AdapterFS
	AdapterSQLite = platform.AdapterSQLite
	AdapterMemory = platform.AdapterMemory
)

// WithAdapter selects the storage adapter by name. Defaults to "fs".
func WithAdapter(name string) Option {
	return platform.WithAdapter(name)
}

// WithRepository injects a custom storage adapter.
func WithRepository(repo core.Repository) Option {
	return platform.WithRepository(repo)
}

// WithLogger sets the logger for the service and its adapters.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithFormat selects the record format of the fs adapter ("json" or "yaml").
func WithFormat(format string) Option {
	return platform.WithFormat(format)
}

// WithSystemDir sets the hidden directory of the fs adapter.
func WithSystemDir(name string) Option {
	return platform.WithSystemDir(name)
}

// WithStrict rejects records carrying unknown fields.
func WithStrict(strict bool) Option {
	return platform.WithStrict(strict)
}

// WithReadOnly opens the store without write access.
func WithReadOnly(enabled bool) Option {
	return platform.WithReadOnly(enabled)
}

// WithMustExist fails the open when the store directory is missing.
func WithMustExist(must bool) Option {
	return platform.WithMustExist(must)
}

// WithForceTemp forces the store into a temporary directory (useful for testing).
func WithForceTemp(force bool) Option {
	return platform.WithForceTemp(force)
}

// WithDevSafety controls the temporary-directory sandbox applied under `go run`.
func WithDevSafety(enabled bool) Option {
	return platform.WithDevSafety(enabled)
}

// WithSink writes new notes through to s.
func WithSink(s core.Sink) Option {
	return platform.WithSink(s)
}

// WithRemoteEndpoint writes new notes through to the HTTP note sink at url.
func WithRemoteEndpoint(url string) Option {
	return platform.WithRemoteEndpoint(url)
}

// WithRemoteTimeout bounds each remote write.
func WithRemoteTimeout(d time.Duration) Option {
	return platform.WithRemoteTimeout(d)
}

// WithRemotePolicy decides what happens to a new note whose remote write fails.
func WithRemotePolicy(p core.RemotePolicy) Option {
	return platform.WithRemotePolicy(p)
}

// WithOffline keeps notes locally when the sink is unreachable.
func WithOffline(enabled bool) Option {
	return platform.WithOffline(enabled)
}

// WithEventBuffer sets the per-subscriber event buffer.
func WithEventBuffer(size int) Option {
	return platform.WithEventBuffer(size)
}

// WithWatcherErrorHandler registers a callback for errors raised while watching.
func WithWatcherErrorHandler(fn func(error)) Option {
	return platform.WithWatcherErrorHandler(fn)
}

// --- Factory ---

// Open opens the store at path and returns the service managing it.
// The caller must Close it.
func Open(ctx context.Context, path string, opts ...Option) (*core.Service, error) {
	return platform.New(ctx, path, opts...)
}

// Init opens and initializes a repository without wrapping it in a service.
func Init(ctx context.Context, path string, opts ...Option) (core.Repository, error) {
	return platform.Init(ctx, path, opts...)
}

// --- Operations ---

// Push sends every note of the store that has no remote identity yet to the
// configured sink and returns how many were attached.
func Push(ctx context.Context, path string, opts ...Option) (int, error) {
	return platform.Push(ctx, path, opts...)
}

// --- Safety & Utils ---

// ResolveStorePath determines the actual store path based on safety rules.
func ResolveStorePath(userPath string, forceTemp bool) string {
	return platform.ResolveStorePath(userPath, forceTemp)
}

// IsDevRun checks if the current process is running via `go run` or `go test`.
func IsDevRun() bool {
	return platform.IsDevRun()
}

// FindStoreRoot walks upwards looking for a store marker.
func FindStoreRoot(startDir string) (string, error) {
	return platform.FindRoot(startDir)
}
