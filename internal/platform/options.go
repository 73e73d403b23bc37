package platform

import (
	"log/slog"
	"time"

	"github.com/aretw0/notenest/pkg/core"
)

// Adapter names accepted by WithAdapter.
const (
	AdapterFS     = "fs"
	AdapterSQLite = "sqlite"
	AdapterMemory = "memory"
)

// options holds the internal configuration for a note store.
type options struct {
	repository core.Repository
	logger     *slog.Logger
	adapter    string

	format    string
	systemDir string
	strict    bool
	readOnly  bool
	mustExist bool
	forceTemp bool
	devSafety bool

	sink          core.Sink
	endpoint      string
	remoteTimeout time.Duration
	policy        core.RemotePolicy

	eventBuffer  int
	errorHandler func(error)
	now          func() time.Time
}

// Option defines a functional option for configuring a note store.
type Option func(*options)

// defaultOptions returns the default configuration.
func defaultOptions() *options {
	return &options{
		adapter:   AdapterFS,
		devSafety: true,
	}
}

func apply(opts []Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets the logger for the service and its adapters.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithRepository injects a custom storage adapter.
// If provided, the adapter selected by WithAdapter is skipped.
func WithRepository(repo core.Repository) Option {
	return func(o *options) {
		o.repository = repo
	}
}

// WithAdapter selects the storage adapter by name ("fs", "sqlite", "memory").
// Defaults to "fs".
func WithAdapter(name string) Option {
	return func(o *options) {
		o.adapter = name
	}
}

// WithFormat selects the record file format of the fs adapter ("json" or "yaml").
func WithFormat(format string) Option {
	return func(o *options) {
		o.format = format
	}
}

// WithSystemDir sets the hidden directory of the fs adapter.
// Defaults to ".notenest".
func WithSystemDir(name string) Option {
	return func(o *options) {
		o.systemDir = name
	}
}

// WithStrict rejects records carrying unknown fields.
func WithStrict(strict bool) Option {
	return func(o *options) {
		o.strict = strict
	}
}

// WithReadOnly enables read-only mode.
// Writes return core.ErrReadOnly, nothing is created on open and the dev
// sandbox is bypassed.
func WithReadOnly(enabled bool) Option {
	return func(o *options) {
		o.readOnly = enabled
	}
}

// WithMustExist fails the open when the store directory is missing.
func WithMustExist(must bool) Option {
	return func(o *options) {
		o.mustExist = must
	}
}

// WithForceTemp forces the store into a temporary directory.
func WithForceTemp(force bool) Option {
	return func(o *options) {
		o.forceTemp = force
	}
}

// WithDevSafety controls the sandbox applied when running via `go run`.
// By default (true) the store is re-rooted into a temporary directory.
//
// CAUTION: Only disable this if you are sure your code is safe.
func WithDevSafety(enabled bool) Option {
	return func(o *options) {
		o.devSafety = enabled
	}
}

// WithSink writes new notes through to s.
func WithSink(s core.Sink) Option {
	return func(o *options) {
		o.sink = s
	}
}

// WithRemoteEndpoint writes new notes through to the HTTP note sink at url.
// It is ignored when WithSink is also given.
func WithRemoteEndpoint(url string) Option {
	return func(o *options) {
		o.endpoint = url
	}
}

// WithRemoteTimeout bounds each remote write made through WithRemoteEndpoint.
func WithRemoteTimeout(d time.Duration) Option {
	return func(o *options) {
		o.remoteTimeout = d
	}
}

// WithRemotePolicy decides what happens to a new note whose remote write fails.
func WithRemotePolicy(p core.RemotePolicy) Option {
	return func(o *options) {
		o.policy = p
	}
}

// WithOffline keeps notes locally when the sink is unreachable.
// Shorthand for WithRemotePolicy(core.PersistOffline).
func WithOffline(enabled bool) Option {
	return func(o *options) {
		if enabled {
			o.policy = core.PersistOffline
		} else {
			o.policy = core.FailOnRemoteError
		}
	}
}

// WithEventBuffer sets the per-subscriber event buffer.
// Zero means default (100).
func WithEventBuffer(size int) Option {
	return func(o *options) {
		o.eventBuffer = size
	}
}

// WithWatcherErrorHandler registers a callback for errors raised inside the
// Watch loop, which are otherwise only logged.
func WithWatcherErrorHandler(fn func(error)) Option {
	return func(o *options) {
		o.errorHandler = fn
	}
}

// WithClock replaces the time source used for timestamps and ids.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}
