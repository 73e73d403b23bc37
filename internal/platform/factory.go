package platform

import (
	"context"
	"os"

	"github.com/aretw0/notenest/pkg/core"
	"github.com/aretw0/notenest/pkg/remote"
)

// New opens the store at uri and wires the service around it.
//
//	svc, err := notenest.Open(ctx, "./notes", notenest.WithRemoteEndpoint(url))
//
// The uri argument is adapter-specific (a directory for "fs", a directory or
// database file for "sqlite").
func New(ctx context.Context, uri string, opts ...Option) (*core.Service, error) {
	return newService(ctx, uri, apply(opts))
}

func newService(ctx context.Context, uri string, o *options) (*core.Service, error) {
	repo, err := initRepository(ctx, uri, o)
	if err != nil {
		return nil, err
	}

	return core.NewService(repo, core.ServiceConfig{
		Sink:         resolveSink(o),
		RemotePolicy: o.policy,
		Logger:       o.logger,
		EventBuffer:  o.eventBuffer,
		Now:          o.now,
	}), nil
}

// resolveSink returns the explicit sink, an HTTP client for the configured
// endpoint, or nil for a local-only service.
func resolveSink(o *options) core.Sink {
	if o.sink != nil {
		return o.sink
	}
	if o.endpoint == "" {
		return nil
	}
	clientOpts := []remote.Option{}
	if o.remoteTimeout > 0 {
		clientOpts = append(clientOpts, remote.WithTimeout(o.remoteTimeout))
	}
	if o.logger != nil {
		clientOpts = append(clientOpts, remote.WithLogger(o.logger))
	}
	return remote.NewClient(o.endpoint, clientOpts...)
}

func ensureDir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return core.Storage("mkdir", err)
	}
	return nil
}
