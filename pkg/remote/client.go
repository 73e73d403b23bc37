// Package remote is the HTTP client of the note sink. It performs exactly one
// POST per call and never retries.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/notenest/pkg/core"
)

const (
	// DefaultEndpoint is the note sink used when none is configured.
	DefaultEndpoint = "http://localhost:8080/notes"
	// DefaultTimeout bounds a single remote write.
	DefaultTimeout = 10 * time.Second

	maxErrorBody = 1 << 16
)

// Client implements core.Sink over HTTP.
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) { cl.httpClient.Timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) { cl.logger = l }
}

// NewClient creates a client posting to endpoint, the full URL of the
// create-note resource.
func NewClient(endpoint string, opts ...Option) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	c := &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the URL notes are posted to.
func (c *Client) Endpoint() string { return c.endpoint }

// Create posts the note and returns the identifier the sink assigned.
// Failures are reported as *core.RemoteError.
func (c *Client) Create(ctx context.Context, n core.Note) (string, error) {
	body, err := json.Marshal(NewPayload(n))
	if err != nil {
		return "", &core.RemoteError{Err: fmt.Errorf("encode payload: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", &core.RemoteError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("posting note", "endpoint", c.endpoint, "title", n.Title)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &core.RemoteError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return "", &core.RemoteError{Status: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode != http.StatusCreated {
		return "", &core.RemoteError{Status: resp.StatusCode, Message: errorMessage(respBody)}
	}

	var created CreateResponse
	if err := json.Unmarshal(respBody, &created); err != nil {
		return "", &core.RemoteError{Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	if created.NoteID == "" {
		return "", &core.RemoteError{Status: resp.StatusCode, Message: "response has no noteId"}
	}

	c.logger.Debug("note created remotely", "note_id", created.NoteID)
	return created.NoteID, nil
}

func errorMessage(body []byte) string {
	var e ErrorResponse
	if err := json.Unmarshal(body, &e); err == nil && e.Error != "" {
		return e.Error
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}

var _ core.Sink = (*Client)(nil)
