// Package rest implements the service.Service interface against the task
// REST API.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"taskman/internal/config"
	"taskman/internal/service"
)

const (
	// tasksPath is the collection path relative to the base URL.
	tasksPath = "tasks"

	// requestIDHeader carries a per-request id for log correlation.
	requestIDHeader = "X-Request-ID"

	// maxErrorBody caps how much of an error response is read.
	maxErrorBody = 4 << 10
)

// Client implements service.Service over HTTP.
type Client struct {
	base    *url.URL
	http    *http.Client
	timeout time.Duration
	log     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client (for testing).
// A configured bearer token is not applied to a custom client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New creates a REST client from config.
// When cfg.Token is set, requests carry it as a bearer token.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Client, error) {
	base, err := parseBaseURL(cfg.BaseURL)
	if err != nil {
		return nil, err
	}

	c := &Client{
		base:    base,
		http:    http.DefaultClient,
		timeout: cfg.Timeout,
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	if cfg.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token, TokenType: "Bearer"})
		c.http = oauth2.NewClient(ctx, ts)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// parseBaseURL parses the base URL and ensures it ends with a slash so
// relative endpoint paths resolve beneath it.
func parseBaseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base url: %s", raw)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u, nil
}

// ListTasks fetches GET /tasks.
func (c *Client) ListTasks(ctx context.Context) ([]service.Task, error) {
	var tasks []wireTask
	if err := c.do(ctx, http.MethodGet, collectionRef(), nil, &tasks); err != nil {
		return nil, err
	}
	result := make([]service.Task, 0, len(tasks))
	for _, t := range tasks {
		result = append(result, t.toTask())
	}
	return result, nil
}

// GetTask fetches GET /tasks/{id}.
func (c *Client) GetTask(ctx context.Context, id string) (service.Task, error) {
	ref, err := taskRef(id)
	if err != nil {
		return service.Task{}, err
	}
	var t wireTask
	if err := c.do(ctx, http.MethodGet, ref, nil, &t); err != nil {
		return service.Task{}, err
	}
	return t.toTask(), nil
}

// CreateTask sends POST /tasks with title and description.
func (c *Client) CreateTask(ctx context.Context, draft service.Draft) (service.Task, error) {
	var t wireTask
	if err := c.do(ctx, http.MethodPost, collectionRef(), draft, &t); err != nil {
		return service.Task{}, err
	}
	return t.toTask(), nil
}

// UpdateTask sends PUT /tasks/{id} with only the fields set in patch.
func (c *Client) UpdateTask(ctx context.Context, id string, patch service.Patch) (service.Task, error) {
	ref, err := taskRef(id)
	if err != nil {
		return service.Task{}, err
	}
	var t wireTask
	if err := c.do(ctx, http.MethodPut, ref, patch, &t); err != nil {
		return service.Task{}, err
	}
	return t.toTask(), nil
}

// DeleteTask sends DELETE /tasks/{id}. The confirmation body is ignored.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	ref, err := taskRef(id)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, ref, nil, nil)
}

func collectionRef() *url.URL {
	return &url.URL{Path: tasksPath}
}

// taskRef builds tasks/{id} with id as a single escaped segment, so a "/"
// in the id cannot reach another route. Dot segments are rejected because
// reference resolution would collapse them.
func taskRef(id string) (*url.URL, error) {
	if id == "" || id == "." || id == ".." {
		return nil, fmt.Errorf("%w: invalid task id %q", service.ErrNotFound, id)
	}
	return &url.URL{
		Path:    tasksPath + "/" + id,
		RawPath: tasksPath + "/" + url.PathEscape(id),
	}, nil
}

// do issues one request and decodes the (optionally enveloped) response into
// out. out may be nil.
func (c *Client) do(ctx context.Context, method string, ref *url.URL, body, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	target := c.base.ResolveReference(ref)
	req, err := http.NewRequestWithContext(ctx, method, target.String(), reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	reqID := uuid.NewString()
	req.Header.Set(requestIDHeader, reqID)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("request failed", "method", method, "url", target.String(), "request_id", reqID, "err", err)
		return wrapTransportError(err)
	}
	defer resp.Body.Close()

	c.log.Debug("request",
		"method", method,
		"url", target.String(),
		"status", resp.StatusCode,
		"request_id", reqID,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp)
	}

	if out == nil {
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if err := decodeEnvelope(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// decodeEnvelope decodes {"data": ...} when present, the bare body otherwise.
func decodeEnvelope(data []byte, out any) error {
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &env); err == nil && len(env.Data) > 0 && string(env.Data) != "null" {
		return json.Unmarshal(env.Data, out)
	}
	return json.Unmarshal(data, out)
}

// wrapTransportError normalizes network-level failures.
func wrapTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timed out: %w", err)
	}
	return fmt.Errorf("request failed: %w", err)
}
