// Package backend implements the HTTP client for the semantic search
// backend process. The backend exposes a JSON API plus per-task status
// endpoints: a streaming endpoint emitting newline-delimited JSON progress
// events and a request/response poll endpoint with the same message shape.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/Bilal-khan980/semantic-search-assistant/domain/task"
	"github.com/Bilal-khan980/semantic-search-assistant/internal/log"
)

// Default client configuration values.
const (
	DefaultBaseURL       = "http://127.0.0.1:8000"
	DefaultTimeout       = 30 * time.Second
	DefaultMaxRetries    = 3
	DefaultInitialDelay  = 2 * time.Second
	DefaultBackoffFactor = 2.0
)

// correlationHeader carries the per-request correlation ID so client and
// backend logs can be joined.
const correlationHeader = "X-Correlation-ID"

// Config holds configuration for the backend client.
type Config struct {
	BaseURL       string
	Timeout       time.Duration
	MaxRetries    int
	InitialDelay  time.Duration
	BackoffFactor float64
	Logger        *slog.Logger
}

// Client talks to the backend process over HTTP.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	streamClient  *http.Client
	logger        *slog.Logger
	maxRetries    int
	initialDelay  time.Duration
	backoffFactor float64
}

// NewClient creates a backend client from configuration, applying defaults
// for any zero values.
func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = DefaultMaxRetries
	}

	initialDelay := cfg.InitialDelay
	if initialDelay == 0 {
		initialDelay = DefaultInitialDelay
	}

	backoffFactor := cfg.BackoffFactor
	if backoffFactor == 0 {
		backoffFactor = DefaultBackoffFactor
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		// The status stream stays open for the lifetime of a task, so the
		// stream client must not carry a whole-request timeout. Cancellation
		// happens through the request context.
		streamClient:  &http.Client{},
		logger:        logger,
		maxRetries:    maxRetries,
		initialDelay:  initialDelay,
		backoffFactor: backoffFactor,
	}
}

// BaseURL returns the configured backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Health checks that the backend process is reachable.
func (c *Client) Health(ctx context.Context) error {
	return c.getJSON(ctx, "health", "/health", nil)
}

// ProcessDocument submits a single document for ingestion. The backend
// accepts the work and returns the task identifier to track.
func (c *Client) ProcessDocument(ctx context.Context, req ProcessDocumentRequest) (TaskAccepted, error) {
	var accepted TaskAccepted
	err := c.withRetry(ctx, func() error {
		return c.postJSON(ctx, "process_document", "/api/documents/process", req, &accepted)
	})
	if err != nil {
		return TaskAccepted{}, err
	}
	if accepted.TaskID == "" {
		return TaskAccepted{}, NewError("process_document", 0, "backend accepted work without a task id", nil)
	}
	return accepted, nil
}

// ImportDocuments submits a batch import. The backend accepts the work and
// returns the task identifier to track.
func (c *Client) ImportDocuments(ctx context.Context, req ImportRequest) (TaskAccepted, error) {
	var accepted TaskAccepted
	err := c.withRetry(ctx, func() error {
		return c.postJSON(ctx, "import_documents", "/api/documents/import", req, &accepted)
	})
	if err != nil {
		return TaskAccepted{}, err
	}
	if accepted.TaskID == "" {
		return TaskAccepted{}, NewError("import_documents", 0, "backend accepted work without a task id", nil)
	}
	return accepted, nil
}

// Search runs a semantic search query against the indexed documents.
func (c *Client) Search(ctx context.Context, req SearchRequest) (SearchResponse, error) {
	var resp SearchResponse
	err := c.withRetry(ctx, func() error {
		return c.postJSON(ctx, "search", "/api/search", req, &resp)
	})
	if err != nil {
		return SearchResponse{}, err
	}
	return resp, nil
}

// TaskStatus fetches the current status of a task from the poll endpoint.
// It performs a single attempt; the progress tracker owns the polling retry
// budget, so retrying here would distort it.
func (c *Client) TaskStatus(ctx context.Context, taskID string) (task.ProgressEvent, error) {
	if taskID == "" {
		return task.ProgressEvent{}, NewError("task_status", 0, "empty task id", nil)
	}

	body, err := c.getRaw(ctx, "task_status", "/api/tasks/"+url.PathEscape(taskID)+"/status")
	if err != nil {
		return task.ProgressEvent{}, err
	}

	ev, err := task.ParseProgressEvent(body)
	if err != nil {
		return task.ProgressEvent{}, NewError("task_status", 0, err.Error(), err)
	}
	return ev, nil
}

// OpenStatusStream opens the persistent status stream for a task. The caller
// owns the returned stream and must Close it; cancelling ctx also tears the
// connection down.
func (c *Client) OpenStatusStream(ctx context.Context, taskID string) (*StatusStream, error) {
	if taskID == "" {
		return nil, NewError("status_stream", 0, "empty task id", nil)
	}

	endpoint := c.baseURL + "/api/tasks/" + url.PathEscape(taskID) + "/status/stream"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, NewError("status_stream", 0, err.Error(), err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	c.setCorrelationID(req)

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, NewError("status_stream", 0, err.Error(), err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := readErrorMessage(resp.Body)
		_ = resp.Body.Close()
		return nil, NewError("status_stream", resp.StatusCode, msg, nil)
	}

	return newStatusStream(resp.Body), nil
}

// errMalformed marks a response body that violated the status contract.
var errMalformed = errors.New("malformed backend response")

// IsMalformed reports whether err stems from a response body that parsed as
// neither the expected JSON shape nor a valid status message.
func IsMalformed(err error) bool {
	return errors.Is(err, errMalformed) || errors.Is(err, task.ErrMalformedEvent)
}

// postJSON issues a POST with a JSON body and decodes a JSON response.
func (c *Client) postJSON(ctx context.Context, operation, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return NewError(operation, 0, err.Error(), err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return NewError(operation, 0, err.Error(), err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, operation, out)
}

// getJSON issues a GET and decodes a JSON response into out (which may be nil).
func (c *Client) getJSON(ctx context.Context, operation, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return NewError(operation, 0, err.Error(), err)
	}
	return c.do(req, operation, out)
}

// getRaw issues a GET and returns the raw response body.
func (c *Client) getRaw(ctx context.Context, operation, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, NewError(operation, 0, err.Error(), err)
	}
	c.setCorrelationID(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, NewError(operation, 0, err.Error(), err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewError(operation, 0, err.Error(), err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, NewError(operation, resp.StatusCode, errorMessageFromBytes(body), nil)
	}
	return body, nil
}

// do executes the request and decodes the response into out when non-nil.
func (c *Client) do(req *http.Request, operation string, out any) error {
	c.setCorrelationID(req)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return NewError(operation, 0, err.Error(), err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debug("backend request",
		slog.String("operation", operation),
		slog.String("method", req.Method),
		slog.String("path", req.URL.Path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
		slog.String("correlation_id", req.Header.Get(correlationHeader)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return NewError(operation, resp.StatusCode, readErrorMessage(resp.Body), nil)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return NewError(operation, 0, err.Error(), errMalformed)
	}
	return nil
}

// setCorrelationID attaches a fresh correlation ID unless the request
// context already carries one.
func (c *Client) setCorrelationID(req *http.Request) {
	id := log.CorrelationID(req.Context())
	if id == "" {
		id = uuid.NewString()
	}
	req.Header.Set(correlationHeader, id)
}

// withRetry executes the function with exponential backoff retry.
func (c *Client) withRetry(ctx context.Context, fn func() error) error {
	delay := c.initialDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if !isRetryable(lastErr) {
			return lastErr
		}

		if attempt < c.maxRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay = time.Duration(float64(delay) * c.backoffFactor)
			}
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// isRetryable determines if an error should be retried.
func isRetryable(err error) bool {
	if IsMalformed(err) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if be, ok := AsBackendError(err); ok {
		return be.IsRetryable()
	}

	return false
}

// readErrorMessage extracts the backend error text from a response body.
func readErrorMessage(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return "unreadable error response"
	}
	return errorMessageFromBytes(body)
}

func errorMessageFromBytes(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		if msg := eb.message(); msg != "" {
			return msg
		}
	}
	if len(body) == 0 {
		return "no error detail"
	}
	return string(body)
}
