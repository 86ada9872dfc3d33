// Package assistant provides a client library for a local semantic search
// backend: submitting documents for ingestion, searching, and following
// long-running task progress over streaming or polling transports.
//
// Basic usage:
//
//	client, err := assistant.New(
//	    assistant.WithBackendURL("http://127.0.0.1:8000"),
//	    assistant.WithSQLite(".assistant/journal.db"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	taskID, err := client.ProcessDocument(ctx, "/docs/report.pdf",
//	    func(ev task.ProgressEvent) { fmt.Println(ev.Percentage) },
//	    tracking.WithOnComplete(func(task.ProgressEvent) { fmt.Println("done") }),
//	)
package assistant

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/Bilal-khan980/semantic-search-assistant/domain/task"
	"github.com/Bilal-khan980/semantic-search-assistant/infrastructure/backend"
	"github.com/Bilal-khan980/semantic-search-assistant/infrastructure/persistence"
	"github.com/Bilal-khan980/semantic-search-assistant/infrastructure/relay"
	"github.com/Bilal-khan980/semantic-search-assistant/infrastructure/tracking"
	"github.com/Bilal-khan980/semantic-search-assistant/internal/database"
)

// shutdownTimeout bounds relay shutdown during Close.
const shutdownTimeout = 5 * time.Second

// Client is the main entry point for the assistant library.
//
// Access components via struct fields:
//
//	client.Backend.Search(ctx, ...)
//	client.Tracker.Track(ctx, taskID, onProgress)
//	client.Journal.History(ctx, 20)
type Client struct {
	// Backend talks HTTP to the search backend process.
	Backend *backend.Client
	// Tracker follows task progress and delivers callbacks.
	Tracker *tracking.Tracker
	// Journal is the durable task history. Nil unless a database was
	// configured.
	Journal *persistence.Journal
	// Relay serves tracked progress to local UI consumers. Nil unless
	// enabled.
	Relay *relay.Server

	db      database.Database
	hasDB   bool
	logger  *slog.Logger
	closers []io.Closer

	closeOnce sync.Once
	closeErr  error
}

// New creates a Client. The tracker starts idle; tracking begins when
// tasks are submitted or Track is called.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := newClientConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	client := &Client{
		logger:  logger,
		closers: cfg.closers,
	}

	client.Backend = backend.NewClient(backend.Config{
		BaseURL:       cfg.backend.BaseURL(),
		Timeout:       cfg.backend.Timeout(),
		MaxRetries:    cfg.backend.MaxRetries(),
		InitialDelay:  cfg.backend.InitialDelay(),
		BackoffFactor: cfg.backend.BackoffFactor(),
		Logger:        logger,
	})

	reporters := cfg.reporters
	if cfg.dbURL != "" {
		db, err := database.NewDatabase(ctx, cfg.dbURL)
		if err != nil {
			return nil, fmt.Errorf("open journal database: %w", err)
		}
		journal, err := persistence.NewJournal(ctx, db)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		client.db = db
		client.hasDB = true
		client.Journal = journal
		reporters = append(reporters, journal)
	}

	if cfg.relay.Enabled() {
		broadcaster := relay.NewBroadcaster(logger)
		client.Relay = relay.NewServer(cfg.relay, broadcaster, logger)
		reporters = append(reporters, broadcaster)
	}

	trackerOpts := []tracking.TrackerOption{
		tracking.WithPollInterval(cfg.tracking.PollInterval()),
		tracking.WithMaxPollAttempts(cfg.tracking.MaxPollAttempts()),
		tracking.WithPreferStreaming(cfg.tracking.PreferStreaming()),
	}
	for _, reporter := range reporters {
		trackerOpts = append(trackerOpts, tracking.WithReporter(reporter))
	}
	client.Tracker = tracking.NewTracker(
		tracking.NewClientSource(client.Backend), logger, trackerOpts...)

	return client, nil
}

// ProcessDocument submits one document for ingestion and starts tracking
// the resulting task. It returns the task ID.
func (c *Client) ProcessDocument(ctx context.Context, path string, onProgress tracking.ProgressFunc, opts ...tracking.TrackOption) (string, error) {
	accepted, err := c.Backend.ProcessDocument(ctx, backend.ProcessDocumentRequest{Path: path})
	if err != nil {
		return "", err
	}
	c.journalSubmission(ctx, accepted.TaskID, task.OperationDocumentProcessing, path)
	if err := c.Tracker.Track(ctx, accepted.TaskID, onProgress, opts...); err != nil {
		return accepted.TaskID, err
	}
	return accepted.TaskID, nil
}

// ImportDocuments submits a batch import and starts tracking the resulting
// task. It returns the task ID.
func (c *Client) ImportDocuments(ctx context.Context, paths []string, source string, onProgress tracking.ProgressFunc, opts ...tracking.TrackOption) (string, error) {
	accepted, err := c.Backend.ImportDocuments(ctx, backend.ImportRequest{Paths: paths, Source: source})
	if err != nil {
		return "", err
	}
	target := source
	if target == "" && len(paths) > 0 {
		target = paths[0]
	}
	c.journalSubmission(ctx, accepted.TaskID, task.OperationImport, target)
	if err := c.Tracker.Track(ctx, accepted.TaskID, onProgress, opts...); err != nil {
		return accepted.TaskID, err
	}
	return accepted.TaskID, nil
}

// Search runs a semantic search query against the indexed documents.
func (c *Client) Search(ctx context.Context, query string, limit int) (backend.SearchResponse, error) {
	return c.Backend.Search(ctx, backend.SearchRequest{Query: query, Limit: limit})
}

// journalSubmission records the accepted task when a journal is configured.
// Journal failures never fail the submission.
func (c *Client) journalSubmission(ctx context.Context, taskID string, op task.Operation, target string) {
	if c.Journal == nil {
		return
	}
	if err := c.Journal.RecordSubmission(ctx, taskID, op, target); err != nil {
		c.logger.Warn("journal submission failed",
			slog.String("task_id", taskID),
			slog.String("error", err.Error()))
	}
}

// Close stops all tracking, shuts the relay down, and releases resources.
// Safe to call more than once.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.Tracker.StopAll()

		if c.Relay != nil {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			if err := c.Relay.Shutdown(ctx); err != nil {
				c.closeErr = err
			}
			cancel()
		}

		if c.hasDB {
			if err := c.db.Close(); err != nil && c.closeErr == nil {
				c.closeErr = err
			}
		}

		for _, closer := range c.closers {
			if err := closer.Close(); err != nil && c.closeErr == nil {
				c.closeErr = err
			}
		}
	})
	return c.closeErr
}
