// Package tracking follows the progress of long-running backend tasks.
//
// Each tracked task gets a single goroutine that consumes the backend's
// streaming status endpoint when available, or falls back to polling the
// snapshot endpoint when streaming is unavailable or breaks. Callbacks are
// delivered in arrival order and never after the task has been stopped.
package tracking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Bilal-khan980/semantic-search-assistant/domain/task"
)

const (
	// DefaultPollInterval is the pause between polling attempts.
	DefaultPollInterval = 5 * time.Second
	// DefaultMaxPollAttempts bounds the polling loop. At the default
	// interval this gives a task roughly ten minutes to finish.
	DefaultMaxPollAttempts = 120
)

var (
	// ErrEmptyTaskID is returned when Track is called without a task ID.
	ErrEmptyTaskID = errors.New("task ID must not be empty")
	// ErrNilProgress is returned when Track is called without a progress
	// callback.
	ErrNilProgress = errors.New("progress callback must not be nil")
)

// ProgressFunc receives non-terminal status events.
type ProgressFunc func(event task.ProgressEvent)

// CompleteFunc receives the terminal completed event.
type CompleteFunc func(event task.ProgressEvent)

// ErrorFunc receives the terminal error event, whether reported by the
// backend or synthesized locally (polling timeout, malformed response).
type ErrorFunc func(event task.ProgressEvent)

// Tracker follows task progress and fans events out to per-task callbacks
// and registered reporters. All methods are safe for concurrent use.
type Tracker struct {
	source          StatusSource
	logger          *slog.Logger
	pollInterval    time.Duration
	maxPollAttempts int
	preferStreaming bool
	reporters       []Reporter

	mu       sync.Mutex
	watchers map[string]*watcher
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithPollInterval overrides the pause between polling attempts.
func WithPollInterval(interval time.Duration) TrackerOption {
	return func(t *Tracker) {
		if interval > 0 {
			t.pollInterval = interval
		}
	}
}

// WithMaxPollAttempts overrides the polling attempt budget.
func WithMaxPollAttempts(attempts int) TrackerOption {
	return func(t *Tracker) {
		if attempts > 0 {
			t.maxPollAttempts = attempts
		}
	}
}

// WithPreferStreaming sets the default transport preference for new tracks.
func WithPreferStreaming(prefer bool) TrackerOption {
	return func(t *Tracker) {
		t.preferStreaming = prefer
	}
}

// WithReporter registers a reporter that observes every delivered update.
func WithReporter(reporter Reporter) TrackerOption {
	return func(t *Tracker) {
		if reporter != nil {
			t.reporters = append(t.reporters, reporter)
		}
	}
}

// NewTracker creates a tracker on top of the given status source.
func NewTracker(source StatusSource, logger *slog.Logger, opts ...TrackerOption) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Tracker{
		source:          source,
		logger:          logger,
		pollInterval:    DefaultPollInterval,
		maxPollAttempts: DefaultMaxPollAttempts,
		preferStreaming: true,
		watchers:        make(map[string]*watcher),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// trackOptions holds per-call Track configuration.
type trackOptions struct {
	onComplete      CompleteFunc
	onError         ErrorFunc
	preferStreaming bool
}

// TrackOption configures a single Track call.
type TrackOption func(*trackOptions)

// WithOnComplete sets the callback for the terminal completed event.
func WithOnComplete(fn CompleteFunc) TrackOption {
	return func(o *trackOptions) {
		o.onComplete = fn
	}
}

// WithOnError sets the callback for the terminal error event.
func WithOnError(fn ErrorFunc) TrackOption {
	return func(o *trackOptions) {
		o.onError = fn
	}
}

// WithPollingOnly skips the streaming transport for this track and polls
// from the start.
func WithPollingOnly() TrackOption {
	return func(o *trackOptions) {
		o.preferStreaming = false
	}
}

// watcher is the tracking state for one task. A watcher is owned by exactly
// one goroutine; the stopped flag and delivery mutex keep callbacks from
// firing after teardown.
type watcher struct {
	taskID     string
	onProgress ProgressFunc
	onComplete CompleteFunc
	onError    ErrorFunc

	cancel    context.CancelFunc
	stopped   atomic.Bool
	deliverMu sync.Mutex
}

// halt marks the watcher stopped and releases its transport. Idempotent.
func (w *watcher) halt() {
	if w.stopped.Swap(true) {
		return
	}
	w.cancel()
}

// deliver runs fn unless the watcher has been stopped. It returns whether
// fn ran. The stopped flag is re-checked under the delivery mutex so that
// no new callback starts once halt has run.
func (w *watcher) deliver(fn func()) bool {
	w.deliverMu.Lock()
	defer w.deliverMu.Unlock()
	if w.stopped.Load() {
		return false
	}
	fn()
	return true
}

// Track starts following a task. onProgress receives non-terminal events;
// the terminal event goes only to onComplete or onError. Tracking the same
// task ID again replaces the previous watcher atomically: the old watcher
// is torn down before the new one can deliver anything.
func (t *Tracker) Track(ctx context.Context, taskID string, onProgress ProgressFunc, opts ...TrackOption) error {
	if taskID == "" {
		return ErrEmptyTaskID
	}
	if onProgress == nil {
		return ErrNilProgress
	}

	cfg := trackOptions{preferStreaming: t.preferStreaming}
	for _, opt := range opts {
		opt(&cfg)
	}

	wctx, cancel := context.WithCancel(ctx)
	w := &watcher{
		taskID:     taskID,
		onProgress: onProgress,
		onComplete: cfg.onComplete,
		onError:    cfg.onError,
		cancel:     cancel,
	}

	t.mu.Lock()
	if old, ok := t.watchers[taskID]; ok {
		old.halt()
	}
	t.watchers[taskID] = w
	t.mu.Unlock()

	t.logger.Debug("tracking started",
		slog.String("task_id", taskID),
		slog.Bool("streaming", cfg.preferStreaming))

	go t.run(wctx, w, cfg.preferStreaming)
	return nil
}

// StopTracking tears down the watcher for a task. It is a no-op for unknown
// task IDs and safe to call more than once. No callback fires after it
// returns.
func (t *Tracker) StopTracking(taskID string) {
	t.mu.Lock()
	w, ok := t.watchers[taskID]
	if ok {
		delete(t.watchers, taskID)
	}
	t.mu.Unlock()

	if !ok {
		return
	}
	w.halt()
	t.logger.Debug("tracking stopped", slog.String("task_id", taskID))
}

// StopAll tears down every active watcher.
func (t *Tracker) StopAll() {
	t.mu.Lock()
	stopped := make([]*watcher, 0, len(t.watchers))
	for id, w := range t.watchers {
		stopped = append(stopped, w)
		delete(t.watchers, id)
	}
	t.mu.Unlock()

	for _, w := range stopped {
		w.halt()
	}
	if len(stopped) > 0 {
		t.logger.Debug("all tracking stopped", slog.Int("count", len(stopped)))
	}
}

// IsTracking reports whether a watcher is registered for the task.
func (t *Tracker) IsTracking(taskID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.watchers[taskID]
	return ok
}

// ActiveCount returns the number of registered watchers.
func (t *Tracker) ActiveCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.watchers)
}

// run drives one watcher to completion. When streaming is preferred it is
// tried first; any transport failure there switches silently to polling.
// The deferred finish covers exits without a terminal event, such as the
// caller cancelling the tracking context, so the registry never keeps an
// entry for a watcher whose goroutine is gone.
func (t *Tracker) run(ctx context.Context, w *watcher, streaming bool) {
	defer t.finish(w)
	if streaming {
		if done := t.runStream(ctx, w); done {
			return
		}
		if ctx.Err() != nil {
			return
		}
		t.logger.Warn("status stream unavailable, falling back to polling",
			slog.String("task_id", w.taskID))
	}
	t.runPoll(ctx, w)
}

// runStream consumes the streaming endpoint. It returns true when tracking
// finished (terminal event or teardown) and false when the transport failed
// and polling should take over.
func (t *Tracker) runStream(ctx context.Context, w *watcher) bool {
	stream, err := t.source.OpenStatusStream(ctx, w.taskID)
	if err != nil {
		return ctx.Err() != nil
	}
	defer stream.Close()

	for {
		ev, err := stream.Next()
		if err != nil {
			// A clean EOF without a terminal event still means the
			// stream cannot answer; polling picks the task up.
			return ctx.Err() != nil
		}
		if done := t.dispatch(ctx, w, ev, TransportStream); done {
			return true
		}
	}
}

// runPoll polls the snapshot endpoint until a terminal event arrives or the
// attempt budget runs out. Transient request failures consume an attempt
// and the loop continues; a malformed response body fails the task.
func (t *Tracker) runPoll(ctx context.Context, w *watcher) {
	for attempt := 1; attempt <= t.maxPollAttempts; attempt++ {
		ev, err := t.source.TaskStatus(ctx, w.taskID)
		switch {
		case err == nil:
			if done := t.dispatch(ctx, w, ev, TransportPoll); done {
				return
			}
		case ctx.Err() != nil:
			return
		case errors.Is(err, task.ErrMalformedEvent):
			t.fail(ctx, w, fmt.Sprintf("invalid status response for task %s: %v", w.taskID, err))
			return
		default:
			t.logger.Warn("poll attempt failed",
				slog.String("task_id", w.taskID),
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()))
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(t.pollInterval):
		}
	}

	t.fail(ctx, w, fmt.Sprintf("timed out waiting for task %s after %d polling attempts",
		w.taskID, t.maxPollAttempts))
}

// dispatch routes one event: heartbeats are dropped, terminal events go to
// their terminal callback and tear the watcher down, everything else goes
// to onProgress. It returns whether the watcher is finished.
func (t *Tracker) dispatch(ctx context.Context, w *watcher, ev task.ProgressEvent, transport Transport) bool {
	if ev.Status.IsHeartbeat() {
		return false
	}
	if w.stopped.Load() {
		return true
	}

	t.report(ctx, Update{TaskID: w.taskID, Transport: transport, Event: ev})

	switch ev.Status {
	case task.StatusCompleted:
		w.deliver(func() {
			if w.onComplete != nil {
				w.onComplete(ev)
			}
		})
		t.finish(w)
		return true
	case task.StatusError:
		w.deliver(func() {
			if w.onError != nil {
				w.onError(ev)
			}
		})
		t.finish(w)
		return true
	default:
		w.deliver(func() {
			w.onProgress(ev)
		})
		return false
	}
}

// fail synthesizes a local error event and tears the watcher down.
func (t *Tracker) fail(ctx context.Context, w *watcher, message string) {
	t.logger.Error("tracking failed",
		slog.String("task_id", w.taskID),
		slog.String("message", message))
	t.dispatch(ctx, w, task.ErrorEvent(message), TransportPoll)
}

// finish removes the watcher from the registry if it is still the current
// one for its task ID, then halts it.
func (t *Tracker) finish(w *watcher) {
	t.mu.Lock()
	if cur, ok := t.watchers[w.taskID]; ok && cur == w {
		delete(t.watchers, w.taskID)
	}
	t.mu.Unlock()
	w.halt()
}

// report notifies all reporters. Errors are logged and swallowed.
func (t *Tracker) report(ctx context.Context, update Update) {
	for _, r := range t.reporters {
		if err := r.OnUpdate(ctx, update); err != nil {
			t.logger.Warn("reporter failed",
				slog.String("task_id", update.TaskID),
				slog.String("error", err.Error()))
		}
	}
}
