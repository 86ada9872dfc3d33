package tracking

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Bilal-khan980/semantic-search-assistant/domain/task"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ongoing(percentage float64) task.ProgressEvent {
	return task.ProgressEvent{Status: task.StatusOngoing, Percentage: percentage}
}

func completed() task.ProgressEvent {
	return task.ProgressEvent{Status: task.StatusCompleted, Percentage: 100}
}

func failed(message string) task.ProgressEvent {
	return task.ProgressEvent{Status: task.StatusError, Message: message}
}

func heartbeat() task.ProgressEvent {
	return task.ProgressEvent{Status: task.StatusHeartbeat}
}

// scriptedStream replays a fixed sequence of events and then its final
// error (io.EOF unless overridden).
type scriptedStream struct {
	mu     sync.Mutex
	events []task.ProgressEvent
	final  error
	closed bool
}

func (s *scriptedStream) Next() (task.ProgressEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) == 0 {
		if s.final != nil {
			return task.ProgressEvent{}, s.final
		}
		return task.ProgressEvent{}, io.EOF
	}
	ev := s.events[0]
	s.events = s.events[1:]
	return ev, nil
}

func (s *scriptedStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

type pollStep struct {
	event task.ProgressEvent
	err   error
}

// fakeSource serves scripted streams and polling steps. The last polling
// step repeats once the script runs out.
type fakeSource struct {
	mu          sync.Mutex
	streamErr   error
	streams     []*scriptedStream
	streamOpens int
	steps       []pollStep
	pollCalls   int
}

func (f *fakeSource) TaskStatus(_ context.Context, _ string) (task.ProgressEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pollCalls++
	if len(f.steps) == 0 {
		return ongoing(0), nil
	}
	step := f.steps[0]
	if len(f.steps) > 1 {
		f.steps = f.steps[1:]
	}
	return step.event, step.err
}

func (f *fakeSource) OpenStatusStream(_ context.Context, _ string) (StatusStream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.streamOpens++
	if f.streamErr != nil {
		return nil, f.streamErr
	}
	if len(f.streams) == 0 {
		return nil, errors.New("no stream available")
	}
	s := f.streams[0]
	f.streams = f.streams[1:]
	return s, nil
}

func (f *fakeSource) openCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.streamOpens
}

func (f *fakeSource) polls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pollCalls
}

// recorder collects delivered events per callback, safe for concurrent use.
type recorder struct {
	mu        sync.Mutex
	progress  []task.ProgressEvent
	completes []task.ProgressEvent
	errs      []task.ProgressEvent
	completed chan struct{}
	errored   chan struct{}
}

func newRecorder() *recorder {
	return &recorder{
		completed: make(chan struct{}),
		errored:   make(chan struct{}),
	}
}

func (r *recorder) onProgress(ev task.ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, ev)
}

func (r *recorder) onComplete(ev task.ProgressEvent) {
	r.mu.Lock()
	r.completes = append(r.completes, ev)
	r.mu.Unlock()
	close(r.completed)
}

func (r *recorder) onError(ev task.ProgressEvent) {
	r.mu.Lock()
	r.errs = append(r.errs, ev)
	r.mu.Unlock()
	close(r.errored)
}

func (r *recorder) progressEvents() []task.ProgressEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]task.ProgressEvent(nil), r.progress...)
}

func (r *recorder) errorEvents() []task.ProgressEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]task.ProgressEvent(nil), r.errs...)
}

func (r *recorder) completeEvents() []task.ProgressEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]task.ProgressEvent(nil), r.completes...)
}

func waitFor(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for terminal callback")
	}
}

func TestTrackValidatesArguments(t *testing.T) {
	tracker := NewTracker(&fakeSource{}, testLogger())

	err := tracker.Track(context.Background(), "", func(task.ProgressEvent) {})
	require.ErrorIs(t, err, ErrEmptyTaskID)

	err = tracker.Track(context.Background(), "task-1", nil)
	require.ErrorIs(t, err, ErrNilProgress)
}

func TestStreamingDeliversProgressAndCompletion(t *testing.T) {
	source := &fakeSource{
		streams: []*scriptedStream{{
			events: []task.ProgressEvent{ongoing(10), ongoing(40), completed()},
		}},
	}
	tracker := NewTracker(source, testLogger())
	rec := newRecorder()

	err := tracker.Track(context.Background(), "task-1", rec.onProgress,
		WithOnComplete(rec.onComplete), WithOnError(rec.onError))
	require.NoError(t, err)

	waitFor(t, rec.completed)

	progress := rec.progressEvents()
	require.Len(t, progress, 2)
	require.Equal(t, 10.0, progress[0].Percentage)
	require.Equal(t, 40.0, progress[1].Percentage)

	completes := rec.completeEvents()
	require.Len(t, completes, 1)
	require.Equal(t, 100.0, completes[0].Percentage)
	require.Empty(t, rec.errorEvents())

	require.Eventually(t, func() bool {
		return !tracker.IsTracking("task-1")
	}, time.Second, 5*time.Millisecond)
	require.Zero(t, source.polls())
}

func TestStreamingDeliversTerminalError(t *testing.T) {
	source := &fakeSource{
		streams: []*scriptedStream{{
			events: []task.ProgressEvent{ongoing(20), failed("extraction crashed")},
		}},
	}
	tracker := NewTracker(source, testLogger())
	rec := newRecorder()

	require.NoError(t, tracker.Track(context.Background(), "task-1", rec.onProgress,
		WithOnError(rec.onError)))

	waitFor(t, rec.errored)

	errs := rec.errorEvents()
	require.Len(t, errs, 1)
	require.Equal(t, "extraction crashed", errs[0].Message)
	require.Len(t, rec.progressEvents(), 1)
}

func TestHeartbeatsAreFiltered(t *testing.T) {
	source := &fakeSource{
		streams: []*scriptedStream{{
			events: []task.ProgressEvent{heartbeat(), ongoing(50), heartbeat(), completed()},
		}},
	}
	tracker := NewTracker(source, testLogger())
	rec := newRecorder()

	require.NoError(t, tracker.Track(context.Background(), "task-1", rec.onProgress,
		WithOnComplete(rec.onComplete)))

	waitFor(t, rec.completed)

	progress := rec.progressEvents()
	require.Len(t, progress, 1)
	require.Equal(t, 50.0, progress[0].Percentage)
}

func TestStreamOpenFailureFallsBackToPolling(t *testing.T) {
	source := &fakeSource{
		streamErr: errors.New("connection refused"),
		steps: []pollStep{
			{event: ongoing(30)},
			{event: completed()},
		},
	}
	tracker := NewTracker(source, testLogger(), WithPollInterval(time.Millisecond))
	rec := newRecorder()

	require.NoError(t, tracker.Track(context.Background(), "task-1", rec.onProgress,
		WithOnComplete(rec.onComplete), WithOnError(rec.onError)))

	waitFor(t, rec.completed)

	require.Equal(t, 1, source.openCount())
	require.GreaterOrEqual(t, source.polls(), 2)
	// The stream failure itself never surfaces as an error.
	require.Empty(t, rec.errorEvents())
	progress := rec.progressEvents()
	require.NotEmpty(t, progress)
	require.Equal(t, 30.0, progress[0].Percentage)
}

func TestStreamDropMidwayFallsBackToPolling(t *testing.T) {
	source := &fakeSource{
		streams: []*scriptedStream{{
			events: []task.ProgressEvent{ongoing(10)},
			final:  errors.New("connection reset"),
		}},
		steps: []pollStep{{event: completed()}},
	}
	tracker := NewTracker(source, testLogger(), WithPollInterval(time.Millisecond))
	rec := newRecorder()

	require.NoError(t, tracker.Track(context.Background(), "task-1", rec.onProgress,
		WithOnComplete(rec.onComplete), WithOnError(rec.onError)))

	waitFor(t, rec.completed)
	require.Empty(t, rec.errorEvents())
	require.Len(t, rec.progressEvents(), 1)
}

func TestPollingOnlySkipsStream(t *testing.T) {
	source := &fakeSource{
		steps: []pollStep{{event: completed()}},
	}
	tracker := NewTracker(source, testLogger(), WithPollInterval(time.Millisecond))
	rec := newRecorder()

	require.NoError(t, tracker.Track(context.Background(), "task-1", rec.onProgress,
		WithOnComplete(rec.onComplete), WithPollingOnly()))

	waitFor(t, rec.completed)
	require.Zero(t, source.openCount())
}

func TestTransientPollFailuresContinue(t *testing.T) {
	source := &fakeSource{
		steps: []pollStep{
			{err: errors.New("temporary outage")},
			{err: errors.New("temporary outage")},
			{event: completed()},
		},
	}
	tracker := NewTracker(source, testLogger(), WithPollInterval(time.Millisecond))
	rec := newRecorder()

	require.NoError(t, tracker.Track(context.Background(), "task-1", rec.onProgress,
		WithOnComplete(rec.onComplete), WithOnError(rec.onError), WithPollingOnly()))

	waitFor(t, rec.completed)
	require.Empty(t, rec.errorEvents())
	require.GreaterOrEqual(t, source.polls(), 3)
}

func TestPollingBudgetExhaustionReportsTimeout(t *testing.T) {
	source := &fakeSource{
		steps: []pollStep{{event: ongoing(5)}},
	}
	tracker := NewTracker(source, testLogger(),
		WithPollInterval(time.Millisecond), WithMaxPollAttempts(3))
	rec := newRecorder()

	require.NoError(t, tracker.Track(context.Background(), "task-9", rec.onProgress,
		WithOnError(rec.onError), WithPollingOnly()))

	waitFor(t, rec.errored)

	errs := rec.errorEvents()
	require.Len(t, errs, 1)
	require.Equal(t, task.StatusError, errs[0].Status)
	require.Contains(t, errs[0].Message, "task-9")
	require.Contains(t, errs[0].Message, "3 polling attempts")
	require.Equal(t, 3, source.polls())
	require.False(t, tracker.IsTracking("task-9"))
}

func TestMalformedPollResponseFailsTask(t *testing.T) {
	source := &fakeSource{
		steps: []pollStep{
			{err: fmt.Errorf("%w: missing status field", task.ErrMalformedEvent)},
		},
	}
	tracker := NewTracker(source, testLogger(),
		WithPollInterval(time.Millisecond), WithMaxPollAttempts(10))
	rec := newRecorder()

	require.NoError(t, tracker.Track(context.Background(), "task-1", rec.onProgress,
		WithOnError(rec.onError), WithPollingOnly()))

	waitFor(t, rec.errored)

	require.Equal(t, 1, source.polls())
	errs := rec.errorEvents()
	require.Len(t, errs, 1)
	require.Contains(t, errs[0].Message, "invalid status response")
	require.False(t, tracker.IsTracking("task-1"))
}

func TestStopTrackingSilencesCallbacks(t *testing.T) {
	source := &fakeSource{
		steps: []pollStep{{event: ongoing(1)}},
	}
	tracker := NewTracker(source, testLogger(),
		WithPollInterval(5*time.Millisecond), WithMaxPollAttempts(10000))
	rec := newRecorder()

	require.NoError(t, tracker.Track(context.Background(), "task-1", rec.onProgress,
		WithPollingOnly()))

	require.Eventually(t, func() bool {
		return len(rec.progressEvents()) > 0
	}, time.Second, time.Millisecond)

	tracker.StopTracking("task-1")
	require.False(t, tracker.IsTracking("task-1"))

	// Let any delivery that was already in flight settle, then verify
	// silence.
	time.Sleep(20 * time.Millisecond)
	seen := len(rec.progressEvents())
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, seen, len(rec.progressEvents()))

	// Stopping again or stopping an unknown task is a no-op.
	tracker.StopTracking("task-1")
	tracker.StopTracking("never-tracked")
}

func TestContextCancelUnregistersWatcher(t *testing.T) {
	source := &fakeSource{
		steps: []pollStep{{event: ongoing(1)}},
	}
	tracker := NewTracker(source, testLogger(),
		WithPollInterval(5*time.Millisecond), WithMaxPollAttempts(10000))
	rec := newRecorder()

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, tracker.Track(ctx, "task-1", rec.onProgress,
		WithPollingOnly()))

	require.Eventually(t, func() bool {
		return len(rec.progressEvents()) > 0
	}, time.Second, time.Millisecond)
	require.True(t, tracker.IsTracking("task-1"))

	cancel()

	// The watcher goroutine exits on its own; the registry must not keep
	// reporting the task as tracked.
	require.Eventually(t, func() bool {
		return !tracker.IsTracking("task-1")
	}, time.Second, time.Millisecond)
	require.Equal(t, 0, tracker.ActiveCount())

	// Cancellation is a teardown, not a failure: no terminal callback.
	require.Empty(t, rec.errorEvents())
	require.Empty(t, rec.completeEvents())
}

func TestRetrackReplacesWatcher(t *testing.T) {
	source := &fakeSource{
		steps: []pollStep{{event: ongoing(1)}},
	}
	tracker := NewTracker(source, testLogger(),
		WithPollInterval(5*time.Millisecond), WithMaxPollAttempts(10000))
	first := newRecorder()
	second := newRecorder()

	require.NoError(t, tracker.Track(context.Background(), "task-1", first.onProgress,
		WithPollingOnly()))
	require.Eventually(t, func() bool {
		return len(first.progressEvents()) > 0
	}, time.Second, time.Millisecond)

	require.NoError(t, tracker.Track(context.Background(), "task-1", second.onProgress,
		WithPollingOnly()))
	require.Equal(t, 1, tracker.ActiveCount())

	require.Eventually(t, func() bool {
		return len(second.progressEvents()) > 0
	}, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	firstSeen := len(first.progressEvents())
	time.Sleep(25 * time.Millisecond)
	require.Equal(t, firstSeen, len(first.progressEvents()))
}

func TestStopAllClearsEveryWatcher(t *testing.T) {
	source := &fakeSource{
		steps: []pollStep{{event: ongoing(1)}},
	}
	tracker := NewTracker(source, testLogger(),
		WithPollInterval(5*time.Millisecond), WithMaxPollAttempts(10000))

	for i := range 3 {
		id := fmt.Sprintf("task-%d", i)
		require.NoError(t, tracker.Track(context.Background(), id,
			func(task.ProgressEvent) {}, WithPollingOnly()))
	}
	require.Equal(t, 3, tracker.ActiveCount())

	tracker.StopAll()
	require.Zero(t, tracker.ActiveCount())
	require.False(t, tracker.IsTracking("task-0"))
}

type recordingReporter struct {
	mu      sync.Mutex
	updates []Update
	err     error
}

func (r *recordingReporter) OnUpdate(_ context.Context, update Update) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, update)
	return r.err
}

func (r *recordingReporter) seen() []Update {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Update(nil), r.updates...)
}

func TestReportersObserveUpdates(t *testing.T) {
	source := &fakeSource{
		streams: []*scriptedStream{{
			events: []task.ProgressEvent{heartbeat(), ongoing(60), completed()},
		}},
	}
	reporter := &recordingReporter{}
	failing := &recordingReporter{err: errors.New("sink unavailable")}
	tracker := NewTracker(source, testLogger(),
		WithReporter(failing), WithReporter(reporter))
	rec := newRecorder()

	require.NoError(t, tracker.Track(context.Background(), "task-1", rec.onProgress,
		WithOnComplete(rec.onComplete)))

	waitFor(t, rec.completed)

	updates := reporter.seen()
	require.Len(t, updates, 2)
	require.Equal(t, "task-1", updates[0].TaskID)
	require.Equal(t, TransportStream, updates[0].Transport)
	require.Equal(t, task.StatusOngoing, updates[0].Event.Status)
	require.Equal(t, task.StatusCompleted, updates[1].Event.Status)

	// A failing reporter never blocks delivery to the others.
	require.Len(t, failing.seen(), 2)
	require.Len(t, rec.completeEvents(), 1)
}
