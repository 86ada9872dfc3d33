package relay

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Bilal-khan980/semantic-search-assistant/domain/task"
	"github.com/Bilal-khan980/semantic-search-assistant/infrastructure/tracking"
	"github.com/Bilal-khan980/semantic-search-assistant/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T) (*httptest.Server, *Broadcaster) {
	t.Helper()
	broadcaster := NewBroadcaster(testLogger())
	server := NewServer(config.NewRelayConfig(), broadcaster, testLogger())
	ts := httptest.NewServer(server.Router())
	t.Cleanup(ts.Close)
	return ts, broadcaster
}

func TestHealthEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Content-Type"), "application/json")

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "ok", body["status"])
}

func TestEventsStreamDeliversUpdates(t *testing.T) {
	ts, broadcaster := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	// Publish once the subscriber is registered.
	go func() {
		for broadcaster.SubscriberCount() == 0 {
			time.Sleep(time.Millisecond)
		}
		_ = broadcaster.OnUpdate(context.Background(), tracking.Update{
			TaskID:    "task-1",
			Transport: tracking.TransportStream,
			Event: task.ProgressEvent{
				Status:     task.StatusOngoing,
				Percentage: 55,
				Stage:      "embedding",
			},
		})
	}()

	scanner := bufio.NewScanner(resp.Body)
	var data string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "data:") {
			data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			break
		}
	}
	require.NotEmpty(t, data)

	var payload eventPayload
	require.NoError(t, json.Unmarshal([]byte(data), &payload))
	require.Equal(t, "task-1", payload.TaskID)
	require.Equal(t, "stream", payload.Transport)
	require.Equal(t, "ongoing", payload.Status)
	require.Equal(t, 55.0, payload.Percentage)
	require.Equal(t, "embedding", payload.Stage)
}

func TestShutdownBeforeStartStopsServer(t *testing.T) {
	broadcaster := NewBroadcaster(testLogger())
	cfg := config.NewRelayConfig().WithPort(0)
	server := NewServer(cfg, broadcaster, testLogger())

	require.NoError(t, server.Shutdown(context.Background()))

	// A Start that loses the race against Shutdown observes the closed
	// server and returns cleanly instead of serving forever.
	done := make(chan error, 1)
	go func() { done <- server.Start() }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after Shutdown")
	}
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	broadcaster := NewBroadcaster(testLogger())
	ch := broadcaster.Subscribe()
	require.Equal(t, 1, broadcaster.SubscriberCount())

	broadcaster.Unsubscribe(ch)
	broadcaster.Unsubscribe(ch)
	require.Zero(t, broadcaster.SubscriberCount())
}

func TestSlowSubscriberDoesNotBlockPublishing(t *testing.T) {
	broadcaster := NewBroadcaster(testLogger())
	ch := broadcaster.Subscribe()
	defer broadcaster.Unsubscribe(ch)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < subscriberBuffer*2; i++ {
			_ = broadcaster.OnUpdate(context.Background(), tracking.Update{
				TaskID: "task-1",
				Event:  task.ProgressEvent{Status: task.StatusOngoing},
			})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publishing blocked on a slow subscriber")
	}
	require.Len(t, ch, subscriberBuffer)
}
