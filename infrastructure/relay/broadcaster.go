// Package relay exposes tracked task progress to local UI consumers over a
// small HTTP server with a Server-Sent Events feed.
package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/Bilal-khan980/semantic-search-assistant/infrastructure/tracking"
)

// subscriberBuffer bounds the per-subscriber queue. Slow consumers drop
// events rather than stall the tracker.
const subscriberBuffer = 64

// eventPayload is the JSON shape written to the SSE feed.
type eventPayload struct {
	TaskID     string  `json:"task_id"`
	Transport  string  `json:"transport"`
	Status     string  `json:"status"`
	Percentage float64 `json:"percentage,omitempty"`
	Message    string  `json:"message,omitempty"`
	Stage      string  `json:"stage,omitempty"`
}

// Broadcaster fans tracker updates out to SSE subscribers. It implements
// tracking.Reporter.
type Broadcaster struct {
	logger *slog.Logger

	mu          sync.Mutex
	subscribers map[chan []byte]struct{}
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster(logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		logger:      logger,
		subscribers: make(map[chan []byte]struct{}),
	}
}

// Subscribe registers a new subscriber channel. The caller must
// Unsubscribe when done.
func (b *Broadcaster) Subscribe() chan []byte {
	ch := make(chan []byte, subscriberBuffer)
	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Broadcaster) Unsubscribe(ch chan []byte) {
	b.mu.Lock()
	if _, ok := b.subscribers[ch]; ok {
		delete(b.subscribers, ch)
		close(ch)
	}
	b.mu.Unlock()
}

// SubscriberCount returns the number of connected subscribers.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}

// OnUpdate serializes the update and queues it for every subscriber.
func (b *Broadcaster) OnUpdate(_ context.Context, update tracking.Update) error {
	data, err := json.Marshal(eventPayload{
		TaskID:     update.TaskID,
		Transport:  string(update.Transport),
		Status:     string(update.Event.Status),
		Percentage: update.Event.Percentage,
		Message:    update.Event.Message,
		Stage:      update.Event.Stage,
	})
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subscribers {
		select {
		case ch <- data:
		default:
			b.logger.Warn("dropping relay event for slow subscriber",
				slog.String("task_id", update.TaskID))
		}
	}
	return nil
}
