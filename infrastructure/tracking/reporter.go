package tracking

import (
	"context"
	"log/slog"

	"github.com/Bilal-khan980/semantic-search-assistant/domain/task"
)

// Transport identifies which status transport produced an update.
type Transport string

const (
	TransportStream Transport = "stream"
	TransportPoll   Transport = "poll"
)

// Update is a single status observation delivered to reporters. Heartbeats
// are filtered out before reporters see anything.
type Update struct {
	TaskID    string
	Transport Transport
	Event     task.ProgressEvent
}

// Reporter receives every non-heartbeat update the tracker delivers.
// Reporter failures are logged and never affect callback delivery.
type Reporter interface {
	OnUpdate(ctx context.Context, update Update) error
}

// LoggingReporter writes every update to the structured log.
type LoggingReporter struct {
	logger *slog.Logger
}

// NewLoggingReporter creates a reporter backed by the given logger.
func NewLoggingReporter(logger *slog.Logger) *LoggingReporter {
	return &LoggingReporter{logger: logger}
}

func (r *LoggingReporter) OnUpdate(_ context.Context, update Update) error {
	attrs := []any{
		slog.String("task_id", update.TaskID),
		slog.String("status", string(update.Event.Status)),
		slog.String("transport", string(update.Transport)),
	}
	if update.Event.Percentage > 0 {
		attrs = append(attrs, slog.Float64("percentage", update.Event.Percentage))
	}
	if update.Event.Message != "" {
		attrs = append(attrs, slog.String("message", update.Event.Message))
	}
	if update.Event.Stage != "" {
		attrs = append(attrs, slog.String("stage", update.Event.Stage))
	}

	switch update.Event.Status {
	case task.StatusError:
		r.logger.Error("task failed", attrs...)
	case task.StatusCompleted:
		r.logger.Info("task completed", attrs...)
	default:
		r.logger.Debug("task progress", attrs...)
	}
	return nil
}
