// Package task defines the task tracking domain types shared by the
// backend client and the progress tracker.
package task

// Status represents the reported state of a backend task.
type Status string

// Status values emitted by the backend status endpoints.
const (
	StatusOngoing   Status = "ongoing"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
	StatusHeartbeat Status = "heartbeat"
)

// IsTerminal returns true if the status ends tracking for a task.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusError
}

// IsHeartbeat returns true for liveness-only messages that carry no
// progress payload.
func (s Status) IsHeartbeat() bool {
	return s == StatusHeartbeat
}
