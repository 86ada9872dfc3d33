package task

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ProgressEvent is a single status message for a tracked task. The backend
// emits the same JSON shape on both the streaming and the polling endpoint:
// a status field plus operation-specific progress fields.
type ProgressEvent struct {
	Status     Status  `json:"status"`
	Percentage float64 `json:"percentage,omitempty"`
	Message    string  `json:"message,omitempty"`
	Current    int     `json:"current,omitempty"`
	Total      int     `json:"total,omitempty"`
	Stage      string  `json:"stage,omitempty"`

	// Raw holds the full message payload so callers can reach
	// operation-specific fields not modelled here.
	Raw json.RawMessage `json:"-"`
}

// ErrMalformedEvent indicates a status message that violates the contract:
// either invalid JSON or a payload with no status field.
var ErrMalformedEvent = errors.New("malformed progress event")

// ParseProgressEvent decodes a single JSON status message.
func ParseProgressEvent(data []byte) (ProgressEvent, error) {
	var ev ProgressEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return ProgressEvent{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if ev.Status == "" {
		return ProgressEvent{}, fmt.Errorf("%w: missing status field", ErrMalformedEvent)
	}
	ev.Raw = append(json.RawMessage(nil), data...)
	return ev, nil
}

// ErrorEvent builds the uniform error payload delivered to error callbacks.
func ErrorEvent(message string) ProgressEvent {
	return ProgressEvent{
		Status:  StatusError,
		Message: message,
	}
}
