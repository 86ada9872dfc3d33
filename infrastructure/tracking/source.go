package tracking

import (
	"context"

	"github.com/Bilal-khan980/semantic-search-assistant/domain/task"
	"github.com/Bilal-khan980/semantic-search-assistant/infrastructure/backend"
)

// StatusSource is the transport surface the tracker needs. It is satisfied
// by the backend client through ClientSource and by fakes in tests.
type StatusSource interface {
	// TaskStatus fetches the current status snapshot for one task.
	TaskStatus(ctx context.Context, taskID string) (task.ProgressEvent, error)
	// OpenStatusStream opens the persistent status stream for one task.
	OpenStatusStream(ctx context.Context, taskID string) (StatusStream, error)
}

// StatusStream yields status events until the task finishes or the
// connection drops.
type StatusStream interface {
	Next() (task.ProgressEvent, error)
	Close() error
}

// ClientSource adapts the backend HTTP client to the StatusSource interface.
type ClientSource struct {
	client *backend.Client
}

// NewClientSource wraps a backend client as a StatusSource.
func NewClientSource(client *backend.Client) *ClientSource {
	return &ClientSource{client: client}
}

func (s *ClientSource) TaskStatus(ctx context.Context, taskID string) (task.ProgressEvent, error) {
	return s.client.TaskStatus(ctx, taskID)
}

func (s *ClientSource) OpenStatusStream(ctx context.Context, taskID string) (StatusStream, error) {
	stream, err := s.client.OpenStatusStream(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return stream, nil
}
