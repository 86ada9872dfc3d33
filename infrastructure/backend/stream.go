package backend

import (
	"bufio"
	"bytes"
	"io"
	"sync"

	"github.com/Bilal-khan980/semantic-search-assistant/domain/task"
)

// maxStreamLineSize bounds a single status message on the stream.
const maxStreamLineSize = 1 << 20

// StatusStream reads progress events from a task's streaming status
// endpoint. The wire format is newline-delimited JSON; SSE framing
// ("data:" prefixes, comment lines, blank keep-alive lines) is tolerated
// because local backends have shipped both variants of the contract.
type StatusStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	once    sync.Once
}

func newStatusStream(body io.ReadCloser) *StatusStream {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxStreamLineSize)
	return &StatusStream{
		body:    body,
		scanner: scanner,
	}
}

// Next blocks until the next progress event arrives. It returns io.EOF when
// the backend closes the stream, or the read/parse error that ended it.
// Heartbeat filtering is the consumer's concern: every well-formed event is
// returned in arrival order.
func (s *StatusStream) Next() (task.ProgressEvent, error) {
	for s.scanner.Scan() {
		line := bytes.TrimSpace(s.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		// SSE comment lines keep proxies from buffering; skip them.
		if line[0] == ':' {
			continue
		}
		if rest, ok := bytes.CutPrefix(line, []byte("data:")); ok {
			line = bytes.TrimSpace(rest)
			if len(line) == 0 {
				continue
			}
		}
		// Non-data SSE fields (event:, id:, retry:) carry no payload here.
		if isSSEField(line) {
			continue
		}

		ev, err := task.ParseProgressEvent(line)
		if err != nil {
			return task.ProgressEvent{}, err
		}
		return ev, nil
	}

	if err := s.scanner.Err(); err != nil {
		return task.ProgressEvent{}, err
	}
	return task.ProgressEvent{}, io.EOF
}

// Close releases the underlying connection. Safe to call more than once.
func (s *StatusStream) Close() error {
	var err error
	s.once.Do(func() {
		err = s.body.Close()
	})
	return err
}

// isSSEField reports whether the line is a non-data SSE field rather than a
// JSON message.
func isSSEField(line []byte) bool {
	for _, prefix := range [][]byte{[]byte("event:"), []byte("id:"), []byte("retry:")} {
		if bytes.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}
