package task

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseProgressEvent(t *testing.T) {
	data := []byte(`{"status":"ongoing","percentage":42.5,"message":"chunking","current":3,"total":7,"stage":"extract"}`)

	ev, err := ParseProgressEvent(data)
	require.NoError(t, err)
	require.Equal(t, StatusOngoing, ev.Status)
	require.Equal(t, 42.5, ev.Percentage)
	require.Equal(t, "chunking", ev.Message)
	require.Equal(t, 3, ev.Current)
	require.Equal(t, 7, ev.Total)
	require.Equal(t, "extract", ev.Stage)
	require.JSONEq(t, string(data), string(ev.Raw))
}

func TestParseProgressEventRejectsInvalidJSON(t *testing.T) {
	_, err := ParseProgressEvent([]byte(`{"status":`))
	require.ErrorIs(t, err, ErrMalformedEvent)
}

func TestParseProgressEventRejectsMissingStatus(t *testing.T) {
	_, err := ParseProgressEvent([]byte(`{"percentage":50}`))
	require.ErrorIs(t, err, ErrMalformedEvent)
}

func TestParseProgressEventKeepsUnknownFieldsInRaw(t *testing.T) {
	ev, err := ParseProgressEvent([]byte(`{"status":"ongoing","documents_found":12}`))
	require.NoError(t, err)
	require.Contains(t, string(ev.Raw), "documents_found")
}

func TestStatusClassification(t *testing.T) {
	require.True(t, StatusCompleted.IsTerminal())
	require.True(t, StatusError.IsTerminal())
	require.False(t, StatusOngoing.IsTerminal())
	require.False(t, StatusHeartbeat.IsTerminal())

	require.True(t, StatusHeartbeat.IsHeartbeat())
	require.False(t, StatusOngoing.IsHeartbeat())
}

func TestErrorEvent(t *testing.T) {
	ev := ErrorEvent("backend went away")
	require.Equal(t, StatusError, ev.Status)
	require.Equal(t, "backend went away", ev.Message)
	require.True(t, ev.Status.IsTerminal())
}
