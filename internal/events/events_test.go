package events

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/roomtrack/internal/model"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDecode(t *testing.T) {
	input := `{"type":"session","name":"any%"}

{"type":"room","room":0,"ticks":1000}
{"type":"room","room":1,"ticks":2500,"final":true,"at":"2026-01-01T10:00:00Z"}
{"type":"dnf","room":0,"ticks":400}
`
	evs, err := Decode(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, evs, 4)
	assert.Equal(t, Event{Type: TypeSession, Name: "any%"}, evs[0])
	assert.Equal(t, model.RoomIndex(1), evs[2].Room)
	assert.Equal(t, model.TimeTicks(2500), evs[2].Ticks)
	assert.True(t, evs[2].Final)
	assert.Equal(t, 2026, evs[2].At.Year())
	assert.Equal(t, TypeDnf, evs[3].Type)
}

func TestDecodeReportsLine(t *testing.T) {
	_, err := Decode(strings.NewReader("{\"type\":\"room\"}\n{oops}\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")

	evs, err := Decode(strings.NewReader("{\"type\":\"room\"}\n{\"type\":\"teleport\"}\n"))
	assert.True(t, errors.Is(err, ErrUnknownEvent))
	assert.Len(t, evs, 1)
}

func TestRecorderRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "events.ndjson")
	rec, err := NewRecorder(path)
	require.NoError(t, err)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	written := []Event{
		{Type: TypeSession, Name: "glitchless", At: at},
		{Type: TypeRoom, Room: 0, Ticks: 1200, At: at},
		{Type: TypeRoom, Room: 1, Ticks: 2000, Final: true, At: at},
	}
	for _, ev := range written {
		require.NoError(t, rec.Record(ev))
	}
	require.NoError(t, rec.Close())

	read, err := ReadFile(path)
	require.NoError(t, err)
	require.Len(t, read, len(written))
	for i := range written {
		assert.Equal(t, written[i].Type, read[i].Type)
		assert.Equal(t, written[i].Room, read[i].Room)
		assert.Equal(t, written[i].Ticks, read[i].Ticks)
		assert.Equal(t, written[i].Final, read[i].Final)
		assert.True(t, written[i].At.Equal(read[i].At))
	}
}

func TestReadFileMissing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "missing.ndjson"))
	assert.Error(t, err)
}

func TestFollower(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.ndjson")
	f := NewFollower(path)

	evs, reset, err := f.Next()
	require.NoError(t, err)
	assert.False(t, reset)
	assert.Empty(t, evs, "missing file yields nothing")

	require.NoError(t, os.WriteFile(path, []byte("{\"type\":\"room\",\"room\":0,\"ticks\":10}\n{\"type\":\"ro"), 0o644))
	evs, _, err = f.Next()
	require.NoError(t, err)
	require.Len(t, evs, 1)

	appendFile(t, path, "om\",\"room\":1,\"ticks\":20,\"final\":true}\n")
	evs, reset, err = f.Next()
	require.NoError(t, err)
	assert.False(t, reset)
	require.Len(t, evs, 1)
	assert.Equal(t, model.TimeTicks(20), evs[0].Ticks)

	require.NoError(t, os.WriteFile(path, []byte("{\"type\":\"dnf\",\"room\":0,\"ticks\":5}\n"), 0o644))
	evs, reset, err = f.Next()
	require.NoError(t, err)
	assert.True(t, reset, "file shrank")
	require.Len(t, evs, 1)
	assert.Equal(t, TypeDnf, evs[0].Type)
}

func TestFollowerSkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.ndjson")
	require.NoError(t, os.WriteFile(path, []byte(
		"{\"type\":\"room\",\"room\":0,\"ticks\":10}\n"+
			"garbage\n"+
			"{\"type\":\"room\",\"room\":1,\"ticks\":20}\n"+
			"{\"type\":\"room\",\"room\":2,\"ticks\":30,\"final\":true}\n"), 0o644))
	f := NewFollower(path)

	evs, _, err := f.Next()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
	require.Len(t, evs, 3)
	assert.Equal(t, model.RoomIndex(2), evs[2].Room)
	assert.True(t, evs[2].Final)

	appendFile(t, path, "{\"type\":\"lap\"}\n{\"type\":\"dnf\",\"room\":0,\"ticks\":5}\n")
	evs, _, err = f.Next()
	require.ErrorIs(t, err, ErrUnknownEvent)
	assert.Contains(t, err.Error(), "line 5")
	require.Len(t, evs, 1)
	assert.Equal(t, TypeDnf, evs[0].Type)

	evs, _, err = f.Next()
	require.NoError(t, err)
	assert.Empty(t, evs)
}

func appendFile(t *testing.T, path, data string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(data)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}
