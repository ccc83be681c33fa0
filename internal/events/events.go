// Package events reads and writes the NDJSON split-event stream a game host emits
// and turns it into practice sessions.
package events

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/verte-zerg/roomtrack/internal/model"
)

// Type identifies the kind of host event.
type Type string

const (
	// TypeRoom marks a room transition; Ticks is the cumulative segment time.
	TypeRoom Type = "room"
	// TypeDnf marks an abandoned attempt; Ticks is the cumulative segment time at the reset.
	TypeDnf Type = "dnf"
	// TypeSession starts a new practice session named Name.
	TypeSession Type = "session"
)

// ErrUnknownEvent is returned for events with an unrecognized type.
var ErrUnknownEvent = errors.New("unknown event type")

// Event is one line of the event stream.
type Event struct {
	Type  Type            `json:"type"`
	Room  model.RoomIndex `json:"room"`
	Ticks model.TimeTicks `json:"ticks,omitempty"`
	Final bool            `json:"final,omitempty"`
	Name  string          `json:"name,omitempty"`
	At    time.Time       `json:"at"`
}

func (e Event) validate() error {
	switch e.Type {
	case TypeRoom, TypeDnf, TypeSession:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownEvent, e.Type)
}

// Decode parses newline-delimited JSON events. Blank lines are skipped.
func Decode(r io.Reader) ([]Event, error) {
	var out []Event
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		ev, err := decodeLine(raw)
		if err != nil {
			return out, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, ev)
	}
	if err := scanner.Err(); err != nil {
		return out, err
	}
	return out, nil
}

func decodeLine(raw []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		return Event{}, err
	}
	if err := ev.validate(); err != nil {
		return Event{}, err
	}
	return ev, nil
}

// ReadFile decodes every event in path.
func ReadFile(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open event log: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			// Best-effort close.
			_ = cerr
		}
	}()
	return Decode(f)
}

// Recorder appends events to an NDJSON file.
type Recorder struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// NewRecorder opens path for appending, creating parent directories.
func NewRecorder(path string) (*Recorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create event log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open event log: %w", err)
	}
	return &Recorder{file: f, enc: json.NewEncoder(f)}, nil
}

// Record writes one event as a single line.
func (r *Recorder) Record(ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enc.Encode(ev)
}

// Close closes the underlying file.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.file.Close()
}

// Follower reads events appended to a file since the previous call.
type Follower struct {
	path    string
	offset  int64
	line    int
	pending []byte
}

// NewFollower starts following path from its beginning.
func NewFollower(path string) *Follower {
	return &Follower{path: path}
}

// Next returns the complete events written since the last call. A trailing
// line without a newline is held back until it is finished. reset is true
// when the file shrank and was re-read from the start. Malformed lines are
// skipped; the events around them are still returned along with an error
// naming every skipped line.
func (f *Follower) Next() (evs []Event, reset bool, err error) {
	file, err := os.Open(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close.
			_ = cerr
		}
	}()

	info, err := file.Stat()
	if err != nil {
		return nil, false, err
	}
	if info.Size() < f.offset {
		f.offset = 0
		f.line = 0
		f.pending = nil
		reset = true
	}
	if _, err := file.Seek(f.offset, io.SeekStart); err != nil {
		return nil, reset, err
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, reset, err
	}
	f.offset += int64(len(data))

	buf := append(f.pending, data...)
	idx := bytes.LastIndexByte(buf, '\n')
	if idx < 0 {
		f.pending = buf
		return nil, reset, nil
	}
	f.pending = append([]byte(nil), buf[idx+1:]...)
	evs, err = f.decode(buf[:idx])
	return evs, reset, err
}

func (f *Follower) decode(chunk []byte) ([]Event, error) {
	var (
		out  []Event
		errs []error
	)
	for _, raw := range bytes.Split(chunk, []byte{'\n'}) {
		f.line++
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 {
			continue
		}
		ev, err := decodeLine(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("line %d: %w", f.line, err))
			continue
		}
		out = append(out, ev)
	}
	return out, errors.Join(errs...)
}
