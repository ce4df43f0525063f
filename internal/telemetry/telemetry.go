// Package telemetry records session events as JSON lines.
//
// Events go to <dir>/events.jsonl, one object per line with "time" and
// "event" keys plus the caller's fields. Raw tool payloads and user text are
// never recorded; only sizes and derived counts.
package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// DefaultDir is where events.jsonl lands when Options.Dir is empty.
const DefaultDir = ".agent"

// Options controls whether and where events are written.
type Options struct {
	Enabled bool
	Dir     string
}

// Recorder appends events to the JSONL file. A nil *Recorder and the value
// returned by Nop drop everything.
type Recorder struct {
	logger zerolog.Logger
	file   *os.File
}

// New opens (creating if needed) the events file when opts.Enabled is set.
func New(opts Options) (*Recorder, error) {
	if !opts.Enabled {
		return Nop(), nil
	}
	dir := opts.Dir
	if dir == "" {
		dir = DefaultDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("telemetry: mkdir %s: %w", dir, err)
	}
	path := filepath.Join(dir, "events.jsonl")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("telemetry: open %s: %w", path, err)
	}
	return &Recorder{
		logger: zerolog.New(f).With().Timestamp().Logger(),
		file:   f,
	}, nil
}

// Nop returns a Recorder that writes nothing.
func Nop() *Recorder {
	return &Recorder{logger: zerolog.Nop()}
}

// Emit writes a single event line. fields is not modified.
func (r *Recorder) Emit(name string, fields map[string]any) {
	if r == nil {
		return
	}
	r.logger.Log().Str("event", name).Fields(fields).Send()
}

// Close releases the events file.
func (r *Recorder) Close() error {
	if r == nil || r.file == nil {
		return nil
	}
	return r.file.Close()
}
