package memory

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// Role tags who produced a turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// Turn is one role-tagged message. Immutable once appended.
type Turn struct {
	Role Role      `json:"role"`
	Text string    `json:"text,omitempty"`
	At   time.Time `json:"at"`
}

// Log is an append-only sequence of turns.
type Log struct {
	turns []Turn
	now   func() time.Time
}

// NewLog returns an empty log stamping turns with time.Now.
func NewLog() *Log {
	return &Log{now: time.Now}
}

// Append records a turn and returns it.
func (l *Log) Append(role Role, text string) Turn {
	now := time.Now
	if l.now != nil {
		now = l.now
	}
	t := Turn{Role: role, Text: text, At: now()}
	l.turns = append(l.turns, t)
	return t
}

// Turns returns a copy of the turns in insertion order.
func (l *Log) Turns() []Turn {
	out := make([]Turn, len(l.turns))
	copy(out, l.turns)
	return out
}

// WriteTranscript renders turns as "  [ROLE]: text" blocks separated by a
// blank line. Turns without text are skipped.
func WriteTranscript(w io.Writer, turns []Turn) error {
	for _, t := range turns {
		if t.Text == "" {
			continue
		}
		if _, err := fmt.Fprintf(w, "  [%s]: %s\n\n", strings.ToUpper(string(t.Role)), t.Text); err != nil {
			return err
		}
	}
	return nil
}
