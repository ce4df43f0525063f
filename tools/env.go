package tools

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/petasbytes/expense-agent/internal/fsops"
)

const (
	rule            = "=================================================="
	timestampLayout = "2006-01-02 15:04:05"
)

// Env carries what the side-effect functions need: where to write, the clock
// and the identifier source. Now and NewID are replaceable for tests.
type Env struct {
	Root  *fsops.Root
	Now   func() time.Time
	NewID func(n int) string
}

// NewEnv returns an Env writing into root with the wall clock and ShortID.
func NewEnv(root *fsops.Root) *Env {
	return &Env{Root: root, Now: time.Now, NewID: ShortID}
}

// ShortID returns the first n hex digits of a random UUID, upper-cased.
// n is at most 32.
func ShortID(n int) string {
	s := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(s[:n])
}

// Currency renders v as dollars with thousands separators and two decimals.
func Currency(v float64) string {
	return "$" + humanize.FormatFloat("#,###.##", v)
}

func (e *Env) timestamp() string {
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	return now().Format(timestampLayout)
}

func (e *Env) id(n int) string {
	if e.NewID != nil {
		return e.NewID(n)
	}
	return ShortID(n)
}

// confirmation wraps msg in the {"message": ...} body the agent parses.
func confirmation(msg string) (string, error) {
	b, err := json.Marshal(map[string]string{"message": msg})
	if err != nil {
		return "", err
	}
	return string(b), nil
}
