package telemetry

import (
	"context"
	"strings"
	"unicode/utf8"
)

// Features are size counts derived from user input.
type Features struct {
	Bytes int `json:"bytes"`
	Runes int `json:"runes"`
	Words int `json:"words"`
	Lines int `json:"lines"`
}

// CountFeatures computes byte, rune, word and line counts for s.
// Lines is 0 for the empty string.
func CountFeatures(s string) Features {
	f := Features{
		Bytes: len(s),
		Runes: utf8.RuneCountInString(s),
		Words: len(strings.Fields(s)),
	}
	if s != "" {
		f.Lines = 1 + strings.Count(s, "\n")
	}
	return f
}

// LocalFeatures emits the size profile of one user input under the turn ID in ctx.
func (r *Recorder) LocalFeatures(ctx context.Context, user string) {
	turnID, _ := TurnIDFromContext(ctx)
	f := CountFeatures(user)
	r.Emit("local_features", map[string]any{
		"turn_id": turnID,
		"user": map[string]any{
			"bytes": f.Bytes,
			"runes": f.Runes,
			"words": f.Words,
			"lines": f.Lines,
		},
	})
}
