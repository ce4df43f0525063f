package telemetry

import (
	"context"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

type turnIDKey struct{}

// NewTurnID returns a fresh "turn-" prefixed identifier.
func NewTurnID() string {
	id, err := gonanoid.New()
	if err != nil {
		// crypto/rand failure; fall back to a fixed marker rather than no ID.
		return "turn-unknown"
	}
	return "turn-" + id
}

// WithTurnID returns a child context carrying id.
func WithTurnID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, turnIDKey{}, id)
}

// TurnIDFromContext returns the turn ID in ctx. Missing or empty IDs report false.
func TurnIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	s, ok := ctx.Value(turnIDKey{}).(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}
