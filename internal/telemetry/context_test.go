package telemetry_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/petasbytes/expense-agent/internal/telemetry"
)

func TestTurnID_RoundTrip(t *testing.T) {
	ctx := telemetry.WithTurnID(context.Background(), "turn-123")
	got, ok := telemetry.TurnIDFromContext(ctx)
	if !ok || got != "turn-123" {
		t.Fatalf("want turn-123,true; got %q,%v", got, ok)
	}
}

func TestTurnID_EmptyIDRejectedOnRead(t *testing.T) {
	ctx := telemetry.WithTurnID(context.Background(), "")
	got, ok := telemetry.TurnIDFromContext(ctx)
	if ok || got != "" {
		t.Fatalf("want empty,false; got %q,%v", got, ok)
	}
}

func TestTurnID_ParentCancellationPropagates(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	child := telemetry.WithTurnID(parent, "t1")
	cancel()
	select {
	case <-child.Done():
	case <-time.After(time.Second):
		t.Fatal("child context not cancelled with parent")
	}
}

func TestNewTurnID_UniqueAndPrefixed(t *testing.T) {
	a, b := telemetry.NewTurnID(), telemetry.NewTurnID()
	if !strings.HasPrefix(a, "turn-") || len(a) <= len("turn-") {
		t.Fatalf("unexpected id %q", a)
	}
	if a == b {
		t.Fatalf("expected distinct ids, got %q twice", a)
	}
}
