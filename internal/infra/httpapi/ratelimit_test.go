package httpapi

import (
	"testing"
	"time"
)

func TestRateLimiter(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	if !rl.Allow("10.0.0.1") || !rl.Allow("10.0.0.1") {
		t.Fatal("first two requests must pass")
	}
	if rl.Allow("10.0.0.1") {
		t.Error("third request must be limited")
	}
	if !rl.Allow("10.0.0.2") {
		t.Error("other clients have their own bucket")
	}

	now = now.Add(2 * time.Minute)
	if !rl.Allow("10.0.0.1") {
		t.Error("bucket must refill after the window")
	}

	now = now.Add(5 * time.Minute)
	rl.Prune()
	if len(rl.buckets) != 0 {
		t.Errorf("expected idle buckets pruned, got %d", len(rl.buckets))
	}
}
