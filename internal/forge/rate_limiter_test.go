package forge

import (
	"context"
	"testing"
	"time"
)

func TestWaitWithRemainingBudget(t *testing.T) {
	rl := NewRateLimiter()

	start := time.Now()
	if err := rl.Wait(context.Background()); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Wait blocked %v with budget remaining", elapsed)
	}
}

func TestWaitHonorsContextDuringReset(t *testing.T) {
	rl := NewRateLimiter()
	rl.UpdateLimit(1, time.Now().Add(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := rl.Wait(ctx); err == nil {
		t.Fatal("expected context error while waiting for reset")
	}
}
