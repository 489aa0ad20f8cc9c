package resilience

import (
	"context"
	"testing"
	"time"
)

func TestBreakerOpensOnFailureRatio(t *testing.T) {
	ctx := context.Background()
	b := NewBreaker(4, 0.5, time.Hour)

	for i := 0; i < 4; i++ {
		if !b.Allow(ctx) {
			t.Fatalf("closed breaker refused request %d", i)
		}
		b.Report(ctx, false)
	}

	if b.Allow(ctx) {
		t.Fatal("breaker should be open after sustained failures")
	}
}

func TestBreakerStaysClosedOnSuccess(t *testing.T) {
	ctx := context.Background()
	b := NewBreaker(4, 0.5, time.Hour)

	for i := 0; i < 20; i++ {
		if !b.Allow(ctx) {
			t.Fatal("breaker refused a healthy stream")
		}
		b.Report(ctx, true)
	}
}

func TestBreakerHalfOpenRecovery(t *testing.T) {
	ctx := context.Background()
	b := NewBreaker(2, 0.5, 10*time.Millisecond)

	b.Allow(ctx)
	b.Report(ctx, false)
	b.Allow(ctx)
	b.Report(ctx, false)
	if b.Allow(ctx) {
		t.Fatal("breaker should be open")
	}

	time.Sleep(20 * time.Millisecond)
	if !b.Allow(ctx) {
		t.Fatal("breaker should permit a probe after cool-off")
	}
	b.Report(ctx, true)
	if !b.Allow(ctx) {
		t.Fatal("breaker should close after a successful probe")
	}
}

func TestBackoffGrowsExponentially(t *testing.T) {
	base := 100 * time.Millisecond
	if got := Backoff(base, 1, 0); got != base {
		t.Fatalf("attempt 1 = %v", got)
	}
	if got := Backoff(base, 2, 0); got != 2*base {
		t.Fatalf("attempt 2 = %v", got)
	}
	if got := Backoff(base, 4, 0); got != 8*base {
		t.Fatalf("attempt 4 = %v", got)
	}
}
