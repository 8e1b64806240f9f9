package http

import (
	"testing"
	"time"
)

func newTestLimiter(limit int, clock *time.Time) *rateLimiter {
	rl := &rateLimiter{
		limit:       limit,
		window:      time.Minute,
		now:         func() time.Time { return *clock },
		clients:     make(map[string]*clientInfo),
		stopCleanup: make(chan struct{}),
	}
	return rl
}

func TestRateLimiter_Window(t *testing.T) {
	clock := time.Date(2025, 4, 2, 12, 0, 0, 0, time.UTC)
	rl := newTestLimiter(3, &clock)
	m := &securityMetrics{}

	for i := 0; i < 3; i++ {
		if !rl.allow("1.2.3.4", m) {
			t.Fatalf("request %d rejected within limit", i+1)
		}
	}
	if rl.allow("1.2.3.4", m) {
		t.Fatal("fourth request allowed")
	}
	if !rl.allow("5.6.7.8", m) {
		t.Fatal("other client should not be limited")
	}
	if got := m.snapshot().RateLimitHits; got != 1 {
		t.Errorf("rate limit hits = %d, want 1", got)
	}

	clock = clock.Add(30 * time.Second)
	if got := rl.retryAfter("1.2.3.4"); got != 30 {
		t.Errorf("retryAfter = %d, want 30", got)
	}
	if rl.allow("1.2.3.4", m) {
		t.Fatal("request allowed before window reset")
	}

	clock = clock.Add(31 * time.Second)
	if !rl.allow("1.2.3.4", m) {
		t.Fatal("request rejected after window reset")
	}
}

func TestRateLimiter_Disabled(t *testing.T) {
	clock := time.Now()
	rl := newTestLimiter(0, &clock)
	for i := 0; i < 1000; i++ {
		if !rl.allow("1.2.3.4", nil) {
			t.Fatal("disabled limiter rejected a request")
		}
	}
}

func TestRateLimiter_Cleanup(t *testing.T) {
	clock := time.Date(2025, 4, 2, 12, 0, 0, 0, time.UTC)
	rl := newTestLimiter(5, &clock)
	rl.allow("old", nil)
	clock = clock.Add(11 * time.Minute)
	rl.allow("new", nil)

	if removed := rl.cleanupStaleEntries(); removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if _, ok := rl.clients["new"]; !ok {
		t.Error("recent client was removed")
	}
}

func TestRateLimiter_StopIdempotent(t *testing.T) {
	rl := newRateLimiter(10)
	rl.stop()
	rl.stop()
}
