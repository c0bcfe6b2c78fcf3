package quotereel

import (
	"testing"
	"time"
)

func TestAttemptLimiterBlocksAfterMax(t *testing.T) {
	limiter := NewAttemptLimiter(2, 200*time.Millisecond)
	ip := "203.0.113.10"

	if !limiter.Allow(ip) {
		t.Fatalf("expected first attempt to be allowed")
	}
	if !limiter.Allow(ip) {
		t.Fatalf("expected second attempt to be allowed")
	}
	if limiter.Allow(ip) {
		t.Fatalf("expected third attempt to be blocked")
	}
}

func TestAttemptLimiterResetsAfterWindow(t *testing.T) {
	limiter := NewAttemptLimiter(1, 150*time.Millisecond)
	ip := "203.0.113.20"

	if !limiter.Allow(ip) {
		t.Fatalf("expected first attempt to be allowed")
	}
	if limiter.Allow(ip) {
		t.Fatalf("expected second attempt to be blocked")
	}

	time.Sleep(200 * time.Millisecond)
	if !limiter.Allow(ip) {
		t.Fatalf("expected attempt after window to be allowed")
	}
}

func TestAttemptLimiterCheckDoesNotRecord(t *testing.T) {
	limiter := NewAttemptLimiter(2, 200*time.Millisecond)
	ip := "203.0.113.40"

	for i := 0; i < 10; i++ {
		if !limiter.Check(ip) {
			t.Fatalf("check %d blocked without any recorded attempt", i+1)
		}
	}

	limiter.Record(ip)
	limiter.Record(ip)
	if limiter.Check(ip) {
		t.Fatalf("expected check to block after max recorded attempts")
	}
}

func TestAttemptLimiterIsPerKey(t *testing.T) {
	limiter := NewAttemptLimiter(1, 200*time.Millisecond)

	if !limiter.Allow("203.0.113.30") {
		t.Fatalf("expected first key to be allowed")
	}
	if !limiter.Allow("203.0.113.31") {
		t.Fatalf("expected second key to be allowed independently")
	}
	if limiter.Allow("203.0.113.30") {
		t.Fatalf("expected first key to be blocked after max")
	}
}
