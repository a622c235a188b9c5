package security

import (
	"testing"
	"time"

	"github.com/raaihank/loggov/internal/config"
)

func newLimiter(rpm, burst int) (*RateLimiter, *time.Time) {
	rl := NewRateLimiter(config.RateLimitConfig{
		Enabled:           true,
		RequestsPerMinute: rpm,
		Burst:             burst,
	})
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	return rl, &now
}

func TestRateLimiter_Burst(t *testing.T) {
	rl, _ := newLimiter(60, 3)

	for i := 0; i < 3; i++ {
		if !rl.Allow("1.2.3.4") {
			t.Fatalf("Request %d should be allowed", i)
		}
	}
	if rl.Allow("1.2.3.4") {
		t.Error("Request beyond burst should be rejected")
	}
	if !rl.Allow("5.6.7.8") {
		t.Error("Other clients have their own bucket")
	}
}

func TestRateLimiter_Refill(t *testing.T) {
	rl, now := newLimiter(60, 1)

	if !rl.Allow("c") {
		t.Fatal("First request should be allowed")
	}
	if rl.Allow("c") {
		t.Fatal("Second request should be rejected")
	}

	*now = now.Add(time.Second)
	if !rl.Allow("c") {
		t.Error("One token should refill after a second at 60/min")
	}
}

func TestRateLimiter_Disabled(t *testing.T) {
	rl := NewRateLimiter(config.RateLimitConfig{Enabled: false, RequestsPerMinute: 1, Burst: 1})
	for i := 0; i < 10; i++ {
		if !rl.Allow("c") {
			t.Fatal("Disabled limiter must allow everything")
		}
	}
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl, now := newLimiter(60, 5)
	rl.Allow("old")

	*now = now.Add(2 * time.Hour)
	rl.Allow("new")

	if removed := rl.CleanupOldBuckets(); removed != 1 {
		t.Errorf("Expected 1 bucket removed, got %d", removed)
	}
	if got := rl.Tokens("old"); got != 5 {
		t.Errorf("Removed client should report a full burst, got %v", got)
	}
	if got := rl.Tokens("new"); got != 4 {
		t.Errorf("Expected 4 tokens left, got %v", got)
	}
}
