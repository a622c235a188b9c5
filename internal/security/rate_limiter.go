package security

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/raaihank/loggov/internal/config"
)

// idleTimeout is how long an unused client bucket is kept.
const idleTimeout = time.Hour

// RateLimiter implements per-client token bucket rate limiting
type RateLimiter struct {
	config  config.RateLimitConfig
	buckets map[string]*clientBucket
	mu      sync.Mutex
	now     func() time.Time
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(cfg config.RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		config:  cfg,
		buckets: make(map[string]*clientBucket),
		now:     time.Now,
	}
}

// Allow checks if a request from the given client IP is allowed
func (r *RateLimiter) Allow(clientIP string) bool {
	if !r.config.Enabled {
		return true
	}

	now := r.now()
	return r.getBucket(clientIP, now).limiter.AllowN(now, 1)
}

// Tokens returns the tokens currently available to a client, or the full
// burst for an unknown client.
func (r *RateLimiter) Tokens(clientIP string) float64 {
	r.mu.Lock()
	bucket, exists := r.buckets[clientIP]
	r.mu.Unlock()

	if !exists {
		return float64(r.config.Burst)
	}
	return bucket.limiter.TokensAt(r.now())
}

// getBucket gets or creates the bucket for a client IP
func (r *RateLimiter) getBucket(clientIP string, now time.Time) *clientBucket {
	r.mu.Lock()
	defer r.mu.Unlock()

	bucket, exists := r.buckets[clientIP]
	if !exists {
		perSecond := rate.Limit(float64(r.config.RequestsPerMinute) / 60.0)
		bucket = &clientBucket{limiter: rate.NewLimiter(perSecond, r.config.Burst)}
		r.buckets[clientIP] = bucket
	}
	bucket.lastSeen = now
	return bucket
}

// CleanupOldBuckets removes buckets unused for an hour
func (r *RateLimiter) CleanupOldBuckets() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-idleTimeout)
	removed := 0
	for ip, bucket := range r.buckets {
		if bucket.lastSeen.Before(cutoff) {
			delete(r.buckets, ip)
			removed++
		}
	}
	return removed
}

// StartCleanupRoutine cleans up old buckets until ctx is done
func (r *RateLimiter) StartCleanupRoutine(ctx context.Context) {
	interval := r.config.CleanupInterval
	if interval <= 0 {
		interval = 30 * time.Minute
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.CleanupOldBuckets()
			}
		}
	}()
}
