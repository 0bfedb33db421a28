package middleware

import (
	"context"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hobbyist/hobbyist-api/internal/apperror"
	"github.com/hobbyist/hobbyist-api/internal/metrics"
)

// RateLimiter is a sliding-window limiter keyed by user id when the request
// is authenticated and by client IP otherwise.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string][]time.Time
	limit   int
	window  time.Duration
	now     func() time.Time
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	// Reset is when the oldest request in the window expires.
	Reset time.Time
}

// NewRateLimiter creates a RateLimiter allowing limit requests per window.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		windows: make(map[string][]time.Time),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
}

// Allow records a request for id if it fits in the window.
func (rl *RateLimiter) Allow(id string) Decision {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	hits := prune(rl.windows[id], now.Add(-rl.window))
	d := Decision{Limit: rl.limit, Reset: now.Add(rl.window)}
	if len(hits) > 0 {
		d.Reset = hits[0].Add(rl.window)
	}

	if len(hits) >= rl.limit {
		rl.windows[id] = hits
		return d
	}

	hits = append(hits, now)
	rl.windows[id] = hits
	d.Allowed = true
	d.Remaining = rl.limit - len(hits)
	if len(hits) == 1 {
		d.Reset = now.Add(rl.window)
	}
	return d
}

// prune drops timestamps at or before cutoff. hits is sorted.
func prune(hits []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	return hits[i:]
}

// Middleware returns a Gin middleware that applies the limiter and sets the
// X-RateLimit-* headers on every response.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		d := rl.Allow(identifier(c))

		c.Header("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(d.Reset.Unix(), 10))

		if !d.Allowed {
			retry := int(math.Ceil(d.Reset.Sub(rl.now()).Seconds()))
			c.Header("Retry-After", strconv.Itoa(max(retry, 1)))
			metrics.RateLimitedTotal.Inc()
			Abort(c, apperror.RateLimit(rl.limit, rl.window))
			return
		}
		c.Next()
	}
}

// Run evicts idle identifiers every interval until ctx is done.
func (rl *RateLimiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.cleanup()
		}
	}
}

func (rl *RateLimiter) cleanup() {
	cutoff := rl.now().Add(-rl.window)

	rl.mu.Lock()
	defer rl.mu.Unlock()
	for id, hits := range rl.windows {
		hits = prune(hits, cutoff)
		if len(hits) == 0 {
			delete(rl.windows, id)
			continue
		}
		rl.windows[id] = hits
	}
}

func identifier(c *gin.Context) string {
	if claims := GetClaims(c); claims != nil {
		return "user:" + claims.UserID.String()
	}
	return "ip:" + c.ClientIP()
}
