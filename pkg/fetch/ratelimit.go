package fetch

import (
	"context"
	"log/slog"
	"net/url"
	"sync"
	"time"
)

// RateLimiter enforces a minimum delay between requests to the same host.
// It is safe for concurrent use.
type RateLimiter struct {
	last     map[string]time.Time
	logger   *slog.Logger
	mu       sync.Mutex
	minDelay time.Duration
}

// NewRateLimiter creates a limiter that spaces requests to one host by minDelay.
func NewRateLimiter(minDelay time.Duration, logger *slog.Logger) *RateLimiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &RateLimiter{minDelay: minDelay, last: make(map[string]time.Time), logger: logger}
}

// Wait blocks until a request to rawURL's host may be made, or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context, rawURL string) error {
	if r == nil || r.minDelay <= 0 {
		return nil
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return nil //nolint:nilerr // unparseable URLs are not rate limited
	}

	r.mu.Lock()
	now := time.Now()
	next := r.last[u.Host].Add(r.minDelay)
	if next.Before(now) {
		next = now
	}
	r.last[u.Host] = next
	r.mu.Unlock()

	wait := time.Until(next)
	if wait <= 0 {
		return nil
	}
	r.logger.DebugContext(ctx, "rate limit pause", "host", u.Host, "wait", wait.Round(time.Millisecond))

	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
