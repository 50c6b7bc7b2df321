package pipeline

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter enforces a minimum spacing between calls to each external
// service. Callers block until their slot rather than being rejected; the
// limiters are internally synchronized, so no mutex is held across the wait.
type RateLimiter struct {
	genai   *rate.Limiter
	bluesky *rate.Limiter
}

// NewRateLimiter creates a limiter with one token per interval and no burst
// beyond a single call, which is exactly min-interval spacing.
func NewRateLimiter(genaiInterval, blueskyInterval time.Duration) *RateLimiter {
	return &RateLimiter{
		genai:   rate.NewLimiter(rate.Every(genaiInterval), 1),
		bluesky: rate.NewLimiter(rate.Every(blueskyInterval), 1),
	}
}

// WaitGenAI blocks until the next generation call is allowed.
func (r *RateLimiter) WaitGenAI(ctx context.Context) error {
	return r.genai.Wait(ctx)
}

// WaitBluesky blocks until the next social API call is allowed.
func (r *RateLimiter) WaitBluesky(ctx context.Context) error {
	return r.bluesky.Wait(ctx)
}
