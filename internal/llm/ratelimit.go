package llm

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// minCallInterval is the global minimum spacing between LLM calls across all
// tiers sharing a limiter (spec.md §4.9: default 200ms).
const minCallInterval = 200 * time.Millisecond

// backoffDuration is how long a tier refuses calls after a 429/5xx response.
const backoffDuration = 5 * time.Minute

// ErrBackoffActive is returned by Chat when the client is inside its
// post-failure backoff window.
var ErrBackoffActive = errors.New("llm: backoff active")

// callLimiter enforces the minimum inter-call interval and tracks an
// activatable backoff window after a server error.
type callLimiter struct {
	limiter *rate.Limiter

	mu          sync.Mutex
	backoffUntil time.Time
}

func newCallLimiter() *callLimiter {
	// Burst of 1: each Wait call consumes the single token and the limiter
	// refills it at 1/minCallInterval, giving exactly the global minimum
	// spacing the spec describes.
	return &callLimiter{limiter: rate.NewLimiter(rate.Every(minCallInterval), 1)}
}

// wait blocks until the next call is permitted, or returns ErrBackoffActive
// immediately if a backoff window is in effect.
func (c *callLimiter) wait(ctx context.Context) error {
	c.mu.Lock()
	active := time.Now().Before(c.backoffUntil)
	c.mu.Unlock()
	if active {
		return ErrBackoffActive
	}
	return c.limiter.Wait(ctx)
}

// activateBackoff starts (or extends) the backoff window.
func (c *callLimiter) activateBackoff() {
	c.mu.Lock()
	c.backoffUntil = time.Now().Add(backoffDuration)
	c.mu.Unlock()
}
