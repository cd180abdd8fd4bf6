package relay

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// Limits configures the per-endpoint fixed-window budgets. Windows are
// expressed in minutes.
type Limits struct {
	AuthorizeMax       int
	AuthorizeWindowMin int
	TokenMax           int
	TokenWindowMin     int
}

// DefaultLimits returns the reference configuration: a small burst budget
// for authorize and a looser one for the token proxies.
func DefaultLimits() Limits {
	return Limits{
		AuthorizeMax:       5,
		AuthorizeWindowMin: 60,
		TokenMax:           30,
		TokenWindowMin:     60,
	}
}

// RateLimiter enforces fixed-window request budgets keyed by
// (identifier, action). Windows are persisted in the document store so the
// budget holds across any number of concurrent server instances; there is
// deliberately no in-process cache in front of it.
type RateLimiter struct {
	store RateLimitStore
	now   func() time.Time
}

func NewRateLimiter(store RateLimitStore) *RateLimiter {
	return &RateLimiter{store: store, now: time.Now}
}

// Allow reports whether one more request is admitted for the given
// identifier and action. windowMinutes is the fixed-window length in
// minutes.
//
// The read-then-write here is not atomic against the store: two concurrent
// requests under the same key can both observe count < max and both
// increment, overshooting the limit by a small margin. Accepted soft limit;
// the limiter dampens abuse, it is not a hard quota.
func (l *RateLimiter) Allow(ctx context.Context, identifier, action string, maxRequests, windowMinutes int) (bool, error) {
	key := fmt.Sprintf("%s:%s", identifier, action)
	now := l.now().UTC()

	rec, err := l.store.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("rate limit lookup for %s: %w", key, err)
	}

	window := time.Duration(windowMinutes) * time.Minute
	if rec == nil || now.Sub(rec.WindowStart) >= window {
		fresh := &RateLimitRecord{Key: key, Count: 1, WindowStart: now}
		if err := l.store.Put(ctx, fresh); err != nil {
			return false, fmt.Errorf("rate limit reset for %s: %w", key, err)
		}
		return true, nil
	}

	if rec.Count >= maxRequests {
		log.Debug().Str("key", key).Int("count", rec.Count).Msg("Rate limit exceeded")
		return false, nil
	}

	rec.Count++
	if err := l.store.Put(ctx, rec); err != nil {
		return false, fmt.Errorf("rate limit increment for %s: %w", key, err)
	}
	return true, nil
}
