package infra

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// RateLimiter spaces calls to a metered API: at most requests calls per window,
// all of which may be spent in one burst. It tracks the theoretical arrival time
// of the next call (GCRA), so a burst is followed by evenly spaced calls.
type RateLimiter struct {
	mu       sync.Mutex
	interval time.Duration // spacing at the sustained rate
	burst    time.Duration // how far ahead of schedule a call may run
	tat      time.Time
	now      func() time.Time
}

// NewRateLimiter allows requests calls per window, e.g. 5 per minute on the
// free aggregates plan.
func NewRateLimiter(requests int, per time.Duration) *RateLimiter {
	if requests < 1 {
		requests = 1
	}
	if per <= 0 {
		per = time.Second
	}
	interval := per / time.Duration(requests)
	return &RateLimiter{
		interval: interval,
		burst:    per - interval,
		now:      time.Now,
	}
}

// Wait books the next slot and sleeps until it opens. A cancelled wait
// returns its slot.
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	wait := r.reserve()
	r.mu.Unlock()

	if wait <= 0 {
		return nil
	}
	slog.Debug("RATE_LIMIT_WAIT", slog.Duration("wait", wait))

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		r.mu.Lock()
		r.tat = r.tat.Add(-r.interval)
		r.mu.Unlock()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// reserve books a slot and returns how long until it opens. Caller holds mu.
func (r *RateLimiter) reserve() time.Duration {
	now := r.now()
	wait := r.delay(now)
	if r.tat.Before(now) {
		r.tat = now
	}
	r.tat = r.tat.Add(r.interval)
	return wait
}

func (r *RateLimiter) delay(now time.Time) time.Duration {
	if d := r.tat.Sub(now) - r.burst; d > 0 {
		return d
	}
	return 0
}
