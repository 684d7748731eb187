package infra

import (
	"time"
)

// Backoff is an exponential retry schedule: Base * 2^retry, capped at Max.
type Backoff struct {
	Base time.Duration
	Max  time.Duration
}

// DefaultBackoff is used for websocket reconnects and REST retries.
var DefaultBackoff = Backoff{Base: 1 * time.Second, Max: 60 * time.Second}

// Delay returns the wait before retry number retryCount (0-based).
// A negative retryCount returns Base.
func (b Backoff) Delay(retryCount int) time.Duration {
	if retryCount < 0 || b.Base <= 0 {
		return b.Base
	}
	// 2^30 * Base is far beyond any sane Max.
	if retryCount > 30 {
		return b.Max
	}

	d := b.Base * time.Duration(1<<retryCount)
	if d > b.Max || d <= 0 {
		return b.Max
	}
	return d
}
