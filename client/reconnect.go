package client

import (
	"errors"
	"time"

	"golang.org/x/exp/rand"
)

// ErrRetriesExhausted reports that bounded reconnection gave up.
var ErrRetriesExhausted = errors.New("reconnection attempts exhausted")

// Backoff computes reconnection delays: base × 2^attempt plus up to 10%
// jitter. Bounded mode gives up after maxAttempts. Aggressive mode never
// gives up: once the bounded attempts are spent it retries at the capped
// delay and restarts the attempt counter so the delay cannot grow without
// bound.
type Backoff struct {
	base        time.Duration
	maxAttempts int
	aggressive  bool
	attempt     int
}

func NewBackoff(base time.Duration, maxAttempts int, aggressive bool) *Backoff {
	return &Backoff{
		base:        base,
		maxAttempts: maxAttempts,
		aggressive:  aggressive,
	}
}

// Next returns the delay to sleep before the next attempt. Every attempt is
// preceded by a delay; there is no immediate retry.
func (b *Backoff) Next() (time.Duration, error) {
	if b.attempt >= b.maxAttempts {
		if !b.aggressive {
			return 0, ErrRetriesExhausted
		}
		b.attempt = 0
		return computeDelay(b.base, b.maxAttempts-1), nil
	}
	delay := computeDelay(b.base, b.attempt)
	b.attempt++
	return delay, nil
}

// Reset clears the attempt counter after a successful reconnection.
func (b *Backoff) Reset() {
	b.attempt = 0
}

// Attempt returns the number of attempts consumed in the current cycle.
func (b *Backoff) Attempt() int {
	return b.attempt
}

func computeDelay(base time.Duration, attempt int) time.Duration {
	delay := base << uint(attempt)
	jitter := time.Duration(rand.Int63n(int64(base)/10 + 1))
	return delay + jitter
}
