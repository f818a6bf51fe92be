package common

import (
	"math"
	"math/rand"
	"time"
)

// jitterFraction spreads retries of concurrent callers by +/-25%.
const jitterFraction = 0.25

// ExponentialBackoff returns the wait before the given attempt (1-based).
// The first attempt never waits; later ones grow by multiplier up to maxBackoff.
func ExponentialBackoff(attempt int, initial, maxBackoff time.Duration, multiplier float64) time.Duration {
	if attempt <= 1 {
		return 0
	}

	backoff := float64(initial) * math.Pow(multiplier, float64(attempt-2))
	if backoff > float64(maxBackoff) {
		backoff = float64(maxBackoff)
	}

	jitterRange := backoff * jitterFraction
	backoff += (rand.Float64() * 2 * jitterRange) - jitterRange //nolint:gosec

	if backoff < 0 {
		backoff = 0
	}

	return time.Duration(backoff)
}
