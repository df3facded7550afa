package dispatcher

import (
	"math"
	"math/rand"
	"time"
)

// Backoff computes retry delays: exponential growth capped at Max,
// with full jitter so simultaneous retries spread out instead of
// stampeding.
type Backoff struct {
	Base time.Duration
	Max  time.Duration
}

// Delay returns a random duration in [0, min(Base*2^(attempt-1), Max)].
// Attempt is 1-indexed: attempt 1 is the first retry after the
// initial failure.
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	ceiling := float64(b.Base) * math.Pow(2, float64(attempt-1))
	if b.Max > 0 && ceiling > float64(b.Max) {
		ceiling = float64(b.Max)
	}
	return time.Duration(rand.Float64() * ceiling)
}
