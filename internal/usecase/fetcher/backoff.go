package fetcher

import (
	"context"
	"math"
	"math/rand"
	"time"
)

const (
	backoffBase    = 500 * time.Millisecond
	backoffFactor  = 2.0
	backoffJitter  = 0.2 // +/- 20%
	maxTierAttempts = 3
)

// backoffDelay returns the delay before retry attempt n (1-indexed: the
// delay before the 2nd attempt is backoffDelay(1)). No pack dependency
// offers a jittered exponential backoff helper, so this is hand-rolled
// stdlib per the retry policy in spec form (base 500ms, factor 2, +/-20%
// jitter).
func backoffDelay(attemptsSoFar int) time.Duration {
	d := float64(backoffBase) * math.Pow(backoffFactor, float64(attemptsSoFar-1))
	jitter := 1 + (rand.Float64()*2-1)*backoffJitter
	return time.Duration(d * jitter)
}

// ctxSleep waits for d or ctx cancellation, whichever comes first.
func ctxSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
