package dispatch

import (
	"math/rand/v2"
	"time"
)

// backoffDelay computes the sleep before retry number attempt (0-based):
// exponential growth from base, capped at max, then up to jitterFrac of
// random jitter added so synchronized clients fan out.
func backoffDelay(base, max time.Duration, jitterFrac float64, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= max {
			d = max
			break
		}
	}
	if d > max {
		d = max
	}
	if jitterFrac > 0 {
		d += time.Duration(rand.Float64() * jitterFrac * float64(d))
	}
	return d
}
