package breaker

import "time"

// Backoff computes recovery-probe delays: each confirmed connectivity failure
// doubles the delay up to a ceiling, and a success resets it to the base.
type Backoff struct {
	// Base is the delay after the first failure.
	Base time.Duration
	// Max caps the doubled delay.
	Max time.Duration
}

// Next returns the delay that follows cur: doubled, capped at Max.
func (b Backoff) Next(cur time.Duration) time.Duration {
	if cur <= 0 {
		cur = b.Base
	}
	next := cur * 2
	if next > b.Max {
		return b.Max
	}
	return next
}

// Reset returns the base delay.
func (b Backoff) Reset() time.Duration {
	return b.Base
}
