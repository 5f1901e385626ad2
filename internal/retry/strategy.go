// Package retry provides a bounded retry policy for HTTP requests: a backoff
// strategy, a response/error classifier and a RoundTripper combining the two.
package retry

import (
	"math"
	"math/rand"
	"time"

	"golang.org/x/exp/constraints"
)

// Strategy decides how long to sleep before the next attempt. The second
// return value reports that the attempt budget is exhausted.
type Strategy interface {
	Sleep(attempt uint) (time.Duration, bool)
}

type never struct{}

// NewNever returns a strategy that forbids retries.
func NewNever() *never {
	return &never{}
}

func (nr *never) Sleep(attempt uint) (time.Duration, bool) {
	return 0, true
}

// Entropy produces a jitter value in [0, n). It exists so tests can pin the
// randomness.
type Entropy func(int64) int64

type exponentialBackOff struct {
	base        time.Duration
	max         time.Duration
	maxAttempts uint
	entropy     Entropy
}

// NewExponentialBackOff doubles the delay per attempt starting at base,
// capped at max, with full jitter, for at most maxAttempts retries. A nil
// entropy uses math/rand.
func NewExponentialBackOff(base time.Duration, max time.Duration, maxAttempts uint, entropy Entropy) *exponentialBackOff {
	return &exponentialBackOff{
		base:        base,
		max:         max,
		maxAttempts: maxAttempts,
		entropy:     entropy,
	}
}

func (eb *exponentialBackOff) Sleep(attempt uint) (time.Duration, bool) {
	if attempt >= eb.maxAttempts {
		return 0, true
	}

	ceiling := int64(eb.max)
	// Doubling overflows int64 long after the cap applies, but guard anyway.
	if delay, ok := checkedShift(int64(eb.base), attempt); ok {
		ceiling = minOf(delay, ceiling)
	}

	return time.Duration(eb.jitter(ceiling)), false
}

func (eb *exponentialBackOff) jitter(n int64) int64 {
	if n <= 0 {
		return 0
	}
	if eb.entropy != nil {
		return eb.entropy(n)
	}
	return rand.Int63n(n)
}

func checkedShift(v int64, by uint) (int64, bool) {
	if v <= 0 {
		return 0, false
	}
	if by >= 63 || v > math.MaxInt64>>by {
		return 0, false
	}
	return v << by, true
}

func minOf[T constraints.Ordered](l T, r T) T {
	if l > r {
		return r
	}
	return l
}
