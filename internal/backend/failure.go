package backend

import (
	"math/rand"
	"sync"
	"time"
)

// FailurePolicy decides whether a simulated call fails.
type FailurePolicy interface {
	ShouldFail() bool
}

// FailureFunc adapts a function to FailurePolicy.
type FailureFunc func() bool

// ShouldFail calls f.
func (f FailureFunc) ShouldFail() bool { return f() }

// Never is a policy that never injects a failure.
var Never FailureFunc = func() bool { return false }

// Always is a policy that fails every call.
var Always FailureFunc = func() bool { return true }

// RandomFailure fails calls independently with a fixed probability.
type RandomFailure struct {
	mu   sync.Mutex
	rate float64
	rng  *rand.Rand
}

// NewRandomFailure returns a policy failing with probability rate. A zero
// seed picks a time-based seed; any other seed makes the sequence repeatable.
func NewRandomFailure(rate float64, seed int64) *RandomFailure {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandomFailure{
		rate: rate,
		rng:  rand.New(rand.NewSource(seed)),
	}
}

// ShouldFail draws a uniform number in [0, 1) and compares it to the rate.
func (r *RandomFailure) ShouldFail() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Float64() < r.rate
}

// Rate returns the configured failure probability.
func (r *RandomFailure) Rate() float64 {
	return r.rate
}
