// internal/stats/registry.go
package stats

import (
	"fmt"
	"math"
	"sync"
)

// Kind is a counted classification outcome.
type Kind uint8

const (
	KindPrimaryOnly Kind = iota + 1
	KindBoth
)

func (k Kind) String() string {
	switch k {
	case KindPrimaryOnly:
		return "primary_only"
	case KindBoth:
		return "both"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Counters is a consistent copy of the registry.
// Total == PrimaryOnly + Both always holds.
type Counters struct {
	PrimaryOnly uint64 `json:"primary_only"`
	Both        uint64 `json:"both"`
	Total       uint64 `json:"total"`
}

// Percent returns count(k) / max(Total, 1) * 100, rounded to 1 decimal.
func (c Counters) Percent(k Kind) float64 {
	var n uint64
	switch k {
	case KindPrimaryOnly:
		n = c.PrimaryOnly
	case KindBoth:
		n = c.Both
	default:
		return 0
	}
	den := c.Total
	if den == 0 {
		den = 1
	}
	return math.Round(float64(n)/float64(den)*1000) / 10
}

// Registry holds the classification counters.
// All operations serialize on one mutex.
type Registry struct {
	mu sync.Mutex
	c  Counters
}

// NewRegistry returns a zeroed registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Increment counts one rising edge of k. Total moves in the same critical
// section. Unknown kinds are ignored and reported false.
func (r *Registry) Increment(k Kind) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch k {
	case KindPrimaryOnly:
		r.c.PrimaryOnly++
	case KindBoth:
		r.c.Both++
	default:
		return false
	}
	r.c.Total++
	return true
}

// Reset zeroes all counters at once.
func (r *Registry) Reset() {
	r.mu.Lock()
	r.c = Counters{}
	r.mu.Unlock()
}

// Snapshot returns a copy of the counters.
func (r *Registry) Snapshot() Counters {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.c
}
