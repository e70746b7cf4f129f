// Package ranking computes, for each analogy, the rank of its fourth term among
// the whole vocabulary under three scoring functions.
package ranking

import (
	"errors"

	"github.com/hyperjump/analogyeval/internal/analogy"
)

// ErrUnknownCategory is returned when a requested category is not in the analogy set.
var ErrUnknownCategory = errors.New("unknown analogy category")

// Method identifies one of the scoring functions.
type Method int

const (
	// MethodBaseline scores a candidate by its dot product with w3.
	MethodBaseline Method = iota
	// MethodAdditive scores a candidate by its dot product with w3 + w2 - w1.
	MethodAdditive
	// MethodMultiplicative scores a candidate with 3CosMul over +1-shifted vectors.
	MethodMultiplicative
)

// Methods lists every scoring function in report order.
var Methods = []Method{MethodBaseline, MethodAdditive, MethodMultiplicative}

// String returns the report column name of the method.
func (m Method) String() string {
	switch m {
	case MethodBaseline:
		return "baserank"
	case MethodAdditive:
		return "addrank"
	case MethodMultiplicative:
		return "mulrank"
	default:
		return "unknown"
	}
}

// Ranks holds the 1-based rank of the target under each method.
type Ranks struct {
	Baseline       int `json:"baseline"`
	Additive       int `json:"additive"`
	Multiplicative int `json:"multiplicative"`
}

// Get returns the rank for m.
func (r Ranks) Get(m Method) int {
	switch m {
	case MethodBaseline:
		return r.Baseline
	case MethodAdditive:
		return r.Additive
	default:
		return r.Multiplicative
	}
}

func (r Ranks) plus(o Ranks) Ranks {
	return Ranks{
		Baseline:       r.Baseline + o.Baseline,
		Additive:       r.Additive + o.Additive,
		Multiplicative: r.Multiplicative + o.Multiplicative,
	}
}

// Result maps each evaluated analogy to its ranks.
type Result map[analogy.Analogy]Ranks

// scores holds one candidate's score under each method.
type scores struct {
	baseline       float64
	additive       float64
	multiplicative float64
}

// beats returns 1 in each field where s strictly exceeds target.
func (s scores) beats(target scores) Ranks {
	var r Ranks
	if s.baseline > target.baseline {
		r.Baseline = 1
	}
	if s.additive > target.additive {
		r.Additive = 1
	}
	if s.multiplicative > target.multiplicative {
		r.Multiplicative = 1
	}
	return r
}
