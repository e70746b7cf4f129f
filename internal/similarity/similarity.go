// Package similarity reports cosine similarities between analogy terms and
// between relation pairs and their category centroid.
package similarity

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/analogyeval/internal/analogy"
	"github.com/hyperjump/analogyeval/internal/parallel"
	"github.com/hyperjump/analogyeval/internal/vector"
)

// ErrEmptyCategory marks a category none of whose pairs have vectors. It is
// recorded on the CentroidResult rather than returned.
var ErrEmptyCategory = errors.New("category has no pairs with vectors")

// Measure names a per-analogy similarity column.
type Measure string

const (
	// Additive is cos(w3 + w2 - w1, w4).
	Additive Measure = "cos"
	// Baseline is cos(w3, w4).
	Baseline Measure = "w3w4"
	W2W4     Measure = "w2w4"
	W1W2     Measure = "w1w2"
	W1W4     Measure = "w1w4"
)

// Measures lists every per-analogy measure in report order.
var Measures = []Measure{Additive, Baseline, W2W4, W1W2, W1W4}

// ParseMeasure returns the measure named s.
func ParseMeasure(s string) (Measure, bool) {
	for _, m := range Measures {
		if string(m) == s {
			return m, true
		}
	}
	return "", false
}

// Scores maps each analogy to one similarity value.
type Scores map[analogy.Analogy]float64

// Reporter computes similarities over a read-only store.
type Reporter struct {
	store  *vector.Store
	exec   *parallel.Executor
	logger *zap.Logger
}

// NewReporter creates a reporter. A nil executor uses parallel.DefaultWorkers
// and a nil logger discards output.
func NewReporter(store *vector.Store, exec *parallel.Executor, logger *zap.Logger) *Reporter {
	if exec == nil {
		exec = parallel.New(0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reporter{store: store, exec: exec, logger: logger}
}

// Measure computes m for every analogy in list. An analogy with a needed term
// absent from the store scores 0.
func (r *Reporter) Measure(ctx context.Context, list []analogy.Analogy, m Measure) (Scores, error) {
	score, err := r.scorer(m)
	if err != nil {
		return nil, err
	}
	values := make([]float64, len(list))
	if err := parallel.Fill(ctx, r.exec, values, func(i int) (float64, error) {
		return score(list[i])
	}); err != nil {
		return nil, fmt.Errorf("measure %s: %w", m, err)
	}
	out := make(Scores, len(list))
	for i, a := range list {
		out[a] = values[i]
	}
	return out, nil
}

// Baseline returns cos(w3, w4) per analogy.
func (r *Reporter) Baseline(ctx context.Context, list []analogy.Analogy) (Scores, error) {
	return r.Measure(ctx, list, Baseline)
}

// Additive returns cos(w3 + w2 - w1, w4) per analogy.
func (r *Reporter) Additive(ctx context.Context, list []analogy.Analogy) (Scores, error) {
	return r.Measure(ctx, list, Additive)
}

func (r *Reporter) scorer(m Measure) (func(analogy.Analogy) (float64, error), error) {
	switch m {
	case Additive:
		return r.additive, nil
	case Baseline:
		return r.pair(func(a analogy.Analogy) (string, string) { return a.W3, a.W4 }), nil
	case W2W4:
		return r.pair(func(a analogy.Analogy) (string, string) { return a.W2, a.W4 }), nil
	case W1W2:
		return r.pair(func(a analogy.Analogy) (string, string) { return a.W1, a.W2 }), nil
	case W1W4:
		return r.pair(func(a analogy.Analogy) (string, string) { return a.W1, a.W4 }), nil
	default:
		return nil, fmt.Errorf("unknown similarity measure %q", m)
	}
}

func (r *Reporter) pair(terms func(analogy.Analogy) (string, string)) func(analogy.Analogy) (float64, error) {
	return func(a analogy.Analogy) (float64, error) {
		x, y := terms(a)
		if !r.store.Contains(x) || !r.store.Contains(y) {
			return 0, nil
		}
		vx, _ := r.store.Get(x)
		vy, _ := r.store.Get(y)
		return vx.CosSim(vy)
	}
}

func (r *Reporter) additive(a analogy.Analogy) (float64, error) {
	if !a.Covered(r.store) {
		return 0, nil
	}
	w1, _ := r.store.Get(a.W1)
	w2, _ := r.store.Get(a.W2)
	w3, _ := r.store.Get(a.W3)
	w4, _ := r.store.Get(a.W4)
	h := w3.Clone()
	if err := h.Add(w2); err != nil {
		return 0, err
	}
	if err := h.Sub(w1); err != nil {
		return 0, err
	}
	return h.View().CosSim(w4)
}
