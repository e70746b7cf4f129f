package ranking

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyperjump/analogyeval/internal/parallel"
	"github.com/hyperjump/analogyeval/internal/vector"
)

// ErrUnknownTerm is returned by Solve when a query term is outside the store.
var ErrUnknownTerm = errors.New("term not in vocabulary")

// Answers holds the best completions of "w1 is to w2 as w3 is to ?" per method.
type Answers struct {
	Baseline       []vector.Neighbor `json:"baserank"`
	Additive       []vector.Neighbor `json:"addrank"`
	Multiplicative []vector.Neighbor `json:"mulrank"`
}

// Get returns the answers for m.
func (a Answers) Get(m Method) []vector.Neighbor {
	switch m {
	case MethodBaseline:
		return a.Baseline
	case MethodAdditive:
		return a.Additive
	case MethodMultiplicative:
		return a.Multiplicative
	default:
		return nil
	}
}

// Solve returns the k best candidates for the missing fourth term under every
// method, scoring the whole vocabulary except the three query terms. Equal
// scores keep lexicon order.
func (e *Evaluator) Solve(ctx context.Context, w1, w2, w3 string, k int) (Answers, error) {
	if k <= 0 {
		return Answers{}, fmt.Errorf("k must be positive, got %d", k)
	}
	for _, w := range []string{w1, w2, w3} {
		if !e.store.Contains(w) {
			return Answers{}, fmt.Errorf("%w: %q", ErrUnknownTerm, w)
		}
	}
	stats, err := computeEntryStats(ctx, e.store, e.exec)
	if err != nil {
		return Answers{}, fmt.Errorf("prepare vocabulary: %w", err)
	}
	q, _, err := newOperands(e.store, stats, w1, w2, w3)
	if err != nil {
		return Answers{}, err
	}

	partial := make([][3][]vector.Neighbor, e.exec.Workers)
	err = e.exec.Run(ctx, e.store.Size(), func(ctx context.Context, r parallel.Range) error {
		var found [3][]vector.Neighbor
		for i := r.Begin; i < r.End; i++ {
			if (i-r.Begin)%cancelCheckInterval == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			if q.excluded(i) {
				continue
			}
			s, err := q.score(i)
			if err != nil {
				return err
			}
			key := e.store.Key(i)
			found[0] = append(found[0], vector.Neighbor{Index: i, Key: key, Score: s.baseline})
			found[1] = append(found[1], vector.Neighbor{Index: i, Key: key, Score: s.additive})
			found[2] = append(found[2], vector.Neighbor{Index: i, Key: key, Score: s.multiplicative})
		}
		for m := range found {
			found[m] = vector.TopK(found[m], k)
		}
		partial[r.Index] = found
		return nil
	})
	if err != nil {
		return Answers{}, err
	}

	var merged [3][][]vector.Neighbor
	for _, p := range partial {
		for m := range p {
			merged[m] = append(merged[m], p[m])
		}
	}
	return Answers{
		Baseline:       vector.MergeTopK(merged[0], k),
		Additive:       vector.MergeTopK(merged[1], k),
		Multiplicative: vector.MergeTopK(merged[2], k),
	}, nil
}
