package similarity

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"

	"github.com/hyperjump/analogyeval/internal/analogy"
	"github.com/hyperjump/analogyeval/internal/parallel"
	"github.com/hyperjump/analogyeval/internal/vector"
)

// PairSimilarity is the cosine between one relation pair's difference vector
// and its category centroid.
type PairSimilarity struct {
	Pair       string  `json:"pair"`
	Similarity float64 `json:"similarity"`
}

// CentroidResult holds the pair similarities of one category, in first-seen order.
type CentroidResult struct {
	Category string           `json:"category"`
	Pairs    []PairSimilarity `json:"pairs"`
	Empty    bool             `json:"empty"`
	// Mean is the centroid itself; nil when Empty.
	Mean []float64 `json:"-"`
}

// Err returns ErrEmptyCategory when no pair of the category had vectors.
func (c CentroidResult) Err() error {
	if c.Empty {
		return fmt.Errorf("%w: %q", ErrEmptyCategory, c.Category)
	}
	return nil
}

type relation struct {
	name string
	diff vector.View
}

// Centroids computes, per category of set, the mean of the distinct relation
// difference vectors (w1-w2 and w3-w4) and each distinct pair's cosine to it.
// The mean is taken over distinct pairs, so a pair recurring across analogies
// contributes once.
func (r *Reporter) Centroids(ctx context.Context, set *analogy.Set) ([]CentroidResult, error) {
	names := set.Categories()
	out := make([]CentroidResult, len(names))
	err := parallel.Fill(ctx, r.exec, out, func(i int) (CentroidResult, error) {
		members, _ := set.Category(names[i])
		return r.centroid(names[i], members)
	})
	if err != nil {
		return nil, fmt.Errorf("category centroids: %w", err)
	}
	for _, c := range out {
		if c.Empty {
			r.logger.Warn("category centroid undefined", zap.String("category", c.Category))
			continue
		}
		r.logger.Debug("category centroid", zap.String("category", c.Category), zap.Int("pairs", len(c.Pairs)))
	}
	return out, nil
}

func (r *Reporter) centroid(name string, members []analogy.Analogy) (CentroidResult, error) {
	res := CentroidResult{Category: name, Pairs: []PairSimilarity{}}
	seen := make(map[string]bool)
	var rels []relation
	collect := func(a, b string) error {
		key := a + ":" + b
		if seen[key] || !r.store.Contains(a) || !r.store.Contains(b) {
			return nil
		}
		va, _ := r.store.Get(a)
		vb, _ := r.store.Get(b)
		d, err := va.Difference(vb)
		if err != nil {
			return err
		}
		seen[key] = true
		rels = append(rels, relation{name: key, diff: d.View()})
		return nil
	}
	for _, a := range members {
		if err := collect(a.W1, a.W2); err != nil {
			return res, err
		}
		if err := collect(a.W3, a.W4); err != nil {
			return res, err
		}
	}
	if len(rels) == 0 {
		res.Empty = true
		return res, nil
	}

	mean := make([]float64, r.store.Dimensions())
	row := make([]float64, len(mean))
	for _, rel := range rels {
		for j := range row {
			row[j] = float64(rel.diff.At(j))
		}
		floats.Add(mean, row)
	}
	floats.Scale(1/float64(len(rels)), mean)
	res.Mean = mean

	centroid := make([]float32, len(mean))
	for j, v := range mean {
		centroid[j] = float32(v)
	}
	cv := vector.ViewOf(centroid)
	for _, rel := range rels {
		sim, err := rel.diff.CosSim(cv)
		if err != nil {
			return res, err
		}
		res.Pairs = append(res.Pairs, PairSimilarity{Pair: rel.name, Similarity: sim})
	}
	return res, nil
}
