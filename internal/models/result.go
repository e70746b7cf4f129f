package models

import (
	"github.com/hyperjump/analogyeval/internal/analogy"
	"github.com/hyperjump/analogyeval/internal/ranking"
	"github.com/hyperjump/analogyeval/internal/similarity"
)

// AnalogyResult is one row of a run: the analogy, its category and every
// selected measure. Ranks is nil when ranks were not requested.
type AnalogyResult struct {
	RunID        string             `json:"run_id,omitempty" db:"run_id"`
	Analogy      analogy.Analogy    `json:"analogy" db:"-"`
	Category     string             `json:"category" db:"category"`
	Ranks        *ranking.Ranks     `json:"ranks,omitempty" db:"-"`
	Similarities map[string]float64 `json:"similarities,omitempty" db:"-"`
}

// PairSimilarity is a relation pair's cosine to its category centroid.
type PairSimilarity struct {
	RunID      string  `json:"run_id,omitempty" db:"run_id"`
	Category   string  `json:"category" db:"category"`
	Pair       string  `json:"pair" db:"pair"`
	Similarity float64 `json:"similarity" db:"similarity"`
}

// RunReport is a run with everything computed for it.
type RunReport struct {
	Run       *Run                        `json:"run"`
	Results   []AnalogyResult             `json:"results"`
	Summary   []ranking.Summary           `json:"summary,omitempty"`
	Centroids []similarity.CentroidResult `json:"centroids,omitempty"`
}

// PairSimilarities flattens the centroid results into rows for run.
func (r *RunReport) PairSimilarities() []PairSimilarity {
	var out []PairSimilarity
	for _, c := range r.Centroids {
		for _, p := range c.Pairs {
			out = append(out, PairSimilarity{
				RunID:      r.Run.ID,
				Category:   c.Category,
				Pair:       p.Pair,
				Similarity: p.Similarity,
			})
		}
	}
	return out
}

// RankResult rebuilds the rank mapping and categorized set from stored rows,
// skipping rows without ranks.
func RankResult(results []AnalogyResult) (ranking.Result, *analogy.Set) {
	var names []string
	byCategory := make(map[string][]analogy.Analogy)
	ranks := make(ranking.Result, len(results))
	for _, r := range results {
		if r.Ranks == nil {
			continue
		}
		if _, ok := byCategory[r.Category]; !ok {
			names = append(names, r.Category)
		}
		byCategory[r.Category] = append(byCategory[r.Category], r.Analogy)
		ranks[r.Analogy] = *r.Ranks
	}
	return ranks, analogy.NewCategorizedSet(names, byCategory)
}
