package report

import (
	"github.com/hyperjump/analogyeval/internal/analogy"
	"github.com/hyperjump/analogyeval/internal/models"
	"github.com/hyperjump/analogyeval/internal/ranking"
	"github.com/hyperjump/analogyeval/internal/similarity"
)

// Input is everything computed for one run. Ranks and Centroids may be nil.
type Input struct {
	Set          *analogy.Set
	Ranks        ranking.Result
	Similarities map[similarity.Measure]similarity.Scores
	Centroids    []similarity.CentroidResult
}

// Assemble builds one result row per distinct analogy of in.Set, in set order.
func Assemble(run *models.Run, in Input) *models.RunReport {
	rep := &models.RunReport{Run: run, Centroids: in.Centroids}
	seen := make(map[analogy.Analogy]bool, in.Set.Len())
	for _, a := range in.Set.Analogies() {
		if seen[a] {
			continue
		}
		seen[a] = true
		row := models.AnalogyResult{
			RunID:    run.ID,
			Analogy:  a,
			Category: in.Set.CategoryOf(a),
		}
		if in.Ranks != nil {
			if r, ok := in.Ranks[a]; ok {
				ranks := r
				row.Ranks = &ranks
			}
		}
		if len(in.Similarities) > 0 {
			row.Similarities = make(map[string]float64, len(in.Similarities))
			for m, scores := range in.Similarities {
				row.Similarities[string(m)] = scores[a]
			}
		}
		rep.Results = append(rep.Results, row)
	}
	if in.Ranks != nil {
		rep.Summary = ranking.Summarize(in.Ranks, in.Set)
	}
	return rep
}

// Summaries recomputes rank summaries from stored rows.
func Summaries(results []models.AnalogyResult) []ranking.Summary {
	ranks, set := models.RankResult(results)
	return ranking.Summarize(ranks, set)
}
