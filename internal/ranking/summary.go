package ranking

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/hyperjump/analogyeval/internal/analogy"
)

// OverallCategory labels the summary row covering every analogy.
const OverallCategory = "all"

// MethodSummary aggregates one method's ranks over a group of analogies.
type MethodSummary struct {
	Method     string  `json:"method"`
	MeanRank   float64 `json:"mean_rank"`
	MedianRank float64 `json:"median_rank"`
	MRR        float64 `json:"mrr"`
	HitsAt1    float64 `json:"hits_at_1"`
	HitsAt10   float64 `json:"hits_at_10"`
}

// Summary aggregates ranks for one category. Methods is empty when Count is 0.
type Summary struct {
	Category string          `json:"category"`
	Count    int             `json:"count"`
	Methods  []MethodSummary `json:"methods,omitempty"`
}

// Summarize returns an overall row followed by one row per category of set,
// covering the analogies present in result.
func Summarize(result Result, set *analogy.Set) []Summary {
	out := []Summary{summarizeGroup(OverallCategory, result, set.Analogies())}
	for _, name := range set.Categories() {
		members, _ := set.Category(name)
		out = append(out, summarizeGroup(name, result, members))
	}
	return out
}

func summarizeGroup(name string, result Result, members []analogy.Analogy) Summary {
	seen := make(map[analogy.Analogy]bool, len(members))
	var group []Ranks
	for _, a := range members {
		r, ok := result[a]
		if !ok || seen[a] {
			continue
		}
		seen[a] = true
		group = append(group, r)
	}
	s := Summary{Category: name, Count: len(group)}
	if len(group) == 0 {
		return s
	}
	for _, m := range Methods {
		s.Methods = append(s.Methods, summarizeMethod(m, group))
	}
	return s
}

func summarizeMethod(m Method, group []Ranks) MethodSummary {
	ranks := make([]float64, len(group))
	reciprocal := make([]float64, len(group))
	hits1 := make([]float64, len(group))
	hits10 := make([]float64, len(group))
	for i, r := range group {
		v := float64(r.Get(m))
		ranks[i] = v
		reciprocal[i] = 1 / v
		if v <= 1 {
			hits1[i] = 1
		}
		if v <= 10 {
			hits10[i] = 1
		}
	}
	sort.Float64s(ranks)
	return MethodSummary{
		Method:     m.String(),
		MeanRank:   stat.Mean(ranks, nil),
		MedianRank: median(ranks),
		MRR:        stat.Mean(reciprocal, nil),
		HitsAt1:    stat.Mean(hits1, nil),
		HitsAt10:   stat.Mean(hits10, nil),
	}
}

// median of sorted values; an even count averages the two middle values.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
