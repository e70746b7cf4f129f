package vector

import "sort"

// Neighbor is a scored lexicon entry.
type Neighbor struct {
	Index int     `json:"-"`
	Key   string  `json:"word"`
	Score float64 `json:"score"`
}

// SortNeighbors orders ns by descending score; equal scores keep lexicon order.
func SortNeighbors(ns []Neighbor) {
	sort.Slice(ns, func(i, j int) bool {
		if ns[i].Score != ns[j].Score {
			return ns[i].Score > ns[j].Score
		}
		return ns[i].Index < ns[j].Index
	})
}

// TopK sorts ns and returns its k best entries. k <= 0 returns nil.
func TopK(ns []Neighbor, k int) []Neighbor {
	if k <= 0 || len(ns) == 0 {
		return nil
	}
	SortNeighbors(ns)
	if k > len(ns) {
		k = len(ns)
	}
	return ns[:k]
}

// MergeTopK combines per-worker top-k lists into the overall top k.
func MergeTopK(parts [][]Neighbor, k int) []Neighbor {
	var all []Neighbor
	for _, p := range parts {
		all = append(all, p...)
	}
	out := TopK(all, k)
	return append([]Neighbor(nil), out...)
}
