// Package pare filters analogy files down to the analogies that meet
// similarity, relation probability and entropy criteria.
package pare

import "fmt"

// Window is a closed interval [Min, Max].
type Window struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max"`
}

// UnitWindow is [0, 1], which every cosine and probability filter defaults to.
var UnitWindow = Window{Min: 0, Max: 1}

// Contains reports whether v lies inside the window.
func (w Window) Contains(v float64) bool {
	return v >= w.Min && v <= w.Max
}

// Criteria selects analogies. Similarity windows apply when a vector store is
// available; the relation and entropy bounds apply when a lexical source is.
type Criteria struct {
	// Sim12 bounds cos(w1, w2).
	Sim12 Window `yaml:"sim12" json:"sim12"`
	// Sim24 bounds cos(w2, w4), the domain similarity across both sides.
	Sim24 Window `yaml:"sim24" json:"sim24"`
	// Sim34 bounds cos(w3, w4).
	Sim34 Window `yaml:"sim34" json:"sim34"`

	// Relation is the lexical relation tag or one of its aliases (see ResolveRelation).
	Relation string `yaml:"relation" json:"relation"`
	// FirstRelation bounds the probability that w1 and w2 hold Relation.
	FirstRelation Window `yaml:"first_relation" json:"first_relation"`
	// SecondRelation bounds the probability that w3 and w4 hold Relation.
	SecondRelation Window `yaml:"second_relation" json:"second_relation"`

	// AnyEntropyMin and AnyEntropyMax bound each term's lemma entropy.
	AnyEntropyMin *float64 `yaml:"any_entropy_min,omitempty" json:"any_entropy_min,omitempty"`
	AnyEntropyMax *float64 `yaml:"any_entropy_max,omitempty" json:"any_entropy_max,omitempty"`
	// EntropyMin and EntropyMax bound the summed entropy of all four terms.
	EntropyMin *float64 `yaml:"entropy_min,omitempty" json:"entropy_min,omitempty"`
	EntropyMax *float64 `yaml:"entropy_max,omitempty" json:"entropy_max,omitempty"`
}

// DefaultCriteria returns criteria that keep every analogy whose terms are known.
func DefaultCriteria() Criteria {
	return Criteria{
		Sim12:          UnitWindow,
		Sim24:          UnitWindow,
		Sim34:          UnitWindow,
		FirstRelation:  UnitWindow,
		SecondRelation: UnitWindow,
	}
}

// Validate checks that every window is ordered.
func (c Criteria) Validate() error {
	windows := map[string]Window{
		"sim12":           c.Sim12,
		"sim24":           c.Sim24,
		"sim34":           c.Sim34,
		"first_relation":  c.FirstRelation,
		"second_relation": c.SecondRelation,
	}
	for name, w := range windows {
		if w.Min > w.Max {
			return fmt.Errorf("%s: min %v exceeds max %v", name, w.Min, w.Max)
		}
	}
	if c.AnyEntropyMin != nil && c.AnyEntropyMax != nil && *c.AnyEntropyMin > *c.AnyEntropyMax {
		return fmt.Errorf("any entropy: min %v exceeds max %v", *c.AnyEntropyMin, *c.AnyEntropyMax)
	}
	if c.EntropyMin != nil && c.EntropyMax != nil && *c.EntropyMin > *c.EntropyMax {
		return fmt.Errorf("entropy: min %v exceeds max %v", *c.EntropyMin, *c.EntropyMax)
	}
	return nil
}

var relationAliases = map[string]string{
	"hyper":      "@",
	"inst_hyper": "@i",
	"memb_holo":  "#m",
	"part_holo":  "#p",
	"anto":       "!",
}

// ResolveRelation maps a relation alias to its pointer symbol. Unknown names
// are returned unchanged.
func ResolveRelation(name string) string {
	if sym, ok := relationAliases[name]; ok {
		return sym
	}
	return name
}
