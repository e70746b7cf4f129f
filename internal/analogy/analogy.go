// Package analogy defines analogy quadruples, categorized analogy sets, and the
// text format they are read from.
package analogy

import (
	"fmt"
	"sort"
)

// DefaultCategory holds analogies of a programmatically built set with no categories.
const DefaultCategory = "default"

// Analogy states that W1 is to W2 as W3 is to W4. It is comparable and used as a map key.
type Analogy struct {
	W1 string `json:"w1"`
	W2 string `json:"w2"`
	W3 string `json:"w3"`
	W4 string `json:"w4"`
}

// New builds an analogy from exactly four terms.
func New(terms []string) (Analogy, error) {
	if len(terms) != 4 {
		return Analogy{}, fmt.Errorf("analogy needs 4 terms, got %d", len(terms))
	}
	return Analogy{W1: terms[0], W2: terms[1], W3: terms[2], W4: terms[3]}, nil
}

// Terms returns the four keys in order.
func (a Analogy) Terms() [4]string {
	return [4]string{a.W1, a.W2, a.W3, a.W4}
}

// FirstPair returns the "w1:w2" relation key.
func (a Analogy) FirstPair() string { return a.W1 + ":" + a.W2 }

// SecondPair returns the "w3:w4" relation key.
func (a Analogy) SecondPair() string { return a.W3 + ":" + a.W4 }

func (a Analogy) String() string {
	return a.FirstPair() + "::" + a.SecondPair()
}

// Vocabulary answers key membership; *vector.Store satisfies it.
type Vocabulary interface {
	Contains(key string) bool
}

// Covered reports whether every term of a is in vocab.
func (a Analogy) Covered(vocab Vocabulary) bool {
	return vocab.Contains(a.W1) && vocab.Contains(a.W2) && vocab.Contains(a.W3) && vocab.Contains(a.W4)
}

// Set is a flat list of analogies partitioned into named categories.
// It is read-only once built.
type Set struct {
	analogies  []Analogy
	categories []string
	byCategory map[string][]Analogy
	categoryOf map[Analogy]string
}

// NewSet wraps a flat list in a set with the single DefaultCategory.
func NewSet(list []Analogy) *Set {
	return NewCategorizedSet([]string{DefaultCategory}, map[string][]Analogy{DefaultCategory: list})
}

// NewCategorizedSet builds a set whose flat list is the concatenation of the
// categories in names order. Categories missing from names are appended in
// lexical order so none are lost.
func NewCategorizedSet(names []string, byCategory map[string][]Analogy) *Set {
	s := &Set{
		byCategory: make(map[string][]Analogy, len(byCategory)),
		categoryOf: make(map[Analogy]string),
	}
	seen := make(map[string]bool, len(names))
	order := make([]string, 0, len(byCategory))
	for _, name := range names {
		if _, ok := byCategory[name]; ok && !seen[name] {
			seen[name] = true
			order = append(order, name)
		}
	}
	var rest []string
	for name := range byCategory {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	order = append(order, rest...)

	for _, name := range order {
		list := append([]Analogy(nil), byCategory[name]...)
		s.categories = append(s.categories, name)
		s.byCategory[name] = list
		for _, a := range list {
			s.analogies = append(s.analogies, a)
			if _, ok := s.categoryOf[a]; !ok {
				s.categoryOf[a] = name
			}
		}
	}
	return s
}

// Analogies returns the flat list in category order.
func (s *Set) Analogies() []Analogy { return s.analogies }

// Len returns the number of analogies.
func (s *Set) Len() int { return len(s.analogies) }

// Categories returns category names in file order.
func (s *Set) Categories() []string { return s.categories }

// Category returns the members of name and whether it exists.
func (s *Set) Category(name string) ([]Analogy, bool) {
	list, ok := s.byCategory[name]
	return list, ok
}

// CategoryOf returns the category a belongs to.
func (s *Set) CategoryOf(a Analogy) string { return s.categoryOf[a] }

// WordsUsed returns every distinct term across all analogies.
func (s *Set) WordsUsed() map[string]struct{} {
	used := make(map[string]struct{})
	for _, a := range s.analogies {
		for _, w := range a.Terms() {
			used[w] = struct{}{}
		}
	}
	return used
}

// PairsByCategory returns, per category, the distinct "a:b" relation pairs of
// its analogies in first-seen order.
func (s *Set) PairsByCategory() map[string][]string {
	out := make(map[string][]string, len(s.categories))
	for _, name := range s.categories {
		seen := make(map[string]bool)
		pairs := []string{}
		for _, a := range s.byCategory[name] {
			for _, p := range []string{a.FirstPair(), a.SecondPair()} {
				if !seen[p] {
					seen[p] = true
					pairs = append(pairs, p)
				}
			}
		}
		out[name] = pairs
	}
	return out
}

// Filter returns a new set keeping only analogies for which keep returns true.
// Empty categories are retained so reports still list them.
func (s *Set) Filter(keep func(Analogy) bool) *Set {
	by := make(map[string][]Analogy, len(s.categories))
	for _, name := range s.categories {
		list := []Analogy{}
		for _, a := range s.byCategory[name] {
			if keep(a) {
				list = append(list, a)
			}
		}
		by[name] = list
	}
	return NewCategorizedSet(s.categories, by)
}
