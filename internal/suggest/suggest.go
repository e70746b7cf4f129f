package suggest

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// Lexicon is an ordered vocabulary, most frequent word first.
// *vector.Store satisfies it.
type Lexicon interface {
	Size() int
	Key(i int) string
}

// Suggestion is a vocabulary word within the edit budget of the queried word.
type Suggestion struct {
	Word     string `json:"word"`
	Distance int    `json:"distance"`
	Rank     int    `json:"rank"` // lexicon position
}

// Suggester finds close spellings in a Lexicon.
type Suggester struct {
	lexicon        Lexicon
	maxDistance    int
	maxSuggestions int
}

// Option configures a Suggester.
type Option func(*Suggester)

// WithMaxDistance sets the largest edit distance still suggested.
func WithMaxDistance(d int) Option {
	return func(s *Suggester) {
		if d > 0 {
			s.maxDistance = d
		}
	}
}

// WithMaxSuggestions caps the number of suggestions returned.
func WithMaxSuggestions(n int) Option {
	return func(s *Suggester) {
		if n > 0 {
			s.maxSuggestions = n
		}
	}
}

// New returns a Suggester over lex allowing two edits and five suggestions.
func New(lex Lexicon, opts ...Option) *Suggester {
	s := &Suggester{lexicon: lex, maxDistance: 2, maxSuggestions: 5}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Suggest returns the closest words to word, nearest first, with more frequent
// words (earlier lexicon positions) winning ties. word itself is never suggested.
func (s *Suggester) Suggest(word string) []Suggestion {
	n := utf8.RuneCountInString(word)
	var out []Suggestion
	for i := 0; i < s.lexicon.Size(); i++ {
		key := s.lexicon.Key(i)
		if key == word {
			continue
		}
		diff := utf8.RuneCountInString(key) - n
		if diff < -s.maxDistance || diff > s.maxDistance {
			continue
		}
		if d := Distance(word, key); d <= s.maxDistance {
			out = append(out, Suggestion{Word: key, Distance: d, Rank: i})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].Rank < out[j].Rank
	})
	if len(out) > s.maxSuggestions {
		out = out[:s.maxSuggestions]
	}
	return out
}

// Hint formats suggestions for an error message: "" when there are none.
func Hint(suggestions []Suggestion) string {
	if len(suggestions) == 0 {
		return ""
	}
	words := make([]string, len(suggestions))
	for i, s := range suggestions {
		words[i] = s.Word
	}
	return " (did you mean " + strings.Join(words, ", ") + "?)"
}
