package pare

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// LexicalSource answers relation and ambiguity questions about terms.
type LexicalSource interface {
	// ProbabilityOfRelationOverSenses returns, in [0,1], the share of sense
	// pairs of a and b connected by rel.
	ProbabilityOfRelationOverSenses(a, b, rel string) float64
	// EntropyOverLemmas returns the entropy of w's sense distribution, >= 0.
	EntropyOverLemmas(w string) float64
}

type relationKey struct {
	rel, a, b string
}

// LexicalTable is a LexicalSource backed by precomputed values. Unknown
// relations and terms yield 0.
type LexicalTable struct {
	probs   map[relationKey]float64
	entropy map[string]float64
}

// NewLexicalTable creates an empty table.
func NewLexicalTable() *LexicalTable {
	return &LexicalTable{
		probs:   make(map[relationKey]float64),
		entropy: make(map[string]float64),
	}
}

// SetProbability records the probability that a and b hold rel. rel may be an alias.
func (t *LexicalTable) SetProbability(rel, a, b string, p float64) {
	t.probs[relationKey{ResolveRelation(rel), a, b}] = p
}

// SetEntropy records the lemma entropy of w.
func (t *LexicalTable) SetEntropy(w string, e float64) {
	t.entropy[w] = e
}

// ProbabilityOfRelationOverSenses implements LexicalSource.
func (t *LexicalTable) ProbabilityOfRelationOverSenses(a, b, rel string) float64 {
	return t.probs[relationKey{ResolveRelation(rel), a, b}]
}

// EntropyOverLemmas implements LexicalSource.
func (t *LexicalTable) EntropyOverLemmas(w string) float64 {
	return t.entropy[w]
}

// LoadLexicalTable reads a table file.
func LoadLexicalTable(path string) (*LexicalTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open lexicon: %w", err)
	}
	defer f.Close()
	return ReadLexicalTable(f)
}

// ReadLexicalTable decodes tab-separated rows of either
// "<rel>\t<a>\t<b>\t<p>" or "entropy\t<w>\t<e>". Blank lines and lines
// starting with '#' are skipped.
func ReadLexicalTable(r io.Reader) (*LexicalTable, error) {
	t := NewLexicalTable()
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		cols := strings.Split(line, "\t")
		switch {
		case cols[0] == "entropy" && len(cols) == 3:
			e, err := strconv.ParseFloat(cols[2], 64)
			if err != nil || e < 0 {
				return nil, fmt.Errorf("lexicon line %d: invalid entropy %q", lineNo, cols[2])
			}
			t.SetEntropy(cols[1], e)
		case len(cols) == 4:
			p, err := strconv.ParseFloat(cols[3], 64)
			if err != nil || p < 0 || p > 1 {
				return nil, fmt.Errorf("lexicon line %d: invalid probability %q", lineNo, cols[3])
			}
			t.SetProbability(cols[0], cols[1], cols[2], p)
		default:
			return nil, fmt.Errorf("lexicon line %d: expected 3 or 4 tab-separated columns, got %d", lineNo, len(cols))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read lexicon: %w", err)
	}
	return t, nil
}
