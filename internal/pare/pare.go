package pare

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/analogyeval/internal/analogy"
	"github.com/hyperjump/analogyeval/internal/vector"
)

// DefaultProgressEvery is how many analogy lines pass between progress log lines.
const DefaultProgressEvery = 100000

// Stats counts analogy lines read and kept. Category lines are not counted.
type Stats struct {
	Read      int `json:"read"`
	Kept      int `json:"kept"`
	Malformed int `json:"malformed"`
}

// Filter applies Criteria to analogy lines.
type Filter struct {
	criteria      Criteria
	relation      string
	store         *vector.Store
	lexicon       LexicalSource
	marker        string
	progressEvery int
	logger        *zap.Logger
}

// Option configures a Filter.
type Option func(*Filter)

// WithStore enables the similarity windows.
func WithStore(s *vector.Store) Option {
	return func(f *Filter) { f.store = s }
}

// WithLexicon enables the relation and entropy bounds.
func WithLexicon(l LexicalSource) Option {
	return func(f *Filter) { f.lexicon = l }
}

// WithLogger sets the progress logger.
func WithLogger(l *zap.Logger) Option {
	return func(f *Filter) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithMarker sets the category line prefix; default analogy.DefaultMarker.
func WithMarker(m string) Option {
	return func(f *Filter) {
		if m != "" {
			f.marker = m
		}
	}
}

// WithProgressEvery sets the progress log interval.
func WithProgressEvery(n int) Option {
	return func(f *Filter) {
		if n > 0 {
			f.progressEvery = n
		}
	}
}

// NewFilter validates criteria and builds a filter.
func NewFilter(criteria Criteria, opts ...Option) (*Filter, error) {
	if err := criteria.Validate(); err != nil {
		return nil, fmt.Errorf("invalid criteria: %w", err)
	}
	f := &Filter{
		criteria:      criteria,
		relation:      ResolveRelation(criteria.Relation),
		marker:        analogy.DefaultMarker,
		progressEvery: DefaultProgressEvery,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Fits reports whether the four terms meet the criteria.
func (f *Filter) Fits(words [4]string) (bool, error) {
	if f.store != nil {
		ok, err := f.fitsSimilarity(words)
		if err != nil || !ok {
			return false, err
		}
	}
	if f.lexicon != nil && !f.fitsLexicon(words) {
		return false, nil
	}
	return true, nil
}

func (f *Filter) fitsSimilarity(words [4]string) (bool, error) {
	var v [4]vector.View
	for i, w := range words {
		if !f.store.Contains(w) {
			return false, nil
		}
		v[i], _ = f.store.Get(w)
	}
	checks := []struct {
		a, b vector.View
		w    Window
	}{
		{v[1], v[3], f.criteria.Sim24},
		{v[2], v[3], f.criteria.Sim34},
		{v[0], v[1], f.criteria.Sim12},
	}
	for _, c := range checks {
		sim, err := c.a.CosSim(c.b)
		if err != nil {
			return false, err
		}
		if !c.w.Contains(sim) {
			return false, nil
		}
	}
	return true, nil
}

func (f *Filter) fitsLexicon(words [4]string) bool {
	c := f.criteria
	p1 := f.lexicon.ProbabilityOfRelationOverSenses(words[0], words[1], f.relation)
	p2 := f.lexicon.ProbabilityOfRelationOverSenses(words[2], words[3], f.relation)
	if !c.FirstRelation.Contains(p1) || !c.SecondRelation.Contains(p2) {
		return false
	}
	var total float64
	for _, w := range words {
		e := f.lexicon.EntropyOverLemmas(w)
		if c.AnyEntropyMin != nil && e < *c.AnyEntropyMin {
			return false
		}
		if c.AnyEntropyMax != nil && e > *c.AnyEntropyMax {
			return false
		}
		total += e
	}
	if c.EntropyMin != nil && total < *c.EntropyMin {
		return false
	}
	if c.EntropyMax != nil && total > *c.EntropyMax {
		return false
	}
	return true
}

// Pare copies category lines and fitting analogy lines from r to w, in order.
// Blank lines are dropped; lines without four terms are dropped and counted.
func (f *Filter) Pare(ctx context.Context, r io.Reader, w io.Writer) (Stats, error) {
	var stats Stats
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	bw := bufio.NewWriter(w)

	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, f.marker) {
			if _, err := bw.WriteString(line + "\n"); err != nil {
				return stats, err
			}
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		stats.Read++
		if stats.Read%f.progressEvery == 0 {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
			f.logger.Info("analogies read", zap.Int("read", stats.Read), zap.Int("kept", stats.Kept))
		}
		if len(fields) != 4 {
			stats.Malformed++
			f.logger.Warn("malformed analogy line", zap.String("line", line))
			continue
		}
		ok, err := f.Fits([4]string{fields[0], fields[1], fields[2], fields[3]})
		if err != nil {
			return stats, err
		}
		if !ok {
			continue
		}
		stats.Kept++
		if _, err := bw.WriteString(line + "\n"); err != nil {
			return stats, err
		}
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("read analogies: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return stats, fmt.Errorf("write analogies: %w", err)
	}
	return stats, nil
}

// PareFile filters the analogy file in into out, creating out's directory if needed.
func (f *Filter) PareFile(ctx context.Context, in, out string) (Stats, error) {
	src, err := os.Open(in)
	if err != nil {
		return Stats{}, fmt.Errorf("open analogies: %w", err)
	}
	defer src.Close()
	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return Stats{}, fmt.Errorf("create output dir: %w", err)
	}
	dst, err := os.Create(out)
	if err != nil {
		return Stats{}, fmt.Errorf("create output: %w", err)
	}
	stats, err := f.Pare(ctx, src, dst)
	if cerr := dst.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		return stats, err
	}
	f.logger.Info("analogies pared", zap.String("in", in), zap.String("out", out),
		zap.Int("read", stats.Read), zap.Int("kept", stats.Kept), zap.Int("malformed", stats.Malformed))
	return stats, nil
}
