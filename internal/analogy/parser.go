package analogy

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
)

const (
	// DefaultMarker starts a category header line.
	DefaultMarker = ":"
	// ImplicitCategory collects analogies that appear before any category header.
	ImplicitCategory = "first category"
)

// ParseOptions controls how analogy files are read.
type ParseOptions struct {
	// CaseSensitive keeps tokens as written; otherwise lines are lower-cased.
	CaseSensitive bool
	// Marker prefixes category lines. Empty means DefaultMarker.
	Marker string
	// Vocabulary, when set, drops analogies with any term it does not contain.
	Vocabulary Vocabulary
	Logger     *zap.Logger
}

// ParseStats counts what happened to each input line.
type ParseStats struct {
	Lines      int `json:"lines"`
	Categories int `json:"categories"`
	Kept       int `json:"kept"`
	Dropped    int `json:"dropped"`
	Malformed  int `json:"malformed"`
}

// ParseFile opens path and parses it with Parse.
func ParseFile(path string, opts ParseOptions) (*Set, ParseStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ParseStats{}, fmt.Errorf("open analogies: %w", err)
	}
	defer f.Close()
	return Parse(f, opts)
}

// Parse reads one analogy per line as four whitespace-separated tokens. A line
// starting with the marker opens a category named by the whole line. Malformed
// lines and analogies outside the vocabulary are logged and skipped.
func Parse(r io.Reader, opts ParseOptions) (*Set, ParseStats, error) {
	marker := opts.Marker
	if marker == "" {
		marker = DefaultMarker
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var stats ParseStats
	var names []string
	byCategory := make(map[string][]Analogy)
	current := ""

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		stats.Lines++
		if strings.HasPrefix(line, marker) {
			current = strings.TrimSpace(line)
			if _, ok := byCategory[current]; !ok {
				names = append(names, current)
				byCategory[current] = []Analogy{}
			}
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		if current == "" {
			current = ImplicitCategory
			names = append(names, current)
			byCategory[current] = []Analogy{}
		}
		if !opts.CaseSensitive {
			line = strings.ToLower(line)
		}
		a, err := New(strings.Fields(line))
		if err != nil {
			stats.Malformed++
			logger.Warn("malformed analogy line", zap.Int("line", stats.Lines), zap.String("text", line), zap.Error(err))
			continue
		}
		if opts.Vocabulary != nil && !a.Covered(opts.Vocabulary) {
			stats.Dropped++
			logger.Debug("throwing out analogy", zap.Stringer("analogy", a))
			continue
		}
		byCategory[current] = append(byCategory[current], a)
		stats.Kept++
	}
	if err := scanner.Err(); err != nil {
		return nil, stats, fmt.Errorf("read analogies: %w", err)
	}
	stats.Categories = len(names)
	if stats.Dropped > 0 {
		logger.Info("analogies dropped for missing terms", zap.Int("dropped", stats.Dropped), zap.Int("kept", stats.Kept))
	}
	return NewCategorizedSet(names, byCategory), stats, nil
}
