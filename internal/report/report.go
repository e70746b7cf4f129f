// Package report assembles evaluation results and writes them as CSV, XLSX,
// JSON or a text summary.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/analogyeval/internal/models"
	"github.com/hyperjump/analogyeval/internal/ranking"
	"github.com/hyperjump/analogyeval/internal/similarity"
)

// Format is a report output format.
type Format string

const (
	// FormatCSV is one row per analogy (default).
	FormatCSV Format = "csv"
	// FormatXLSX is a workbook with results, summary and centroid sheets.
	FormatXLSX Format = "xlsx"
	// FormatJSON is the full report for machine consumption.
	FormatJSON Format = "json"
	// FormatText is a human-readable summary.
	FormatText Format = "text"
)

// FilePrefix starts every default report file name.
const FilePrefix = "analogy_experiment_stats_"

// MeasureRanks selects the three rank columns.
const MeasureRanks = "ranks"

// DefaultMeasures are written when none are configured.
var DefaultMeasures = []string{string(similarity.Additive), MeasureRanks, string(similarity.Baseline)}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatCSV, FormatXLSX, FormatJSON, FormatText:
		return f, nil
	case "":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unknown report format %q (want csv, xlsx, json or text)", s)
	}
}

// Ext returns the file extension for f.
func (f Format) Ext() string {
	if f == FormatText {
		return ".txt"
	}
	return "." + string(f)
}

// DefaultFileName names a report after the run's creation time.
func DefaultFileName(run *models.Run, f Format) string {
	return FilePrefix + run.Stamp() + f.Ext()
}

// ParseMeasures validates measure names and returns them in column order,
// without duplicates.
func ParseMeasures(names []string) ([]string, error) {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" {
			continue
		}
		if _, ok := similarity.ParseMeasure(n); !ok && n != MeasureRanks {
			return nil, fmt.Errorf("unknown measure %q", n)
		}
		want[n] = true
	}
	if len(want) == 0 {
		return nil, fmt.Errorf("no measures selected")
	}
	var out []string
	for _, m := range columnOrder() {
		if want[m] {
			out = append(out, m)
		}
	}
	return out, nil
}

// columnOrder is the fixed order measures appear in: additive cosine, ranks,
// then the pairwise cosines.
func columnOrder() []string {
	out := []string{string(similarity.Additive), MeasureRanks}
	for _, m := range similarity.Measures {
		if m != similarity.Additive {
			out = append(out, string(m))
		}
	}
	return out
}

// Columns expands measures into value column names.
func Columns(measures []string) []string {
	var cols []string
	for _, m := range measures {
		if m == MeasureRanks {
			for _, method := range ranking.Methods {
				cols = append(cols, method.String())
			}
			continue
		}
		cols = append(cols, m)
	}
	return cols
}

// Values returns the row's values in Columns(measures) order.
func Values(r models.AnalogyResult, measures []string) []float64 {
	var vals []float64
	for _, m := range measures {
		if m == MeasureRanks {
			var ranks ranking.Ranks
			if r.Ranks != nil {
				ranks = *r.Ranks
			}
			for _, method := range ranking.Methods {
				vals = append(vals, float64(ranks.Get(method)))
			}
			continue
		}
		vals = append(vals, r.Similarities[m])
	}
	return vals
}

// Write writes rep to w in format f.
func Write(w io.Writer, rep *models.RunReport, f Format) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	case FormatXLSX:
		return writeXLSX(w, rep)
	case FormatText:
		return writeText(w, rep)
	case FormatCSV, "":
		return writeCSV(w, rep)
	default:
		return fmt.Errorf("unknown report format %q", f)
	}
}

// WriteFile writes rep to path, creating the directory if needed.
func WriteFile(path string, rep *models.RunReport, f Format) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create report dir: %w", err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := Write(file, rep, f); err != nil {
		file.Close()
		return fmt.Errorf("write %s report: %w", f, err)
	}
	return file.Close()
}
