package report

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/hyperjump/analogyeval/internal/models"
	"github.com/hyperjump/analogyeval/internal/ranking"
)

func writeCSV(w io.Writer, rep *models.RunReport) error {
	measures := rep.Run.Measures
	cw := csv.NewWriter(w)
	header := append([]string{"analogy"}, Columns(measures)...)
	header = append(header, "category")
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range rep.Results {
		row := []string{r.Analogy.String()}
		for i, v := range Values(r, measures) {
			row = append(row, formatValue(header[i+1], v))
		}
		row = append(row, r.Category)
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// formatValue prints ranks as integers and similarities in full precision.
func formatValue(column string, v float64) string {
	for _, m := range ranking.Methods {
		if column == m.String() {
			return strconv.Itoa(int(v))
		}
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
