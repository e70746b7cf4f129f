package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/analogyeval/internal/models"
)

const (
	sheetResults   = "results"
	sheetSummary   = "summary"
	sheetCentroids = "centroids"
)

func writeXLSX(w io.Writer, rep *models.RunReport) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetResults); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	header := []interface{}{"analogy"}
	for _, c := range Columns(rep.Run.Measures) {
		header = append(header, c)
	}
	header = append(header, "category")
	rows := [][]interface{}{header}
	for _, r := range rep.Results {
		row := []interface{}{r.Analogy.String()}
		for _, v := range Values(r, rep.Run.Measures) {
			row = append(row, v)
		}
		row = append(row, r.Category)
		rows = append(rows, row)
	}
	if err := writeSheet(f, sheetResults, rows); err != nil {
		return err
	}

	if len(rep.Summary) > 0 {
		rows = [][]interface{}{{"category", "count", "method", "mean_rank", "median_rank", "mrr", "hits_at_1", "hits_at_10"}}
		for _, s := range rep.Summary {
			if len(s.Methods) == 0 {
				rows = append(rows, []interface{}{s.Category, s.Count})
				continue
			}
			for _, m := range s.Methods {
				rows = append(rows, []interface{}{s.Category, s.Count, m.Method, m.MeanRank, m.MedianRank, m.MRR, m.HitsAt1, m.HitsAt10})
			}
		}
		if err := writeSheet(f, sheetSummary, rows); err != nil {
			return err
		}
	}

	if len(rep.Centroids) > 0 {
		rows = [][]interface{}{{"category", "pair", "similarity"}}
		for _, c := range rep.Centroids {
			if c.Empty {
				rows = append(rows, []interface{}{c.Category, "", "empty"})
				continue
			}
			for _, p := range c.Pairs {
				rows = append(rows, []interface{}{c.Category, p.Pair, p.Similarity})
			}
		}
		if err := writeSheet(f, sheetCentroids, rows); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, rows [][]interface{}) error {
	if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
		if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("create sheet %q: %w", sheet, err)
		}
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("sheet %q row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
