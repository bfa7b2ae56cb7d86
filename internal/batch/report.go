package batch

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	documentsSheet = "Documents"
	summarySheet   = "Summary"
)

// WriteReport saves an xlsx workbook with one row per document and a
// summary sheet.
func WriteReport(path string, r *Result) error {
	if !strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		return fmt.Errorf("report must be an .xlsx file: %s", path)
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	// NewFile starts with "Sheet1"; rename it instead of leaving it empty.
	if err := f.SetSheetName("Sheet1", documentsSheet); err != nil {
		return err
	}
	if err := writeRows(f, documentsSheet, csvHeader, rows(r)); err != nil {
		return err
	}
	_ = f.SetColWidth(documentsSheet, "A", "A", 40)
	_ = f.SetColWidth(documentsSheet, "J", "K", 40)

	if _, err := f.NewSheet(summarySheet); err != nil {
		return err
	}
	stats := r.Stats()
	summary := [][]any{
		{"Total documents", stats.Total},
		{"Extracted", stats.Succeeded},
		{"Failed", stats.Failed},
		{"Total pages", stats.TotalPages},
		{"Mean confidence", stats.MeanConfidence},
		{"Estimated cost (USD)", stats.TotalCostUSD},
		{"Workers", stats.Workers},
		{"Duration (ms)", stats.DurationMs},
	}
	for _, m := range sortedKeys(stats.ByMethod) {
		summary = append(summary, []any{"Method " + m, stats.ByMethod[m]})
	}
	for _, b := range sortedKeys(stats.ByBand) {
		summary = append(summary, []any{"Band " + b, stats.ByBand[b]})
	}
	for i, row := range summary {
		for j, v := range row {
			cell, _ := excelize.CoordinatesToCellName(j+1, i+1)
			if err := f.SetCellValue(summarySheet, cell, v); err != nil {
				return err
			}
		}
	}
	_ = f.SetColWidth(summarySheet, "A", "A", 24)

	idx, err := f.GetSheetIndex(documentsSheet)
	if err == nil {
		f.SetActiveSheet(idx)
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, header []string, data [][]string) error {
	for i, h := range header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	for r, row := range data {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}
	return nil
}
