package analytics

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/xuri/excelize/v2"
)

// Workbook sheet names
const (
	DailySheet      = "Daily R"
	OutcomesSheet   = "Outcomes"
	ExcursionsSheet = "Loss MFE"
)

// WriteWorkbook writes every report section to its own sheet of an XLSX file.
// Numeric cells are stored as numbers; undefined statistics are written as N/A.
func (r *Reporter) WriteWorkbook(report *Report, path string) error {
	if report == nil {
		return fmt.Errorf("report is nil")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	fx := excelize.NewFile()
	defer fx.Close()

	if err := fx.SetSheetName(fx.GetSheetName(0), DailySheet); err != nil {
		return err
	}
	if _, err := fx.NewSheet(OutcomesSheet); err != nil {
		return err
	}
	if _, err := fx.NewSheet(ExcursionsSheet); err != nil {
		return err
	}

	headerStyle, err := fx.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	excursionHeader, excursionRows := r.excursionRecords(report.LossExcursions)
	sheets := []struct {
		name    string
		header  []string
		records [][]string
	}{
		{DailySheet, dailyHeader, r.dailyRecords(report.Daily)},
		{OutcomesSheet, outcomeHeader, r.outcomeRecords(report.Outcomes)},
		{ExcursionsSheet, excursionHeader, excursionRows},
	}
	for _, sh := range sheets {
		if err := writeSheet(fx, sh.name, sh.header, sh.records, headerStyle); err != nil {
			return fmt.Errorf("failed to write sheet %s: %w", sh.name, err)
		}
	}

	return fx.SaveAs(path)
}

func writeSheet(fx *excelize.File, sheet string, header []string, records [][]string, headerStyle int) error {
	for i, h := range header {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := fx.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
		if err := fx.SetCellStyle(sheet, cell, cell, headerStyle); err != nil {
			return err
		}
	}
	for rowIdx, rec := range records {
		for colIdx, value := range rec {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err != nil {
				return err
			}
			if err := fx.SetCellValue(sheet, cell, cellValue(value)); err != nil {
				return err
			}
		}
	}

	last, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return err
	}
	return fx.SetColWidth(sheet, "A", last, 16)
}

// cellValue keeps numbers numeric so spreadsheet formulas work on them.
func cellValue(s string) any {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
