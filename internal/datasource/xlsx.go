package datasource

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"github.com/yourusername/tradestats/internal/models"
)

// excelDateLayout is the zone-less layout date cells are rendered in. The
// normalizer reads it as wall-clock time in the configured location.
const excelDateLayout = "2006-01-02T15:04:05"

// XLSXSource reads one worksheet of an Excel workbook. Cells are returned as
// their formatted text, except numeric cells of the date columns, which are
// converted from Excel serial dates.
type XLSXSource struct {
	path        string
	sheet       string
	dateColumns []string
}

// NewXLSXSource creates a source reading sheet from path. An empty sheet name
// selects the first worksheet.
func NewXLSXSource(path, sheet string, dateColumns ...string) *XLSXSource {
	return &XLSXSource{path: path, sheet: sheet, dateColumns: dateColumns}
}

// Name returns the source name
func (s *XLSXSource) Name() string {
	if s.sheet == "" {
		return "xlsx:" + s.path
	}
	return "xlsx:" + s.path + "#" + s.sheet
}

// Load reads the worksheet
func (s *XLSXSource) Load(ctx context.Context) (*models.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return nil, NewSourceError(s.Name(), ErrCodeNotFound, "file does not exist", ErrNotFound)
	}

	fx, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, NewSourceError(s.Name(), ErrCodeInvalidData, "cannot open workbook", fmt.Errorf("%w: %v", ErrInvalidData, err))
	}
	defer fx.Close()

	sheet := s.sheet
	if sheet == "" {
		sheets := fx.GetSheetList()
		if len(sheets) == 0 {
			return nil, NewSourceError(s.Name(), ErrCodeInvalidData, "workbook has no sheets", ErrInvalidData)
		}
		sheet = sheets[0]
	} else if idx, err := fx.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, NewSourceError(s.Name(), ErrCodeNotFound, fmt.Sprintf("sheet %q not found", sheet), ErrNotFound)
	}

	records, err := fx.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	if err := s.convertDateColumns(fx, sheet, records); err != nil {
		return nil, err
	}
	return datasetFromRecords(s.Name(), records)
}

// convertDateColumns replaces the formatted text of numeric date cells, whose
// layout depends on the workbook locale, with excelDateLayout.
func (s *XLSXSource) convertDateColumns(fx *excelize.File, sheet string, records [][]string) error {
	if len(s.dateColumns) == 0 || len(records) == 0 {
		return nil
	}
	var cols []int
	for i, h := range records[0] {
		name := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		for _, dc := range s.dateColumns {
			if name == dc {
				cols = append(cols, i)
			}
		}
	}
	if len(cols) == 0 {
		return nil
	}

	raw, err := fx.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	date1904 := false
	if props, err := fx.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}

	for r := 1; r < len(records) && r < len(raw); r++ {
		for _, c := range cols {
			// unformatted numbers render as their raw value and stay untouched
			if c >= len(records[r]) || c >= len(raw[r]) || records[r][c] == raw[r][c] {
				continue
			}
			serial, err := strconv.ParseFloat(strings.TrimSpace(raw[r][c]), 64)
			if err != nil {
				continue
			}
			t, err := excelize.ExcelDateToTime(serial, date1904)
			if err != nil {
				continue
			}
			records[r][c] = t.Format(excelDateLayout)
		}
	}
	return nil
}

// Close is a no-op
func (s *XLSXSource) Close() error {
	return nil
}
