package datasource

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/yourusername/tradestats/internal/models"
)

// CSVSource reads a trade export written as comma separated values
type CSVSource struct {
	path string
}

// NewCSVSource creates a source reading path
func NewCSVSource(path string) *CSVSource {
	return &CSVSource{path: path}
}

// Name returns the source name
func (s *CSVSource) Name() string {
	return "csv:" + s.path
}

// Load reads the file
func (s *CSVSource) Load(ctx context.Context) (*models.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NewSourceError(s.Name(), ErrCodeNotFound, "file does not exist", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to open %s: %w", s.path, err)
	}
	defer f.Close()

	return ReadCSV(f, s.Name())
}

// Close is a no-op
func (s *CSVSource) Close() error {
	return nil
}

// ReadCSV parses CSV data with a header row.
func ReadCSV(r io.Reader, source string) (*models.Dataset, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, NewSourceError(source, ErrCodeInvalidData, "malformed csv", fmt.Errorf("%w: %v", ErrInvalidData, err))
	}
	return datasetFromRecords(source, records)
}
