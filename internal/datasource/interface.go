// Package datasource loads trade datasets from files, HTTP endpoints and PostgreSQL.
package datasource

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yourusername/tradestats/internal/models"
)

// Source loads a complete dataset. Implementations return raw cells; typing
// and validation happen in the normalizer.
type Source interface {
	// Load reads the whole dataset
	Load(ctx context.Context) (*models.Dataset, error)

	// Name returns a short description of the source for logs and metrics
	Name() string

	// Close releases resources held by the source
	Close() error
}

// SourceError represents errors from dataset source operations
type SourceError struct {
	Source  string // Source name
	Code    string // Error code (e.g., "not_found")
	Message string // Error message
	Err     error  // Underlying error
}

func (e *SourceError) Error() string {
	if e.Err != nil {
		return e.Source + ": " + e.Code + ": " + e.Message + " (" + e.Err.Error() + ")"
	}
	return e.Source + ": " + e.Code + ": " + e.Message
}

// Unwrap returns the underlying error
func (e *SourceError) Unwrap() error {
	return e.Err
}

// Common error codes
const (
	ErrCodeAuthenticationFailed = "authentication_failed"
	ErrCodeNotFound             = "not_found"
	ErrCodeInvalidData          = "invalid_data"
	ErrCodeNetworkError         = "network_error"
	ErrCodeServerError          = "server_error"
	ErrCodeUnknown              = "unknown"
)

// Sentinel errors wrapped by SourceError
var (
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrNotFound             = errors.New("data not found")
	ErrInvalidData          = errors.New("invalid data format")
	ErrNetworkError         = errors.New("network error")
	ErrServerError          = errors.New("server error")
)

// NewSourceError creates a new source error
func NewSourceError(source, code, message string, err error) *SourceError {
	return &SourceError{
		Source:  source,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// datasetFromRecords builds a dataset from a header row followed by data rows.
// Short rows are padded with nil cells; blank trailing rows are skipped.
func datasetFromRecords(source string, records [][]string) (*models.Dataset, error) {
	if len(records) == 0 {
		return nil, NewSourceError(source, ErrCodeInvalidData, "no header row", ErrInvalidData)
	}

	header := make([]string, len(records[0]))
	seen := make(map[string]bool, len(header))
	for i, h := range records[0] {
		name := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		if seen[name] {
			return nil, NewSourceError(source, ErrCodeInvalidData,
				fmt.Sprintf("duplicate column %q", name), ErrInvalidData)
		}
		seen[name] = true
		header[i] = name
	}

	ds := &models.Dataset{
		Source:  source,
		Columns: header,
		Rows:    make([]models.RawRow, 0, len(records)-1),
	}
	for _, rec := range records[1:] {
		if blankRecord(rec) {
			continue
		}
		row := make(models.RawRow, len(header))
		for i, name := range header {
			if i < len(rec) {
				row[name] = rec[i]
			} else {
				row[name] = nil
			}
		}
		ds.Rows = append(ds.Rows, row)
	}
	return ds, nil
}

func blankRecord(rec []string) bool {
	for _, cell := range rec {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
