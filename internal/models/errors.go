package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yourusername/tradestats/internal/stats"
)

// Custom errors
var (
	ErrSchema       = errors.New("dataset schema is incomplete")
	ErrInvalidInput = stats.ErrInvalidInput
)

// SchemaError reports required columns that are absent from a dataset.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("missing required columns: [%s]", strings.Join(e.Missing, ", "))
}

// Unwrap lets callers match with errors.Is(err, ErrSchema).
func (e *SchemaError) Unwrap() error {
	return ErrSchema
}

// InvalidInputError reports a value that violates an operation's precondition.
type InvalidInputError struct {
	Field  string
	Value  any
	Reason string
}

func (e *InvalidInputError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Reason)
}

// Unwrap lets callers match with errors.Is(err, ErrInvalidInput).
func (e *InvalidInputError) Unwrap() error {
	return ErrInvalidInput
}
