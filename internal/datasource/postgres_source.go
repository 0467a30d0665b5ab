package datasource

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/yourusername/tradestats/internal/models"
)

// Querier is the part of the database pool used by PostgresSource
type Querier interface {
	Query(ctx context.Context, query string, args ...any) (pgx.Rows, error)
}

// PostgresSource runs a query and treats each result column as a dataset column
type PostgresSource struct {
	db    Querier
	query string
	close func()
}

// NewPostgresSource creates a source running query against db. closeFn, if
// not nil, is called by Close.
func NewPostgresSource(db Querier, query string, closeFn func()) *PostgresSource {
	return &PostgresSource{db: db, query: query, close: closeFn}
}

// Name returns the source name
func (s *PostgresSource) Name() string {
	return "postgres"
}

// Load runs the query
func (s *PostgresSource) Load(ctx context.Context) (*models.Dataset, error) {
	rows, err := s.db.Query(ctx, s.query)
	if err != nil {
		return nil, NewSourceError(s.Name(), ErrCodeServerError, "query failed", fmt.Errorf("%w: %v", ErrServerError, err))
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = f.Name
	}

	ds := &models.Dataset{Source: s.Name(), Columns: columns, Rows: make([]models.RawRow, 0)}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, NewSourceError(s.Name(), ErrCodeInvalidData, "cannot decode row", fmt.Errorf("%w: %v", ErrInvalidData, err))
		}
		row := make(models.RawRow, len(columns))
		for i, name := range columns {
			if i < len(values) {
				row[name] = dbValue(values[i])
			}
		}
		ds.Rows = append(ds.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, NewSourceError(s.Name(), ErrCodeServerError, "reading rows failed", fmt.Errorf("%w: %v", ErrServerError, err))
	}
	return ds, nil
}

// Close releases the pool
func (s *PostgresSource) Close() error {
	if s.close != nil {
		s.close()
	}
	return nil
}

// dbValue converts pgx values the normalizer cannot coerce.
func dbValue(v any) any {
	switch x := v.(type) {
	case pgtype.Numeric:
		if !x.Valid || x.NaN {
			return nil
		}
		f, err := x.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case pgtype.Text:
		if !x.Valid {
			return nil
		}
		return x.String
	}
	return v
}
