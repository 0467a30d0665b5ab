package datasource

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/tradestats/internal/config"
	"github.com/yourusername/tradestats/internal/database"
	"github.com/yourusername/tradestats/internal/logger"
	"github.com/yourusername/tradestats/internal/metrics"
	"github.com/yourusername/tradestats/internal/models"
)

// Factory creates Source implementations based on configuration
type Factory struct {
	logger *logrus.Logger
	config *config.Config
}

// NewFactory creates a new source factory
func NewFactory(cfg *config.Config, logger *logrus.Logger) *Factory {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return &Factory{
		logger: logger,
		config: cfg,
	}
}

// Create creates the source selected by input.source. The postgres source
// connects immediately so that configuration errors surface early.
func (f *Factory) Create(ctx context.Context) (Source, error) {
	in := f.config.Input
	switch in.Source {
	case config.SourceCSV:
		return NewCSVSource(in.Path), nil

	case config.SourceXLSX:
		return NewXLSXSource(in.Path, in.Sheet, in.Columns.EntryTime), nil

	case config.SourceHTTP:
		if in.URL == "" {
			return nil, fmt.Errorf("http source requires input.url")
		}
		client := NewRateLimitedHTTPClient(HTTPClientConfigFrom(f.config.HTTPClient), f.logger)
		return NewHTTPSource(client, in.URL, in.AuthToken), nil

	case config.SourcePostgres:
		if strings.TrimSpace(in.Query) == "" {
			return nil, fmt.Errorf("postgres source requires input.query")
		}
		db, err := database.NewDB(ctx, &f.config.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		return NewPostgresSource(db, in.Query, db.Close), nil

	default:
		return nil, fmt.Errorf("unknown input source: %s", in.Source)
	}
}

// ListAvailableSources returns the supported source kinds
func ListAvailableSources() []string {
	return []string{config.SourceCSV, config.SourceXLSX, config.SourceHTTP, config.SourcePostgres}
}

// LoadDataset loads src, recording load metrics and a log line.
func LoadDataset(ctx context.Context, src Source, al *logger.AnalyticsLogger) (*models.Dataset, error) {
	start := time.Now()
	kind := sourceKind(src.Name())

	ds, err := src.Load(ctx)
	elapsed := time.Since(start)
	if err != nil {
		metrics.RecordSourceLoad(kind, "failure", elapsed.Seconds())
		if al != nil {
			al.LogReportFailure("load", err)
		}
		return nil, err
	}

	metrics.RecordSourceLoad(kind, "success", elapsed.Seconds())
	if al != nil {
		al.LogSourceLoaded(src.Name(), len(ds.Rows), len(ds.Columns), elapsed)
	}
	return ds, nil
}

func sourceKind(name string) string {
	if i := strings.IndexByte(name, ':'); i > 0 {
		return name[:i]
	}
	return name
}
