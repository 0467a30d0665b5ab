// Package health provides the HTTP server exposing health checks, metrics and
// the latest computed report.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/tradestats/internal/analytics"
	"github.com/yourusername/tradestats/internal/metrics"
)

// DatabasePinger defines the interface for checking database connectivity.
type DatabasePinger interface {
	Ping(ctx context.Context) error
}

// HealthResponse represents the JSON response for health check endpoints.
type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Timestamp string `json:"timestamp,omitempty"`
	Version   string `json:"version,omitempty"`
	Commit    string `json:"commit,omitempty"`
}

// ReadyResponse represents the JSON response for readiness check endpoints.
type ReadyResponse struct {
	Status   string            `json:"status"`
	Service  string            `json:"service"`
	Checks   map[string]string `json:"checks,omitempty"`
	Duration string            `json:"duration,omitempty"`
}

// ErrorResponse is returned by the report endpoints on failure.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Server serves health endpoints and the most recently published report.
type Server struct {
	serviceName string
	version     string
	commit      string
	port        string
	metricsPath string
	server      *http.Server
	logger      *logrus.Logger
	db          DatabasePinger
	reporter    *analytics.Reporter
	stream      *ReportStream

	mu          sync.RWMutex
	report      *analytics.Report
	generatedAt time.Time
	lastError   error
}

// Config holds the configuration for the server.
type Config struct {
	ServiceName string
	Version     string
	Commit      string
	Port        string
	MetricsPath string // empty disables /metrics
	Logger      *logrus.Logger
	DB          DatabasePinger
	Reporter    *analytics.Reporter
}

// NewServer creates a new server.
func NewServer(cfg Config) *Server {
	port := cfg.Port
	if port == "" {
		port = os.Getenv("HEALTH_PORT")
	}
	if port == "" {
		port = "8080"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.PanicLevel)
	}
	reporter := cfg.Reporter
	if reporter == nil {
		reporter = analytics.NewReporter(2)
	}

	return &Server{
		serviceName: cfg.ServiceName,
		version:     cfg.Version,
		commit:      cfg.Commit,
		port:        port,
		metricsPath: cfg.MetricsPath,
		logger:      logger,
		db:          cfg.DB,
		reporter:    reporter,
		stream:      NewReportStream(logger),
	}
}

// PublishReport replaces the served report and pushes it to stream clients.
// The server is ready once a report has been published.
func (s *Server) PublishReport(report *analytics.Report) {
	s.mu.Lock()
	s.report = report
	s.generatedAt = time.Now().UTC()
	s.lastError = nil
	s.mu.Unlock()

	s.stream.Broadcast(report)
}

// Stream returns the WebSocket hub fed by PublishReport.
func (s *Server) Stream() *ReportStream {
	return s.stream
}

// RecordRefreshError keeps the previous report and surfaces err on /ready.
func (s *Server) RecordRefreshError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastError = err
}

// Report returns the published report, or nil.
func (s *Server) Report() (*analytics.Report, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.report, s.generatedAt
}

// IsReady returns whether a report is available.
func (s *Server) IsReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.report != nil
}

// Handler returns the HTTP routes of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ready", s.handleReady)
	mux.HandleFunc("/live", s.handleLive)
	if s.metricsPath != "" {
		mux.Handle(s.metricsPath, metrics.Handler())
	}
	mux.HandleFunc("/api/v1/report", s.handleReport(analytics.SectionAll))
	mux.HandleFunc("/api/v1/report/daily", s.handleReport(analytics.SectionDaily))
	mux.HandleFunc("/api/v1/report/outcomes", s.handleReport(analytics.SectionOutcomes))
	mux.HandleFunc("/api/v1/report/excursions", s.handleReport(analytics.SectionExcursions))
	mux.HandleFunc("/api/v1/report/stream", s.handleStream)
	return mux
}

// Start starts the server in the background.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         ":" + s.port,
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		s.logger.WithFields(logrus.Fields{
			"port":    s.port,
			"service": s.serviceName,
		}).Info("Report server starting")

		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.WithError(err).Error("Report server error")
		}
	}()

	// Wait for context cancellation
	go func() {
		<-ctx.Done()
		_ = s.Shutdown()
	}()

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	if s.server == nil {
		return nil
	}

	s.logger.Info("Report server shutting down")
	s.stream.CloseAll()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

// handleHealth handles the /health endpoint - basic liveness check.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Service:   s.serviceName,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   s.version,
		Commit:    s.commit,
	})
}

// handleLive handles the /live endpoint - kubernetes liveness probe.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Service: s.serviceName,
	})
}

// handleReady handles the /ready endpoint - a report exists and the database answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	checks := make(map[string]string)
	allHealthy := true

	s.mu.RLock()
	hasReport, lastErr := s.report != nil, s.lastError
	s.mu.RUnlock()

	switch {
	case !hasReport:
		allHealthy = false
		checks["report"] = "not_ready"
	case lastErr != nil:
		checks["report"] = fmt.Sprintf("stale: %v", lastErr)
	default:
		checks["report"] = "ok"
	}

	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		if err := s.db.Ping(ctx); err != nil {
			allHealthy = false
			checks["database"] = fmt.Sprintf("error: %v", err)
		} else {
			checks["database"] = "ok"
		}
	}

	response := ReadyResponse{
		Service:  s.serviceName,
		Checks:   checks,
		Duration: time.Since(start).String(),
	}
	status := http.StatusOK
	response.Status = "ok"
	if !allHealthy {
		response.Status = "not_ready"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, response)
}

// handleReport serves one section of the report as JSON, or as CSV with
// ?format=csv.
func (s *Server) handleReport(section analytics.Section) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "method not allowed"})
			return
		}

		report, generatedAt := s.Report()
		if report == nil {
			writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "report not computed yet"})
			return
		}

		format := analytics.FormatJSON
		if f := r.URL.Query().Get("format"); f != "" {
			parsed, err := analytics.ParseFormat(f)
			if err != nil || parsed == analytics.FormatTable {
				writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("unsupported format %q", f)})
				return
			}
			format = parsed
		}
		if format == analytics.FormatCSV && section == analytics.SectionAll {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "csv needs a single section"})
			return
		}

		w.Header().Set("Last-Modified", generatedAt.Format(http.TimeFormat))
		w.Header().Set("X-Dataset-Id", report.DatasetID.String())
		if format == analytics.FormatCSV {
			w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		} else {
			w.Header().Set("Content-Type", "application/json")
		}
		w.WriteHeader(http.StatusOK)
		if err := s.reporter.Render(w, report, section, format); err != nil {
			s.logger.WithError(err).WithField("section", string(section)).Error("Failed to render report")
		}
	}
}

// handleStream upgrades to a WebSocket that receives the current report and
// every later one.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	report, _ := s.Report()
	s.stream.Serve(w, r, report)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

