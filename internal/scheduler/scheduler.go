// Package scheduler reloads the dataset on a cron schedule and republishes the report.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/tradestats/internal/analytics"
	"github.com/yourusername/tradestats/internal/datasource"
	"github.com/yourusername/tradestats/internal/logger"
)

// Publisher receives refreshed reports
type Publisher interface {
	PublishReport(report *analytics.Report)
	RecordRefreshError(err error)
}

// RefreshJob loads the dataset, recomputes the report and publishes it
type RefreshJob struct {
	source    datasource.Source
	pipeline  *analytics.Pipeline
	publisher Publisher
	logger    *logger.AnalyticsLogger
	timeout   time.Duration
}

// NewRefreshJob creates a refresh job
func NewRefreshJob(source datasource.Source, pipeline *analytics.Pipeline, publisher Publisher,
	baseLogger *logrus.Logger, timeout time.Duration) *RefreshJob {
	if baseLogger == nil {
		baseLogger = logrus.New()
		baseLogger.SetLevel(logrus.PanicLevel)
	}
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &RefreshJob{
		source:    source,
		pipeline:  pipeline,
		publisher: publisher,
		logger:    logger.NewAnalyticsLogger(baseLogger),
		timeout:   timeout,
	}
}

// Run performs one refresh. On failure the previous report stays published.
func (j *RefreshJob) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	ds, err := datasource.LoadDataset(ctx, j.source, j.logger)
	if err != nil {
		j.publisher.RecordRefreshError(err)
		return fmt.Errorf("failed to load dataset: %w", err)
	}

	report, err := j.pipeline.Run(ds)
	if err != nil {
		j.publisher.RecordRefreshError(err)
		return fmt.Errorf("failed to compute report: %w", err)
	}

	j.publisher.PublishReport(report)
	return nil
}

// Scheduler manages scheduled refresh jobs
type Scheduler struct {
	cron            *cron.Cron
	logger          *logrus.Logger
	mu              sync.RWMutex
	isRunning       bool
	jobIDs          []cron.EntryID
	gracefulTimeout time.Duration
}

// NewScheduler creates a new scheduler evaluating schedules in loc
func NewScheduler(baseLogger *logrus.Logger, loc *time.Location) *Scheduler {
	if baseLogger == nil {
		baseLogger = logrus.New()
		baseLogger.SetLevel(logrus.PanicLevel)
	}
	if loc == nil {
		loc = time.UTC
	}
	cronLogger := cron.PrintfLogger(baseLogger.WithField("component", "scheduler"))
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		logger:          baseLogger,
		jobIDs:          make([]cron.EntryID, 0),
		gracefulTimeout: 30 * time.Second,
	}
}

// ScheduleRefresh runs job on the standard cron expression (descriptors such
// as "@every 5m" are accepted). Runs never overlap.
func (s *Scheduler) ScheduleRefresh(cronExpression string, job *RefreshJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot schedule job while scheduler is running")
	}

	entryID, err := s.cron.AddFunc(cronExpression, func() {
		start := time.Now()
		if err := job.Run(context.Background()); err != nil {
			s.logger.WithError(err).Error("Scheduled refresh failed")
			return
		}
		s.logger.WithField("duration_ms", time.Since(start).Milliseconds()).Info("Scheduled refresh completed")
	})
	if err != nil {
		return fmt.Errorf("failed to add job: %w", err)
	}

	s.jobIDs = append(s.jobIDs, entryID)
	s.logger.WithField("schedule", cronExpression).Info("Scheduled report refresh")
	return nil
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}
	if len(s.jobIDs) == 0 {
		return fmt.Errorf("no jobs scheduled")
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.WithField("jobs", len(s.jobIDs)).Info("Scheduler started")
	return nil
}

// Stop stops the scheduler and waits for running jobs up to the graceful timeout
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	ctx := s.cron.Stop()
	s.isRunning = false
	select {
	case <-ctx.Done():
		s.logger.Info("Scheduler stopped")
		return nil
	case <-time.After(s.gracefulTimeout):
		return fmt.Errorf("scheduler stop timed out after %s", s.gracefulTimeout)
	}
}

// IsRunning returns whether the scheduler is currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetNextRun returns the time of the next scheduled job run
func (s *Scheduler) GetNextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning || len(s.jobIDs) == 0 {
		return time.Time{}
	}

	nextRun := time.Time{}
	for _, jobID := range s.jobIDs {
		entry := s.cron.Entry(jobID)
		if entry.Valid() && (nextRun.IsZero() || entry.Next.Before(nextRun)) {
			nextRun = entry.Next
		}
	}
	return nextRun
}

// Entries returns information about scheduled entries
func (s *Scheduler) Entries() []cron.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]cron.Entry, 0, len(s.jobIDs))
	for _, jobID := range s.jobIDs {
		if entry := s.cron.Entry(jobID); entry.Valid() {
			entries = append(entries, entry)
		}
	}
	return entries
}
