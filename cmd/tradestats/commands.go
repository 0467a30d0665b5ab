package main

import (
	"context"
	"fmt"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yourusername/tradestats/internal/analytics"
	"github.com/yourusername/tradestats/internal/cache"
	"github.com/yourusername/tradestats/internal/datasource"
	"github.com/yourusername/tradestats/internal/health"
	"github.com/yourusername/tradestats/internal/logger"
	"github.com/yourusername/tradestats/internal/scheduler"
)

const reportCacheSize = 16

func (a *app) newSectionCmd(section analytics.Section, use, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := analytics.ParseFormat(a.format)
			if err != nil {
				return err
			}
			report, err := a.buildReport(cmd.Context())
			if err != nil {
				return err
			}
			return analytics.NewReporter(a.cfg.Report.Decimals).Render(cmd.OutOrStdout(), report, section, format)
		},
	}
}

func (a *app) newReportCmd() *cobra.Command {
	var workbook string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render every summary, optionally exporting an Excel workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := analytics.ParseFormat(a.format)
			if err != nil {
				return err
			}
			if format == analytics.FormatCSV {
				return fmt.Errorf("csv output needs a single table; use daily, outcomes or excursions")
			}
			report, err := a.buildReport(cmd.Context())
			if err != nil {
				return err
			}

			reporter := analytics.NewReporter(a.cfg.Report.Decimals)
			if err := reporter.Render(cmd.OutOrStdout(), report, analytics.SectionAll, format); err != nil {
				return err
			}
			if workbook != "" {
				if err := reporter.WriteWorkbook(report, workbook); err != nil {
					return fmt.Errorf("failed to write workbook: %w", err)
				}
				a.logger.WithField("path", workbook).Info("Workbook written")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&workbook, "xlsx", "", "Also write the report to this Excel workbook")
	return cmd
}

// buildReport loads the configured dataset and runs the pipeline once.
func (a *app) buildReport(ctx context.Context) (*analytics.Report, error) {
	pipeline, err := newPipeline(a.cfg, a.logger)
	if err != nil {
		return nil, err
	}

	src, err := datasource.NewFactory(a.cfg, a.logger).Create(ctx)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	ds, err := datasource.LoadDataset(ctx, src, logger.NewAnalyticsLogger(a.logger))
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset: %w", err)
	}
	return pipeline.Run(ds)
}

func (a *app) newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the latest report over HTTP and refresh it on a schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	cfg := a.cfg
	pipeline, err := newPipeline(cfg, a.logger)
	if err != nil {
		return err
	}
	pipeline.WithCache(cache.NewReportCache[*analytics.Report](cfg.CacheTTL(), reportCacheSize))

	src, err := datasource.NewFactory(cfg, a.logger).Create(ctx)
	if err != nil {
		return err
	}
	defer src.Close()

	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	server := health.NewServer(health.Config{
		ServiceName: cfg.App.Name,
		Version:     Version,
		Commit:      GitCommit,
		Port:        strconv.Itoa(cfg.Server.Port),
		MetricsPath: metricsPath,
		Logger:      a.logger,
		Reporter:    analytics.NewReporter(cfg.Report.Decimals),
	})
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	job := scheduler.NewRefreshJob(src, pipeline, server, a.logger, time.Minute)
	if err := job.Run(ctx); err != nil {
		a.logger.WithError(err).Error("Initial report refresh failed")
	}

	if cfg.Server.RefreshSchedule != "" {
		loc, err := cfg.Location()
		if err != nil {
			return err
		}
		sched := scheduler.NewScheduler(a.logger, loc)
		if err := sched.ScheduleRefresh(cfg.Server.RefreshSchedule, job); err != nil {
			return err
		}
		if err := sched.Start(); err != nil {
			return err
		}
		defer func() {
			if err := sched.Stop(); err != nil {
				a.logger.WithError(err).Warn("Scheduler stop timed out")
			}
		}()
	}

	<-ctx.Done()
	a.logger.Info("Shutting down")
	return server.Shutdown()
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "tradestats %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
		},
	}
}
