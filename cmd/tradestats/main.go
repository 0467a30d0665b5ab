package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/tradestats/internal/analytics"
	"github.com/yourusername/tradestats/internal/config"
	"github.com/yourusername/tradestats/internal/logger"
	"github.com/yourusername/tradestats/internal/metrics"
	"github.com/yourusername/tradestats/internal/service"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// app holds state shared by the subcommands of one invocation
type app struct {
	configFile string
	envFile    string
	input      string
	source     string
	sheet      string
	format     string
	logLevel   string

	cfg    *config.Config
	logger *logrus.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "tradestats",
		Short: "R-multiple performance statistics for trade journals",
		Long: `Loads a trade journal (CSV, XLSX, HTTP or PostgreSQL), classifies each trade as
win, loss or breakeven and reports expectancy, win rate and outcome counts per
entry weekday, plus the MFE distribution of losing trades.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			if err := a.loadConfig(cmd.Context()); err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			a.logger = logger.NewLoggerWithOutput(a.cfg.App.LogLevel, a.cfg.App.Environment, cmd.ErrOrStderr())
			if a.cfg.Metrics.Enabled {
				metrics.InitRegistry()
			}
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&a.configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
	flags.StringVar(&a.envFile, "env-file", ".env", "Path to a .env file loaded before configuration")
	flags.StringVarP(&a.input, "input", "i", "", "Dataset path or URL (overrides input.path / input.url)")
	flags.StringVar(&a.source, "source", "", "Input source: csv, xlsx, http or postgres (overrides input.source)")
	flags.StringVar(&a.sheet, "sheet", "", "Worksheet name for xlsx input")
	flags.StringVarP(&a.format, "format", "f", string(analytics.FormatTable), "Output format: table, csv or json")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn or error")

	rootCmd.AddCommand(
		a.newSectionCmd(analytics.SectionDaily, "daily", "Daily R-multiple performance summary"),
		a.newSectionCmd(analytics.SectionOutcomes, "outcomes", "Trade counts and percentages by entry day and result"),
		a.newSectionCmd(analytics.SectionExcursions, "excursions", "MFE distribution of losing trades"),
		a.newReportCmd(),
		a.newServeCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

// loadConfig reads .env, the config file and flag overrides, then validates.
func (a *app) loadConfig(ctx context.Context) error {
	if a.envFile != "" {
		if err := godotenv.Load(a.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", a.envFile, err)
		}
	}

	cfg, err := config.LoadWithDefaults(a.configFile)
	if err != nil {
		return err
	}
	a.applyFlags(cfg)

	if err := config.LoadSecretsFromAWS(ctx, cfg); err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

func (a *app) applyFlags(cfg *config.Config) {
	if a.source != "" {
		cfg.Input.Source = a.source
	}
	if a.input != "" {
		if strings.HasPrefix(a.input, "http://") || strings.HasPrefix(a.input, "https://") {
			cfg.Input.URL = a.input
			if a.source == "" {
				cfg.Input.Source = config.SourceHTTP
			}
		} else {
			cfg.Input.Path = a.input
			if a.source == "" {
				cfg.Input.Source = sourceForPath(a.input, cfg.Input.Source)
			}
		}
	}
	if a.sheet != "" {
		cfg.Input.Sheet = a.sheet
	}
	if a.logLevel != "" {
		cfg.App.LogLevel = a.logLevel
	}
}

// sourceForPath picks the file source from the extension, keeping fallback
// for unknown extensions.
func sourceForPath(path, fallback string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return config.SourceXLSX
	case ".csv", ".txt":
		return config.SourceCSV
	}
	if fallback == config.SourceXLSX {
		return fallback
	}
	return config.SourceCSV
}

// newPipeline builds the normalizer and report pipeline from configuration.
func newPipeline(cfg *config.Config, log *logrus.Logger) (*analytics.Pipeline, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("invalid input.timezone: %w", err)
	}
	daily, err := cfg.DailyWeekdays()
	if err != nil {
		return nil, err
	}
	outcome, err := cfg.OutcomeWeekdays()
	if err != nil {
		return nil, err
	}

	normalizer := service.NewTradeNormalizer(service.NormalizerOptions{
		EntryTimeColumn: cfg.Input.Columns.EntryTime,
		ProfitColumn:    cfg.Input.Columns.ProfitR,
		MFEColumn:       cfg.Input.Columns.MFER,
		Location:        loc,
	}, log)

	opts := analytics.ReportOptions{
		DailyDays:            daily,
		OutcomeDays:          outcome,
		ExcursionPercentiles: cfg.Report.MFEPercentiles,
		IncludeTrades:        cfg.Report.IncludeTrades,
	}
	if len(opts.ExcursionPercentiles) == 0 {
		opts.ExcursionPercentiles = analytics.DefaultExcursionPercentiles
	}
	return analytics.NewPipeline(normalizer, opts, log), nil
}
