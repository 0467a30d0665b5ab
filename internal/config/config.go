// Package config provides configuration management for the tradestats application.
package config

import (
	"fmt"
	"time"

	"github.com/yourusername/tradestats/internal/models"
)

// Input source kinds
const (
	SourceCSV      = "csv"
	SourceXLSX     = "xlsx"
	SourceHTTP     = "http"
	SourcePostgres = "postgres"
)

// Config represents the complete application configuration
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Input      InputConfig      `mapstructure:"input"`
	Report     ReportConfig     `mapstructure:"report"`
	HTTPClient HTTPClientConfig `mapstructure:"http_client"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Server     ServerConfig     `mapstructure:"server"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Secrets    SecretsConfig    `mapstructure:"secrets"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// InputConfig describes where the trade dataset is read from
type InputConfig struct {
	Source    string        `mapstructure:"source" validate:"required,oneof=csv xlsx http postgres"`
	Path      string        `mapstructure:"path"`
	URL       string        `mapstructure:"url" validate:"omitempty,url"`
	Sheet     string        `mapstructure:"sheet"`
	Timezone  string        `mapstructure:"timezone" validate:"required,timezone"`
	Query     string        `mapstructure:"query"`
	AuthToken string        `mapstructure:"auth_token"`
	Columns   ColumnsConfig `mapstructure:"columns"`
}

// ColumnsConfig names the dataset columns
type ColumnsConfig struct {
	EntryTime string `mapstructure:"entry_time" validate:"required"`
	ProfitR   string `mapstructure:"profit_r" validate:"required"`
	MFER      string `mapstructure:"mfe_r"`
}

// ReportConfig holds the canonical key sets and display settings
type ReportConfig struct {
	DailyDays      []string  `mapstructure:"daily_days" validate:"required,min=1,max=7,dive,weekday"`
	OutcomeDays    []string  `mapstructure:"outcome_days" validate:"required,min=1,max=7,dive,weekday"`
	MFEPercentiles []float64 `mapstructure:"mfe_percentiles" validate:"dive,percentile"`
	Decimals       int32     `mapstructure:"decimals" validate:"gte=0,lte=8"`
	IncludeTrades  bool      `mapstructure:"include_trades"`
}

// HTTPClientConfig configures the HTTP dataset source
type HTTPClientConfig struct {
	TimeoutSeconds    int     `mapstructure:"timeout_seconds" validate:"omitempty,gt=0"`
	MaxRetries        int     `mapstructure:"max_retries" validate:"gte=0"`
	RetryWaitMinMs    int     `mapstructure:"retry_wait_min_ms" validate:"gte=0"`
	RetryWaitMaxMs    int     `mapstructure:"retry_wait_max_ms" validate:"omitempty,gtefield=RetryWaitMinMs"`
	RateLimit         float64 `mapstructure:"rate_limit" validate:"omitempty,gt=0"`
	CircuitBreakerMax int     `mapstructure:"circuit_breaker_max" validate:"omitempty,gt=0"`

	CircuitBreakerCooldownSeconds int `mapstructure:"circuit_breaker_cooldown_seconds" validate:"omitempty,gt=0"`
}

// DatabaseConfig represents database connection configuration
type DatabaseConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Name           string `mapstructure:"name"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	SSLMode        string `mapstructure:"ssl_mode" validate:"omitempty,oneof=disable require verify-full"`
	MaxConnections int    `mapstructure:"max_connections" validate:"omitempty,gt=0"`
}

// ServerConfig configures the report server started by serve
type ServerConfig struct {
	Port            int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	CacheTTLSeconds int    `mapstructure:"cache_ttl_seconds" validate:"gte=0"`
	RefreshSchedule string `mapstructure:"refresh_schedule"`
}

// MetricsConfig represents metrics configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path" validate:"omitempty,startswith=/"`
}

// SecretsConfig points at an optional AWS Secrets Manager secret
type SecretsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Region     string `mapstructure:"region" validate:"required_if=Enabled true"`
	SecretName string `mapstructure:"secret_name" validate:"required_if=Enabled true"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsStaging checks if the application is running in staging mode
func (c *Config) IsStaging() bool {
	return c.App.Environment == "staging"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseDSN returns a PostgreSQL DSN string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// Location returns the time zone used to derive entry weekdays.
func (c *Config) Location() (*time.Location, error) {
	if c.Input.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Input.Timezone)
}

// DailyWeekdays returns the canonical key set of the daily report.
func (c *Config) DailyWeekdays() ([]time.Weekday, error) {
	return models.ParseWeekdays(c.Report.DailyDays)
}

// OutcomeWeekdays returns the canonical key set of the outcome count report.
func (c *Config) OutcomeWeekdays() ([]time.Weekday, error) {
	return models.ParseWeekdays(c.Report.OutcomeDays)
}

// HTTPTimeout returns the HTTP source timeout.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPClient.TimeoutSeconds) * time.Second
}

// CacheTTL returns how long computed reports stay cached.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Server.CacheTTLSeconds) * time.Second
}
