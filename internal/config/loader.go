package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const (
	// EnvPrefix prefixes environment overrides, e.g. TRADESTATS_INPUT_PATH.
	EnvPrefix = "TRADESTATS"

	defaultConfigPath = "config/config.yaml"
)

// newViper returns a viper instance bound to TRADESTATS_* environment variables
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")

	// Set environment variable prefix
	v.SetEnvPrefix(EnvPrefix)

	// Enable automatic binding of environment variables
	v.AutomaticEnv()

	// Replace dots with underscores in environment variable names
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

// readExpanded reads a YAML file and expands ${VAR} placeholders
func readExpanded(v *viper.Viper, data []byte) error {
	expanded := os.ExpandEnv(string(data))
	if err := v.ReadConfig(bytes.NewBufferString(expanded)); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// Load reads and parses the configuration from file and environment variables
// It expands environment variable placeholders in the YAML file (${VAR_NAME})
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = defaultConfigPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found at %s: %w", configPath, err)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v := newViper()
	if err := readExpanded(v, data); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	return cfg, nil
}

// LoadWithDefaults loads configuration with default values for optional fields.
// A missing file is not an error: defaults and environment variables apply.
func LoadWithDefaults(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = defaultConfigPath
	}

	v := newViper()
	setDefaults(v)

	if data, err := os.ReadFile(configPath); err == nil {
		if err := readExpanded(v, data); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	return cfg, nil
}

// setDefaults registers every key so that environment overrides also work
// for keys absent from the file.
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "tradestats")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("input.source", SourceCSV)
	v.SetDefault("input.path", "")
	v.SetDefault("input.url", "")
	v.SetDefault("input.sheet", "")
	v.SetDefault("input.timezone", "UTC")
	v.SetDefault("input.query", "")
	v.SetDefault("input.auth_token", "")
	v.SetDefault("input.columns.entry_time", "Entry Time")
	v.SetDefault("input.columns.profit_r", "Profit(R)")
	v.SetDefault("input.columns.mfe_r", "MFE(R)")

	v.SetDefault("report.daily_days", []string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"})
	v.SetDefault("report.outcome_days", []string{"SUN", "MON", "TUE", "WED", "THU", "FRI"})
	v.SetDefault("report.mfe_percentiles", []float64{0.5, 0.7})
	v.SetDefault("report.decimals", 2)
	v.SetDefault("report.include_trades", false)

	v.SetDefault("http_client.timeout_seconds", 30)
	v.SetDefault("http_client.max_retries", 3)
	v.SetDefault("http_client.retry_wait_min_ms", 100)
	v.SetDefault("http_client.retry_wait_max_ms", 5000)
	v.SetDefault("http_client.rate_limit", 5.0)
	v.SetDefault("http_client.circuit_breaker_max", 5)
	v.SetDefault("http_client.circuit_breaker_cooldown_seconds", 60)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "")
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_connections", 4)

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cache_ttl_seconds", 300)
	v.SetDefault("server.refresh_schedule", "@every 5m")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("secrets.enabled", false)
	v.SetDefault("secrets.region", "")
	v.SetDefault("secrets.secret_name", "")
}

// ReloadFromEnv reloads the configuration from TRADESTATS_CONFIG_PATH when set
func ReloadFromEnv(cfg *Config) error {
	if envPath := os.Getenv(EnvPrefix + "_CONFIG_PATH"); envPath != "" {
		newCfg, err := LoadWithDefaults(envPath)
		if err != nil {
			return err
		}
		*cfg = *newCfg
	}
	return nil
}
