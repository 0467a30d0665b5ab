package config

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"github.com/yourusername/tradestats/internal/models"
)

// CustomValidator wraps the validator with custom validation rules
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new validator with custom validation functions
func NewValidator() *CustomValidator {
	v := validator.New()

	// Registration only fails for empty tags or nil functions.
	_ = v.RegisterValidation("environment", validateEnvironment)
	_ = v.RegisterValidation("loglevel", validateLogLevel)
	_ = v.RegisterValidation("weekday", validateWeekday)
	_ = v.RegisterValidation("percentile", validatePercentile)

	return &CustomValidator{validator: v}
}

// Validate validates the entire configuration
func Validate(cfg *Config) error {
	cv := NewValidator()
	return cv.Validate(cfg)
}

// Validate validates the configuration using registered validation rules
func (cv *CustomValidator) Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("configuration is nil")
	}
	err := cv.validator.Struct(cfg)
	if err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return formatValidationErrors(validationErrors)
		}
		return fmt.Errorf("validation failed: %w", err)
	}

	// Additional cross-field validations
	return validateCrossField(cfg)
}

// validateEnvironment validates the environment field
func validateEnvironment(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "development", "staging", "production":
		return true
	default:
		return false
	}
}

// validateLogLevel validates the log level field
func validateLogLevel(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

// validateWeekday accepts full day names and three-letter codes
func validateWeekday(fl validator.FieldLevel) bool {
	_, err := models.ParseWeekday(fl.Field().String())
	return err == nil
}

// validatePercentile accepts quantile levels in [0,1]
func validatePercentile(fl validator.FieldLevel) bool {
	p := fl.Field().Float()
	return !math.IsNaN(p) && p >= 0 && p <= 1
}

// validateCrossField performs cross-field validations
func validateCrossField(cfg *Config) error {
	switch cfg.Input.Source {
	case SourceCSV, SourceXLSX:
		if strings.TrimSpace(cfg.Input.Path) == "" {
			return fmt.Errorf("input.path is required for %s input", cfg.Input.Source)
		}
	case SourceHTTP:
		if cfg.Input.URL == "" {
			return fmt.Errorf("input.url is required for http input")
		}
	case SourcePostgres:
		if strings.TrimSpace(cfg.Input.Query) == "" {
			return fmt.Errorf("input.query is required for postgres input")
		}
		if cfg.Database.Host == "" || cfg.Database.Name == "" || cfg.Database.User == "" {
			return fmt.Errorf("database host, name and user are required for postgres input")
		}
		if cfg.IsProduction() && cfg.Database.SSLMode == "disable" {
			return fmt.Errorf("production environment requires SSL mode to be 'require' or 'verify-full'")
		}
	}

	// Duplicate keys would produce ambiguous report rows
	if _, err := cfg.DailyWeekdays(); err != nil {
		return fmt.Errorf("report.daily_days: %w", err)
	}
	if _, err := cfg.OutcomeWeekdays(); err != nil {
		return fmt.Errorf("report.outcome_days: %w", err)
	}

	if cfg.Server.RefreshSchedule != "" {
		if _, err := cron.ParseStandard(cfg.Server.RefreshSchedule); err != nil {
			return fmt.Errorf("invalid server.refresh_schedule %q: %w", cfg.Server.RefreshSchedule, err)
		}
	}

	return nil
}

// formatValidationErrors formats validation errors into a readable string
func formatValidationErrors(validationErrors validator.ValidationErrors) error {
	var errMsg string
	for _, fieldError := range validationErrors {
		field := fieldError.Namespace()
		tag := fieldError.Tag()
		value := fieldError.Value()

		switch tag {
		case "required", "required_if":
			errMsg += fmt.Sprintf("- Field '%s' is required\n", field)
		case "url":
			errMsg += fmt.Sprintf("- Field '%s' must be a valid URL, got '%v'\n", field, value)
		case "min", "max":
			errMsg += fmt.Sprintf("- Field '%s' validation failed: %s constraint violated\n", field, tag)
		case "gt", "gte", "lt", "lte", "gtefield":
			errMsg += fmt.Sprintf("- Field '%s' validation failed: numeric constraint %s violated\n", field, tag)
		case "environment":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: development, staging, production\n", field)
		case "loglevel":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: debug, info, warn, error\n", field)
		case "weekday":
			errMsg += fmt.Sprintf("- Field '%s' must be a day name such as Monday or MON, got '%v'\n", field, value)
		case "percentile":
			errMsg += fmt.Sprintf("- Field '%s' must be between 0 and 1, got '%v'\n", field, value)
		case "timezone":
			errMsg += fmt.Sprintf("- Field '%s' must be an IANA time zone, got '%v'\n", field, value)
		case "oneof":
			errMsg += fmt.Sprintf("- Field '%s' has invalid value '%v'\n", field, value)
		default:
			errMsg += fmt.Sprintf("- Field '%s' failed validation: %s\n", field, tag)
		}
	}
	return fmt.Errorf("configuration validation failed:\n%s", errMsg)
}
