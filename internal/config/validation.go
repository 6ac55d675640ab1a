// Package config provides configuration management for the lotto engine.
package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// CustomValidator wraps the validator with custom validation rules
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new validator with custom validation functions
func NewValidator() *CustomValidator {
	v := validator.New()

	// Register custom validation functions
	_ = v.RegisterValidation("environment", validateEnvironment)
	_ = v.RegisterValidation("loglevel", validateLogLevel)
	_ = v.RegisterValidation("windowtype", validateWindowType)
	_ = v.RegisterValidation("strategy", validateStrategyName)
	_ = v.RegisterValidation("drawsource", validateDrawSource)

	return &CustomValidator{validator: v}
}

// Validate validates the entire configuration
func Validate(cfg *Config) error {
	cv := NewValidator()
	return cv.Validate(cfg)
}

// Validate validates the configuration using registered validation rules
func (cv *CustomValidator) Validate(cfg *Config) error {
	err := cv.validator.Struct(cfg)
	if err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			return formatValidationErrors(validationErrors)
		}
		return fmt.Errorf("validation failed: %w", err)
	}

	// Additional cross-field validations
	if err := validateCrossField(cfg); err != nil {
		return err
	}

	return nil
}

// validateEnvironment validates the environment field
func validateEnvironment(fl validator.FieldLevel) bool {
	env := fl.Field().String()
	switch env {
	case "development", "staging", "production":
		return true
	default:
		return false
	}
}

// validateLogLevel validates the log level field
func validateLogLevel(fl validator.FieldLevel) bool {
	level := fl.Field().String()
	switch level {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

// validateWindowType validates the walk-forward window type. The expanding
// preset is shorthand for an anchored window advancing one round at a time.
func validateWindowType(fl validator.FieldLevel) bool {
	window := fl.Field().String()
	switch window {
	case "rolling", "anchored", "expanding":
		return true
	default:
		return false
	}
}

// validateStrategyName validates the configured strategy name
func validateStrategyName(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	switch name {
	case "frequency", "gap":
		return true
	default:
		return false
	}
}

// validateDrawSource validates the draw history source name
func validateDrawSource(fl validator.FieldLevel) bool {
	source := fl.Field().String()
	switch source {
	case "dhlottery", "csv":
		return true
	default:
		return false
	}
}

// validateCrossField performs cross-field validations
func validateCrossField(cfg *Config) error {
	// A minimum training length above the configured training size can
	// never be satisfied
	if cfg.Backtest.MinTrainSize > cfg.Backtest.TrainSize {
		return fmt.Errorf("backtest min_train_size cannot exceed train_size")
	}

	// The source selection dictates which connection fields are required
	switch cfg.DataSource.Source {
	case "dhlottery":
		if cfg.DataSource.APIURL == "" {
			return fmt.Errorf("datasource api_url is required for the dhlottery source")
		}
	case "csv":
		if cfg.DataSource.CSVPath == "" {
			return fmt.Errorf("datasource csv_path is required for the csv source")
		}
	}

	// A grid without an objective cannot be scored
	if cfg.HasOptimizerGrid() && cfg.Optimizer.Objective == "" {
		return fmt.Errorf("optimizer objective is required when a grid is configured")
	}
	for name, values := range cfg.Optimizer.Grid {
		if len(values) == 0 {
			return fmt.Errorf("optimizer grid parameter %q has no values", name)
		}
	}

	// A scheduler without a cron spec has nothing to run
	if cfg.Scheduler.Enabled && cfg.Scheduler.DrawSync == "" {
		return fmt.Errorf("scheduler draw_sync cron spec is required when the scheduler is enabled")
	}

	// Validate production environment requirements
	if cfg.IsProduction() {
		if cfg.App.LogLevel == "debug" {
			return fmt.Errorf("production environment should not run at debug log level")
		}
	}

	return nil
}

// formatValidationErrors formats validation errors into a readable string
func formatValidationErrors(validationErrors validator.ValidationErrors) error {
	var errMsg string
	for _, fieldError := range validationErrors {
		field := fieldError.StructField()
		tag := fieldError.Tag()
		value := fieldError.Value()

		switch tag {
		case "required":
			errMsg += fmt.Sprintf("- Field '%s' is required\n", field)
		case "url":
			errMsg += fmt.Sprintf("- Field '%s' must be a valid URL, got '%v'\n", field, value)
		case "min", "max":
			errMsg += fmt.Sprintf("- Field '%s' validation failed: %s constraint violated\n", field, tag)
		case "gt", "gte", "lt", "lte":
			errMsg += fmt.Sprintf("- Field '%s' validation failed: numeric constraint %s violated\n", field, tag)
		case "environment":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: development, staging, production\n", field)
		case "loglevel":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: debug, info, warn, error\n", field)
		case "windowtype":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: rolling, anchored, expanding\n", field)
		case "strategy":
			errMsg += fmt.Sprintf("- Field '%s' is not a known strategy name, got '%v'\n", field, value)
		case "drawsource":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: dhlottery, csv\n", field)
		default:
			errMsg += fmt.Sprintf("- Field '%s' failed validation: %s\n", field, tag)
		}
	}
	return fmt.Errorf("configuration validation failed:\n%s", errMsg)
}
