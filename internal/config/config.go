// Package config provides configuration management for the lotto engine.
package config

// Config represents the complete application configuration
type Config struct {
	App        AppConfig        `mapstructure:"app" validate:"required"`
	DataSource DataSourceConfig `mapstructure:"datasource" validate:"required"`
	Backtest   BacktestConfig   `mapstructure:"backtest" validate:"required"`
	Optimizer  OptimizerConfig  `mapstructure:"optimizer"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Metrics    MetricsConfig    `mapstructure:"metrics" validate:"required"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// DataSourceConfig represents draw history source configuration
type DataSourceConfig struct {
	Source            string  `mapstructure:"source" validate:"required,drawsource"`
	APIURL            string  `mapstructure:"api_url" validate:"omitempty,url"`
	CSVPath           string  `mapstructure:"csv_path"`
	TimeoutSeconds    int     `mapstructure:"timeout_seconds" validate:"required,gt=0"`
	RetryAttempts     int     `mapstructure:"retry_attempts" validate:"gte=0"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" validate:"required,gt=0"`
	CacheTTLSeconds   int     `mapstructure:"cache_ttl_seconds" validate:"required,gt=0"`
}

// BacktestConfig represents walk-forward evaluation configuration
type BacktestConfig struct {
	TrainSize         int            `mapstructure:"train_size" validate:"required,gt=0"`
	TestSize          int            `mapstructure:"test_size" validate:"required,gt=0"`
	StepSize          int            `mapstructure:"step_size" validate:"required,gt=0"`
	MinTrainSize      int            `mapstructure:"min_train_size" validate:"gte=0"`
	WindowType        string         `mapstructure:"window_type" validate:"required,windowtype"`
	TopN              int            `mapstructure:"top_n" validate:"omitempty,gt=0,lte=45"`
	HitRateKs         []int          `mapstructure:"hit_rate_ks" validate:"omitempty,dive,gt=0,lte=6"`
	DrawdownThreshold int            `mapstructure:"drawdown_threshold" validate:"gte=0"`
	Workers           int            `mapstructure:"workers" validate:"gte=0"`
	OutputPath        string         `mapstructure:"output_path" validate:"required"`
	Strategy          StrategyConfig `mapstructure:"strategy" validate:"required"`
}

// StrategyConfig selects the ranking strategy and its parameters
type StrategyConfig struct {
	Name   string                 `mapstructure:"name" validate:"required,strategy"`
	Params map[string]interface{} `mapstructure:"params"`
}

// OptimizerConfig represents grid search configuration. The section is
// optional: it only has to be filled in for optimization runs.
type OptimizerConfig struct {
	Objective string                   `mapstructure:"objective"`
	Minimize  bool                     `mapstructure:"minimize"`
	Workers   int                      `mapstructure:"workers" validate:"gte=0"`
	Grid      map[string][]interface{} `mapstructure:"grid"`
}

// SchedulerConfig represents draw synchronization scheduling
type SchedulerConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	DrawSync string `mapstructure:"draw_sync"`
	Timezone string `mapstructure:"timezone"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Path    string `mapstructure:"path" validate:"required"`
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

// HasOptimizerGrid reports whether an optimization grid was configured
func (c *Config) HasOptimizerGrid() bool {
	return len(c.Optimizer.Grid) > 0
}
