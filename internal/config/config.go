// Package config provides configuration management for the F1 prediction pipeline.
package config

import (
	"fmt"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	App        AppConfig        `mapstructure:"app" validate:"required"`
	DataSource DataSourceConfig `mapstructure:"data_source" validate:"required"`
	Weather    WeatherConfig    `mapstructure:"weather"`
	Features   FeaturesConfig   `mapstructure:"features" validate:"required"`
	Models     ModelsConfig     `mapstructure:"models" validate:"required"`
	History    HistoryConfig    `mapstructure:"history" validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// DataSourceConfig configures the session data provider and its transport.
type DataSourceConfig struct {
	Name              string  `mapstructure:"name" validate:"required,oneof=openf1"`
	BaseURL           string  `mapstructure:"base_url" validate:"omitempty,url"`
	TimeoutSeconds    int     `mapstructure:"timeout_seconds" validate:"gte=0"`
	MaxRetries        int     `mapstructure:"max_retries" validate:"gte=0,lte=10"`
	RateLimit         float64 `mapstructure:"rate_limit" validate:"gte=0"`
	CircuitBreakerMax int     `mapstructure:"circuit_breaker_max" validate:"gte=0"`
	CacheTTLMinutes   int     `mapstructure:"cache_ttl_minutes" validate:"gte=0"`
}

// WeatherConfig configures the forecast provider used for upcoming sessions.
type WeatherConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BaseURL        string `mapstructure:"base_url" validate:"omitempty,url"`
	APIKey         string `mapstructure:"api_key"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" validate:"gte=0"`
}

// FeaturesConfig holds feature calculator windows and fallbacks.
type FeaturesConfig struct {
	RecentWindow              int     `mapstructure:"recent_window" validate:"required,gt=0"`
	ReliabilityWindow         int     `mapstructure:"reliability_window" validate:"required,gt=0"`
	MinStintLaps              int     `mapstructure:"min_stint_laps" validate:"required,gt=0"`
	QuickLapThreshold         float64 `mapstructure:"quick_lap_threshold" validate:"required,gt=1,lte=2"`
	DefaultTrackTemp          float64 `mapstructure:"default_track_temp"`
	DefaultOvertakeDifficulty int     `mapstructure:"default_overtake_difficulty" validate:"gte=1,lte=10"`
}

// ModelsConfig configures estimator training and storage.
type ModelsConfig struct {
	Dir            string  `mapstructure:"dir" validate:"required"`
	LearningRate   float64 `mapstructure:"learning_rate" validate:"required,gt=0"`
	Regularization float64 `mapstructure:"regularization" validate:"gte=0"`
	MaxIterations  int     `mapstructure:"max_iterations" validate:"required,gt=0"`
}

// HistoryConfig locates exported feature tables and the seasons used as
// inference history.
type HistoryConfig struct {
	FeatureDir string `mapstructure:"feature_dir" validate:"required"`
	Seasons    []int  `mapstructure:"seasons" validate:"seasons"`
}

// DatabaseConfig represents database connection configuration
type DatabaseConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Name           string `mapstructure:"name"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	SSLMode        string `mapstructure:"ssl_mode" validate:"omitempty,oneof=disable require verify-full"`
	MaxConnections int    `mapstructure:"max_connections" validate:"gte=0"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Path    string `mapstructure:"path"`
}

// SchedulerConfig configures the realtime prediction job.
type SchedulerConfig struct {
	Cron string `mapstructure:"cron"`
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

// Timeout returns the provider request timeout.
func (d DataSourceConfig) Timeout() time.Duration {
	return time.Duration(d.TimeoutSeconds) * time.Second
}

// CacheTTL returns the session cache lifetime.
func (d DataSourceConfig) CacheTTL() time.Duration {
	return time.Duration(d.CacheTTLMinutes) * time.Minute
}

// Timeout returns the forecast request timeout.
func (w WeatherConfig) Timeout() time.Duration {
	return time.Duration(w.TimeoutSeconds) * time.Second
}
