package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Hevy      HevyConfig      `yaml:"hevy"`
	Training  TrainingConfig  `yaml:"training"`
	Cache     CacheConfig     `yaml:"cache"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Logging   LoggingConfig   `yaml:"logging"`
	Tracing   TracingConfig   `yaml:"tracing"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
}

type ServerConfig struct {
	Host        string   `yaml:"host"`
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

type HevyConfig struct {
	APIKey            string  `yaml:"api_key"`
	BaseURL           string  `yaml:"base_url"`
	PageSize          int     `yaml:"page_size"`
	TimeoutSeconds    int     `yaml:"timeout_seconds"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// Training source values.
const (
	SourceAuto  = "auto"
	SourceHevy  = "hevy"
	SourceLocal = "local"
)

type TrainingConfig struct {
	// Source selects where sessions come from: hevy, local (imported
	// Alpha Progression data) or auto (hevy when a key is set).
	Source      string `yaml:"source"`
	DefaultDays int    `yaml:"default_days"`
	MaxDays     int    `yaml:"max_days"`
}

type CacheConfig struct {
	TTLSeconds   int         `yaml:"ttl_seconds"`
	SnapshotPath string      `yaml:"snapshot_path"`
	Redis        RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	TTLHours int    `yaml:"ttl_hours"`
}

// AnalyticsConfig overrides engine coefficients. Zero values keep the
// engine defaults.
type AnalyticsConfig struct {
	DefaultSessionMinutes int     `yaml:"default_session_minutes"`
	MatchRadiusMinutes    int     `yaml:"match_radius_minutes"`
	ExactMinutes          int     `yaml:"exact_minutes"`
	CloseMinutes          int     `yaml:"close_minutes"`
	MaxHeartRate          float64 `yaml:"max_heart_rate"`
	EffortRPEWeight       float64 `yaml:"effort_rpe_weight"`
	EffortHRWeight        float64 `yaml:"effort_hr_weight"`
	EffortFailureWeight   float64 `yaml:"effort_failure_weight"`
	SmoothingAlpha        float64 `yaml:"smoothing_alpha"`
	SlopeWindow           int     `yaml:"slope_window"`
	TrendEpsilon          float64 `yaml:"trend_epsilon"`
	ForecastHorizon       int     `yaml:"forecast_horizon"`
	TargetSessionsPerWeek float64 `yaml:"target_sessions_per_week"`
}

type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// TTL returns the cache freshness window.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// Timeout returns the per-request Hevy timeout.
func (h HevyConfig) Timeout() time.Duration {
	return time.Duration(h.TimeoutSeconds) * time.Second
}

// UseHevy reports whether sessions should be fetched from Hevy.
func (c *Config) UseHevy() bool {
	switch c.Training.Source {
	case SourceHevy:
		return true
	case SourceLocal:
		return false
	default:
		return c.Hevy.APIKey != ""
	}
}

// Load reads config from a YAML file, then applies environment variable overrides.
// Env vars use the prefix FITFUSION_ and underscore-separated paths:
//
//	FITFUSION_SERVER_HOST, FITFUSION_SERVER_PORT,
//	FITFUSION_DB_HOST, FITFUSION_DB_PORT, FITFUSION_DB_NAME,
//	FITFUSION_DB_USER, FITFUSION_DB_PASSWORD, FITFUSION_DB_SSLMODE,
//	FITFUSION_AUTH_API_KEY,
//	FITFUSION_HEVY_API_KEY (or HEVY_API_KEY), FITFUSION_HEVY_BASE_URL,
//	FITFUSION_TRAINING_SOURCE,
//	FITFUSION_CACHE_TTL_SECONDS, FITFUSION_CACHE_SNAPSHOT_PATH,
//	FITFUSION_REDIS_ADDR, FITFUSION_REDIS_PASSWORD,
//	FITFUSION_LOG_LEVEL, FITFUSION_LOG_FORMAT, FITFUSION_LOG_FILE,
//	FITFUSION_TRACING_ENABLED, FITFUSION_TAILSCALE_ENABLED
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	setString := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := os.Getenv(k); v != "" {
				*dst = v
				return
			}
		}
	}
	setInt := func(dst *int, key string) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	setBool := func(dst *bool, key string) {
		if v := os.Getenv(key); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}

	setString(&cfg.Server.Host, "FITFUSION_SERVER_HOST")
	setInt(&cfg.Server.Port, "FITFUSION_SERVER_PORT")
	setString(&cfg.Database.Host, "FITFUSION_DB_HOST")
	setInt(&cfg.Database.Port, "FITFUSION_DB_PORT")
	setString(&cfg.Database.Name, "FITFUSION_DB_NAME")
	setString(&cfg.Database.User, "FITFUSION_DB_USER")
	setString(&cfg.Database.Password, "FITFUSION_DB_PASSWORD")
	setString(&cfg.Database.SSLMode, "FITFUSION_DB_SSLMODE")
	setString(&cfg.Auth.APIKey, "FITFUSION_AUTH_API_KEY")
	setString(&cfg.Hevy.APIKey, "FITFUSION_HEVY_API_KEY", "HEVY_API_KEY")
	setString(&cfg.Hevy.BaseURL, "FITFUSION_HEVY_BASE_URL")
	setString(&cfg.Training.Source, "FITFUSION_TRAINING_SOURCE")
	setInt(&cfg.Cache.TTLSeconds, "FITFUSION_CACHE_TTL_SECONDS")
	setString(&cfg.Cache.SnapshotPath, "FITFUSION_CACHE_SNAPSHOT_PATH")
	setString(&cfg.Cache.Redis.Addr, "FITFUSION_REDIS_ADDR")
	setString(&cfg.Cache.Redis.Password, "FITFUSION_REDIS_PASSWORD")
	setString(&cfg.Logging.Level, "FITFUSION_LOG_LEVEL")
	setString(&cfg.Logging.Format, "FITFUSION_LOG_FORMAT")
	setString(&cfg.Logging.File, "FITFUSION_LOG_FILE")
	setBool(&cfg.Tracing.Enabled, "FITFUSION_TRACING_ENABLED")
	setBool(&cfg.Tailscale.Enabled, "FITFUSION_TAILSCALE_ENABLED")
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Training.Source == "" {
		cfg.Training.Source = SourceAuto
	}
	cfg.Training.Source = strings.ToLower(cfg.Training.Source)
	if cfg.Training.DefaultDays == 0 {
		cfg.Training.DefaultDays = 90
	}
	if cfg.Training.MaxDays == 0 {
		cfg.Training.MaxDays = 3650
	}
	if cfg.Hevy.PageSize == 0 {
		cfg.Hevy.PageSize = 50
	}
	if cfg.Hevy.TimeoutSeconds == 0 {
		cfg.Hevy.TimeoutSeconds = 10
	}
	if cfg.Cache.TTLSeconds == 0 {
		cfg.Cache.TTLSeconds = 60
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Tailscale.Hostname == "" {
		cfg.Tailscale.Hostname = "fitfusion"
	}
}

func (c *Config) validate() error {
	if c.Server.Port == 0 {
		return fmt.Errorf("server.port is required")
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.Port == 0 {
		return fmt.Errorf("database.port is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database.name is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database.user is required")
	}
	if c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key is required")
	}
	switch c.Training.Source {
	case SourceAuto, SourceHevy, SourceLocal:
	default:
		return fmt.Errorf("training.source must be auto, hevy or local, got %q", c.Training.Source)
	}
	if c.Training.Source == SourceHevy && c.Hevy.APIKey == "" {
		return fmt.Errorf("hevy.api_key is required when training.source is hevy")
	}
	if c.Training.DefaultDays < 1 || c.Training.DefaultDays > c.Training.MaxDays {
		return fmt.Errorf("training.default_days must be between 1 and %d", c.Training.MaxDays)
	}
	if c.Cache.TTLSeconds < 0 {
		return fmt.Errorf("cache.ttl_seconds must not be negative")
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("tracing.sample_ratio must be within [0, 1]")
	}
	if c.Tailscale.Enabled && c.Tailscale.StateDir == "" {
		return fmt.Errorf("tailscale.state_dir is required when tailscale is enabled")
	}
	return nil
}
