package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Session   SessionConfig   `yaml:"session" envconfig:"SESSION"`
	Pipeline  PipelineConfig  `yaml:"pipeline" envconfig:"PIPELINE"`
	Features  FeaturesConfig  `yaml:"features" envconfig:"FEATURES"`
	Forecast  ForecastConfig  `yaml:"forecast" envconfig:"FORECAST"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host" envconfig:"HOST"`
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS"`
	MaxUploadBytes int64           `yaml:"max_upload_bytes" envconfig:"MAX_UPLOAD_BYTES"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL"`
	Format      string `yaml:"format" envconfig:"FORMAT"`
	Output      string `yaml:"output" envconfig:"OUTPUT"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
}

// SessionConfig controls per-user analysis sessions
type SessionConfig struct {
	TTL             time.Duration `yaml:"ttl" envconfig:"TTL"`
	MaxSessions     int           `yaml:"max_sessions" envconfig:"MAX_SESSIONS"`
	MemoEntries     int           `yaml:"memo_entries" envconfig:"MEMO_ENTRIES"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" envconfig:"CLEANUP_INTERVAL"`
}

// PipelineConfig controls POS cleaning
type PipelineConfig struct {
	// AccountStores maps register account codes to store codes (west/east)
	AccountStores map[string]string `yaml:"account_stores" envconfig:"ACCOUNT_STORES"`
	// PaymentMethods restricts accepted payment methods; empty accepts every observed method
	PaymentMethods        []string `yaml:"payment_methods" envconfig:"PAYMENT_METHODS"`
	SkipIdenticalArchives bool     `yaml:"skip_identical_archives" envconfig:"SKIP_IDENTICAL_ARCHIVES"`
}

// FeaturesConfig controls calendar feature derivation
type FeaturesConfig struct {
	HolidayMarker     string         `yaml:"holiday_marker" envconfig:"HOLIDAY_MARKER"`
	ReplacedMarker    string         `yaml:"replaced_marker" envconfig:"REPLACED_MARKER"`
	LastWeek          int            `yaml:"last_week" envconfig:"LAST_WEEK"`
	LastWeekByTerm    map[string]int `yaml:"last_week_by_term" envconfig:"LAST_WEEK_BY_TERM"`
	AttendancePeriods []int          `yaml:"attendance_periods" envconfig:"ATTENDANCE_PERIODS"`
	// Continuations lists term pairs (FROM:TO) that keep the week anchor
	Continuations map[string]string `yaml:"continuations" envconfig:"CONTINUATIONS"`
}

// ForecastConfig controls model training
type ForecastConfig struct {
	ValidationRatio float64 `yaml:"validation_ratio" envconfig:"VALIDATION_RATIO"`
}

// TelemetryConfig controls OpenTelemetry exporters
type TelemetryConfig struct {
	ServiceName    string  `yaml:"service_name" envconfig:"SERVICE_NAME"`
	Environment    string  `yaml:"environment" envconfig:"ENVIRONMENT"`
	TraceExporter  string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER"`
	MetricExporter string  `yaml:"metric_exporter" envconfig:"METRIC_EXPORTER"`
	SampleRatio    float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO"`
}

// Load builds the configuration from defaults, an optional YAML file and
// POSCOPE_* environment variables, in that order of precedence.
func Load() (*Config, error) {
	cfg := Default()

	if configFile := getConfigFilePath(); configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays the YAML file onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Security.EnableCORS && len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified")
	}

	if c.Security.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload bytes must be positive")
	}

	if c.Session.TTL <= 0 {
		return fmt.Errorf("session ttl must be positive")
	}

	if len(c.Pipeline.AccountStores) == 0 {
		return fmt.Errorf("at least one account store mapping is required")
	}
	for account, store := range c.Pipeline.AccountStores {
		if store != "west" && store != "east" {
			return fmt.Errorf("account %s maps to unknown store %q", account, store)
		}
	}

	if c.Features.LastWeek < 1 {
		return fmt.Errorf("last week must be at least 1, got %d", c.Features.LastWeek)
	}
	for term, week := range c.Features.LastWeekByTerm {
		if week < 1 {
			return fmt.Errorf("last week for term %s must be at least 1, got %d", term, week)
		}
	}
	if len(c.Features.AttendancePeriods) == 0 {
		return fmt.Errorf("at least one attendance period is required")
	}

	if c.Forecast.ValidationRatio <= 0 || c.Forecast.ValidationRatio >= 1 {
		return fmt.Errorf("validation ratio must be within (0, 1), got %v", c.Forecast.ValidationRatio)
	}

	c.Logging.Level = strings.ToLower(c.Logging.Level)
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		c.Logging.Format = "json"
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if explicit := os.Getenv(EnvPrefix + "_CONFIG"); explicit != "" {
		return explicit
	}

	locations := []string{
		"config.yaml",
		"configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Addr returns the listen address of the HTTP server
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Accounts returns the configured account codes in stable order
func (c PipelineConfig) Accounts() []string {
	out := make([]string, 0, len(c.AccountStores))
	for k := range c.AccountStores {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            DefaultPort,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  DefaultRequestTimeout,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			MaxUploadBytes: DefaultMaxUploadBytes,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     DefaultRateLimit,
				Burst:   DefaultBurstSize,
			},
		},
		Logging: LoggingConfig{
			Level:       DefaultLogLevel,
			Format:      DefaultLogFormat,
			Output:      "console",
			FilePath:    "logs/poscope.log",
			Development: false,
		},
		Session: SessionConfig{
			TTL:             DefaultSessionTTL,
			MaxSessions:     DefaultMaxSessions,
			MemoEntries:     DefaultMemoEntries,
			CleanupInterval: time.Minute,
		},
		Pipeline: PipelineConfig{
			AccountStores: map[string]string{
				AccountWest: "west",
				AccountEast: "east",
			},
			SkipIdenticalArchives: true,
		},
		Features: FeaturesConfig{
			HolidayMarker:     DefaultHolidayMarker,
			ReplacedMarker:    DefaultReplacedMarker,
			LastWeek:          DefaultLastWeek,
			AttendancePeriods: []int{1, 2, 3},
			Continuations: map[string]string{
				"SPR": "SMR",
				"AUT": "WTR",
			},
		},
		Forecast: ForecastConfig{
			ValidationRatio: DefaultValidationRatio,
		},
		Telemetry: TelemetryConfig{
			ServiceName:    AppName,
			Environment:    "development",
			TraceExporter:  "none",
			MetricExporter: "prometheus",
			SampleRatio:    1.0,
		},
	}
}
