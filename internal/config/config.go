package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// envPrefix is the prefix for all environment variables.
const envPrefix = "LIGAPROXY"

// Config represents the complete application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Security SecurityConfig `yaml:"security" envconfig:"SECURITY"`
	Tracing  TracingConfig  `yaml:"tracing" envconfig:"TRACING"`
	Provider ProviderConfig `yaml:"provider" envconfig:"PROVIDER"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Host            string        `yaml:"host" envconfig:"HOST" default:"0.0.0.0"`
	Port            int           `yaml:"port" envconfig:"PORT" default:"8000"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT" default:"5m"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/ligaproxy.log"`
}

// SecurityConfig contains security-related configuration.
type SecurityConfig struct {
	RateLimit RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig configures inbound request rate limiting.
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"100"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"50"`
}

// TracingConfig controls the OpenTelemetry tracer provider.
type TracingConfig struct {
	Enabled bool `yaml:"enabled" envconfig:"ENABLED" default:"false"`
}

// ProviderConfig contains the upstream provider settings: which provider to
// use, its outbound rate limit, and the retry/backoff policy applied to
// every upstream call.
type ProviderConfig struct {
	Name              string        `yaml:"name" envconfig:"NAME" default:"openliga"`
	BaseURL           string        `yaml:"base_url" envconfig:"BASE_URL" default:"https://api.openligadb.de"`
	RateLimitRequests int           `yaml:"rate_limit_requests" envconfig:"RATE_LIMIT_REQUESTS" default:"10"`
	RateLimitWindow   time.Duration `yaml:"rate_limit_window" envconfig:"RATE_LIMIT_WINDOW" default:"60s"`
	MaxRetries        int           `yaml:"max_retries" envconfig:"MAX_RETRIES" default:"3"`
	BaseDelay         time.Duration `yaml:"base_delay" envconfig:"BASE_DELAY" default:"1s"`
	MaxDelay          time.Duration `yaml:"max_delay" envconfig:"MAX_DELAY" default:"30s"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier" envconfig:"BACKOFF_MULTIPLIER" default:"2.0"`
	JitterRange       float64       `yaml:"jitter_range" envconfig:"JITTER_RANGE" default:"0.1"`
	RequestTimeout    time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT" default:"10s"`
}

// Load loads configuration from environment variables and an optional YAML
// config file. Environment variables take precedence over file values; file
// values take precedence over built-in defaults. A field left at its zero
// value in the file is treated as absent.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	configFile := getConfigFilePath()
	if _, err := os.Stat(configFile); err == nil {
		fileCfg, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		mergeFileConfig(&cfg, fileCfg)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// getConfigFilePath returns the config file path, honoring the
// LIGAPROXY_CONFIG_FILE override.
func getConfigFilePath() string {
	if path := os.Getenv(envPrefix + "_CONFIG_FILE"); path != "" {
		return path
	}
	return "config.yaml"
}

// envSet reports whether the environment variable for the given suffix was
// explicitly provided.
func envSet(suffix string) bool {
	_, ok := os.LookupEnv(envPrefix + "_" + suffix)
	return ok
}

// mergeFileConfig copies non-zero file values into cfg for every field whose
// environment variable was not explicitly set.
func mergeFileConfig(cfg, file *Config) {
	mergeString(&cfg.Server.Host, file.Server.Host, "SERVER_HOST")
	mergeInt(&cfg.Server.Port, file.Server.Port, "SERVER_PORT")
	mergeDuration(&cfg.Server.ReadTimeout, file.Server.ReadTimeout, "SERVER_READ_TIMEOUT")
	mergeDuration(&cfg.Server.WriteTimeout, file.Server.WriteTimeout, "SERVER_WRITE_TIMEOUT")
	mergeDuration(&cfg.Server.IdleTimeout, file.Server.IdleTimeout, "SERVER_IDLE_TIMEOUT")
	mergeDuration(&cfg.Server.RequestTimeout, file.Server.RequestTimeout, "SERVER_REQUEST_TIMEOUT")
	mergeDuration(&cfg.Server.ShutdownTimeout, file.Server.ShutdownTimeout, "SERVER_SHUTDOWN_TIMEOUT")

	mergeString(&cfg.Logging.Level, file.Logging.Level, "LOGGING_LEVEL")
	mergeString(&cfg.Logging.Output, file.Logging.Output, "LOGGING_OUTPUT")
	mergeString(&cfg.Logging.FilePath, file.Logging.FilePath, "LOGGING_FILE_PATH")

	mergeFloat(&cfg.Security.RateLimit.RPS, file.Security.RateLimit.RPS, "SECURITY_RATE_LIMIT_RPS")
	mergeInt(&cfg.Security.RateLimit.Burst, file.Security.RateLimit.Burst, "SECURITY_RATE_LIMIT_BURST")

	mergeString(&cfg.Provider.Name, file.Provider.Name, "PROVIDER_NAME")
	mergeString(&cfg.Provider.BaseURL, file.Provider.BaseURL, "PROVIDER_BASE_URL")
	mergeInt(&cfg.Provider.RateLimitRequests, file.Provider.RateLimitRequests, "PROVIDER_RATE_LIMIT_REQUESTS")
	mergeDuration(&cfg.Provider.RateLimitWindow, file.Provider.RateLimitWindow, "PROVIDER_RATE_LIMIT_WINDOW")
	mergeInt(&cfg.Provider.MaxRetries, file.Provider.MaxRetries, "PROVIDER_MAX_RETRIES")
	mergeDuration(&cfg.Provider.BaseDelay, file.Provider.BaseDelay, "PROVIDER_BASE_DELAY")
	mergeDuration(&cfg.Provider.MaxDelay, file.Provider.MaxDelay, "PROVIDER_MAX_DELAY")
	mergeFloat(&cfg.Provider.BackoffMultiplier, file.Provider.BackoffMultiplier, "PROVIDER_BACKOFF_MULTIPLIER")
	mergeFloat(&cfg.Provider.JitterRange, file.Provider.JitterRange, "PROVIDER_JITTER_RANGE")
	mergeDuration(&cfg.Provider.RequestTimeout, file.Provider.RequestTimeout, "PROVIDER_REQUEST_TIMEOUT")
}

func mergeString(dst *string, fileVal, suffix string) {
	if fileVal != "" && !envSet(suffix) {
		*dst = fileVal
	}
}

func mergeInt(dst *int, fileVal int, suffix string) {
	if fileVal != 0 && !envSet(suffix) {
		*dst = fileVal
	}
}

func mergeFloat(dst *float64, fileVal float64, suffix string) {
	if fileVal != 0 && !envSet(suffix) {
		*dst = fileVal
	}
}

func mergeDuration(dst *time.Duration, fileVal time.Duration, suffix string) {
	if fileVal != 0 && !envSet(suffix) {
		*dst = fileVal
	}
}

// validate checks the configuration for invalid values.
func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	p := c.Provider
	if p.Name == "" {
		return fmt.Errorf("provider name must not be empty")
	}
	if p.BaseURL == "" {
		return fmt.Errorf("provider base URL must not be empty")
	}
	if p.RateLimitRequests < 1 {
		return fmt.Errorf("rate_limit_requests must be at least 1, got %d", p.RateLimitRequests)
	}
	if p.RateLimitWindow <= 0 {
		return fmt.Errorf("rate_limit_window must be positive, got %s", p.RateLimitWindow)
	}
	if p.MaxRetries < 0 {
		return fmt.Errorf("max_retries must not be negative, got %d", p.MaxRetries)
	}
	if p.BaseDelay <= 0 {
		return fmt.Errorf("base_delay must be positive, got %s", p.BaseDelay)
	}
	if p.MaxDelay < p.BaseDelay {
		return fmt.Errorf("max_delay %s must not be below base_delay %s", p.MaxDelay, p.BaseDelay)
	}
	if p.BackoffMultiplier < 1 {
		return fmt.Errorf("backoff_multiplier must be at least 1, got %v", p.BackoffMultiplier)
	}
	if p.JitterRange < 0 || p.JitterRange >= 1 {
		return fmt.Errorf("jitter_range must be in [0,1), got %v", p.JitterRange)
	}
	if p.RequestTimeout <= 0 {
		return fmt.Errorf("provider request_timeout must be positive, got %s", p.RequestTimeout)
	}

	return nil
}

// Addr returns the host:port the HTTP server should listen on.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
