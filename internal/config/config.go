// ABOUTME: Configuration loading and parsing for comm-relay
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete comm-relay configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Relay    RelayConfig    `yaml:"relay"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr       string   `yaml:"http_addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"-"`

	TokenTTLRaw string `yaml:"token_ttl"`
}

// RelayConfig holds per-connection relay tuning
type RelayConfig struct {
	SendBuffer int `yaml:"send_buffer"`

	StoreTimeout time.Duration `yaml:"-"`
	ReadTimeout  time.Duration `yaml:"-"`
	WriteTimeout time.Duration `yaml:"-"`
	PingInterval time.Duration `yaml:"-"`

	// Raw string values for YAML unmarshaling
	StoreTimeoutRaw string `yaml:"store_timeout"`
	ReadTimeoutRaw  string `yaml:"read_timeout"`
	WriteTimeoutRaw string `yaml:"write_timeout"`
	PingIntervalRaw string `yaml:"ping_interval"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig holds metrics endpoint configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

func applyDefaults(cfg *Config) {
	if cfg.Auth.TokenTTL == 0 {
		cfg.Auth.TokenTTL = 24 * time.Hour
	}
	if cfg.Relay.SendBuffer == 0 {
		cfg.Relay.SendBuffer = 128
	}
	if cfg.Relay.StoreTimeout == 0 {
		cfg.Relay.StoreTimeout = 5 * time.Second
	}
	if cfg.Relay.ReadTimeout == 0 {
		cfg.Relay.ReadTimeout = 60 * time.Second
	}
	if cfg.Relay.WriteTimeout == 0 {
		cfg.Relay.WriteTimeout = 10 * time.Second
	}
	if cfg.Relay.PingInterval == 0 {
		cfg.Relay.PingInterval = 30 * time.Second
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if c.Relay.SendBuffer < 0 {
		return fmt.Errorf("relay.send_buffer must not be negative")
	}
	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Auth.TokenTTLRaw != "" {
		cfg.Auth.TokenTTL, err = time.ParseDuration(cfg.Auth.TokenTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing token_ttl %q: %w", cfg.Auth.TokenTTLRaw, err)
		}
	}

	if cfg.Relay.StoreTimeoutRaw != "" {
		cfg.Relay.StoreTimeout, err = time.ParseDuration(cfg.Relay.StoreTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing store_timeout %q: %w", cfg.Relay.StoreTimeoutRaw, err)
		}
	}

	if cfg.Relay.ReadTimeoutRaw != "" {
		cfg.Relay.ReadTimeout, err = time.ParseDuration(cfg.Relay.ReadTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing read_timeout %q: %w", cfg.Relay.ReadTimeoutRaw, err)
		}
	}

	if cfg.Relay.WriteTimeoutRaw != "" {
		cfg.Relay.WriteTimeout, err = time.ParseDuration(cfg.Relay.WriteTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing write_timeout %q: %w", cfg.Relay.WriteTimeoutRaw, err)
		}
	}

	if cfg.Relay.PingIntervalRaw != "" {
		cfg.Relay.PingInterval, err = time.ParseDuration(cfg.Relay.PingIntervalRaw)
		if err != nil {
			return fmt.Errorf("parsing ping_interval %q: %w", cfg.Relay.PingIntervalRaw, err)
		}
	}

	return nil
}
