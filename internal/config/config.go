// Package config provides configuration management for miraview using Viper.
// It supports configuration from files, environment variables, and defaults.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variable overrides.
const EnvPrefix = "MIRAVIEW"

// Default configuration values.
const (
	defaultServerPort      = 8080
	defaultServerTimeout   = 30 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultMirakcURI       = "http://localhost:40772"
	defaultStreamProtocol  = "vlc"
	defaultMirakcTimeout   = 60 * time.Second
	defaultRetryAttempts   = 3
	defaultMaxResponseSize = 256 * 1024 * 1024
	defaultMaxOpenConns    = 10
	defaultMaxIdleConns    = 5
	defaultRefreshCron     = "0 */30 * * * *"
	defaultLogMaxSizeMB    = 50
	defaultLogMaxBackups   = 3
	defaultLogMaxAgeDays   = 28
)

// streamProtocolPattern restricts stream protocols to URL-scheme characters.
// An empty protocol disables stream links.
var streamProtocolPattern = regexp.MustCompile(`^[a-zA-Z0-9.+_-]*$`)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Mirakc   MirakcConfig   `mapstructure:"mirakc"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Refresh  RefreshConfig  `mapstructure:"refresh"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

// MirakcConfig holds the tuner backend connection settings.
type MirakcConfig struct {
	URI             string        `mapstructure:"uri"`
	StreamProtocol  string        `mapstructure:"stream_protocol"` // scheme used for stream links, e.g. vlc
	Timeout         time.Duration `mapstructure:"timeout"`
	RetryAttempts   int           `mapstructure:"retry_attempts"`
	MaxResponseSize int64         `mapstructure:"max_response_size"`
}

// DatabaseConfig holds the snapshot store connection configuration.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // sqlite, postgres, mysql
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	LogLevel        string        `mapstructure:"log_level"` // silent, error, warn, info
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Format     string `mapstructure:"format"` // json, text
	AddSource  bool   `mapstructure:"add_source"`
	TimeFormat string `mapstructure:"time_format"`

	// File enables a rotated log file in addition to stderr.
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// RefreshConfig controls how often programs are re-fetched from mirakc.
type RefreshConfig struct {
	Cron    string `mapstructure:"cron"` // 6-field cron expression, empty disables
	OnStart bool   `mapstructure:"on_start"`
}

// Load reads configuration from file and environment variables.
// Environment variables take precedence over file configuration.
// Environment variables are prefixed with MIRAVIEW_ and use underscores for nesting.
// Example: MIRAVIEW_MIRAKC_URI=http://tuner:40772.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	SetDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/miraview")
		v.AddConfigPath("$HOME/.miraview")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	return FromViper(v)
}

// Defaults returns the built-in configuration, ignoring files and environment.
func Defaults() (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	return FromViper(v)
}

// FromViper unmarshals and validates the configuration held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// SetDefaults configures default values for all configuration options.
func SetDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", defaultServerPort)
	v.SetDefault("server.read_timeout", defaultServerTimeout)
	v.SetDefault("server.write_timeout", defaultServerTimeout)
	v.SetDefault("server.shutdown_timeout", defaultShutdownTimeout)
	v.SetDefault("server.cors_origins", []string{"*"})

	// mirakc defaults
	v.SetDefault("mirakc.uri", defaultMirakcURI)
	v.SetDefault("mirakc.stream_protocol", defaultStreamProtocol)
	v.SetDefault("mirakc.timeout", defaultMirakcTimeout)
	v.SetDefault("mirakc.retry_attempts", defaultRetryAttempts)
	v.SetDefault("mirakc.max_response_size", defaultMaxResponseSize)

	// Database defaults
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "miraview.db")
	v.SetDefault("database.max_open_conns", defaultMaxOpenConns)
	v.SetDefault("database.max_idle_conns", defaultMaxIdleConns)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.log_level", "warn")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size_mb", defaultLogMaxSizeMB)
	v.SetDefault("logging.max_backups", defaultLogMaxBackups)
	v.SetDefault("logging.max_age_days", defaultLogMaxAgeDays)
	v.SetDefault("logging.compress", true)

	// Refresh defaults
	v.SetDefault("refresh.cron", defaultRefreshCron)
	v.SetDefault("refresh.on_start", true)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	const maxPort = 65535
	if c.Server.Port < 1 || c.Server.Port > maxPort {
		return fmt.Errorf("server.port must be between 1 and %d", maxPort)
	}

	if err := c.Mirakc.Validate(); err != nil {
		return err
	}

	validDrivers := map[string]bool{"sqlite": true, "postgres": true, "mysql": true}
	if !validDrivers[c.Database.Driver] {
		return fmt.Errorf("database.driver must be one of: sqlite, postgres, mysql")
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	if c.Refresh.Cron != "" {
		if _, err := ParseCron(c.Refresh.Cron); err != nil {
			return fmt.Errorf("refresh.cron: %w", err)
		}
	}

	return nil
}

// Validate checks the mirakc section.
func (c *MirakcConfig) Validate() error {
	u, err := url.Parse(c.URI)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("mirakc.uri must be an http(s) URL, got %q", c.URI)
	}
	if !streamProtocolPattern.MatchString(c.StreamProtocol) {
		return fmt.Errorf("mirakc.stream_protocol may only contain letters, digits and . + _ -")
	}
	if c.RetryAttempts < 0 {
		return fmt.Errorf("mirakc.retry_attempts must not be negative")
	}
	return nil
}

// ParseCron parses a 6-field (seconds first) cron expression.
func ParseCron(expr string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	return parser.Parse(expr)
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
