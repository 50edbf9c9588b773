// Package config loads server settings from config.yaml, .env and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	TMDB    TMDBConfig    `yaml:"tmdb"`
	Storage StorageConfig `yaml:"storage"`
	Auth    AuthConfig    `yaml:"auth"`
	Logging LoggingConfig `yaml:"logging"`
}

type ServerConfig struct {
	Addr         string        `yaml:"addr" env:"CINETRAIL_ADDR"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	// AllowedOrigins lists public origins trusted for CORS on top of
	// localhost and private-network hosts.
	AllowedOrigins []string `yaml:"allowed_origins"`
	// TrustedProxies are IPs or CIDR ranges whose forwarding headers name
	// the real client. Empty means the peer address is always used.
	TrustedProxies []string `yaml:"trusted_proxies"`
}

type TMDBConfig struct {
	APIKey            string        `yaml:"api_key" env:"TMDB_API_KEY"`
	BaseURL           string        `yaml:"base_url"`
	Language          string        `yaml:"language"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Timeout           time.Duration `yaml:"timeout"`
}

type StorageConfig struct {
	DataDir       string `yaml:"data_dir" env:"CINETRAIL_DATA_DIR"`
	DatabasePath  string `yaml:"database_path"`
	CacheTTLHours int    `yaml:"cache_ttl_hours"`
}

type AuthConfig struct {
	SessionDays        int    `yaml:"session_days"`
	LoginRatePerMinute int    `yaml:"login_rate_per_minute"`
	BootstrapEmail     string `yaml:"bootstrap_email"`
}

type LoggingConfig struct {
	Level      string `yaml:"level" env:"CINETRAIL_LOG_LEVEL"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Load reads path (or CONFIG_FILE, or config.yaml). A missing file leaves
// defaults in place. Environment variables override file values.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	explicit := path != ""
	if path == "" {
		path = "config.yaml"
	}

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	override := func(dst *string, keys ...string) {
		for _, key := range keys {
			if v := strings.TrimSpace(os.Getenv(key)); v != "" {
				*dst = v
				return
			}
		}
	}
	override(&c.TMDB.APIKey, "TMDB_API_KEY", "MOVIE_API_KEY")
	override(&c.Server.Addr, "CINETRAIL_ADDR")
	override(&c.Storage.DataDir, "CINETRAIL_DATA_DIR")
	override(&c.Logging.Level, "CINETRAIL_LOG_LEVEL")
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ReadTimeout <= 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout <= 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.TMDB.Language == "" {
		c.TMDB.Language = "en-US"
	}
	if c.TMDB.RequestsPerSecond <= 0 {
		c.TMDB.RequestsPerSecond = 40
	}
	if c.TMDB.Timeout <= 0 {
		c.TMDB.Timeout = 15 * time.Second
	}
	if c.Storage.DataDir == "" {
		c.Storage.DataDir = "data"
	}
	if c.Storage.DatabasePath == "" {
		c.Storage.DatabasePath = filepath.Join(c.Storage.DataDir, "cinetrail.db")
	}
	if c.Storage.CacheTTLHours <= 0 {
		c.Storage.CacheTTLHours = 24
	}
	if c.Auth.SessionDays <= 0 {
		c.Auth.SessionDays = 30
	}
	if c.Auth.LoginRatePerMinute <= 0 {
		c.Auth.LoginRatePerMinute = 5
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.MaxSizeMB <= 0 {
		c.Logging.MaxSizeMB = 20
	}
	if c.Logging.MaxBackups <= 0 {
		c.Logging.MaxBackups = 3
	}
	if c.Logging.MaxAgeDays <= 0 {
		c.Logging.MaxAgeDays = 14
	}
}

func (c *Config) validate() error {
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q (set CINETRAIL_LOG_LEVEL or logging.level)", c.Logging.Level)
	}
	if !strings.Contains(c.Server.Addr, ":") {
		return fmt.Errorf("server address %q must include a port (set CINETRAIL_ADDR or server.addr)", c.Server.Addr)
	}
	return nil
}

// SessionDuration is the lifetime of a regular login session.
func (c *Config) SessionDuration() time.Duration {
	return time.Duration(c.Auth.SessionDays) * 24 * time.Hour
}
