// SPDX-License-Identifier: MIT

// Package config provides configuration management for the workpulse daemon.
// Precedence: environment variables > config file > built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// AppConfig holds the complete runtime configuration of the daemon.
type AppConfig struct {
	// Server
	ListenAddr string `yaml:"listen_addr"`
	DataDir    string `yaml:"data_dir"`

	// Logging
	LogLevel   string `yaml:"log_level"`
	LogService string `yaml:"log_service"`

	// CORS / rate limiting
	AllowedOrigins   []string `yaml:"allowed_origins"`
	RateLimitEnabled bool     `yaml:"rate_limit_enabled"`
	RateLimitRPM     int      `yaml:"rate_limit_rpm"`

	// Redis-backed auth/presence store; empty address selects the
	// in-memory fallback.
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	// Session tokens
	TokenTTL time.Duration `yaml:"token_ttl"`

	// Break monitor
	WarningLead     time.Duration `yaml:"warning_lead"`
	MonitorInterval time.Duration `yaml:"monitor_interval"`

	// Tracing
	TracingEnabled  bool    `yaml:"tracing_enabled"`
	TracingExporter string  `yaml:"tracing_exporter"`
	TracingEndpoint string  `yaml:"tracing_endpoint"`
	TracingSampling float64 `yaml:"tracing_sampling"`
}

// Defaults returns the built-in default configuration.
func Defaults() AppConfig {
	return AppConfig{
		ListenAddr:       ":8080",
		DataDir:          "/var/lib/workpulse",
		LogLevel:         "info",
		LogService:       "workpulse",
		RateLimitEnabled: true,
		RateLimitRPM:     600,
		RedisDB:          0,
		TokenTTL:         12 * time.Hour,
		WarningLead:      60 * time.Second,
		MonitorInterval:  time.Second,
		TracingExporter:  "http",
		TracingSampling:  0.1,
	}
}

// Load assembles the configuration: defaults, then the optional YAML file at
// path, then environment overrides. Validation runs on the merged result.
func Load(path string) (AppConfig, error) {
	cfg := Defaults()

	if path != "" {
		if err := mergeFile(&cfg, path); err != nil {
			return AppConfig{}, err
		}
	}
	mergeEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

func mergeFile(cfg *AppConfig, path string) error {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func mergeEnv(cfg *AppConfig) {
	cfg.ListenAddr = ParseString("WP_LISTEN", cfg.ListenAddr)
	cfg.DataDir = ParseString("WP_DATA", cfg.DataDir)
	cfg.LogLevel = ParseString("WP_LOG_LEVEL", cfg.LogLevel)
	cfg.LogService = ParseString("WP_LOG_SERVICE", cfg.LogService)
	if origins := ParseString("WP_ALLOWED_ORIGINS", ""); origins != "" {
		cfg.AllowedOrigins = splitCSV(origins)
	}
	cfg.RateLimitEnabled = ParseBool("WP_RATE_LIMIT", cfg.RateLimitEnabled)
	cfg.RateLimitRPM = ParseInt("WP_RATE_LIMIT_RPM", cfg.RateLimitRPM)
	cfg.RedisAddr = ParseString("WP_REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = ParseString("WP_REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = ParseInt("WP_REDIS_DB", cfg.RedisDB)
	cfg.TokenTTL = ParseDuration("WP_TOKEN_TTL", cfg.TokenTTL)
	cfg.WarningLead = ParseDuration("WP_WARNING_LEAD", cfg.WarningLead)
	cfg.MonitorInterval = ParseDuration("WP_MONITOR_INTERVAL", cfg.MonitorInterval)
	cfg.TracingEnabled = ParseBool("WP_TRACING", cfg.TracingEnabled)
	cfg.TracingExporter = ParseString("WP_TRACING_EXPORTER", cfg.TracingExporter)
	cfg.TracingEndpoint = ParseString("WP_TRACING_ENDPOINT", cfg.TracingEndpoint)
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks the merged configuration for values the daemon cannot run with.
func (c AppConfig) Validate() error {
	var errs []error
	if c.ListenAddr == "" {
		errs = append(errs, errors.New("listen address must not be empty"))
	}
	if c.DataDir == "" {
		errs = append(errs, errors.New("data directory must not be empty"))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("token TTL must be positive"))
	}
	if c.WarningLead < 0 {
		errs = append(errs, errors.New("warning lead must not be negative"))
	}
	if c.MonitorInterval <= 0 {
		errs = append(errs, errors.New("monitor interval must be positive"))
	}
	if c.RateLimitRPM <= 0 && c.RateLimitEnabled {
		errs = append(errs, errors.New("rate limit RPM must be positive when enabled"))
	}
	if c.TracingSampling < 0 || c.TracingSampling > 1 {
		errs = append(errs, errors.New("tracing sampling must be within [0,1]"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// DatabasePath returns the SQLite database location under the data directory.
func (c AppConfig) DatabasePath() string {
	return filepath.Join(c.DataDir, "workpulse.sqlite")
}
