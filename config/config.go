/*
Package config loads the server configuration.

SOURCES (later wins):
  1. Built-in defaults
  2. YAML file (optional)
  3. Environment variables
  4. Command-line flags (applied by cmd/server)

EXAMPLE FILE:
  server:
    port: 8080
    allowed_origins: ["http://localhost:5173"]
  database:
    path: ./data/cashflow.db
  log:
    level: debug
    format: json
  portfolio:
    workers: 8
  revaluation:
    enabled: true
    interval: 6h
  calendars:
    TARGET: ["2024-01-01", "2024-12-25", "2024-12-26"]

ENVIRONMENT:
  CASHFLOW_PORT, CASHFLOW_DB_PATH, CASHFLOW_LOG_LEVEL, CASHFLOW_LOG_FORMAT,
  CASHFLOW_WORKERS, CASHFLOW_REVALUE_INTERVAL
*/
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/warp/cashflow-engine/factory"
)

// Config holds server configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	Log         LogConfig         `yaml:"log"`
	Portfolio   PortfolioConfig   `yaml:"portfolio"`
	Revaluation RevaluationConfig `yaml:"revaluation"`
	// Calendars maps a calendar code to its holiday dates.
	Calendars map[string][]string `yaml:"calendars"`
}

type ServerConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type DatabaseConfig struct {
	// Path is the SQLite file; ":memory:" keeps everything in memory.
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

type PortfolioConfig struct {
	Workers int `yaml:"workers"`
}

type RevaluationConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Server:      ServerConfig{Port: 8080},
		Database:    DatabaseConfig{Path: "cashflow.db"},
		Log:         LogConfig{Level: "info", Format: "text"},
		Portfolio:   PortfolioConfig{Workers: 4},
		Revaluation: RevaluationConfig{Interval: 24 * time.Hour},
	}
}

// Load reads the YAML file at path over the defaults, then applies the
// environment. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("load config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("CASHFLOW_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CASHFLOW_PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v, ok := lookup("CASHFLOW_DB_PATH"); ok && v != "" {
		c.Database.Path = v
	}
	if v, ok := lookup("CASHFLOW_LOG_LEVEL"); ok && v != "" {
		c.Log.Level = v
	}
	if v, ok := lookup("CASHFLOW_LOG_FORMAT"); ok && v != "" {
		c.Log.Format = v
	}
	if v, ok := lookup("CASHFLOW_WORKERS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CASHFLOW_WORKERS: %w", err)
		}
		c.Portfolio.Workers = n
	}
	if v, ok := lookup("CASHFLOW_REVALUE_INTERVAL"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("CASHFLOW_REVALUE_INTERVAL: %w", err)
		}
		c.Revaluation.Interval = d
		c.Revaluation.Enabled = true
	}
	return nil
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path is required"))
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q: want text or json", c.Log.Format))
	}
	if c.Portfolio.Workers < 0 {
		errs = append(errs, fmt.Errorf("portfolio.workers %d is negative", c.Portfolio.Workers))
	}
	if c.Revaluation.Enabled && c.Revaluation.Interval <= 0 {
		errs = append(errs, errors.New("revaluation.interval must be positive"))
	}
	if _, err := c.Holidays(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Holidays parses the configured calendars.
func (c Config) Holidays() (map[string][]time.Time, error) {
	names := make([]string, 0, len(c.Calendars))
	for name := range c.Calendars {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(map[string][]time.Time, len(names))
	for _, name := range names {
		dates := make([]time.Time, 0, len(c.Calendars[name]))
		for _, raw := range c.Calendars[name] {
			d, err := factory.ParseDate(raw)
			if err != nil {
				return nil, fmt.Errorf("calendars.%s: %w", name, err)
			}
			dates = append(dates, d)
		}
		out[name] = dates
	}
	return out, nil
}

// NewLogger builds the slog logger the configuration asks for.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	level, _ := parseLevel(c.Log.Level)
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level %q: %w", s, err)
	}
	return level, nil
}
