// Package config provides YAML-based configuration loading for the taskboard server.
package config

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Session backends.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendDatabase = "database"
)

// Database drivers.
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// KnownBoards lists the board kinds the server can serve.
var KnownBoards = []string{"taskboard", "planning"}

// SupportedLocales lists the locales with a message catalog.
var SupportedLocales = []string{"en", "de"}

// Config is the top-level taskboard configuration, loaded from taskboard.yaml.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Session  SessionConfig  `yaml:"session"`
	Boards   BoardsConfig   `yaml:"boards"`
	Log      LogConfig      `yaml:"log"`
	Locale   string         `yaml:"locale"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port     int    `yaml:"port"`
	BasePath string `yaml:"base_path"`
}

// DatabaseConfig holds connection settings for the issue database.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"` // sqlite file
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	Name   string `yaml:"name"`
	User   string `yaml:"user"`
}

// SessionConfig selects where per-user board options live.
type SessionConfig struct {
	Backend       string        `yaml:"backend"`
	RedisURL      string        `yaml:"redis_url"`
	TTL           time.Duration `yaml:"ttl"`
	SweepSchedule string        `yaml:"sweep_schedule"`
}

// BoardsConfig selects which board kinds are served.
type BoardsConfig struct {
	Default string   `yaml:"default"`
	Enabled []string `yaml:"enabled"`
}

// LogConfig controls the logrus logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a validated configuration with every default applied.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	c.Server.BasePath = strings.TrimRight(c.Server.BasePath, "/")

	if c.Database.Driver == "" {
		c.Database.Driver = DriverSQLite
	}
	if c.Database.Driver == DriverSQLite && c.Database.Path == "" {
		c.Database.Path = "taskboard.db"
	}
	if c.Database.Driver == DriverMySQL {
		if c.Database.Host == "" {
			c.Database.Host = "127.0.0.1"
		}
		if c.Database.Port == 0 {
			c.Database.Port = 3306
		}
		if c.Database.User == "" {
			c.Database.User = "root"
		}
		if c.Database.Name == "" {
			c.Database.Name = "taskboard"
		}
	}

	if c.Session.Backend == "" {
		c.Session.Backend = BackendMemory
	}
	if c.Session.TTL == 0 {
		c.Session.TTL = 24 * time.Hour
	}
	if c.Session.SweepSchedule == "" {
		c.Session.SweepSchedule = "*/15 * * * *"
	}

	if len(c.Boards.Enabled) == 0 {
		c.Boards.Enabled = slices.Clone(KnownBoards)
	}
	if c.Boards.Default == "" {
		c.Boards.Default = c.Boards.Enabled[0]
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Locale == "" {
		c.Locale = "en"
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port %d out of range", c.Server.Port))
	}
	switch c.Database.Driver {
	case DriverSQLite, DriverMySQL:
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q is not supported", c.Database.Driver))
	}
	switch c.Session.Backend {
	case BackendMemory, BackendDatabase:
	case BackendRedis:
		if c.Session.RedisURL == "" {
			errs = append(errs, "session.redis_url is required for the redis backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("session.backend %q is not supported", c.Session.Backend))
	}
	if c.Session.TTL < 0 {
		errs = append(errs, "session.ttl must be positive")
	}
	if _, err := cron.ParseStandard(c.Session.SweepSchedule); err != nil {
		errs = append(errs, fmt.Sprintf("session.sweep_schedule: %v", err))
	}
	for i, kind := range c.Boards.Enabled {
		if !slices.Contains(KnownBoards, kind) {
			errs = append(errs, fmt.Sprintf("boards.enabled[%d] %q is not a known board", i, kind))
		}
	}
	if !slices.Contains(c.Boards.Enabled, c.Boards.Default) {
		errs = append(errs, fmt.Sprintf("boards.default %q is not enabled", c.Boards.Default))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Sprintf("log.format %q must be text or json", c.Log.Format))
	}
	if !slices.Contains(SupportedLocales, c.Locale) {
		errs = append(errs, fmt.Sprintf("locale %q is not supported", c.Locale))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
