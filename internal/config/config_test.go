package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const fullYAML = `
server:
  port: 9090
  base_path: /boards/

database:
  driver: mysql
  host: 10.0.0.5
  port: 3307
  name: tracker
  user: board

session:
  backend: redis
  redis_url: redis://127.0.0.1:6379/2
  ttl: 2h
  sweep_schedule: "0 * * * *"

boards:
  default: planning
  enabled: [planning, taskboard]

log:
  level: debug
  format: json

locale: de
`

func TestParse_FullConfig(t *testing.T) {
	cfg, err := Parse([]byte(fullYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Server.BasePath != "/boards" {
		t.Errorf("Server.BasePath = %q, want %q", cfg.Server.BasePath, "/boards")
	}
	if cfg.Database.Driver != DriverMySQL {
		t.Errorf("Database.Driver = %q, want %q", cfg.Database.Driver, DriverMySQL)
	}
	if cfg.Database.Host != "10.0.0.5" || cfg.Database.Port != 3307 {
		t.Errorf("Database = %s:%d, want 10.0.0.5:3307", cfg.Database.Host, cfg.Database.Port)
	}
	if cfg.Database.User != "board" {
		t.Errorf("Database.User = %q, want %q", cfg.Database.User, "board")
	}
	if cfg.Session.Backend != BackendRedis {
		t.Errorf("Session.Backend = %q, want %q", cfg.Session.Backend, BackendRedis)
	}
	if cfg.Session.TTL != 2*time.Hour {
		t.Errorf("Session.TTL = %v, want 2h", cfg.Session.TTL)
	}
	if cfg.Boards.Default != "planning" {
		t.Errorf("Boards.Default = %q, want %q", cfg.Boards.Default, "planning")
	}
	if len(cfg.Boards.Enabled) != 2 {
		t.Errorf("len(Boards.Enabled) = %d, want 2", len(cfg.Boards.Enabled))
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("Log = %+v, want debug/json", cfg.Log)
	}
	if cfg.Locale != "de" {
		t.Errorf("Locale = %q, want %q", cfg.Locale, "de")
	}
}

func TestParse_EmptyUsesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Database.Driver != DriverSQLite {
		t.Errorf("Database.Driver = %q, want %q", cfg.Database.Driver, DriverSQLite)
	}
	if cfg.Database.Path != "taskboard.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "taskboard.db")
	}
	if cfg.Session.Backend != BackendMemory {
		t.Errorf("Session.Backend = %q, want %q", cfg.Session.Backend, BackendMemory)
	}
	if cfg.Session.TTL != 24*time.Hour {
		t.Errorf("Session.TTL = %v, want 24h", cfg.Session.TTL)
	}
	if cfg.Session.SweepSchedule != "*/15 * * * *" {
		t.Errorf("Session.SweepSchedule = %q, want %q", cfg.Session.SweepSchedule, "*/15 * * * *")
	}
	if cfg.Boards.Default != "taskboard" {
		t.Errorf("Boards.Default = %q, want %q", cfg.Boards.Default, "taskboard")
	}
	if len(cfg.Boards.Enabled) != len(KnownBoards) {
		t.Errorf("Boards.Enabled = %v, want %v", cfg.Boards.Enabled, KnownBoards)
	}
	if cfg.Locale != "en" {
		t.Errorf("Locale = %q, want %q", cfg.Locale, "en")
	}
}

func TestParse_MySQLDefaults(t *testing.T) {
	cfg, err := Parse([]byte("database:\n  driver: mysql\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Database.Host != "127.0.0.1" {
		t.Errorf("Database.Host = %q, want 127.0.0.1", cfg.Database.Host)
	}
	if cfg.Database.Port != 3306 {
		t.Errorf("Database.Port = %d, want 3306", cfg.Database.Port)
	}
	if cfg.Database.User != "root" {
		t.Errorf("Database.User = %q, want root", cfg.Database.User)
	}
	if cfg.Database.Name != "taskboard" {
		t.Errorf("Database.Name = %q, want taskboard", cfg.Database.Name)
	}
	if cfg.Database.Path != "" {
		t.Errorf("Database.Path = %q, want empty for mysql", cfg.Database.Path)
	}
}

func TestParse_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"bad driver", "database:\n  driver: postgres\n", `database.driver "postgres" is not supported`},
		{"bad backend", "session:\n  backend: cookie\n", `session.backend "cookie" is not supported`},
		{"redis without url", "session:\n  backend: redis\n", "session.redis_url is required"},
		{"bad schedule", "session:\n  sweep_schedule: every minute\n", "session.sweep_schedule"},
		{"unknown board", "boards:\n  enabled: [kanban]\n", `boards.enabled[0] "kanban" is not a known board`},
		{"default not enabled", "boards:\n  default: planning\n  enabled: [taskboard]\n", `boards.default "planning" is not enabled`},
		{"bad log format", "log:\n  format: xml\n", `log.format "xml" must be text or json`},
		{"bad locale", "locale: fr\n", `locale "fr" is not supported`},
		{"bad port", "server:\n  port: 70000\n", "server.port 70000 out of range"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want to contain %q", err.Error(), tt.want)
			}
		})
	}
}

func TestParse_MultipleErrorsJoined(t *testing.T) {
	_, err := Parse([]byte("database:\n  driver: oracle\nlocale: fr\n"))
	if err == nil {
		t.Fatal("expected validation error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "validation failed") {
		t.Errorf("error = %q, want to contain %q", msg, "validation failed")
	}
	if !strings.Contains(msg, "; ") {
		t.Errorf("error = %q, want errors joined by '; '", msg)
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("server: [unclosed"))
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !strings.Contains(err.Error(), "config: parse") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "config: parse")
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taskboard.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 8181\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8181 {
		t.Errorf("Server.Port = %d, want 8181", cfg.Server.Port)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/taskboard.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "config: read") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "config: read")
	}
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.validate(); err != nil {
		t.Fatalf("Default() should validate: %v", err)
	}
}
