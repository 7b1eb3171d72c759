// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML loading, env var expansion, duration parsing, defaults

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, `
server:
  http_addr: "0.0.0.0:8080"
  allowed_origins:
    - "https://app.example.com"
    - "http://localhost:3000"

database:
  path: "./test.db"

auth:
  jwt_secret: "test-secret"
  token_ttl: "12h"

relay:
  send_buffer: 64
  store_timeout: "3s"
  read_timeout: "90s"
  write_timeout: "15s"
  ping_interval: "20s"

logging:
  level: "debug"
  format: "json"

metrics:
  enabled: true
  path: "/metrics"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.HTTPAddr != "0.0.0.0:8080" {
		t.Errorf("Server.HTTPAddr = %q, want %q", cfg.Server.HTTPAddr, "0.0.0.0:8080")
	}
	if len(cfg.Server.AllowedOrigins) != 2 {
		t.Errorf("len(Server.AllowedOrigins) = %d, want 2", len(cfg.Server.AllowedOrigins))
	}
	if cfg.Database.Path != "./test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "./test.db")
	}
	if cfg.Auth.TokenTTL != 12*time.Hour {
		t.Errorf("Auth.TokenTTL = %v, want %v", cfg.Auth.TokenTTL, 12*time.Hour)
	}
	if cfg.Relay.SendBuffer != 64 {
		t.Errorf("Relay.SendBuffer = %d, want 64", cfg.Relay.SendBuffer)
	}
	if cfg.Relay.StoreTimeout != 3*time.Second {
		t.Errorf("Relay.StoreTimeout = %v, want %v", cfg.Relay.StoreTimeout, 3*time.Second)
	}
	if cfg.Relay.ReadTimeout != 90*time.Second {
		t.Errorf("Relay.ReadTimeout = %v, want %v", cfg.Relay.ReadTimeout, 90*time.Second)
	}
	if cfg.Relay.WriteTimeout != 15*time.Second {
		t.Errorf("Relay.WriteTimeout = %v, want %v", cfg.Relay.WriteTimeout, 15*time.Second)
	}
	if cfg.Relay.PingInterval != 20*time.Second {
		t.Errorf("Relay.PingInterval = %v, want %v", cfg.Relay.PingInterval, 20*time.Second)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
	if !cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled = false, want true")
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("RELAY_TEST_SECRET", "from-env")

	configPath := writeConfig(t, `
server:
  http_addr: "0.0.0.0:8080"
database:
  path: "./test.db"
auth:
  jwt_secret: "${RELAY_TEST_SECRET}"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Auth.JWTSecret != "from-env" {
		t.Errorf("Auth.JWTSecret = %q, want %q", cfg.Auth.JWTSecret, "from-env")
	}
}

func TestLoad_Defaults(t *testing.T) {
	configPath := writeConfig(t, `
server:
  http_addr: "0.0.0.0:8080"
database:
  path: "./test.db"
auth:
  jwt_secret: "test-secret"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Auth.TokenTTL != 24*time.Hour {
		t.Errorf("Auth.TokenTTL = %v, want default 24h", cfg.Auth.TokenTTL)
	}
	if cfg.Relay.SendBuffer != 128 {
		t.Errorf("Relay.SendBuffer = %d, want default 128", cfg.Relay.SendBuffer)
	}
	if cfg.Relay.StoreTimeout != 5*time.Second {
		t.Errorf("Relay.StoreTimeout = %v, want default 5s", cfg.Relay.StoreTimeout)
	}
	if cfg.Relay.WriteTimeout != 10*time.Second {
		t.Errorf("Relay.WriteTimeout = %v, want default 10s", cfg.Relay.WriteTimeout)
	}
	if cfg.Relay.PingInterval != 30*time.Second {
		t.Errorf("Relay.PingInterval = %v, want default 30s", cfg.Relay.PingInterval)
	}
	if cfg.Metrics.Path != "/metrics" {
		t.Errorf("Metrics.Path = %q, want default /metrics", cfg.Metrics.Path)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want default info", cfg.Logging.Level)
	}
}

func TestLoad_MissingRequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "missing http_addr",
			content: `
database:
  path: "./test.db"
auth:
  jwt_secret: "test-secret"
`,
			wantErr: "server.http_addr",
		},
		{
			name: "missing database path",
			content: `
server:
  http_addr: "0.0.0.0:8080"
auth:
  jwt_secret: "test-secret"
`,
			wantErr: "database.path",
		},
		{
			name: "missing jwt secret",
			content: `
server:
  http_addr: "0.0.0.0:8080"
database:
  path: "./test.db"
`,
			wantErr: "auth.jwt_secret",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := writeConfig(t, tt.content)
			_, err := Load(configPath)
			if err == nil {
				t.Fatal("Load() error = nil, want validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	configPath := writeConfig(t, `
server:
  http_addr: "0.0.0.0:8080"
database:
  path: "./test.db"
auth:
  jwt_secret: "test-secret"
relay:
  store_timeout: "not-a-duration"
`)

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Load() error = nil, want duration parse error")
	}
	if !strings.Contains(err.Error(), "store_timeout") {
		t.Errorf("Load() error = %v, want mention of store_timeout", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("Load() error = nil, want read error")
	}
}
