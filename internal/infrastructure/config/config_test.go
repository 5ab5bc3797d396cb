package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_ValidConfig(t *testing.T) {
	content := `
site:
  id: "test-site"
database:
  path: "/tmp/test.db"
  wal_mode: true
  busy_timeout: 5
mqtt:
  enabled: true
  broker:
    host: "localhost"
    port: 1883
    client_id: "test-client"
  qos: 1
api:
  host: "127.0.0.1"
  port: 8090
  cors:
    allowed_origins: ["http://localhost:3000"]
automation:
  seed_file: "/etc/automator/automations.yaml"
  email_interval: 30s
  calendar_interval: 10m
  email_dedup_size: 500
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Site.ID != "test-site" {
		t.Errorf("Site.ID = %q, want %q", cfg.Site.ID, "test-site")
	}
	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/test.db")
	}
	if !cfg.MQTT.Enabled {
		t.Error("MQTT.Enabled = false, want true")
	}
	if cfg.Automation.EmailInterval != 30*time.Second {
		t.Errorf("Automation.EmailInterval = %v, want 30s", cfg.Automation.EmailInterval)
	}
	if cfg.Automation.CalendarInterval != 10*time.Minute {
		t.Errorf("Automation.CalendarInterval = %v, want 10m", cfg.Automation.CalendarInterval)
	}
	if cfg.Automation.EmailDedupSize != 500 {
		t.Errorf("Automation.EmailDedupSize = %d, want 500", cfg.Automation.EmailDedupSize)
	}

	if len(cfg.API.CORS.AllowedOrigins) != 1 || cfg.API.CORS.AllowedOrigins[0] != "http://localhost:3000" {
		t.Errorf("API.CORS.AllowedOrigins = %v", cfg.API.CORS.AllowedOrigins)
	}
	if cfg.Automation.SeedFile != "/etc/automator/automations.yaml" {
		t.Errorf("Automation.SeedFile = %q", cfg.Automation.SeedFile)
	}

	// Untouched sections keep their defaults
	if cfg.Automation.SystemInterval != 60*time.Second {
		t.Errorf("Automation.SystemInterval = %v, want default 60s", cfg.Automation.SystemInterval)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("invalid: [yaml: content"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	content := `
site:
  id: ""
database:
  path: "/tmp/test.db"
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected validation error for empty site.id, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config { return defaultConfig() }

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid config", mutate: func(*Config) {}, wantErr: false},
		{name: "missing site ID", mutate: func(c *Config) { c.Site.ID = "" }, wantErr: true},
		{name: "missing database path", mutate: func(c *Config) { c.Database.Path = "" }, wantErr: true},
		{name: "invalid QoS", mutate: func(c *Config) { c.MQTT.QoS = 3 }, wantErr: true},
		{name: "invalid port low", mutate: func(c *Config) { c.API.Port = 0 }, wantErr: true},
		{name: "invalid port high", mutate: func(c *Config) { c.API.Port = 70000 }, wantErr: true},
		{
			name: "influxdb enabled without url",
			mutate: func(c *Config) {
				c.InfluxDB.Enabled = true
				c.InfluxDB.URL = ""
			},
			wantErr: true,
		},
		{name: "email interval too short", mutate: func(c *Config) { c.Automation.EmailInterval = 0 }, wantErr: true},
		{name: "calendar interval too short", mutate: func(c *Config) { c.Automation.CalendarInterval = time.Millisecond }, wantErr: true},
		{name: "system interval too short", mutate: func(c *Config) { c.Automation.SystemInterval = 0 }, wantErr: true},
		{name: "dedup size zero", mutate: func(c *Config) { c.Automation.EmailDedupSize = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_GetTimeouts(t *testing.T) {
	cfg := &Config{
		API: APIConfig{
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 45,
				Idle:  60,
			},
		},
	}

	if got := cfg.GetReadTimeout().Seconds(); got != 30 {
		t.Errorf("GetReadTimeout() = %v, want 30", got)
	}
	if got := cfg.GetWriteTimeout().Seconds(); got != 45 {
		t.Errorf("GetWriteTimeout() = %v, want 45", got)
	}
	if got := cfg.GetIdleTimeout().Seconds(); got != 60 {
		t.Errorf("GetIdleTimeout() = %v, want 60", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("AUTOMATOR_DATABASE_PATH", "/custom/path.db")
	t.Setenv("AUTOMATOR_MQTT_ENABLED", "true")
	t.Setenv("AUTOMATOR_MQTT_HOST", "mqtt.example.com")
	t.Setenv("AUTOMATOR_MQTT_USERNAME", "testuser")
	t.Setenv("AUTOMATOR_MQTT_PASSWORD", "testpass")
	t.Setenv("AUTOMATOR_API_HOST", "192.168.1.1")
	t.Setenv("AUTOMATOR_API_PORT", "9999")
	t.Setenv("AUTOMATOR_INFLUXDB_TOKEN", "secret-token")
	t.Setenv("AUTOMATOR_WEBHOOK_HOST", "127.0.0.1")
	t.Setenv("AUTOMATOR_SHELL", "/bin/bash")
	t.Setenv("AUTOMATOR_SEED_FILE", "/srv/seed.yaml")

	applyEnvOverrides(cfg)

	if cfg.Database.Path != "/custom/path.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/custom/path.db")
	}
	if !cfg.MQTT.Enabled {
		t.Error("MQTT.Enabled = false, want true")
	}
	if cfg.MQTT.Broker.Host != "mqtt.example.com" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "mqtt.example.com")
	}
	if cfg.MQTT.Auth.Username != "testuser" {
		t.Errorf("MQTT.Auth.Username = %q, want %q", cfg.MQTT.Auth.Username, "testuser")
	}
	if cfg.MQTT.Auth.Password != "testpass" {
		t.Errorf("MQTT.Auth.Password = %q, want %q", cfg.MQTT.Auth.Password, "testpass")
	}
	if cfg.API.Host != "192.168.1.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "192.168.1.1")
	}
	if cfg.API.Port != 9999 {
		t.Errorf("API.Port = %d, want 9999", cfg.API.Port)
	}
	if cfg.InfluxDB.Token != "secret-token" {
		t.Errorf("InfluxDB.Token = %q, want %q", cfg.InfluxDB.Token, "secret-token")
	}
	if cfg.Automation.WebhookHost != "127.0.0.1" {
		t.Errorf("Automation.WebhookHost = %q, want %q", cfg.Automation.WebhookHost, "127.0.0.1")
	}
	if cfg.Automation.Shell != "/bin/bash" {
		t.Errorf("Automation.Shell = %q, want %q", cfg.Automation.Shell, "/bin/bash")
	}
	if cfg.Automation.SeedFile != "/srv/seed.yaml" {
		t.Errorf("Automation.SeedFile = %q, want %q", cfg.Automation.SeedFile, "/srv/seed.yaml")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaultConfig should validate, got %v", err)
	}
	if cfg.MQTT.Enabled {
		t.Error("defaultConfig should leave MQTT disabled")
	}
	if cfg.Automation.EmailInterval != time.Minute {
		t.Errorf("EmailInterval = %v, want 1m", cfg.Automation.EmailInterval)
	}
	if cfg.Automation.CalendarInterval != 5*time.Minute {
		t.Errorf("CalendarInterval = %v, want 5m", cfg.Automation.CalendarInterval)
	}
}

func TestDefault(t *testing.T) {
	t.Setenv("AUTOMATOR_DATABASE_PATH", "/override.db")

	cfg, err := Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}
	if cfg.Database.Path != "/override.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/override.db")
	}
}
