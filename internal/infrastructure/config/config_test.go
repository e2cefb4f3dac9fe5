package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_ValidConfig(t *testing.T) {
	content := `
service:
  id: "test-core"
lan:
  multicast_group: "239.255.255.250"
  timeout_seconds: 3
dispatch:
  max_attempts: 2
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

	if cfg.Service.ID != "test-core" {
		t.Errorf("Service.ID = %q, want %q", cfg.Service.ID, "test-core")
	}

	if cfg.LAN.TimeoutSeconds != 3 {
		t.Errorf("LAN.TimeoutSeconds = %d, want 3", cfg.LAN.TimeoutSeconds)
	}

	if cfg.Dispatch.MaxAttempts != 2 {
		t.Errorf("Dispatch.MaxAttempts = %d, want 2", cfg.Dispatch.MaxAttempts)
	}

	// Unset sections keep their defaults.
	if cfg.Dispatch.RetryDelayMS != 500 {
		t.Errorf("Dispatch.RetryDelayMS = %d, want default 500", cfg.Dispatch.RetryDelayMS)
	}

	if cfg.MQTT.Broker.Host != "localhost" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "localhost")
	}
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error = %v", err)
	}

	if cfg.Service.ID != "lumen-core" {
		t.Errorf("Service.ID = %q, want default %q", cfg.Service.ID, "lumen-core")
	}
	if cfg.LAN.DiscoveryPort != 4001 {
		t.Errorf("LAN.DiscoveryPort = %d, want 4001", cfg.LAN.DiscoveryPort)
	}
	if cfg.MQTT.Enabled {
		t.Error("MQTT should be disabled by default")
	}
	if cfg.InfluxDB.Enabled {
		t.Error("InfluxDB should be disabled by default")
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

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "defaults are valid",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "missing service ID",
			mutate:  func(c *Config) { c.Service.ID = "" },
			wantErr: true,
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: true,
		},
		{
			name:    "non-multicast group",
			mutate:  func(c *Config) { c.LAN.MulticastGroup = "192.168.1.1" },
			wantErr: true,
		},
		{
			name:    "unparseable group",
			mutate:  func(c *Config) { c.LAN.MulticastGroup = "not-an-ip" },
			wantErr: true,
		},
		{
			name:    "discovery port out of range",
			mutate:  func(c *Config) { c.LAN.DiscoveryPort = 70000 },
			wantErr: true,
		},
		{
			name:    "zero discovery timeout",
			mutate:  func(c *Config) { c.LAN.TimeoutSeconds = 0 },
			wantErr: true,
		},
		{
			name:    "zero dispatch attempts",
			mutate:  func(c *Config) { c.Dispatch.MaxAttempts = 0 },
			wantErr: true,
		},
		{
			name:    "negative retry delay",
			mutate:  func(c *Config) { c.Dispatch.RetryDelayMS = -1 },
			wantErr: true,
		},
		{
			name:    "sample rate too high",
			mutate:  func(c *Config) { c.Sync.SampleRateHz = 240 },
			wantErr: true,
		},
		{
			name:    "unknown sync mode",
			mutate:  func(c *Config) { c.Sync.Mode = "strobe" },
			wantErr: true,
		},
		{
			name:    "smoothing of exactly one",
			mutate:  func(c *Config) { c.Sync.Smoothing = 1.0 },
			wantErr: true,
		},
		{
			name:    "scenes without database path",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: true,
		},
		{
			name: "scenes disabled tolerates missing database",
			mutate: func(c *Config) {
				c.Scenes.Enabled = false
				c.Database.Path = ""
			},
			wantErr: false,
		},
		{
			name:    "negative history retention",
			mutate:  func(c *Config) { c.Database.HistoryRetentionDays = -1 },
			wantErr: true,
		},
		{
			name:    "zero history retention disables pruning",
			mutate:  func(c *Config) { c.Database.HistoryRetentionDays = 0 },
			wantErr: false,
		},
		{
			name:    "invalid QoS",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: true,
		},
		{
			name: "mqtt enabled without client id",
			mutate: func(c *Config) {
				c.MQTT.Enabled = true
				c.MQTT.Broker.ClientID = ""
			},
			wantErr: true,
		},
		{
			name: "influx enabled without token",
			mutate: func(c *Config) {
				c.InfluxDB.Enabled = true
				c.InfluxDB.Org = "lumen"
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ValidateCollectsAllErrors(t *testing.T) {
	cfg := defaultConfig()
	cfg.Service.ID = ""
	cfg.MQTT.QoS = 9
	cfg.Sync.Mode = "strobe"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error, got nil")
	}

	for _, want := range []string{"service.id", "mqtt.qos", "sync.mode"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Validate() error %q missing %q", err, want)
		}
	}
}

func TestConfig_DurationGetters(t *testing.T) {
	cfg := &Config{
		LAN:      LANConfig{TimeoutSeconds: 3},
		Dispatch: DispatchConfig{RetryDelayMS: 250, PacingDelayMS: 40, StatusTimeoutMS: 1500},
		Sync:     SyncConfig{LatencyMS: 120},
	}

	if got := cfg.GetDiscoveryTimeout().Seconds(); got != 3 {
		t.Errorf("GetDiscoveryTimeout() = %vs, want 3s", got)
	}
	if got := cfg.GetRetryDelay().Milliseconds(); got != 250 {
		t.Errorf("GetRetryDelay() = %vms, want 250ms", got)
	}
	if got := cfg.GetPacingDelay().Milliseconds(); got != 40 {
		t.Errorf("GetPacingDelay() = %vms, want 40ms", got)
	}
	if got := cfg.GetStatusTimeout().Milliseconds(); got != 1500 {
		t.Errorf("GetStatusTimeout() = %vms, want 1500ms", got)
	}
	if got := cfg.GetSyncLatency().Milliseconds(); got != 120 {
		t.Errorf("GetSyncLatency() = %vms, want 120ms", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("LUMEN_LOGGING_LEVEL", "debug")
	t.Setenv("LUMEN_DATABASE_PATH", "/custom/path.db")
	t.Setenv("LUMEN_MQTT_HOST", "mqtt.example.com")
	t.Setenv("LUMEN_MQTT_USERNAME", "testuser")
	t.Setenv("LUMEN_MQTT_PASSWORD", "testpass")
	t.Setenv("LUMEN_INFLUXDB_TOKEN", "secret-token")

	applyEnvOverrides(cfg)

	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}

	if cfg.Database.Path != "/custom/path.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/custom/path.db")
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

	if cfg.InfluxDB.Token != "secret-token" {
		t.Errorf("InfluxDB.Token = %q, want %q", cfg.InfluxDB.Token, "secret-token")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Errorf("defaultConfig() should validate, got %v", err)
	}

	if cfg.LAN.MulticastGroup != "239.255.255.250" {
		t.Errorf("LAN.MulticastGroup = %q, want 239.255.255.250", cfg.LAN.MulticastGroup)
	}
	if cfg.Dispatch.ControlPort != 4001 {
		t.Errorf("Dispatch.ControlPort = %d, want 4001", cfg.Dispatch.ControlPort)
	}
	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}
}
