package config

import (
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for LumenSync.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Service  ServiceConfig  `yaml:"service"`
	Logging  LoggingConfig  `yaml:"logging"`
	LAN      LANConfig      `yaml:"lan"`
	Dispatch DispatchConfig `yaml:"dispatch"`
	Sync     SyncConfig     `yaml:"sync"`
	Scenes   ScenesConfig   `yaml:"scenes"`
	Database DatabaseConfig `yaml:"database"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
}

// ServiceConfig identifies this LumenSync instance.
type ServiceConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// LANConfig contains LAN discovery and transport settings.
type LANConfig struct {
	// MulticastGroup is the discovery multicast group address.
	MulticastGroup string `yaml:"multicast_group"`

	// DiscoveryPort is the device-side port scan probes are sent to.
	DiscoveryPort int `yaml:"discovery_port"`

	// ResponsePort is the local port scan responses arrive on.
	ResponsePort int `yaml:"response_port"`

	// TimeoutSeconds is the discovery collection window.
	TimeoutSeconds int `yaml:"timeout_seconds"`

	// AllowPlaceholder seeds simulated devices when no transport is
	// available. Development only; placeholder devices are clearly marked.
	AllowPlaceholder bool `yaml:"allow_placeholder"`
}

// DispatchConfig contains command delivery settings.
type DispatchConfig struct {
	MaxAttempts     int `yaml:"max_attempts"`
	RetryDelayMS    int `yaml:"retry_delay_ms"`
	PacingDelayMS   int `yaml:"pacing_delay_ms"`
	ControlPort     int `yaml:"control_port"`
	StatusTimeoutMS int `yaml:"status_timeout_ms"`
}

// SyncConfig contains ambient colour sync settings.
type SyncConfig struct {
	SampleRateHz int     `yaml:"sample_rate_hz"`
	Mode         string  `yaml:"mode"`
	Zones        int     `yaml:"zones"`
	Smoothing    float64 `yaml:"smoothing"`
	LatencyMS    int     `yaml:"latency_ms"`
}

// ScenesConfig contains scene playback settings.
type ScenesConfig struct {
	Enabled      bool `yaml:"enabled"`
	FrameRateHz  int  `yaml:"frame_rate_hz"`
	SeedBuiltins bool `yaml:"seed_builtins"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`

	// HistoryRetentionDays bounds the state history audit trail. Entries
	// older than this are pruned periodically; zero disables pruning.
	HistoryRetentionDays int `yaml:"history_retention_days"`
}

// MQTTConfig contains MQTT broker connection settings for the remote
// control surface. Disabled by default.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings (seconds).
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// InfluxDBConfig contains telemetry sink settings. Disabled by default.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// Valid enumerations for string-typed settings.
var (
	validLogLevels  = map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
	validLogFormats = map[string]bool{"json": true, "text": true}
	validLogOutputs = map[string]bool{"stdout": true, "stderr": true}
	validSyncModes  = map[string]bool{"": true, "average": true, "dominant": true, "zones": true}
)

// Load reads configuration from a YAML file and applies environment
// variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// An empty path skips the file step entirely, so LumenSync can run from
// defaults plus environment alone.
//
// Environment variables follow the pattern LUMEN_SECTION_KEY, for
// example LUMEN_DATABASE_PATH or LUMEN_MQTT_HOST.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults. The LAN and
// dispatch defaults match the wire protocol's documented constants.
func defaultConfig() *Config {
	return &Config{
		Service: ServiceConfig{
			ID:   "lumen-core",
			Name: "LumenSync",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		LAN: LANConfig{
			MulticastGroup: "239.255.255.250",
			DiscoveryPort:  4001,
			ResponsePort:   4002,
			TimeoutSeconds: 5,
		},
		Dispatch: DispatchConfig{
			MaxAttempts:     3,
			RetryDelayMS:    500,
			PacingDelayMS:   50,
			ControlPort:     4001,
			StatusTimeoutMS: 2000,
		},
		Sync: SyncConfig{
			SampleRateHz: 30,
			Mode:         "average",
			Zones:        2,
			Smoothing:    0.6,
			LatencyMS:    0,
		},
		Scenes: ScenesConfig{
			Enabled:      true,
			FrameRateHz:  20,
			SeedBuiltins: true,
		},
		Database: DatabaseConfig{
			Path:                 "./data/lumensync.db",
			WALMode:              true,
			BusyTimeout:          5,
			HistoryRetentionDays: 30,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "lumen-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		InfluxDB: InfluxDBConfig{
			URL:           "http://localhost:8086",
			Bucket:        "lumensync",
			BatchSize:     100,
			FlushInterval: 10,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the
// configuration. Secrets and per-deployment knobs only; everything else
// belongs in the YAML file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LUMEN_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	if v := os.Getenv("LUMEN_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	if v := os.Getenv("LUMEN_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("LUMEN_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("LUMEN_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	if v := os.Getenv("LUMEN_INFLUXDB_URL"); v != "" {
		cfg.InfluxDB.URL = v
	}
	if v := os.Getenv("LUMEN_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration and reports every problem at once,
// so a bad config file is fixed in one edit rather than one restart per
// mistake.
func (c *Config) Validate() error {
	var errs []string

	if c.Service.ID == "" {
		errs = append(errs, "service.id is required")
	}

	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("logging.level %q must be debug, info, warn, or error", c.Logging.Level))
	}
	if !validLogFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("logging.format %q must be json or text", c.Logging.Format))
	}
	if !validLogOutputs[strings.ToLower(c.Logging.Output)] {
		errs = append(errs, fmt.Sprintf("logging.output %q must be stdout or stderr", c.Logging.Output))
	}

	if ip := net.ParseIP(c.LAN.MulticastGroup); ip == nil || !ip.IsMulticast() {
		errs = append(errs, fmt.Sprintf("lan.multicast_group %q is not a multicast address", c.LAN.MulticastGroup))
	}
	if !validPort(c.LAN.DiscoveryPort) {
		errs = append(errs, "lan.discovery_port must be between 1 and 65535")
	}
	if !validPort(c.LAN.ResponsePort) {
		errs = append(errs, "lan.response_port must be between 1 and 65535")
	}
	if c.LAN.TimeoutSeconds < 1 {
		errs = append(errs, "lan.timeout_seconds must be at least 1")
	}

	if c.Dispatch.MaxAttempts < 1 {
		errs = append(errs, "dispatch.max_attempts must be at least 1")
	}
	if c.Dispatch.RetryDelayMS < 0 {
		errs = append(errs, "dispatch.retry_delay_ms must not be negative")
	}
	if c.Dispatch.PacingDelayMS < 0 {
		errs = append(errs, "dispatch.pacing_delay_ms must not be negative")
	}
	if !validPort(c.Dispatch.ControlPort) {
		errs = append(errs, "dispatch.control_port must be between 1 and 65535")
	}

	if c.Sync.SampleRateHz < 1 || c.Sync.SampleRateHz > 120 {
		errs = append(errs, "sync.sample_rate_hz must be between 1 and 120")
	}
	if !validSyncModes[strings.ToLower(c.Sync.Mode)] {
		errs = append(errs, fmt.Sprintf("sync.mode %q must be average, dominant, or zones", c.Sync.Mode))
	}
	if c.Sync.Smoothing < 0 || c.Sync.Smoothing >= 1 {
		errs = append(errs, "sync.smoothing must be in [0, 1)")
	}
	if c.Sync.Zones < 0 {
		errs = append(errs, "sync.zones must not be negative")
	}

	if c.Scenes.Enabled {
		if c.Scenes.FrameRateHz < 1 || c.Scenes.FrameRateHz > 120 {
			errs = append(errs, "scenes.frame_rate_hz must be between 1 and 120")
		}
		if c.Database.Path == "" {
			errs = append(errs, "database.path is required when scenes are enabled")
		}
	}
	if c.Database.HistoryRetentionDays < 0 {
		errs = append(errs, "database.history_retention_days must not be negative")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Enabled {
		if c.MQTT.Broker.Host == "" {
			errs = append(errs, "mqtt.broker.host is required when mqtt is enabled")
		}
		if !validPort(c.MQTT.Broker.Port) {
			errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
		}
		if c.MQTT.Broker.ClientID == "" {
			errs = append(errs, "mqtt.broker.client_id is required when mqtt is enabled")
		}
	}

	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Token == "" {
			errs = append(errs, "influxdb.token is required when influxdb is enabled (set LUMEN_INFLUXDB_TOKEN)")
		}
		if c.InfluxDB.Org == "" {
			errs = append(errs, "influxdb.org is required when influxdb is enabled")
		}
		if c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.bucket is required when influxdb is enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// validPort reports whether p is a usable UDP/TCP port number.
func validPort(p int) bool {
	return p >= 1 && p <= 65535
}

// GetDiscoveryTimeout returns the discovery collection window as a Duration.
func (c *Config) GetDiscoveryTimeout() time.Duration {
	return time.Duration(c.LAN.TimeoutSeconds) * time.Second
}

// GetRetryDelay returns the dispatch retry delay as a Duration.
func (c *Config) GetRetryDelay() time.Duration {
	return time.Duration(c.Dispatch.RetryDelayMS) * time.Millisecond
}

// GetPacingDelay returns the dispatch batch pacing delay as a Duration.
func (c *Config) GetPacingDelay() time.Duration {
	return time.Duration(c.Dispatch.PacingDelayMS) * time.Millisecond
}

// GetStatusTimeout returns the status-query wait as a Duration.
func (c *Config) GetStatusTimeout() time.Duration {
	return time.Duration(c.Dispatch.StatusTimeoutMS) * time.Millisecond
}

// GetSyncLatency returns the sync latency compensation as a Duration.
func (c *Config) GetSyncLatency() time.Duration {
	return time.Duration(c.Sync.LatencyMS) * time.Millisecond
}
