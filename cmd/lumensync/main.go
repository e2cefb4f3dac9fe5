// LumenSync Core - LAN light control and screen sync daemon.
//
// This is the main entry point for the LumenSync service. It discovers
// Govee-protocol lights on the local network, exposes device control and
// scene playback, and can drive the lights in near-real-time from a pixel
// source. Remote control and state publishing happen over MQTT when a
// broker is configured; command and sync telemetry stream to InfluxDB when
// a sink is configured. Both are optional - the daemon is fully functional
// on the LAN alone.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/lumensync/lumen-core/migrations"

	"github.com/lumensync/lumen-core/internal/color"
	"github.com/lumensync/lumen-core/internal/device"
	"github.com/lumensync/lumen-core/internal/discovery"
	"github.com/lumensync/lumen-core/internal/dispatch"
	"github.com/lumensync/lumen-core/internal/infrastructure/config"
	"github.com/lumensync/lumen-core/internal/infrastructure/database"
	"github.com/lumensync/lumen-core/internal/infrastructure/influxdb"
	"github.com/lumensync/lumen-core/internal/infrastructure/logging"
	"github.com/lumensync/lumen-core/internal/infrastructure/mqtt"
	"github.com/lumensync/lumen-core/internal/lightsync"
	"github.com/lumensync/lumen-core/internal/manager"
	"github.com/lumensync/lumen-core/internal/remote"
	"github.com/lumensync/lumen-core/internal/scene"
	"github.com/lumensync/lumen-core/internal/transport"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path, used when LUMEN_CONFIG is not set.
const defaultConfigPath = "configs/lumensync.yaml"

// Dimensions of the built-in synthetic pixel source used for
// broker-triggered sync sessions when no capture surface is attached.
const (
	syntheticSourceWidth  = 96
	syntheticSourceHeight = 54
)

// historyPruneInterval is how often expired state history rows are removed.
const historyPruneInterval = 6 * time.Hour

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting LumenSync Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration. An explicitly requested file must exist; the
	// default path is optional so the daemon can run on pure defaults.
	configPath, required := getConfigPath()
	if !required {
		if _, statErr := os.Stat(configPath); statErr != nil {
			log.Info("no config file found, using defaults", "path", configPath)
			configPath = ""
		}
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if configPath != "" {
		log.Info("configuration loaded", "path", configPath)
	}

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open the LAN transport. Placeholder mode runs without one so the
	// daemon is usable on machines with no usable network.
	lanTransport, err := openTransport(cfg, log)
	if err != nil {
		return err
	}

	// Open database for scenes and state history (optional)
	var (
		db          *database.DB
		sceneRepo   scene.Repository
		historyRepo device.StateHistoryRepository
	)
	if cfg.Scenes.Enabled {
		db, err = database.Open(database.Config{
			Path:        cfg.Database.Path,
			WALMode:     cfg.Database.WALMode,
			BusyTimeout: cfg.Database.BusyTimeout,
		})
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()
		log.Info("database connected", "path", cfg.Database.Path)

		if migrateErr := db.Migrate(ctx); migrateErr != nil {
			return fmt.Errorf("running migrations: %w", migrateErr)
		}
		log.Info("database migrations complete")

		repo := scene.NewSQLiteRepository(db.DB)
		if cfg.Scenes.SeedBuiltins {
			if seedErr := scene.Seed(ctx, repo, log.With("component", "scene")); seedErr != nil {
				return fmt.Errorf("seeding builtin scenes: %w", seedErr)
			}
		}
		sceneRepo = repo
		historyRepo = device.NewSQLiteStateHistoryRepository(db.DB)
	} else {
		log.Info("scenes disabled, database not opened")
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Build the device manager and its engines
	mgrOpts := manager.Options{
		Transport: lanTransport,
		Logger:    log.With("component", "manager"),
		Discovery: discovery.Options{
			Timeout:          time.Duration(cfg.LAN.TimeoutSeconds) * time.Second,
			MulticastGroup:   cfg.LAN.MulticastGroup,
			DiscoveryPort:    cfg.LAN.DiscoveryPort,
			ResponsePort:     cfg.LAN.ResponsePort,
			AllowPlaceholder: cfg.LAN.AllowPlaceholder,
		},
		Dispatch: dispatch.Options{
			MaxAttempts:   cfg.Dispatch.MaxAttempts,
			RetryDelay:    time.Duration(cfg.Dispatch.RetryDelayMS) * time.Millisecond,
			PacingDelay:   time.Duration(cfg.Dispatch.PacingDelayMS) * time.Millisecond,
			ControlPort:   cfg.Dispatch.ControlPort,
			StatusTimeout: time.Duration(cfg.Dispatch.StatusTimeoutMS) * time.Millisecond,
		},
		SceneRepo: sceneRepo,
		History:   historyRepo,
	}
	if influxClient != nil {
		mgrOpts.CommandTelemetry = &commandTelemetryAdapter{client: influxClient}
		mgrOpts.SyncTelemetry = &syncTelemetryAdapter{client: influxClient}
		mgrOpts.DiscoveryTelemetry = &discoveryTelemetryAdapter{client: influxClient}
	}

	mgr, err := manager.New(mgrOpts)
	if err != nil {
		return fmt.Errorf("building manager: %w", err)
	}
	defer func() {
		log.Info("closing manager")
		if closeErr := mgr.Close(); closeErr != nil {
			log.Error("error closing manager", "error", closeErr)
		}
	}()
	mgr.Registry().SetLogger(log.With("component", "registry"))
	log.Info("device manager initialised")

	// Stream registry transitions to the telemetry sink alongside whatever
	// the remote bridge publishes.
	if influxClient != nil {
		mgr.Registry().OnChange(newDeviceStateTelemetry(influxClient).recordChange)
	}

	// Keep the state history audit trail bounded.
	if historyRepo != nil && cfg.Database.HistoryRetentionDays > 0 {
		retention := time.Duration(cfg.Database.HistoryRetentionDays) * 24 * time.Hour
		go pruneHistoryLoop(ctx, historyRepo, retention, historyPruneInterval,
			log.With("component", "history"))
	}

	// Connect to MQTT broker and start the remote bridge (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log.With("component", "mqtt"))
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		bridge, bridgeErr := startBridge(cfg, mgr, mqttClient, log)
		if bridgeErr != nil {
			return bridgeErr
		}
		defer func() {
			log.Info("stopping remote bridge")
			bridge.Stop()
		}()
	} else {
		log.Info("MQTT disabled, remote surface unavailable")
	}

	// Run an initial discovery so the registry is populated before any
	// command arrives. Failure is non-fatal: the LAN may simply be empty.
	if devices, discErr := mgr.Discover(ctx); discErr != nil {
		log.Warn("initial discovery failed", "error", discErr)
	} else {
		log.Info("initial discovery complete", "devices", len(devices))
	}

	// Verify infrastructure connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. Remote bridge (if enabled)
	// 2. MQTT (if enabled)
	// 3. Manager (stops sync/scenes, closes the transport)
	// 4. InfluxDB (if enabled)
	// 5. Database (if opened)

	log.Info("LumenSync Core stopped")
	return nil
}

// getConfigPath returns the configuration file path and whether it was
// explicitly requested. An explicit LUMEN_CONFIG must exist; the default
// path is best-effort.
func getConfigPath() (string, bool) {
	if path := os.Getenv("LUMEN_CONFIG"); path != "" {
		return path, true
	}
	return defaultConfigPath, false
}

// openTransport binds the LAN UDP socket. With placeholder mode enabled a
// bind failure degrades to simulated devices instead of aborting startup.
func openTransport(cfg *config.Config, log *logging.Logger) (transport.Transport, error) {
	udp, err := transport.NewUDP(transport.UDPOptions{
		Port: cfg.LAN.ResponsePort,
	})
	if err != nil {
		if cfg.LAN.AllowPlaceholder {
			log.Warn("LAN transport unavailable, falling back to placeholder devices", "error", err)
			return nil, nil
		}
		return nil, fmt.Errorf("opening LAN transport: %w", err)
	}
	log.Info("LAN transport bound", "port", cfg.LAN.ResponsePort)
	return udp, nil
}

// startBridge wires the MQTT remote control surface to the manager.
func startBridge(cfg *config.Config, mgr *manager.Manager, client *mqtt.Client, log *logging.Logger) (*remote.Bridge, error) {
	bridge, err := remote.NewBridge(remote.Options{
		Manager:    mgr,
		Client:     client,
		Registry:   mgr.Registry(),
		SyncSource: color.NewGradientSource(syntheticSourceWidth, syntheticSourceHeight),
		SyncOptions: lightsync.Options{
			SampleRateHz:        cfg.Sync.SampleRateHz,
			Mode:                color.Mode(cfg.Sync.Mode),
			Zones:               cfg.Sync.Zones,
			Smoothing:           cfg.Sync.Smoothing,
			LatencyCompensation: time.Duration(cfg.Sync.LatencyMS) * time.Millisecond,
		},
		QoS:    byte(cfg.MQTT.QoS),
		Logger: log.With("component", "remote"),
	})
	if err != nil {
		return nil, fmt.Errorf("building remote bridge: %w", err)
	}
	if err := bridge.Start(); err != nil {
		return nil, fmt.Errorf("starting remote bridge: %w", err)
	}
	log.Info("remote bridge started")
	return bridge, nil
}

// healthCheck verifies the optional infrastructure connections. Every
// argument may be nil when the matching subsystem is disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if db != nil {
		if err := db.HealthCheck(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}

// commandTelemetryAdapter feeds dispatcher command results into InfluxDB.
// The write API is non-blocking, so recording on the send path is safe.
type commandTelemetryAdapter struct {
	client *influxdb.Client
}

func (a *commandTelemetryAdapter) RecordCommand(result dispatch.CommandResult) {
	a.client.WriteCommandResult(result.DeviceID, result.Command, result.Attempts, result.Success, result.Duration)
}

// syncTelemetryAdapter feeds sync engine tick records into InfluxDB.
type syncTelemetryAdapter struct {
	client *influxdb.Client
}

func (a *syncTelemetryAdapter) RecordSyncTick(record lightsync.TickRecord) {
	a.client.WriteSyncTick(record.Tick, record.Devices, record.Failures, record.Duration)
}

// discoveryTelemetryAdapter feeds discovery session results into InfluxDB.
type discoveryTelemetryAdapter struct {
	client *influxdb.Client
}

func (a *discoveryTelemetryAdapter) RecordDiscoveryRun(record discovery.RunRecord) {
	a.client.WriteDiscoveryRun(record.Found, record.Duration)
}

// deviceStateWriter is the slice of the InfluxDB client the state
// telemetry needs. Narrowed to an interface so tests can fake it.
type deviceStateWriter interface {
	WriteDeviceState(deviceID string, online bool, on bool, brightness int)
}

// deviceStateTelemetry forwards registry transitions to the telemetry
// sink, skipping points whose recorded fields are unchanged. Sync sessions
// mutate colour at the sample rate; colour is not a recorded field, so the
// dedupe keeps the series to genuine power, brightness and reachability
// transitions.
type deviceStateTelemetry struct {
	writer deviceStateWriter

	mu   sync.Mutex
	last map[string]deviceStatePoint
}

// deviceStatePoint is the comparable set of fields one point records.
type deviceStatePoint struct {
	online     bool
	on         bool
	brightness int
}

func newDeviceStateTelemetry(w deviceStateWriter) *deviceStateTelemetry {
	return &deviceStateTelemetry{
		writer: w,
		last:   make(map[string]deviceStatePoint),
	}
}

// recordChange is registered as a registry change subscriber.
func (t *deviceStateTelemetry) recordChange(d device.Device) {
	point := deviceStatePoint{
		online:     d.Online,
		on:         d.State.On,
		brightness: d.State.Brightness,
	}

	t.mu.Lock()
	prev, seen := t.last[d.ID]
	if seen && prev == point {
		t.mu.Unlock()
		return
	}
	t.last[d.ID] = point
	t.mu.Unlock()

	t.writer.WriteDeviceState(d.ID, point.online, point.on, point.brightness)
}

// pruneHistoryLoop removes state history rows older than retention, once
// at startup and then every interval, until ctx is cancelled.
func pruneHistoryLoop(ctx context.Context, repo device.StateHistoryRepository, retention, interval time.Duration, log *logging.Logger) {
	prune := func() {
		deleted, err := repo.PruneHistory(ctx, retention)
		if err != nil {
			log.Warn("state history prune failed", "error", err)
			return
		}
		if deleted > 0 {
			log.Info("state history pruned", "deleted", deleted, "retention", retention)
		}
	}

	prune()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			prune()
		}
	}
}
