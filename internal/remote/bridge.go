package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/lumensync/lumen-core/internal/color"
	"github.com/lumensync/lumen-core/internal/device"
	"github.com/lumensync/lumen-core/internal/infrastructure/mqtt"
	"github.com/lumensync/lumen-core/internal/lightsync"
	"github.com/lumensync/lumen-core/internal/scene"
)

// Bridge operation constants.
const (
	// commandTimeout bounds the device I/O for one inbound command.
	commandTimeout = 10 * time.Second

	// discoveryTimeout bounds a broker-triggered discovery run.
	discoveryTimeout = 30 * time.Second

	// statusPeriod is how often the retained sync status is refreshed
	// while a sync session or scene is active.
	statusPeriod = 5 * time.Second

	// minTopicParts is the minimum number of parts in a valid command topic.
	minTopicParts = 3
)

// Bridge translates between the MQTT control surface and the device
// manager. It handles:
//   - Receiving commands from the broker and applying them to devices
//   - Publishing retained device state as the registry changes
//   - Publishing sync/scene playback status and discovery events
//
// Thread Safety: All methods are safe for concurrent use.
type Bridge struct {
	manager    Controller
	client     Client
	registry   *device.Registry
	syncSource color.PixelSource
	syncOpts   lightsync.Options
	qos        byte
	logger     Logger

	// Retained device state cache for change detection
	stateCache   map[string]stateSnapshot
	stateCacheMu sync.Mutex

	// unsubscribe detaches the registry change subscription on Stop.
	unsubscribe func()

	// Shutdown coordination
	done      chan struct{}
	wg        sync.WaitGroup
	stopOnce  sync.Once
	ctx       context.Context    // Bridge-level context, cancelled on Stop()
	ctxCancel context.CancelFunc // Cancel function for ctx
}

// stateSnapshot is the comparable slice of a device that the broker sees.
// Two equal snapshots produce identical retained payloads, so the second
// publish is skipped.
type stateSnapshot struct {
	state  device.State
	online bool
}

// Controller is the manager surface the bridge drives. Satisfied by
// *manager.Manager; narrowed to an interface so tests can fake it.
type Controller interface {
	// Discover runs a discovery round and returns the known devices.
	Discover(ctx context.Context) ([]device.Device, error)

	// SetPower switches one device on or off.
	SetPower(ctx context.Context, id string, on bool) error

	// SetBrightness sets one device's brightness percentage.
	SetBrightness(ctx context.Context, id string, level int) error

	// SetColor sets one device's RGB colour.
	SetColor(ctx context.Context, id string, c color.RGB) error

	// SetColorTemp sets one device's white colour temperature.
	SetColorTemp(ctx context.Context, id string, kelvin int) error

	// StartSync begins an ambient sync session.
	StartSync(source color.PixelSource, opts lightsync.Options) error

	// StopSync ends the ambient sync session, if any.
	StopSync()

	// SyncStats reports the sync engine's counters.
	SyncStats() lightsync.Stats

	// PlayScene starts scene playback.
	PlayScene(ctx context.Context, ref string, opts scene.Options) error

	// StopScene ends scene playback, if any.
	StopScene()

	// PlayingScene reports the active scene reference.
	PlayingScene() (string, bool)
}

// Client is the interface for MQTT operations.
// This allows mocking in tests and flexibility in implementation.
type Client interface {
	// Publish sends a message to a topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// PublishRetained sends a retained message with the client's default QoS.
	PublishRetained(topic string, payload []byte) error

	// Subscribe registers a handler for a topic pattern.
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error

	// IsConnected returns true if connected to the broker.
	IsConnected() bool
}

// Logger is the minimal logging interface the bridge depends on.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options holds configuration for creating a bridge.
type Options struct {
	// Manager executes the commands arriving from the broker. Required.
	Manager Controller

	// Client is the broker connection. Required.
	Client Client

	// Registry is optional. When set, the bridge subscribes to its change
	// feed between Start and Stop so device state reaches the broker as it
	// changes.
	Registry *device.Registry

	// SyncSource is the pixel source handed to StartSync for
	// broker-triggered sessions. When nil, sync/start commands are
	// rejected.
	SyncSource color.PixelSource

	// SyncOptions is the base configuration for broker-triggered sync
	// sessions. The start command can narrow DeviceIDs.
	SyncOptions lightsync.Options

	// QoS is the level used for subscriptions and event publishes.
	QoS byte

	// Logger is optional structured logging. Nil discards output.
	Logger Logger
}

// NewBridge creates a new bridge instance.
// Call Start() to begin operation.
func NewBridge(opts Options) (*Bridge, error) {
	if opts.Manager == nil {
		return nil, ErrManagerRequired
	}
	if opts.Client == nil {
		return nil, ErrClientRequired
	}

	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	// Bridge-level context so in-flight commands abort on shutdown
	ctx, ctxCancel := context.WithCancel(context.Background())

	return &Bridge{
		manager:    opts.Manager,
		client:     opts.Client,
		registry:   opts.Registry, // May be nil (optional)
		syncSource: opts.SyncSource,
		syncOpts:   opts.SyncOptions,
		qos:        opts.QoS,
		logger:     logger,
		stateCache: make(map[string]stateSnapshot),
		done:       make(chan struct{}),
		ctx:        ctx,
		ctxCancel:  ctxCancel,
	}, nil
}

// Start subscribes to the command topics, wires the registry change hook,
// and begins periodic status publishing.
func (b *Bridge) Start() error {
	topics := []string{
		mqtt.Topics{}.AllDeviceCommands(),
		mqtt.Topics{}.Discover(),
		mqtt.Topics{}.SyncStart(),
		mqtt.Topics{}.SyncStop(),
		mqtt.Topics{}.ScenePlay(),
		mqtt.Topics{}.SceneStop(),
	}
	for _, topic := range topics {
		if err := b.client.Subscribe(topic, b.qos, b.handleMessage); err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
	}

	if b.registry != nil {
		b.unsubscribe = b.registry.OnChange(b.PublishDeviceState)
	}

	// Seed the retained status so new subscribers see the idle state.
	b.publishStatus()

	b.wg.Add(1)
	go b.statusLoop()

	b.logger.Info("remote bridge started", "subscriptions", len(topics))
	return nil
}

// Stop gracefully shuts down the bridge. The MQTT subscriptions stay with
// the client; callers close the client separately.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		close(b.done)

		// Cancel bridge context to abort in-flight commands
		b.ctxCancel()

		// Detach from the registry so nothing publishes after shutdown
		if b.unsubscribe != nil {
			b.unsubscribe()
		}

		// Wait for pending operations
		b.wg.Wait()

		b.logger.Info("remote bridge stopped")
	})
}

// handleMessage routes incoming MQTT messages to the appropriate handler.
// Returned errors are logged by the MQTT client; a bad payload never
// breaks the subscription.
func (b *Bridge) handleMessage(topic string, payload []byte) error {
	parts := strings.Split(topic, "/")
	if len(parts) < minTopicParts || parts[1] != "command" {
		return fmt.Errorf("remote: unexpected topic %q", topic)
	}

	switch parts[2] {
	case "device":
		// lumensync/command/device/{id}/set
		if len(parts) != 5 || parts[4] != "set" {
			return fmt.Errorf("remote: unexpected device topic %q", topic)
		}
		return b.handleDeviceCommand(parts[3], payload)
	case "discover":
		return b.handleDiscover()
	case "sync":
		if len(parts) > 3 && parts[3] == "start" {
			return b.handleSyncStart(payload)
		}
		return b.handleSyncStop()
	case "scene":
		if len(parts) > 3 && parts[3] == "play" {
			return b.handleScenePlay(payload)
		}
		return b.handleSceneStop()
	default:
		return fmt.Errorf("remote: unknown command type %q", parts[2])
	}
}

// handleDeviceCommand applies one per-device command. Present fields are
// applied in order: power, brightness, colour, colour temperature. The
// first failure stops the sequence.
func (b *Bridge) handleDeviceCommand(deviceID string, payload []byte) error {
	var cmd DeviceCommand
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return fmt.Errorf("remote: parse device command: %w", err)
	}
	if cmd.Power == nil && cmd.Brightness == nil && cmd.Color == nil && cmd.Kelvin == 0 {
		return fmt.Errorf("remote: device command for %s carries no fields", deviceID)
	}

	b.logger.Debug("device command received", "device", deviceID)

	// Derive timeout from bridge context so commands abort on shutdown
	ctx, cancel := context.WithTimeout(b.ctx, commandTimeout)
	defer cancel()

	if cmd.Power != nil {
		if err := b.manager.SetPower(ctx, deviceID, *cmd.Power); err != nil {
			return fmt.Errorf("remote: set power on %s: %w", deviceID, err)
		}
	}
	if cmd.Brightness != nil {
		if err := b.manager.SetBrightness(ctx, deviceID, *cmd.Brightness); err != nil {
			return fmt.Errorf("remote: set brightness on %s: %w", deviceID, err)
		}
	}
	if cmd.Color != nil {
		if err := b.manager.SetColor(ctx, deviceID, *cmd.Color); err != nil {
			return fmt.Errorf("remote: set colour on %s: %w", deviceID, err)
		}
	}
	if cmd.Kelvin > 0 {
		if err := b.manager.SetColorTemp(ctx, deviceID, cmd.Kelvin); err != nil {
			return fmt.Errorf("remote: set colour temperature on %s: %w", deviceID, err)
		}
	}

	return nil
}

// handleDiscover starts a discovery run. Discovery blocks for the scan
// window, so it runs in the background under the bridge's own context
// (not the MQTT handler's lifetime).
func (b *Bridge) handleDiscover() error {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()

		ctx, cancel := context.WithTimeout(b.ctx, discoveryTimeout)
		defer cancel()

		devices, err := b.manager.Discover(ctx)
		if err != nil {
			b.logger.Error("broker-triggered discovery failed", "error", err)
			return
		}

		b.publishDiscoveryEvent(devices)
	}()
	return nil
}

// handleSyncStart begins an ambient sync session with the configured
// source and base options.
func (b *Bridge) handleSyncStart(payload []byte) error {
	if b.syncSource == nil {
		return ErrNoPixelSource
	}

	var cmd SyncStartCommand
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &cmd); err != nil {
			return fmt.Errorf("remote: parse sync start: %w", err)
		}
	}

	opts := b.syncOpts
	if len(cmd.DeviceIDs) > 0 {
		opts.DeviceIDs = cmd.DeviceIDs
	}

	if err := b.manager.StartSync(b.syncSource, opts); err != nil {
		return fmt.Errorf("remote: start sync: %w", err)
	}

	b.logger.Info("sync started from broker", "devices", len(cmd.DeviceIDs))
	b.publishStatus()
	return nil
}

func (b *Bridge) handleSyncStop() error {
	b.manager.StopSync()
	b.logger.Info("sync stopped from broker")
	b.publishStatus()
	return nil
}

// handleScenePlay starts scene playback by ID or slug.
func (b *Bridge) handleScenePlay(payload []byte) error {
	var cmd ScenePlayCommand
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return fmt.Errorf("remote: parse scene play: %w", err)
	}
	if cmd.Scene == "" {
		return fmt.Errorf("remote: scene play command names no scene")
	}

	ctx, cancel := context.WithTimeout(b.ctx, commandTimeout)
	defer cancel()

	opts := scene.Options{
		FrameRateHz: cmd.FrameRateHz,
		DeviceIDs:   cmd.DeviceIDs,
	}
	if err := b.manager.PlayScene(ctx, cmd.Scene, opts); err != nil {
		return fmt.Errorf("remote: play scene %q: %w", cmd.Scene, err)
	}

	b.logger.Info("scene started from broker", "scene", cmd.Scene)
	b.publishStatus()
	return nil
}

func (b *Bridge) handleSceneStop() error {
	b.manager.StopScene()
	b.logger.Info("scene stopped from broker")
	b.publishStatus()
	return nil
}

// PublishDeviceState publishes the device's retained state topic, skipping
// publishes when the broker-visible state has not changed. It is
// subscribed to the registry change feed when Options.Registry is set;
// callers that route changes themselves can leave Registry nil and invoke
// it directly.
func (b *Bridge) PublishDeviceState(d device.Device) {
	snap := stateSnapshot{state: d.State, online: d.Online}

	b.stateCacheMu.Lock()
	prev, seen := b.stateCache[d.ID]
	if seen && prev == snap {
		b.stateCacheMu.Unlock()
		return // Unchanged, keep the retained payload as is
	}
	b.stateCache[d.ID] = snap
	b.stateCacheMu.Unlock()

	msg := NewDeviceStateMessage(d)
	payload, err := json.Marshal(msg)
	if err != nil {
		b.logger.Error("failed to marshal device state", "device", d.ID, "error", err)
		return
	}

	topic := mqtt.Topics{}.DeviceState(d.ID)
	if err := b.client.PublishRetained(topic, payload); err != nil {
		b.logger.Warn("failed to publish device state", "device", d.ID, "error", err)
	}
}

// publishDiscoveryEvent announces a completed discovery run.
func (b *Bridge) publishDiscoveryEvent(devices []device.Device) {
	msg := NewDiscoveryEventMessage(devices)
	payload, err := json.Marshal(msg)
	if err != nil {
		b.logger.Error("failed to marshal discovery event", "error", err)
		return
	}

	topic := mqtt.Topics{}.DiscoveryEvent()
	if err := b.client.Publish(topic, payload, b.qos, false); err != nil {
		b.logger.Warn("failed to publish discovery event", "error", err)
		return
	}

	b.logger.Info("discovery event published", "found", len(devices))
}

// publishStatus publishes the retained sync/scene status snapshot.
func (b *Bridge) publishStatus() {
	stats := b.manager.SyncStats()
	ref, _ := b.manager.PlayingScene()

	msg := NewSyncStateMessage(stats, ref)
	payload, err := json.Marshal(msg)
	if err != nil {
		b.logger.Error("failed to marshal sync status", "error", err)
		return
	}

	if err := b.client.PublishRetained(mqtt.Topics{}.SyncState(), payload); err != nil {
		b.logger.Warn("failed to publish sync status", "error", err)
	}
}

// statusLoop refreshes the retained status while a session or scene is
// active, so subscribers see the counters move. Transitions are published
// immediately by the command handlers.
func (b *Bridge) statusLoop() {
	defer b.wg.Done()

	ticker := time.NewTicker(statusPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-b.done:
			return
		case <-ticker.C:
			_, playing := b.manager.PlayingScene()
			if b.manager.SyncStats().Running || playing {
				b.publishStatus()
			}
		}
	}
}
