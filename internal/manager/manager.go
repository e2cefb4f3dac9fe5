package manager

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lumensync/lumen-core/internal/color"
	"github.com/lumensync/lumen-core/internal/device"
	"github.com/lumensync/lumen-core/internal/discovery"
	"github.com/lumensync/lumen-core/internal/dispatch"
	"github.com/lumensync/lumen-core/internal/lightsync"
	"github.com/lumensync/lumen-core/internal/scene"
	"github.com/lumensync/lumen-core/internal/transport"
)

// Logger is the minimal logging interface the manager depends on.
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

// Options wires a Manager. Only the transport is commonly set; everything
// else has a working default.
type Options struct {
	// Transport carries LAN datagrams. Nil selects placeholder mode, where
	// only simulated devices work (see discovery.Options.AllowPlaceholder).
	Transport transport.Transport

	// Registry is the shared device registry. Created when nil.
	Registry *device.Registry

	// Logger receives log output from the manager and every sub-engine.
	Logger Logger

	// Discovery holds the default scan options.
	Discovery discovery.Options

	// Dispatch tunes retries, pacing and the control port.
	Dispatch dispatch.Options

	// SceneRepo enables the scene operations. Nil leaves them unavailable.
	SceneRepo scene.Repository

	// History, when set, records a state snapshot after every confirmed
	// single-device command and status refresh. Batch and sync emissions
	// are not recorded; at the sync sample rate they would swamp the
	// table with near-identical rows.
	History device.StateHistoryRepository

	// CommandTelemetry, SyncTelemetry and DiscoveryTelemetry are optional
	// sinks for per-command results, per-tick sync records and per-session
	// discovery results.
	CommandTelemetry   dispatch.Telemetry
	SyncTelemetry      lightsync.Telemetry
	DiscoveryTelemetry discovery.Telemetry
}

// Manager is the single entry point callers hold. Build one with New; the
// zero value is not usable.
type Manager struct {
	transport  transport.Transport
	registry   *device.Registry
	discovery  *discovery.Engine
	dispatcher *dispatch.Dispatcher
	sync       *lightsync.Engine
	player     *scene.Player
	scenes     scene.Repository
	history    device.StateHistoryRepository
	logger     Logger

	// startMu serialises the sync/scene start paths. Each path stops the
	// other engine before starting its own; without the lock two
	// concurrent starts can both pass the stop step and leave sync and a
	// scene driving the lights together.
	startMu sync.Mutex
}

// New builds a Manager and its sub-engines from the given options.
func New(opts Options) (*Manager, error) {
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	registry := opts.Registry
	if registry == nil {
		registry = device.NewRegistry()
	}

	disc, err := discovery.NewEngine(opts.Transport, registry, opts.Discovery, logger)
	if err != nil {
		return nil, fmt.Errorf("building discovery engine: %w", err)
	}
	if opts.DiscoveryTelemetry != nil {
		disc.SetTelemetry(opts.DiscoveryTelemetry)
	}

	// The dispatcher always gets a transport: in placeholder mode a null
	// one, so simulated devices still short-circuit while real sends fail
	// loudly instead of panicking.
	sendTransport := opts.Transport
	if sendTransport == nil {
		sendTransport = nullTransport{}
	}
	disp, err := dispatch.NewDispatcher(sendTransport, registry, opts.Dispatch, logger)
	if err != nil {
		return nil, fmt.Errorf("building dispatcher: %w", err)
	}
	if opts.CommandTelemetry != nil {
		disp.SetTelemetry(opts.CommandTelemetry)
	}

	syncEngine, err := lightsync.NewEngine(disp, registry, logger)
	if err != nil {
		return nil, fmt.Errorf("building sync engine: %w", err)
	}
	if opts.SyncTelemetry != nil {
		syncEngine.SetTelemetry(opts.SyncTelemetry)
	}

	player, err := scene.NewPlayer(disp, registry, logger)
	if err != nil {
		return nil, fmt.Errorf("building scene player: %w", err)
	}

	return &Manager{
		transport:  opts.Transport,
		registry:   registry,
		discovery:  disc,
		dispatcher: disp,
		sync:       syncEngine,
		player:     player,
		scenes:     opts.SceneRepo,
		history:    opts.History,
		logger:     logger,
	}, nil
}

// Registry exposes the shared device registry, mainly so outer surfaces
// can subscribe to change notifications.
func (m *Manager) Registry() *device.Registry {
	return m.registry
}

// Discover runs a discovery session with the configured defaults and
// returns the registry contents afterwards.
func (m *Manager) Discover(ctx context.Context) ([]device.Device, error) {
	return m.discovery.Discover(ctx, discovery.Options{})
}

// Devices returns a snapshot of every known device.
func (m *Manager) Devices() []device.Device {
	return m.registry.List()
}

// Device returns a single device by ID.
func (m *Manager) Device(id string) (*device.Device, error) {
	return m.registry.Get(id)
}

// RefreshState queries a device for its live state and returns the device
// with the response merged in.
func (m *Manager) RefreshState(ctx context.Context, id string) (*device.Device, error) {
	d, err := m.registry.Get(id)
	if err != nil {
		return nil, err
	}
	if !m.dispatcher.Send(ctx, d.IP, d.ID, dispatch.StatusQuery()) {
		return nil, fmt.Errorf("%w: status query to %s", ErrSendFailed, id)
	}
	m.recordHistory(ctx, id, device.StateHistorySourceStatus)
	return m.registry.Get(id)
}

// SetPower switches a device on or off.
func (m *Manager) SetPower(ctx context.Context, id string, on bool) error {
	return m.sendOne(ctx, id, dispatch.Turn(on))
}

// SetBrightness sets a device's brightness percentage. The level is
// clamped to [0, 100] on the wire.
func (m *Manager) SetBrightness(ctx context.Context, id string, level int) error {
	return m.sendOne(ctx, id, dispatch.Brightness(level))
}

// SetColor sets a device's colour.
func (m *Manager) SetColor(ctx context.Context, id string, c color.RGB) error {
	return m.sendOne(ctx, id, dispatch.ColorAndTemp(&c, 0))
}

// SetColorTemp sets a device's white temperature. Kelvin is clamped to the
// supported range; zero encodes as an empty command and fails.
func (m *Manager) SetColorTemp(ctx context.Context, id string, kelvin int) error {
	return m.sendOne(ctx, id, dispatch.ColorAndTemp(nil, kelvin))
}

func (m *Manager) sendOne(ctx context.Context, id string, cmd dispatch.Command) error {
	d, err := m.registry.Get(id)
	if err != nil {
		return err
	}
	if !m.dispatcher.Send(ctx, d.IP, d.ID, cmd) {
		return fmt.Errorf("%w: %s on %s", ErrSendFailed, cmd, id)
	}
	m.recordHistory(ctx, id, device.StateHistorySourceCommand)
	return nil
}

// recordHistory snapshots a device's post-command state into the history
// repository. History failures are logged, never surfaced; the audit trail
// must not break device control.
func (m *Manager) recordHistory(ctx context.Context, id, source string) {
	if m.history == nil {
		return
	}
	d, err := m.registry.Get(id)
	if err != nil {
		return
	}
	if err := m.history.RecordStateChange(ctx, id, d.State, source); err != nil {
		m.logger.Warn("recording state history failed", "device", id, "error", err)
	}
}

// SetAllColors sends one colour to every eligible device as a paced batch
// and reports how many deliveries succeeded.
func (m *Manager) SetAllColors(ctx context.Context, c color.RGB) (int, error) {
	targets := m.eligible()
	if len(targets) == 0 {
		return 0, ErrNoDevices
	}

	entries := make([]dispatch.BatchEntry, 0, len(targets))
	for _, d := range targets {
		entries = append(entries, dispatch.BatchEntry{
			Address:  d.IP,
			DeviceID: d.ID,
			Command:  dispatch.ColorAndTemp(&c, 0),
		})
	}
	return countDelivered(m.dispatcher.SendBatch(ctx, entries)), nil
}

// SetZoneColors spreads a palette across the eligible devices round-robin:
// device i gets colors[i mod len(colors)].
func (m *Manager) SetZoneColors(ctx context.Context, colors []color.RGB) (int, error) {
	if len(colors) == 0 {
		return 0, ErrNoColors
	}
	targets := m.eligible()
	if len(targets) == 0 {
		return 0, ErrNoDevices
	}

	entries := make([]dispatch.BatchEntry, 0, len(targets))
	for i, d := range targets {
		c := colors[i%len(colors)]
		entries = append(entries, dispatch.BatchEntry{
			Address:  d.IP,
			DeviceID: d.ID,
			Command:  dispatch.ColorAndTemp(&c, 0),
		})
	}
	return countDelivered(m.dispatcher.SendBatch(ctx, entries)), nil
}

// StartSync begins screen-sync against the given pixel source. A running
// scene is stopped first; sync and scenes never drive the lights together.
func (m *Manager) StartSync(source color.PixelSource, opts lightsync.Options) error {
	m.startMu.Lock()
	defer m.startMu.Unlock()

	if slug, playing := m.player.Playing(); playing {
		m.logger.Info("stopping scene playback for sync", "scene", slug)
		m.player.Stop()
	}
	return m.sync.Start(source, opts)
}

// StopSync ends the sync session, if any.
func (m *Manager) StopSync() {
	m.sync.Stop()
}

// SyncRunning reports whether a sync session is active.
func (m *Manager) SyncRunning() bool {
	return m.sync.Running()
}

// SyncStats returns a snapshot of the sync session counters.
func (m *Manager) SyncStats() lightsync.Stats {
	return m.sync.Stats()
}

// PlayScene loads a scene by slug (falling back to ID) and starts playing
// it. A running sync session is stopped first.
func (m *Manager) PlayScene(ctx context.Context, ref string, opts scene.Options) error {
	if m.scenes == nil {
		return ErrScenesUnavailable
	}

	sc, err := m.scenes.GetBySlug(ctx, ref)
	if errors.Is(err, scene.ErrSceneNotFound) {
		sc, err = m.scenes.GetByID(ctx, ref)
	}
	if err != nil {
		return err
	}

	m.startMu.Lock()
	defer m.startMu.Unlock()

	if m.sync.Running() {
		m.logger.Info("stopping sync for scene playback", "scene", sc.Slug)
		m.sync.Stop()
	}
	return m.player.Play(sc, opts)
}

// StopScene ends scene playback, if any.
func (m *Manager) StopScene() {
	m.player.Stop()
}

// PlayingScene reports the slug of the currently playing scene.
func (m *Manager) PlayingScene() (string, bool) {
	return m.player.Playing()
}

// Scenes lists the stored scenes.
func (m *Manager) Scenes(ctx context.Context) ([]scene.Scene, error) {
	if m.scenes == nil {
		return nil, ErrScenesUnavailable
	}
	return m.scenes.List(ctx)
}

// ClearDevices empties the device registry. The registry stays usable;
// the next discovery repopulates it.
func (m *Manager) ClearDevices() {
	m.registry.Clear()
	m.logger.Info("device registry cleared")
}

// Close stops sync and scene playback and closes the transport. The
// manager is not usable afterwards.
func (m *Manager) Close() error {
	m.sync.Stop()
	m.player.Stop()
	if m.transport != nil {
		if err := m.transport.Close(); err != nil {
			return fmt.Errorf("closing transport: %w", err)
		}
	}
	m.logger.Info("manager closed")
	return nil
}

func (m *Manager) eligible() []device.Device {
	devs := m.registry.List()
	out := make([]device.Device, 0, len(devs))
	for _, d := range devs {
		if !d.Online {
			continue
		}
		if !d.LANEnabled && !d.Simulated {
			continue
		}
		out = append(out, d)
	}
	return out
}

func countDelivered(results []bool) int {
	n := 0
	for _, ok := range results {
		if ok {
			n++
		}
	}
	return n
}

// nullTransport stands in when no LAN transport exists. Every operation
// fails fast; simulated devices never reach it.
type nullTransport struct{}

var errNoTransport = errors.New("manager: no transport available")

func (nullTransport) SendDatagram([]byte, string, int) error { return errNoTransport }

func (nullTransport) ReceiveDatagram(time.Duration) ([]byte, string, error) {
	return nil, "", transport.ErrClosed
}

func (nullTransport) JoinMulticast(string, int) error { return errNoTransport }

func (nullTransport) Close() error { return nil }
