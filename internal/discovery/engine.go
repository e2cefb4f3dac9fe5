package discovery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lumensync/lumen-core/internal/device"
	"github.com/lumensync/lumen-core/internal/protocol"
	"github.com/lumensync/lumen-core/internal/transport"
)

// Defaults for a discovery session. The group and ports are fixed by the
// device firmware; only the timeout is a genuine tunable.
const (
	// DefaultTimeout bounds how long a session collects responses.
	DefaultTimeout = 5 * time.Second

	// DefaultMulticastGroup is the group lighting devices listen on.
	DefaultMulticastGroup = "239.255.255.250"

	// BroadcastAddress is the limited-broadcast probe target. Some home
	// networks drop multicast but pass broadcast, so the probe tries this
	// first and falls back to the group.
	BroadcastAddress = "255.255.255.255"

	// DefaultDiscoveryPort is the device-side port scan probes target.
	DefaultDiscoveryPort = 4001

	// DefaultResponsePort is the controller-side port devices answer to.
	DefaultResponsePort = 4002

	// receivePoll caps a single blocking receive so context cancellation
	// is noticed promptly mid-session.
	receivePoll = 250 * time.Millisecond
)

// Logger is the minimal logging interface the engine needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger discards all log output. Used when no logger is provided.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// RunRecord summarises one completed discovery session.
type RunRecord struct {
	// Found counts the scan responses handled during the window, including
	// re-sightings of already known devices.
	Found int

	// Duration is how long the session collected responses.
	Duration time.Duration
}

// Telemetry receives per-session results. RecordDiscoveryRun runs on the
// discovering goroutine; implementations must return quickly or buffer
// internally.
type Telemetry interface {
	RecordDiscoveryRun(record RunRecord)
}

// Options tunes a discovery session. Zero values fall back to the engine's
// defaults, which in turn fall back to the package defaults, so Options{}
// is always valid.
type Options struct {
	// Timeout bounds the whole session. The session always runs the full
	// window; early responses never shorten it, late ones are collected
	// until it closes.
	Timeout time.Duration

	// MulticastGroup is the group the scan probe is sent to.
	MulticastGroup string

	// DiscoveryPort is the device-side port the probe targets.
	DiscoveryPort int

	// ResponsePort is the local port responses arrive on. It must match
	// the port the transport is bound to.
	ResponsePort int

	// AllowPlaceholder seeds a fixed set of simulated devices when no
	// transport is available. Meant for development on networks without
	// hardware; normally set from configuration at construction.
	AllowPlaceholder bool
}

// withDefaults fills zero fields from the package defaults.
func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.MulticastGroup == "" {
		o.MulticastGroup = DefaultMulticastGroup
	}
	if o.DiscoveryPort == 0 {
		o.DiscoveryPort = DefaultDiscoveryPort
	}
	if o.ResponsePort == 0 {
		o.ResponsePort = DefaultResponsePort
	}
	return o
}

// merged overlays per-call options on the engine defaults.
func (o Options) merged(call Options) Options {
	if call.Timeout > 0 {
		o.Timeout = call.Timeout
	}
	if call.MulticastGroup != "" {
		o.MulticastGroup = call.MulticastGroup
	}
	if call.DiscoveryPort != 0 {
		o.DiscoveryPort = call.DiscoveryPort
	}
	if call.ResponsePort != 0 {
		o.ResponsePort = call.ResponsePort
	}
	if call.AllowPlaceholder {
		o.AllowPlaceholder = true
	}
	return o
}

// Engine runs discovery sessions against the shared UDP transport and
// records what it finds in the device registry.
type Engine struct {
	transport transport.Transport
	registry  *device.Registry
	defaults  Options
	logger    Logger
	telemetry Telemetry

	mu     sync.Mutex
	active bool
}

// NewEngine creates a discovery engine.
//
// transport may be nil only when defaults.AllowPlaceholder is set; the
// engine then seeds simulated devices instead of probing the network.
// registry is required. A nil logger disables logging.
func NewEngine(tr transport.Transport, registry *device.Registry, defaults Options, logger Logger) (*Engine, error) {
	if registry == nil {
		return nil, ErrRegistryRequired
	}
	defaults = defaults.withDefaults()
	if tr == nil && !defaults.AllowPlaceholder {
		return nil, ErrNoTransport
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &Engine{
		transport: tr,
		registry:  registry,
		defaults:  defaults,
		logger:    logger,
	}, nil
}

// SetTelemetry installs a sink for per-session results. Call before the
// first Discover; the field is not guarded.
func (e *Engine) SetTelemetry(t Telemetry) {
	e.telemetry = t
}

// Discover runs one discovery session and returns a snapshot of every
// device the registry knows afterwards, sorted by ID.
//
// The session joins the multicast group, sends a scan probe, then collects
// and decodes response datagrams until the timeout elapses or ctx is
// cancelled. Whatever was collected by then is the result: partial results
// and empty results are both success. Malformed datagrams are skipped.
//
// If a session is already in flight the call does not start another; it
// logs the fact and returns the registry's current snapshot, which already
// includes the in-flight session's finds so far.
//
// Returns ErrNoTransport when no transport is available and placeholders
// are not allowed, and ErrScanSendFailed when the probe could not be sent.
func (e *Engine) Discover(ctx context.Context, opts Options) ([]device.Device, error) {
	opts = e.defaults.merged(opts)

	e.mu.Lock()
	if e.active {
		e.mu.Unlock()
		e.logger.Info("discovery already in flight, returning current snapshot")
		return e.registry.List(), nil
	}
	e.active = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.active = false
		e.mu.Unlock()
	}()

	if e.transport == nil {
		if !opts.AllowPlaceholder {
			return nil, ErrNoTransport
		}
		return e.seedPlaceholders(), nil
	}

	return e.runSession(ctx, opts)
}

// runSession executes the probe/collect loop for one session.
func (e *Engine) runSession(ctx context.Context, opts Options) ([]device.Device, error) {
	if err := e.transport.JoinMulticast(opts.MulticastGroup, opts.ResponsePort); err != nil {
		// Unicast responses still arrive on the bound port, so a failed
		// join degrades the session rather than ending it.
		e.logger.Warn("multicast join failed, continuing with unicast only",
			"group", opts.MulticastGroup, "error", err)
	}

	probe, err := protocol.EncodeScanRequest()
	if err != nil {
		return nil, fmt.Errorf("discovery: encode scan probe: %w", err)
	}
	if err := e.transport.SendDatagram(probe, BroadcastAddress, opts.DiscoveryPort); err != nil {
		e.logger.Debug("broadcast probe failed, trying multicast", "error", err)
		if err := e.transport.SendDatagram(probe, opts.MulticastGroup, opts.DiscoveryPort); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrScanSendFailed, err)
		}
	}

	e.logger.Info("discovery session started",
		"group", opts.MulticastGroup,
		"port", opts.DiscoveryPort,
		"timeout", opts.Timeout)

	var handled, responded, created int
	start := time.Now()
	deadline := start.Add(opts.Timeout)

	for {
		if err := ctx.Err(); err != nil {
			e.logger.Debug("discovery session cancelled", "error", err)
			break
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		wait := remaining
		if wait > receivePoll {
			wait = receivePoll
		}

		payload, from, err := e.transport.ReceiveDatagram(wait)
		if err != nil {
			if errors.Is(err, transport.ErrTimeout) {
				continue
			}
			if errors.Is(err, transport.ErrClosed) {
				e.logger.Warn("transport closed mid-session")
				return e.registry.List(), fmt.Errorf("discovery: %w", err)
			}
			e.logger.Warn("receive failed", "error", err)
			continue
		}

		handled++
		scan, fresh := e.handleDatagram(payload, from)
		if scan {
			responded++
		}
		if fresh {
			created++
		}
	}

	snapshot := e.registry.List()
	e.logger.Info("discovery session complete",
		"datagrams", handled,
		"new_devices", created,
		"known_devices", len(snapshot))
	if e.telemetry != nil {
		e.telemetry.RecordDiscoveryRun(RunRecord{
			Found:    responded,
			Duration: time.Since(start),
		})
	}
	return snapshot, nil
}

// handleDatagram decodes and applies one response datagram. It reports
// whether the datagram was a scan response and whether that response
// created a previously unknown device.
func (e *Engine) handleDatagram(payload []byte, from string) (scanSeen, fresh bool) {
	in, err := protocol.Decode(payload)
	if err != nil {
		e.logger.Debug("discarding datagram", "from", from, "error", err)
		return false, false
	}

	switch in.Cmd {
	case protocol.CmdScan:
		return true, e.handleScan(in.Scan, from)
	case protocol.CmdDevStatus:
		e.handleStatus(in.Status, from)
	}
	return false, false
}

// handleScan records a scan response in the registry. Duplicate responses
// for the same device overwrite earlier ones, so the latest sighting wins.
func (e *Engine) handleScan(resp *protocol.ScanResponse, from string) bool {
	ip := resp.IP
	if ip == "" {
		ip = from
	}
	name := resp.DeviceName
	if name == "" {
		// The LAN protocol rarely carries a user-assigned name; fall back
		// to the model so the device still lists readably.
		name = resp.SKU
	}

	d := &device.Device{
		ID:           resp.Device,
		Name:         name,
		Model:        resp.SKU,
		IP:           ip,
		LANEnabled:   true,
		Online:       true,
		Capabilities: device.DefaultCapabilities(),
		State:        device.DefaultState(),
		Versions: device.Versions{
			BLEHardware:  resp.BLEVersionHard,
			BLESoftware:  resp.BLEVersionSoft,
			WiFiHardware: resp.WiFiVersionHard,
			WiFiSoftware: resp.WiFiVersionSoft,
		},
	}

	stored, fresh, err := e.registry.Upsert(d)
	if err != nil {
		e.logger.Warn("rejected scan response", "from", from, "error", err)
		return false
	}
	if fresh {
		e.logger.Info("discovered device",
			"device_id", stored.ID,
			"model", stored.Model,
			"ip", stored.IP)
	} else {
		e.logger.Debug("device seen again", "device_id", stored.ID, "ip", stored.IP)
	}
	return fresh
}

// handleStatus merges a status response into an already known device. The
// response is matched by its device ID when the firmware includes one,
// otherwise by the sender's address. Status from an unknown device is
// dropped: state without an identity has nowhere to live.
func (e *Engine) handleStatus(resp *protocol.StatusResponse, from string) {
	var d *device.Device
	var err error

	if resp.Device != "" {
		d, err = e.registry.Get(resp.Device)
	} else {
		d, err = e.findByIP(from)
	}
	if err != nil {
		e.logger.Debug("status from unknown device", "from", from, "error", err)
		return
	}

	if resp.DeviceName != "" {
		d.Name = resp.DeviceName
	}
	if resp.SKU != "" {
		d.Model = resp.SKU
	}
	// A status response is an authoritative capability observation: the
	// firmware includes a colour-temperature field exactly when it
	// supports one, likewise for music mode.
	d.Capabilities.ColorTemp = resp.HasColorTemp
	d.Capabilities.MusicMode = resp.HasMusicMode

	if _, _, err := e.registry.Upsert(d); err != nil {
		e.logger.Warn("status merge failed", "device_id", d.ID, "error", err)
		return
	}

	st := device.State{
		On:         resp.On,
		Brightness: resp.Brightness,
		Color:      resp.Color,
		Kelvin:     resp.Kelvin,
		Mode:       resp.Mode,
	}
	if err := e.registry.SetState(d.ID, st); err != nil {
		e.logger.Warn("status state update failed", "device_id", d.ID, "error", err)
	}
}

// findByIP resolves a device by its last known address.
func (e *Engine) findByIP(ip string) (*device.Device, error) {
	for _, d := range e.registry.List() {
		if d.IP == ip {
			return &d, nil
		}
	}
	return nil, device.ErrDeviceNotFound
}
