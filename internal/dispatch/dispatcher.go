package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/lumensync/lumen-core/internal/color"
	"github.com/lumensync/lumen-core/internal/device"
	"github.com/lumensync/lumen-core/internal/protocol"
	"github.com/lumensync/lumen-core/internal/transport"
)

// Defaults for delivery behaviour. The retry and pacing values are tuned
// for constrained device firmware, not for the network.
const (
	// DefaultMaxAttempts is how often a command is tried before it counts
	// as failed.
	DefaultMaxAttempts = 3

	// DefaultRetryDelay separates consecutive attempts of one command.
	DefaultRetryDelay = 500 * time.Millisecond

	// DefaultPacingDelay separates consecutive sends within one batch.
	DefaultPacingDelay = 50 * time.Millisecond

	// DefaultControlPort is the device-side port control commands target.
	DefaultControlPort = 4001

	// DefaultStatusTimeout bounds the wait for a single status response.
	DefaultStatusTimeout = 2 * time.Second
)

// Logger is the minimal logging interface the dispatcher needs.
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

// CommandResult describes one completed Send for telemetry.
type CommandResult struct {
	DeviceID string
	Command  string
	Attempts int
	Success  bool
	Duration time.Duration
}

// Telemetry receives per-command results. RecordCommand runs on the Send
// path; implementations must return quickly or buffer internally.
type Telemetry interface {
	RecordCommand(result CommandResult)
}

// Options tunes delivery behaviour. Zero values fall back to the package
// defaults, so Options{} is always valid.
type Options struct {
	// MaxAttempts is the attempt budget per command.
	MaxAttempts int

	// RetryDelay is the fixed wait between attempts of one command.
	RetryDelay time.Duration

	// PacingDelay is the fixed wait between sends within one batch.
	PacingDelay time.Duration

	// ControlPort is the device-side port commands are sent to.
	ControlPort int

	// StatusTimeout bounds the wait for a status-query response.
	StatusTimeout time.Duration
}

// withDefaults fills zero fields from the package defaults.
func (o Options) withDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = DefaultRetryDelay
	}
	if o.PacingDelay <= 0 {
		o.PacingDelay = DefaultPacingDelay
	}
	if o.ControlPort == 0 {
		o.ControlPort = DefaultControlPort
	}
	if o.StatusTimeout <= 0 {
		o.StatusTimeout = DefaultStatusTimeout
	}
	return o
}

// BatchEntry pairs a command with its destination for SendBatch.
type BatchEntry struct {
	// Address is the device's IP address.
	Address string

	// DeviceID selects the registry entry to update on success.
	DeviceID string

	// Command is the operation to deliver.
	Command Command
}

// Dispatcher delivers commands over the shared transport and keeps the
// device registry's cached state current.
type Dispatcher struct {
	transport transport.Transport
	registry  *device.Registry
	opts      Options
	logger    Logger
	telemetry Telemetry
}

// NewDispatcher creates a dispatcher. transport and registry are
// required; a nil logger disables logging.
func NewDispatcher(tr transport.Transport, registry *device.Registry, opts Options, logger Logger) (*Dispatcher, error) {
	if tr == nil {
		return nil, ErrTransportRequired
	}
	if registry == nil {
		return nil, ErrRegistryRequired
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &Dispatcher{
		transport: tr,
		registry:  registry,
		opts:      opts.withDefaults(),
		logger:    logger,
	}, nil
}

// SetTelemetry installs a sink for per-command results. Call before the
// dispatcher is in use; the field is not guarded.
func (d *Dispatcher) SetTelemetry(t Telemetry) {
	d.telemetry = t
}

// Send delivers one command to one device and reports success.
//
// The command is encoded once, then tried up to MaxAttempts times with
// RetryDelay between attempts. Control commands count as delivered when
// the datagram leaves the host; a status query additionally waits up to
// StatusTimeout for the device's response. On success the registry's
// cached state for the device is updated — optimistically for control
// commands, from the reported state for queries. A command that exhausts
// its attempts marks the device offline.
//
// Failure is a return value, never an error: batch callers proceed past
// individual failures. Cancelling ctx abandons remaining attempts.
func (d *Dispatcher) Send(ctx context.Context, addr, deviceID string, cmd Command) bool {
	start := time.Now()

	if dev, err := d.registry.Get(deviceID); err == nil && dev.Simulated {
		// Simulated devices accept everything without wire traffic.
		d.applyOptimistic(deviceID, cmd)
		d.logger.Debug("simulated device accepted command",
			"device_id", deviceID, "command", cmd.String())
		d.record(deviceID, cmd, 1, true, time.Since(start))
		return true
	}

	payload, err := cmd.encode()
	if err != nil {
		d.logger.Error("command encode failed",
			"device_id", deviceID, "command", cmd.String(), "error", err)
		d.record(deviceID, cmd, 0, false, time.Since(start))
		return false
	}

	for attempt := 1; attempt <= d.opts.MaxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				d.logger.Debug("send abandoned",
					"device_id", deviceID, "attempt", attempt, "error", ctx.Err())
				d.record(deviceID, cmd, attempt-1, false, time.Since(start))
				return false
			case <-time.After(d.opts.RetryDelay):
			}
		}

		if err := d.transport.SendDatagram(payload, addr, d.opts.ControlPort); err != nil {
			d.logger.Warn("send attempt failed",
				"device_id", deviceID,
				"command", cmd.String(),
				"attempt", attempt,
				"error", err)
			continue
		}

		if cmd.kind == KindStatusQuery {
			resp, ok := d.awaitStatus(addr)
			if !ok {
				d.logger.Debug("no status response",
					"device_id", deviceID, "attempt", attempt)
				continue
			}
			d.applyStatus(deviceID, resp)
		} else {
			d.applyOptimistic(deviceID, cmd)
		}

		d.record(deviceID, cmd, attempt, true, time.Since(start))
		return true
	}

	d.logger.Warn("command failed after all attempts",
		"device_id", deviceID,
		"command", cmd.String(),
		"attempts", d.opts.MaxAttempts)
	if deviceID != "" {
		// Repeated delivery failure is the only unreachability signal a
		// push-less LAN protocol gives us.
		_ = d.registry.MarkOffline(deviceID)
	}
	d.record(deviceID, cmd, d.opts.MaxAttempts, false, time.Since(start))
	return false
}

// SendBatch delivers commands sequentially in input order with
// PacingDelay between consecutive sends. The result slice is
// order-preserving and always len(entries) long; individual failures do
// not stop the batch. Cancelling ctx fails the remaining entries.
func (d *Dispatcher) SendBatch(ctx context.Context, entries []BatchEntry) []bool {
	results := make([]bool, len(entries))
	for i, entry := range entries {
		if i > 0 {
			select {
			case <-ctx.Done():
				d.logger.Debug("batch abandoned",
					"sent", i, "remaining", len(entries)-i, "error", ctx.Err())
				return results
			case <-time.After(d.opts.PacingDelay):
			}
		}
		results[i] = d.Send(ctx, entry.Address, entry.DeviceID, entry.Command)
	}
	return results
}

// awaitStatus waits for one status response from addr. Datagrams from
// other senders or of other kinds are skipped; a concurrently running
// discovery session may consume some of our traffic, which UDP semantics
// already force us to tolerate.
func (d *Dispatcher) awaitStatus(addr string) (*protocol.StatusResponse, bool) {
	deadline := time.Now().Add(d.opts.StatusTimeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, false
		}

		payload, from, err := d.transport.ReceiveDatagram(remaining)
		if err != nil {
			if errors.Is(err, transport.ErrTimeout) || errors.Is(err, transport.ErrClosed) {
				return nil, false
			}
			d.logger.Debug("status receive failed", "error", err)
			continue
		}
		if from != addr {
			continue
		}

		in, err := protocol.Decode(payload)
		if err != nil {
			d.logger.Debug("discarding datagram", "from", from, "error", err)
			continue
		}
		if in.Cmd != protocol.CmdDevStatus {
			continue
		}
		return in.Status, true
	}
}

// applyOptimistic folds a successful control command into the cached
// device state. LAN devices do not push state changes, so the cache is
// updated without re-querying.
func (d *Dispatcher) applyOptimistic(deviceID string, cmd Command) {
	if deviceID == "" {
		return
	}
	dev, err := d.registry.Get(deviceID)
	if err != nil {
		return
	}

	st := dev.State
	switch cmd.kind {
	case KindTurn:
		st.On = cmd.on
	case KindBrightness:
		st.Brightness = color.ClampBrightness(cmd.level)
	case KindColor:
		if cmd.hasColor {
			st.Color = cmd.color
		}
		if cmd.kelvin != 0 {
			st.Kelvin = color.ClampKelvin(cmd.kelvin)
		}
	default:
		return
	}

	if err := d.registry.SetState(deviceID, st); err != nil {
		d.logger.Warn("cached state update failed", "device_id", deviceID, "error", err)
	}
}

// applyStatus folds a status response into the cached device state.
func (d *Dispatcher) applyStatus(deviceID string, resp *protocol.StatusResponse) {
	if deviceID == "" {
		return
	}
	dev, err := d.registry.Get(deviceID)
	if err != nil {
		return
	}

	caps := dev.Capabilities
	caps.ColorTemp = resp.HasColorTemp
	caps.MusicMode = resp.HasMusicMode
	if err := d.registry.SetCapabilities(deviceID, caps); err != nil {
		d.logger.Warn("capability update failed", "device_id", deviceID, "error", err)
	}

	st := device.State{
		On:         resp.On,
		Brightness: resp.Brightness,
		Color:      resp.Color,
		Kelvin:     resp.Kelvin,
		Mode:       resp.Mode,
	}
	if err := d.registry.SetState(deviceID, st); err != nil {
		d.logger.Warn("reported state update failed", "device_id", deviceID, "error", err)
	}
}

// record forwards a result to the telemetry sink, if one is installed.
func (d *Dispatcher) record(deviceID string, cmd Command, attempts int, success bool, dur time.Duration) {
	if d.telemetry == nil {
		return
	}
	d.telemetry.RecordCommand(CommandResult{
		DeviceID: deviceID,
		Command:  string(cmd.kind),
		Attempts: attempts,
		Success:  success,
		Duration: dur,
	})
}
