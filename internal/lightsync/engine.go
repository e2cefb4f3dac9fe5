package lightsync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lumensync/lumen-core/internal/color"
	"github.com/lumensync/lumen-core/internal/device"
	"github.com/lumensync/lumen-core/internal/dispatch"
)

// Session defaults. The sample rate trades smoothness against device
// command throughput; the latency hold matches typical render-to-glass
// offsets of desktop capture.
const (
	// DefaultSampleRateHz is the tick frequency when none is configured.
	DefaultSampleRateHz = 30

	// DefaultLatencyCompensation is the hold between sampling a frame and
	// emitting its colours.
	DefaultLatencyCompensation = 50 * time.Millisecond
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

// Batcher is the slice of the command dispatcher the engine needs.
type Batcher interface {
	SendBatch(ctx context.Context, entries []dispatch.BatchEntry) []bool
}

// TickRecord describes one emitted batch for telemetry.
type TickRecord struct {
	Tick     uint64
	Devices  int
	Failures int
	Duration time.Duration
}

// Telemetry receives per-batch results. RecordSyncTick runs on the
// emitter goroutine; implementations must return quickly or buffer
// internally.
type Telemetry interface {
	RecordSyncTick(record TickRecord)
}

// Options configures one sync session.
type Options struct {
	// SampleRateHz is how often the source is sampled. Zero means the
	// default.
	SampleRateHz int

	// Mode selects the extraction strategy. Zero means the extractor's
	// default.
	Mode color.Mode

	// Zones is the zone count for zone extraction. Zero means the
	// extractor's default.
	Zones int

	// Smoothing is the temporal smoothing factor in [0, 1).
	Smoothing float64

	// LatencyCompensation is the hold between sampling and emission.
	// Zero means the default; negative disables the hold entirely.
	LatencyCompensation time.Duration

	// Region restricts sampling to a sub-rectangle of the source. The
	// zero value samples the whole surface.
	Region color.Region

	// DeviceIDs is the device subset to drive. Empty drives every
	// emittable device the registry knows, resolved fresh each tick.
	DeviceIDs []string

	// Features, when set, supplies the audio feature vector used to
	// boost colours on energy and beats.
	Features color.FeatureSource
}

// withDefaults fills zero fields from the package defaults.
func (o Options) withDefaults() Options {
	if o.SampleRateHz <= 0 {
		o.SampleRateHz = DefaultSampleRateHz
	}
	if o.LatencyCompensation == 0 {
		o.LatencyCompensation = DefaultLatencyCompensation
	} else if o.LatencyCompensation < 0 {
		o.LatencyCompensation = 0
	}
	return o
}

// Stats is a point-in-time snapshot of a session's counters. Counters
// reset when a new session starts and survive Stop for post-mortems.
type Stats struct {
	// Running reports whether a session is active.
	Running bool

	// StartedAt is when the current (or last) session started.
	StartedAt time.Time

	// Ticks counts timer fires, including dropped and failed ones.
	Ticks uint64

	// EmittedBatches counts batches handed to the dispatcher.
	EmittedBatches uint64

	// DroppedTicks counts ticks discarded because the emitter was still
	// busy with an earlier one.
	DroppedTicks uint64

	// FailedSends counts individual device sends that failed inside
	// emitted batches.
	FailedSends uint64

	// SampleErrors counts ticks where sampling or extraction failed.
	SampleErrors uint64

	// DeviceCount is the size of the last emitted device subset.
	DeviceCount int

	// LastColors is the most recent extraction result.
	LastColors []color.RGB
}

// emission is one tick's colours on their way to the devices.
type emission struct {
	tick      uint64
	colors    []color.RGB
	sampledAt time.Time
}

// session is the per-run state. A fresh session is built on every Start
// so a stopping session can drain without racing the next one.
type session struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	source    color.PixelSource
	extractor *color.Extractor
	booster   *color.Booster
	opts      Options
	emitCh    chan emission
}

// Engine owns the sync session lifecycle. At most one session runs at a
// time.
type Engine struct {
	dispatcher Batcher
	registry   *device.Registry
	logger     Logger
	telemetry  Telemetry

	mu   sync.Mutex
	sess *session

	statsMu sync.Mutex
	stats   Stats
}

// NewEngine creates a sync engine. dispatcher and registry are required;
// a nil logger disables logging.
func NewEngine(dispatcher Batcher, registry *device.Registry, logger Logger) (*Engine, error) {
	if dispatcher == nil {
		return nil, ErrDispatcherRequired
	}
	if registry == nil {
		return nil, ErrRegistryRequired
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &Engine{
		dispatcher: dispatcher,
		registry:   registry,
		logger:     logger,
	}, nil
}

// SetTelemetry installs a sink for per-batch results. Call before the
// first Start; the field is not guarded.
func (e *Engine) SetTelemetry(t Telemetry) {
	e.telemetry = t
}

// Start begins a sync session.
//
// A nil source is a configuration error and fails immediately with
// ErrNoSource. Invalid extraction options fail the same way. Calling
// Start while a session is already running is an idempotent no-op: the
// running session continues, the call logs a warning and returns nil.
func (e *Engine) Start(source color.PixelSource, opts Options) error {
	if source == nil {
		return ErrNoSource
	}
	opts = opts.withDefaults()

	extractor, err := color.NewExtractor(color.ExtractorOptions{
		Mode:      opts.Mode,
		Zones:     opts.Zones,
		Smoothing: opts.Smoothing,
	})
	if err != nil {
		return fmt.Errorf("lightsync: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sess != nil {
		e.logger.Warn("sync session already running, ignoring start")
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &session{
		ctx:       ctx,
		cancel:    cancel,
		source:    source,
		extractor: extractor,
		opts:      opts,
		emitCh:    make(chan emission, 1),
	}
	if opts.Features != nil {
		s.booster = color.NewBooster()
	}
	e.sess = s

	e.statsMu.Lock()
	e.stats = Stats{Running: true, StartedAt: time.Now()}
	e.statsMu.Unlock()

	s.wg.Add(2)
	go e.runTicker(s)
	go e.runEmitter(s)

	e.logger.Info("sync session started",
		"sample_rate_hz", opts.SampleRateHz,
		"mode", string(opts.Mode),
		"zones", opts.Zones,
		"smoothing", opts.Smoothing,
		"latency_compensation", opts.LatencyCompensation,
		"device_subset", len(opts.DeviceIDs))
	return nil
}

// Stop ends the running session, if any. It cancels the tick timer and
// any held-but-unsent emission, then waits for the session goroutines to
// drain. A batch already handed to the dispatcher completes regardless.
// Stop is always safe to call, including when already idle or twice in a
// row.
func (e *Engine) Stop() {
	e.mu.Lock()
	s := e.sess
	e.sess = nil
	e.mu.Unlock()

	if s == nil {
		e.logger.Debug("sync already idle")
		return
	}

	s.cancel()
	s.wg.Wait()

	e.statsMu.Lock()
	e.stats.Running = false
	ticks, batches, dropped := e.stats.Ticks, e.stats.EmittedBatches, e.stats.DroppedTicks
	e.statsMu.Unlock()

	e.logger.Info("sync session stopped",
		"ticks", ticks,
		"emitted_batches", batches,
		"dropped_ticks", dropped)
}

// Running reports whether a session is active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sess != nil
}

// Stats returns a snapshot of the session counters.
func (e *Engine) Stats() Stats {
	e.statsMu.Lock()
	defer e.statsMu.Unlock()
	out := e.stats
	out.LastColors = append([]color.RGB(nil), e.stats.LastColors...)
	return out
}

// runTicker drives the sample loop until the session is cancelled.
func (e *Engine) runTicker(s *session) {
	defer s.wg.Done()

	period := time.Second / time.Duration(s.opts.SampleRateHz)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	var tick uint64
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			tick++
			e.runTick(s, tick)
		}
	}
}

// runTick samples, extracts and hands one tick's colours to the emitter.
// The hand-off buffer holds one emission; if the emitter still owes an
// earlier one, this tick is dropped and counted instead of queued.
func (e *Engine) runTick(s *session, tick uint64) {
	sampledAt := time.Now()

	frame, err := s.source.SamplePixels(s.opts.Region)
	if err != nil {
		e.logger.Debug("pixel sample failed", "tick", tick, "error", err)
		e.countSampleError()
		return
	}
	colors, err := s.extractor.Extract(frame)
	if err != nil {
		e.logger.Debug("extraction failed", "tick", tick, "error", err)
		e.countSampleError()
		return
	}
	if s.booster != nil {
		colors = s.booster.Apply(colors, s.opts.Features.Features())
	}

	e.statsMu.Lock()
	e.stats.Ticks++
	e.stats.LastColors = append([]color.RGB(nil), colors...)
	e.statsMu.Unlock()

	select {
	case s.emitCh <- emission{tick: tick, colors: colors, sampledAt: sampledAt}:
	default:
		e.statsMu.Lock()
		e.stats.DroppedTicks++
		e.statsMu.Unlock()
		e.logger.Debug("tick dropped, emitter busy", "tick", tick)
	}
}

func (e *Engine) countSampleError() {
	e.statsMu.Lock()
	e.stats.Ticks++
	e.stats.SampleErrors++
	e.statsMu.Unlock()
}

// runEmitter holds each emission for the latency compensation window,
// then sends the batch. Cancellation during the hold abandons the
// emission; cancellation during the batch does not.
func (e *Engine) runEmitter(s *session) {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case em := <-s.emitCh:
			if wait := time.Until(em.sampledAt.Add(s.opts.LatencyCompensation)); wait > 0 {
				timer := time.NewTimer(wait)
				select {
				case <-s.ctx.Done():
					timer.Stop()
					return
				case <-timer.C:
				}
			}
			e.emit(s, em)
		}
	}
}

// emit maps the tick's colours onto the device subset and sends the
// batch. With fewer colours than devices the colours wrap around, so a
// three-zone extraction still drives five lights.
func (e *Engine) emit(s *session, em emission) {
	start := time.Now()

	targets := e.targets(s.opts.DeviceIDs)
	if len(targets) == 0 {
		e.logger.Debug("no emittable devices", "tick", em.tick)
		return
	}

	entries := make([]dispatch.BatchEntry, len(targets))
	for i, dev := range targets {
		c := em.colors[i%len(em.colors)]
		entries[i] = dispatch.BatchEntry{
			Address:  dev.IP,
			DeviceID: dev.ID,
			Command:  dispatch.ColorAndTemp(&c, 0),
		}
	}

	// Deliberately not the session context: a batch in flight finishes
	// even if the session stops underneath it.
	results := e.dispatcher.SendBatch(context.Background(), entries)

	failures := 0
	for _, ok := range results {
		if !ok {
			failures++
		}
	}

	e.statsMu.Lock()
	e.stats.EmittedBatches++
	e.stats.FailedSends += uint64(failures)
	e.stats.DeviceCount = len(targets)
	e.statsMu.Unlock()

	if e.telemetry != nil {
		e.telemetry.RecordSyncTick(TickRecord{
			Tick:     em.tick,
			Devices:  len(targets),
			Failures: failures,
			Duration: time.Since(start),
		})
	}
	if failures > 0 {
		e.logger.Debug("batch completed with failures",
			"tick", em.tick, "failures", failures, "devices", len(targets))
	}
}

// targets resolves the device subset for one emission from the registry's
// current snapshot. Offline devices and devices with no control path are
// skipped; simulated devices count as controllable.
func (e *Engine) targets(ids []string) []device.Device {
	var devs []device.Device
	if len(ids) > 0 {
		devs = e.registry.Subset(ids)
	} else {
		devs = e.registry.List()
	}

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
