package scene

import (
	"context"
	"sync"
	"time"

	"github.com/lumensync/lumen-core/internal/device"
	"github.com/lumensync/lumen-core/internal/dispatch"
)

// DefaultFrameRateHz is the timeline evaluation rate when Options does not
// set one. Twenty frames per second keeps fades smooth while leaving the
// dispatcher's batch pacing room to breathe.
const DefaultFrameRateHz = 20

// Logger is the minimal logging interface the player depends on.
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

// Batcher is the slice of the command dispatcher the player needs.
type Batcher interface {
	SendBatch(ctx context.Context, entries []dispatch.BatchEntry) []bool
}

// Options configures a single playback session.
type Options struct {
	// FrameRateHz is the timeline evaluation rate. Zero means
	// DefaultFrameRateHz.
	FrameRateHz int

	// DeviceIDs restricts playback to the given devices, in order. Empty
	// means every eligible device in the registry.
	DeviceIDs []string
}

func (o Options) withDefaults() Options {
	if o.FrameRateHz <= 0 {
		o.FrameRateHz = DefaultFrameRateHz
	}
	return o
}

// playSession is the state of one playback run. Each Play builds a fresh
// session so a stopped session's channels are never reused.
type playSession struct {
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	scene  *Scene
	opts   Options
}

func (s *playSession) finished() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Player runs one scene at a time against the device registry.
type Player struct {
	dispatcher Batcher
	registry   *device.Registry
	logger     Logger

	mu   sync.Mutex
	sess *playSession
}

// NewPlayer creates a scene player. The dispatcher and registry are
// required; a nil logger disables logging.
func NewPlayer(dispatcher Batcher, registry *device.Registry, logger Logger) (*Player, error) {
	if dispatcher == nil {
		return nil, ErrDispatcherRequired
	}
	if registry == nil {
		return nil, ErrRegistryRequired
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &Player{
		dispatcher: dispatcher,
		registry:   registry,
		logger:     logger,
	}, nil
}

// Play validates the scene and starts playing it, replacing any session
// already running. The scene is deep-copied, so callers may mutate their
// copy afterwards without affecting playback.
func (p *Player) Play(sc *Scene, opts Options) error {
	if err := ValidateScene(sc); err != nil {
		return err
	}
	opts = opts.withDefaults()

	p.mu.Lock()
	defer p.mu.Unlock()

	if old := p.sess; old != nil {
		running := !old.finished()
		old.cancel()
		<-old.done
		if running {
			p.logger.Info("replacing running scene", "old", old.scene.Slug, "new", sc.Slug)
		}
		p.sess = nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	sess := &playSession{
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
		scene:  sc.DeepCopy(),
		opts:   opts,
	}
	p.sess = sess
	go p.run(sess)

	p.logger.Info("scene playback started",
		"scene", sess.scene.Slug,
		"loop", sess.scene.Loop,
		"keyframes", len(sess.scene.Keyframes),
		"frame_rate_hz", opts.FrameRateHz,
	)
	return nil
}

// Stop ends the current playback session, if any. Safe to call repeatedly
// and from any goroutine.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.sess == nil {
		p.logger.Debug("scene stop requested with no active playback")
		return
	}
	sess := p.sess
	p.sess = nil
	sess.cancel()
	<-sess.done
	p.logger.Info("scene playback stopped", "scene", sess.scene.Slug)
}

// Playing reports the slug of the scene currently playing. A non-loop
// scene that ran to completion no longer counts as playing.
func (p *Player) Playing() (slug string, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.sess == nil || p.sess.finished() {
		return "", false
	}
	return p.sess.scene.Slug, true
}

// run is the frame loop. Batches are sent synchronously between frames, so
// a slow network self-paces playback; the ticker simply drops the frames
// that passed in the meantime.
func (p *Player) run(sess *playSession) {
	defer close(sess.done)

	period := time.Second / time.Duration(sess.opts.FrameRateHz)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	start := time.Now()
	var last frame
	sent := false

	for {
		select {
		case <-sess.ctx.Done():
			p.logger.Debug("scene playback cancelled", "scene", sess.scene.Slug)
			return
		default:
		}

		f, final := frameAt(sess.scene, time.Since(start))
		if !sent || f != last {
			p.emit(sess, f, !sent || f.brightness != last.brightness)
			last, sent = f, true
		}
		if final {
			p.logger.Info("scene playback complete", "scene", sess.scene.Slug)
			return
		}

		select {
		case <-sess.ctx.Done():
			p.logger.Debug("scene playback cancelled", "scene", sess.scene.Slug)
			return
		case <-ticker.C:
		}
	}
}

// emit sends one frame to every target device: a colour command always,
// plus a brightness command when the level moved since the last frame.
func (p *Player) emit(sess *playSession, f frame, withBrightness bool) {
	targets := p.targets(sess.opts.DeviceIDs)
	if len(targets) == 0 {
		p.logger.Debug("no eligible devices for scene frame", "scene", sess.scene.Slug)
		return
	}

	entries := make([]dispatch.BatchEntry, 0, len(targets)*2)
	for _, d := range targets {
		entries = append(entries, dispatch.BatchEntry{
			Address:  d.IP,
			DeviceID: d.ID,
			Command:  dispatch.ColorAndTemp(&f.color, 0),
		})
		if withBrightness {
			entries = append(entries, dispatch.BatchEntry{
				Address:  d.IP,
				DeviceID: d.ID,
				Command:  dispatch.Brightness(f.brightness),
			})
		}
	}

	// Deliberately not the session context: a batch in flight finishes even
	// if playback stops underneath it.
	results := p.dispatcher.SendBatch(context.Background(), entries)

	failures := 0
	for _, ok := range results {
		if !ok {
			failures++
		}
	}
	if failures > 0 {
		p.logger.Debug("scene frame batch had failures",
			"scene", sess.scene.Slug,
			"failures", failures,
			"entries", len(entries),
		)
	}
}

// targets resolves the device set fresh per frame so devices appearing or
// dropping mid-scene are picked up naturally.
func (p *Player) targets(ids []string) []device.Device {
	var devs []device.Device
	if len(ids) > 0 {
		devs = p.registry.Subset(ids)
	} else {
		devs = p.registry.List()
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
