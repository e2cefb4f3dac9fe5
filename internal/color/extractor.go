package color

import (
	"errors"
	"fmt"
)

// Extraction errors.
var (
	// ErrInvalidMode is returned when an extraction mode is not recognised.
	ErrInvalidMode = errors.New("color: invalid extraction mode")

	// ErrInvalidZones is returned when the zone count is below one.
	ErrInvalidZones = errors.New("color: zone count must be at least 1")

	// ErrInvalidSmoothing is returned when the smoothing factor is outside [0, 1).
	ErrInvalidSmoothing = errors.New("color: smoothing factor must be in [0, 1)")
)

// Mode selects how colours are extracted from a frame.
type Mode string

// Mode constants.
const (
	// ModeDominant picks the most common colour in the frame.
	ModeDominant Mode = "dominant"

	// ModeAverage averages every pixel in the frame.
	ModeAverage Mode = "average"

	// ModeZones splits the frame into vertical strips, left to right, and
	// averages each.
	ModeZones Mode = "zones"
)

// AllModes returns all valid extraction modes.
func AllModes() []Mode {
	return []Mode{ModeDominant, ModeAverage, ModeZones}
}

// Valid reports whether the mode is a recognised extraction mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeDominant, ModeAverage, ModeZones:
		return true
	default:
		return false
	}
}

// ExtractorOptions configures an Extractor.
type ExtractorOptions struct {
	// Mode selects the extraction strategy. Defaults to ModeAverage.
	Mode Mode

	// Zones is the number of vertical strips for ModeZones. Ignored for the
	// single-colour modes. Defaults to 3.
	Zones int

	// Smoothing is the temporal smoothing factor in [0, 1). Zero disables
	// smoothing; values near one make the output trail the input heavily.
	Smoothing float64
}

// Extractor reduces frames to device colours for one sync session.
//
// It carries the smoothing history between frames:
//
//	output = previous + (raw - previous) * (1 - smoothing)
//
// A new session gets a new Extractor so the history never leaks across
// sessions. Not safe for concurrent use; the sync engine drives it from a
// single goroutine.
type Extractor struct {
	mode      Mode
	zones     int
	smoothing float64

	// prev holds the smoothed channels from the last frame, one triple per
	// output colour. Reset whenever the output arity changes.
	prev [][3]float64
}

// NewExtractor creates an extractor, applying defaults and validating options.
func NewExtractor(opts ExtractorOptions) (*Extractor, error) {
	if opts.Mode == "" {
		opts.Mode = ModeAverage
	}
	if !opts.Mode.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, opts.Mode)
	}
	if opts.Zones == 0 {
		opts.Zones = 3
	}
	if opts.Zones < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidZones, opts.Zones)
	}
	if opts.Smoothing < 0 || opts.Smoothing >= 1 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSmoothing, opts.Smoothing)
	}

	return &Extractor{
		mode:      opts.Mode,
		zones:     opts.Zones,
		smoothing: opts.Smoothing,
	}, nil
}

// Mode returns the configured extraction mode.
func (e *Extractor) Mode() Mode { return e.mode }

// Zones returns the configured zone count.
func (e *Extractor) Zones() int { return e.zones }

// Extract reduces a frame to one colour (dominant, average) or one colour per
// zone, then applies temporal smoothing against the previous result.
//
// Frames come from an external pixel source, so their geometry is not
// trusted: a frame whose Width and Height do not cover its pixel buffer is
// rejected with ErrInvalidFrame rather than read out of bounds.
func (e *Extractor) Extract(frame *Frame) ([]RGB, error) {
	if frame == nil || len(frame.Pixels) == 0 {
		return nil, ErrEmptyFrame
	}
	if frame.Width <= 0 || frame.Height <= 0 || frame.Width*frame.Height > len(frame.Pixels) {
		return nil, fmt.Errorf("%w: %dx%d with %d pixels",
			ErrInvalidFrame, frame.Width, frame.Height, len(frame.Pixels))
	}

	var raw []RGB
	switch e.mode {
	case ModeDominant:
		raw = []RGB{dominantColor(frame.Pixels)}
	case ModeAverage:
		raw = []RGB{averageColor(frame.Pixels)}
	case ModeZones:
		raw = e.zoneColors(frame)
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, e.mode)
	}

	return e.smooth(raw), nil
}

// Reset clears the smoothing history. The next Extract passes raw colours
// straight through.
func (e *Extractor) Reset() {
	e.prev = nil
}

// smooth blends raw colours with the previous output. The first frame after
// construction or Reset, and any frame that changes the output arity, passes
// through unchanged.
func (e *Extractor) smooth(raw []RGB) []RGB {
	if e.smoothing == 0 {
		e.prev = nil
		return raw
	}

	if len(e.prev) != len(raw) {
		e.prev = make([][3]float64, len(raw))
		for i, c := range raw {
			e.prev[i] = [3]float64{float64(c.R), float64(c.G), float64(c.B)}
		}
		return raw
	}

	blend := 1 - e.smoothing
	out := make([]RGB, len(raw))
	for i, c := range raw {
		p := e.prev[i]
		p[0] += (float64(c.R) - p[0]) * blend
		p[1] += (float64(c.G) - p[1]) * blend
		p[2] += (float64(c.B) - p[2]) * blend
		e.prev[i] = p
		out[i] = RGB{
			R: ClampChannel(int(p[0] + 0.5)),
			G: ClampChannel(int(p[1] + 0.5)),
			B: ClampChannel(int(p[2] + 0.5)),
		}
	}
	return out
}

// zoneColors averages each of the N vertical strips of the frame, left to
// right. A frame narrower than the zone count repeats columns so every zone
// still gets a colour.
func (e *Extractor) zoneColors(frame *Frame) []RGB {
	out := make([]RGB, e.zones)
	for z := 0; z < e.zones; z++ {
		x0 := z * frame.Width / e.zones
		x1 := (z + 1) * frame.Width / e.zones
		if x1 <= x0 {
			x1 = x0 + 1
			if x1 > frame.Width {
				x0, x1 = frame.Width-1, frame.Width
			}
		}

		var r, g, b, n uint64
		for y := 0; y < frame.Height; y++ {
			row := y * frame.Width
			for x := x0; x < x1; x++ {
				p := frame.Pixels[row+x]
				r += uint64(p.R)
				g += uint64(p.G)
				b += uint64(p.B)
				n++
			}
		}
		out[z] = RGB{
			R: uint8(r / n),
			G: uint8(g / n),
			B: uint8(b / n),
		}
	}
	return out
}

// averageColor is the arithmetic mean of all pixels.
func averageColor(pixels []RGB) RGB {
	var r, g, b uint64
	for _, p := range pixels {
		r += uint64(p.R)
		g += uint64(p.G)
		b += uint64(p.B)
	}
	n := uint64(len(pixels))
	return RGB{
		R: uint8(r / n),
		G: uint8(g / n),
		B: uint8(b / n),
	}
}

// Dominant-colour quantisation: 4 bits per channel gives 4096 buckets, coarse
// enough to group near-identical shades without merging distinct hues.
const quantShift = 4

// dominantColor votes pixels into quantised buckets and returns the mean of
// the winning bucket, so the result keeps full precision rather than the
// bucket's truncated midpoint.
func dominantColor(pixels []RGB) RGB {
	type bucket struct {
		r, g, b uint64
		count   uint64
	}

	buckets := make(map[uint16]*bucket)
	var best *bucket
	for _, p := range pixels {
		key := uint16(p.R>>quantShift)<<8 | uint16(p.G>>quantShift)<<4 | uint16(p.B>>quantShift)
		bk := buckets[key]
		if bk == nil {
			bk = &bucket{}
			buckets[key] = bk
		}
		bk.r += uint64(p.R)
		bk.g += uint64(p.G)
		bk.b += uint64(p.B)
		bk.count++
		if best == nil || bk.count > best.count {
			best = bk
		}
	}

	return RGB{
		R: uint8(best.r / best.count),
		G: uint8(best.g / best.count),
		B: uint8(best.b / best.count),
	}
}
