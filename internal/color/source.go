package color

import (
	"errors"
	"time"
)

// ErrEmptyFrame is returned when a source produces a frame with no pixels.
var ErrEmptyFrame = errors.New("color: empty frame")

// ErrInvalidFrame is returned when a frame's declared geometry disagrees
// with its pixel buffer.
var ErrInvalidFrame = errors.New("color: invalid frame geometry")

// Region selects a sub-rectangle of a pixel surface. The zero value selects
// the entire surface.
type Region struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Full reports whether the region selects the entire surface.
func (r Region) Full() bool {
	return r == Region{}
}

// Frame is a row-major pixel buffer with geometry. Pixels[y*Width+x] is the
// pixel at (x, y).
type Frame struct {
	Width  int
	Height int
	Pixels []RGB
}

// At returns the pixel at (x, y). Callers must stay within bounds.
func (f *Frame) At(x, y int) RGB {
	return f.Pixels[y*f.Width+x]
}

// PixelSource is anything that can be sampled for pixels: a capture surface,
// a decoded video frame, a synthetic generator. The sync engine samples it at
// a fixed cadence; implementations must be safe for concurrent use.
type PixelSource interface {
	// SamplePixels returns the current pixels for the region. A zero Region
	// requests the whole surface.
	SamplePixels(region Region) (*Frame, error)
}

// GradientSource is a synthetic PixelSource producing an animated horizontal
// hue sweep. It exists so the daemon and examples can drive a sync session
// without a real capture surface attached.
type GradientSource struct {
	width  int
	height int
	period time.Duration
	start  time.Time
	now    func() time.Time
}

// NewGradientSource creates a synthetic source of the given dimensions.
// The full hue cycle takes ten seconds.
func NewGradientSource(width, height int) *GradientSource {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	return &GradientSource{
		width:  width,
		height: height,
		period: 10 * time.Second,
		start:  time.Now(),
		now:    time.Now,
	}
}

// SamplePixels renders the gradient for the requested region.
func (s *GradientSource) SamplePixels(region Region) (*Frame, error) {
	if region.Full() {
		region = Region{Width: s.width, Height: s.height}
	}
	if region.Width < 1 || region.Height < 1 {
		return nil, ErrEmptyFrame
	}

	phase := mod(s.now().Sub(s.start).Seconds()/s.period.Seconds(), 1)

	frame := &Frame{
		Width:  region.Width,
		Height: region.Height,
		Pixels: make([]RGB, region.Width*region.Height),
	}
	for x := 0; x < region.Width; x++ {
		hue := mod(float64(region.X+x)/float64(s.width)+phase, 1) * 360
		c := FromHSV(hue, 1, 1)
		for y := 0; y < region.Height; y++ {
			frame.Pixels[y*region.Width+x] = c
		}
	}
	return frame, nil
}
