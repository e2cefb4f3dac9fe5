package color

// Device-facing value ranges. Every value that leaves this process goes
// through one of the clamp helpers below, so out-of-range numbers can never
// reach the wire regardless of where they originated.
const (
	BrightnessMin = 0
	BrightnessMax = 100

	KelvinMin = 2000
	KelvinMax = 9000
)

// RGB is an 8-bit-per-channel colour in device byte order.
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// White is the colour devices report when no colour has been set.
var White = RGB{R: 255, G: 255, B: 255}

// ClampBrightness restricts a brightness percentage to [0, 100].
func ClampBrightness(v int) int {
	if v < BrightnessMin {
		return BrightnessMin
	}
	if v > BrightnessMax {
		return BrightnessMax
	}
	return v
}

// ClampChannel restricts a colour channel to [0, 255].
func ClampChannel(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// ClampKelvin restricts a colour temperature to [2000, 9000] Kelvin,
// the range accepted by the LAN protocol.
func ClampKelvin(v int) int {
	if v < KelvinMin {
		return KelvinMin
	}
	if v > KelvinMax {
		return KelvinMax
	}
	return v
}

// Lerp linearly interpolates between two colours. t is clamped to [0, 1];
// t=0 yields a, t=1 yields b.
func Lerp(a, b RGB, t float64) RGB {
	if t <= 0 {
		return a
	}
	if t >= 1 {
		return b
	}
	return RGB{
		R: ClampChannel(int(float64(a.R) + (float64(b.R)-float64(a.R))*t + 0.5)),
		G: ClampChannel(int(float64(a.G) + (float64(b.G)-float64(a.G))*t + 0.5)),
		B: ClampChannel(int(float64(a.B) + (float64(b.B)-float64(a.B))*t + 0.5)),
	}
}

// ToHSV converts the colour to hue [0,360), saturation [0,1] and value [0,1].
func (c RGB) ToHSV() (h, s, v float64) {
	r := float64(c.R) / 255
	g := float64(c.G) / 255
	b := float64(c.B) / 255

	maxC := max(r, g, b)
	minC := min(r, g, b)
	delta := maxC - minC

	v = maxC
	if maxC > 0 {
		s = delta / maxC
	}
	if delta == 0 {
		return 0, s, v
	}

	switch maxC {
	case r:
		h = 60 * ((g - b) / delta)
	case g:
		h = 60 * ((b-r)/delta + 2)
	default:
		h = 60 * ((r-g)/delta + 4)
	}
	if h < 0 {
		h += 360
	}
	return h, s, v
}

// FromHSV builds a colour from hue [0,360), saturation [0,1] and value [0,1].
// Inputs outside those ranges are clamped (hue wraps).
func FromHSV(h, s, v float64) RGB {
	for h < 0 {
		h += 360
	}
	for h >= 360 {
		h -= 360
	}
	s = clamp01(s)
	v = clamp01(v)

	c := v * s
	x := c * (1 - abs(mod(h/60, 2)-1))
	m := v - c

	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}

	return RGB{
		R: ClampChannel(int((r+m)*255 + 0.5)),
		G: ClampChannel(int((g+m)*255 + 0.5)),
		B: ClampChannel(int((b+m)*255 + 0.5)),
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func mod(v, m float64) float64 {
	for v >= m {
		v -= m
	}
	for v < 0 {
		v += m
	}
	return v
}
