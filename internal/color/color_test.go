package color

import "testing"

func TestClampBrightness(t *testing.T) {
	tests := []struct {
		name string
		in   int
		want int
	}{
		{name: "below range", in: -10, want: 0},
		{name: "lower bound", in: 0, want: 0},
		{name: "in range", in: 42, want: 42},
		{name: "upper bound", in: 100, want: 100},
		{name: "above range", in: 250, want: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClampBrightness(tt.in); got != tt.want {
				t.Errorf("ClampBrightness(%d) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestClampChannel(t *testing.T) {
	tests := []struct {
		name string
		in   int
		want uint8
	}{
		{name: "negative", in: -1, want: 0},
		{name: "zero", in: 0, want: 0},
		{name: "mid", in: 128, want: 128},
		{name: "max", in: 255, want: 255},
		{name: "overflow", in: 300, want: 255},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClampChannel(tt.in); got != tt.want {
				t.Errorf("ClampChannel(%d) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestClampKelvin(t *testing.T) {
	tests := []struct {
		name string
		in   int
		want int
	}{
		{name: "too cold", in: 500, want: 2000},
		{name: "lower bound", in: 2000, want: 2000},
		{name: "in range", in: 5000, want: 5000},
		{name: "upper bound", in: 9000, want: 9000},
		{name: "too hot", in: 12000, want: 9000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClampKelvin(tt.in); got != tt.want {
				t.Errorf("ClampKelvin(%d) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestLerp(t *testing.T) {
	a := RGB{R: 0, G: 100, B: 200}
	b := RGB{R: 100, G: 200, B: 0}

	tests := []struct {
		name string
		t    float64
		want RGB
	}{
		{name: "t zero returns a", t: 0, want: a},
		{name: "t one returns b", t: 1, want: b},
		{name: "t below range clamps to a", t: -0.5, want: a},
		{name: "t above range clamps to b", t: 1.5, want: b},
		{name: "midpoint", t: 0.5, want: RGB{R: 50, G: 150, B: 100}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Lerp(a, b, tt.t); got != tt.want {
				t.Errorf("Lerp(%v, %v, %v) = %v, want %v", a, b, tt.t, got, tt.want)
			}
		})
	}
}

func TestHSVRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		c    RGB
	}{
		{name: "red", c: RGB{R: 255}},
		{name: "green", c: RGB{G: 255}},
		{name: "blue", c: RGB{B: 255}},
		{name: "white", c: White},
		{name: "black", c: RGB{}},
		{name: "grey", c: RGB{R: 128, G: 128, B: 128}},
		{name: "orange", c: RGB{R: 255, G: 128, B: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, s, v := tt.c.ToHSV()
			got := FromHSV(h, s, v)
			if got != tt.c {
				t.Errorf("round trip of %v: got %v (h=%v s=%v v=%v)", tt.c, got, h, s, v)
			}
		})
	}
}

func TestFromHSVClampsInputs(t *testing.T) {
	// Hue wraps; saturation and value clamp.
	if got, want := FromHSV(360, 1, 1), (RGB{R: 255}); got != want {
		t.Errorf("FromHSV(360,1,1) = %v, want %v", got, want)
	}
	if got, want := FromHSV(-120, 1, 1), FromHSV(240, 1, 1); got != want {
		t.Errorf("FromHSV(-120,1,1) = %v, want %v", got, want)
	}
	if got, want := FromHSV(0, 2, 2), (RGB{R: 255}); got != want {
		t.Errorf("FromHSV(0,2,2) = %v, want %v", got, want)
	}
}
