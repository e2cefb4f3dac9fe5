package color

// FeatureVector is a point-in-time summary of an external signal, typically
// audio analysis. All fields are optional in the sense that a zero vector
// leaves colours untouched.
type FeatureVector struct {
	// Energy is the normalised signal energy in [0, 1].
	Energy float64 `json:"energy"`

	// Pitch is the normalised dominant pitch in [0, 1].
	Pitch float64 `json:"pitch"`

	// Beat is true while a beat is being detected. The Booster reacts to the
	// rising edge, not the level.
	Beat bool `json:"beat"`
}

// FeatureSource supplies the latest feature vector on demand. The sync engine
// pulls at most once per tick; implementations must be safe for concurrent
// use and should return the most recent vector without blocking.
type FeatureSource interface {
	Features() FeatureVector
}

// Booster default shaping weights.
const (
	// defaultEnergyFloor is the brightness scale at zero energy. Brightness
	// ramps linearly from this floor to 1.0 at full energy.
	defaultEnergyFloor = 0.6

	// defaultSaturationLift is how far saturation moves towards full at full
	// energy.
	defaultSaturationLift = 0.3

	// defaultBeatBoost is the extra value added on a beat rising edge.
	defaultBeatBoost = 0.25
)

// Booster shapes extracted colours with an external feature vector: energy
// scales brightness and lifts saturation, and a beat rising edge spikes
// brightness for one application.
//
// Like the Extractor it carries per-session state (the previous beat level)
// and is driven from a single goroutine.
type Booster struct {
	energyFloor    float64
	saturationLift float64
	beatBoost      float64
	prevBeat       bool
}

// NewBooster creates a booster with the default shaping weights.
func NewBooster() *Booster {
	return &Booster{
		energyFloor:    defaultEnergyFloor,
		saturationLift: defaultSaturationLift,
		beatBoost:      defaultBeatBoost,
	}
}

// Apply shapes colours in place of the input slice (a new slice is returned,
// the input is not modified). A zero-energy, no-beat vector dims colours to
// the energy floor; callers that have no feature source should simply not
// call Apply.
func (b *Booster) Apply(colors []RGB, f FeatureVector) []RGB {
	energy := clamp01(f.Energy)
	beatEdge := f.Beat && !b.prevBeat
	b.prevBeat = f.Beat

	scale := b.energyFloor + (1-b.energyFloor)*energy
	spike := 0.0
	if beatEdge {
		spike = b.beatBoost
	}

	out := make([]RGB, len(colors))
	for i, c := range colors {
		h, s, v := c.ToHSV()
		s += (1 - s) * b.saturationLift * energy
		v = clamp01(v*scale + spike)
		out[i] = FromHSV(h, s, v)
	}
	return out
}
