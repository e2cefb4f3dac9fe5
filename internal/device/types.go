package device

import (
	"time"

	"github.com/lumensync/lumen-core/internal/color"
)

// Device represents one LAN-controllable light.
//
// The ID is the device's own MAC-style identifier and never changes; every
// other field is updated in place as discovery responses and command
// acknowledgements arrive. Devices are never deleted, only marked offline.
type Device struct {
	// Identity
	ID    string `json:"id"`
	Name  string `json:"name"`
	Model string `json:"model"`

	// Network
	IP         string `json:"ip"`
	LANEnabled bool   `json:"lan_enabled"`
	Online     bool   `json:"online"`

	// Simulated marks a placeholder device created because no transport was
	// available. Simulated devices accept commands but nothing listens.
	Simulated bool `json:"simulated,omitempty"`

	// Capabilities and current state
	Capabilities Capabilities `json:"capabilities"`
	State        State        `json:"state"`

	// Versions holds firmware version strings when the device reports them.
	Versions Versions `json:"versions"`

	// Timestamps
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
}

// DeepCopy creates an independent copy of the Device. Slice fields are
// cloned so modifications to the copy do not affect the original; this is
// what keeps the registry cache isolated from callers.
func (d *Device) DeepCopy() *Device {
	if d == nil {
		return nil
	}

	cpy := *d
	if d.Capabilities.Modes != nil {
		cpy.Capabilities.Modes = make([]string, len(d.Capabilities.Modes))
		copy(cpy.Capabilities.Modes, d.Capabilities.Modes)
	}
	return &cpy
}

// State is the last observed device state. Brightness is a percentage in
// [0, 100]; Kelvin is in [2000, 9000]. The registry clamps on write so the
// cached state always satisfies those ranges.
type State struct {
	On         bool      `json:"on"`
	Brightness int       `json:"brightness"`
	Color      color.RGB `json:"color"`
	Kelvin     int       `json:"kelvin"`
	Mode       string    `json:"mode"`
}

// Capabilities describes what a device can do. Devices rarely advertise
// these explicitly; discovery infers them from which fields status responses
// carry, starting from DefaultCapabilities.
type Capabilities struct {
	Power      bool `json:"power"`
	Brightness bool `json:"brightness"`
	Color      bool `json:"color"`
	ColorTemp  bool `json:"color_temp"`

	// MinKelvin and MaxKelvin bound the colour temperature range when
	// ColorTemp is set.
	MinKelvin int `json:"min_kelvin,omitempty"`
	MaxKelvin int `json:"max_kelvin,omitempty"`

	// Modes lists the device modes seen or assumed for this device.
	Modes []string `json:"modes,omitempty"`

	// MusicMode is set when the device reports a music-mode flag.
	MusicMode bool `json:"music_mode"`
}

// Versions holds firmware version strings from a scan response.
type Versions struct {
	BLEHardware  string `json:"ble_hardware,omitempty"`
	BLESoftware  string `json:"ble_software,omitempty"`
	WiFiHardware string `json:"wifi_hardware,omitempty"`
	WiFiSoftware string `json:"wifi_software,omitempty"`
}

// Device modes observed in the wild.
const (
	ModeNormal = "normal"
	ModeMusic  = "music"
)

// DefaultCapabilities is the assumption for a freshly discovered device:
// full control surface with the protocol-wide Kelvin range. Status responses
// refine it.
func DefaultCapabilities() Capabilities {
	return Capabilities{
		Power:      true,
		Brightness: true,
		Color:      true,
		ColorTemp:  true,
		MinKelvin:  color.KelvinMin,
		MaxKelvin:  color.KelvinMax,
		Modes:      []string{ModeNormal, ModeMusic},
		MusicMode:  true,
	}
}

// DefaultState is the state assumed for a freshly discovered device that has
// not answered a status query yet.
func DefaultState() State {
	return State{
		On:         false,
		Brightness: 50,
		Color:      color.White,
		Kelvin:     5000,
		Mode:       ModeNormal,
	}
}
