package protocol

import (
	"github.com/lumensync/lumen-core/internal/color"
)

// Command tags carried in the wire envelope.
const (
	CmdScan       = "scan"
	CmdDevStatus  = "devStatus"
	CmdTurn       = "turn"
	CmdBrightness = "brightness"
	CmdColor      = "colorwc"
)

// Defaults filled in when a device omits a field. Devices routinely omit
// colour and mode from status responses.
const (
	// DefaultKelvin is the colour temperature assumed when absent.
	DefaultKelvin = 5000

	// DefaultMode is the device mode assumed when absent.
	DefaultMode = "normal"

	// DefaultScanBrightness is the brightness assumed for a freshly
	// discovered device that has not reported state yet.
	DefaultScanBrightness = 50
)

// envelope is the outer wrapper of every datagram.
type envelope struct {
	Msg body `json:"msg"`
}

// body carries the command tag and its payload.
type body struct {
	Cmd  string `json:"cmd"`
	Data any    `json:"data"`
}

// scanRequestData is the payload of a discovery probe. The account topic is
// a fixed marker the LAN protocol requires; devices echo nothing back from it.
type scanRequestData struct {
	AccountTopic string `json:"account_topic"`
}

// turnData switches power. Value is 1 for on, 0 for off.
type turnData struct {
	Value int `json:"value"`
}

// brightnessData sets brightness as a percentage.
type brightnessData struct {
	Value int `json:"value"`
}

// colorData sets colour and/or colour temperature. A zero Kelvin value means
// "use the colour"; a non-zero Kelvin overrides the colour with white light
// of that temperature. Devices expect both fields present.
type colorData struct {
	Color  color.RGB `json:"color"`
	Kelvin int       `json:"colorTemInKelvin"`
}

// ScanResponse is a device's answer to a discovery probe.
type ScanResponse struct {
	// IP is the address the device claims. May be empty; the receiver should
	// fall back to the datagram's sender address.
	IP string `json:"ip"`

	// Device is the device identifier, a MAC-style string.
	Device string `json:"device"`

	// SKU is the hardware model, e.g. "H6159".
	SKU string `json:"sku"`

	// DeviceName is the user-assigned name. Most firmware omits it.
	DeviceName string `json:"deviceName,omitempty"`

	// Firmware version strings, present on newer firmware only.
	BLEVersionHard  string `json:"bleVersionHard,omitempty"`
	BLEVersionSoft  string `json:"bleVersionSoft,omitempty"`
	WiFiVersionHard string `json:"wifiVersionHard,omitempty"`
	WiFiVersionSoft string `json:"wifiVersionSoft,omitempty"`
}

// StatusResponse is a device's answer to a devStatus query, with defaults
// already filled. The presence flags record which optional fields the device
// actually sent, for capability inference.
type StatusResponse struct {
	// Device is the device identifier when the firmware includes one.
	// Older firmware omits it; the receiver then matches the response to a
	// device by sender address.
	Device string

	// SKU is the hardware model, when included.
	SKU string

	// DeviceName is the user-assigned name, when included.
	DeviceName string

	// On is the reported power state.
	On bool

	// Online is true when the device reported a power state at all. A status
	// response without one comes from a device that is reachable but not
	// ready.
	Online bool

	// Brightness is the reported brightness percentage, 0 when absent.
	Brightness int

	// Color is the reported colour, white when absent.
	Color color.RGB

	// Kelvin is the reported colour temperature, DefaultKelvin when absent.
	Kelvin int

	// Mode is the reported device mode, DefaultMode when absent.
	Mode string

	// MusicMode is the reported music-mode flag.
	MusicMode bool

	// HasColorTemp is true when the device sent a colour temperature,
	// implying it supports colour temperature control.
	HasColorTemp bool

	// HasMusicMode is true when the device sent a music-mode flag.
	HasMusicMode bool
}

// statusData is the raw shape of a devStatus payload. Pointer fields
// distinguish absent from zero.
type statusData struct {
	Device     string     `json:"device"`
	SKU        string     `json:"sku"`
	DeviceName string     `json:"deviceName"`
	OnOff      *int       `json:"onOff"`
	Brightness *int       `json:"brightness"`
	Color      *color.RGB `json:"color"`
	Kelvin     *int       `json:"colorTemInKelvin"`
	Mode       *string    `json:"mode"`
	MusicMode  *bool      `json:"musicMode"`
}

// Inbound is one decoded datagram. Exactly one of the payload pointers is
// non-nil, selected by Cmd.
type Inbound struct {
	// Cmd is the command tag from the envelope.
	Cmd string

	// Scan is set for scan responses.
	Scan *ScanResponse

	// Status is set for devStatus responses.
	Status *StatusResponse
}
