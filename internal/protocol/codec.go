package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/lumensync/lumen-core/internal/color"
)

// accountTopic is the fixed marker sent in every scan request.
const accountTopic = "reserve"

// EncodeScanRequest builds the discovery probe datagram.
func EncodeScanRequest() ([]byte, error) {
	return encode(CmdScan, scanRequestData{AccountTopic: accountTopic})
}

// EncodeStatusRequest builds a devStatus query datagram.
func EncodeStatusRequest() ([]byte, error) {
	return encode(CmdDevStatus, struct{}{})
}

// EncodeTurn builds a power command datagram.
func EncodeTurn(on bool) ([]byte, error) {
	v := 0
	if on {
		v = 1
	}
	return encode(CmdTurn, turnData{Value: v})
}

// EncodeBrightness builds a brightness command datagram. The level is clamped
// to [0, 100].
func EncodeBrightness(level int) ([]byte, error) {
	return encode(CmdBrightness, brightnessData{Value: color.ClampBrightness(level)})
}

// EncodeColor builds a colorwc command datagram. Passing a nil colour with a
// non-zero kelvin sets white light of that temperature; a colour with kelvin
// zero sets the colour. A non-zero kelvin is clamped to [2000, 9000]; zero is
// preserved because it means "no temperature override" on the wire.
func EncodeColor(c *color.RGB, kelvin int) ([]byte, error) {
	if c == nil && kelvin == 0 {
		return nil, ErrEmptyColorCommand
	}

	data := colorData{}
	if c != nil {
		data.Color = *c
	}
	if kelvin != 0 {
		data.Kelvin = color.ClampKelvin(kelvin)
	}
	return encode(CmdColor, data)
}

// encode wraps a payload in the envelope and terminates it with a newline,
// the datagram framing devices expect.
func encode(cmd string, data any) ([]byte, error) {
	raw, err := json.Marshal(envelope{Msg: body{Cmd: cmd, Data: data}})
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", cmd, err)
	}
	return append(raw, '\n'), nil
}

// rawEnvelope defers payload parsing until the command tag is known.
type rawEnvelope struct {
	Msg struct {
		Cmd  string          `json:"cmd"`
		Data json.RawMessage `json:"data"`
	} `json:"msg"`
}

// Decode parses one inbound datagram. It is total: every input yields either
// a message or an error to log and skip, never a panic. Foreign traffic on
// the multicast group (SSDP, other ecosystems) decodes to ErrMalformed or
// ErrUnknownCommand.
func Decode(payload []byte) (*Inbound, error) {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrMalformed)
	}

	var env rawEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Msg.Cmd == "" {
		return nil, fmt.Errorf("%w: missing cmd", ErrMalformed)
	}

	switch env.Msg.Cmd {
	case CmdScan:
		resp, err := decodeScan(env.Msg.Data)
		if err != nil {
			return nil, err
		}
		return &Inbound{Cmd: CmdScan, Scan: resp}, nil

	case CmdDevStatus:
		resp, err := decodeStatus(env.Msg.Data)
		if err != nil {
			return nil, err
		}
		return &Inbound{Cmd: CmdDevStatus, Status: resp}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, env.Msg.Cmd)
	}
}

// decodeScan parses a scan response payload.
func decodeScan(data json.RawMessage) (*ScanResponse, error) {
	var resp ScanResponse
	if len(data) > 0 {
		if err := json.Unmarshal(data, &resp); err != nil {
			return nil, fmt.Errorf("%w: scan data: %v", ErrMalformed, err)
		}
	}
	if resp.Device == "" {
		return nil, fmt.Errorf("%w: scan response without device id", ErrMalformed)
	}
	return &resp, nil
}

// decodeStatus parses a devStatus payload, filling defaults for absent
// fields and recording which optional fields were present.
func decodeStatus(data json.RawMessage) (*StatusResponse, error) {
	var raw statusData
	if len(data) > 0 {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("%w: devStatus data: %v", ErrMalformed, err)
		}
	}

	resp := &StatusResponse{
		Device:     raw.Device,
		SKU:        raw.SKU,
		DeviceName: raw.DeviceName,
		Color:      color.White,
		Kelvin:     DefaultKelvin,
		Mode:       DefaultMode,
	}

	if raw.OnOff != nil {
		resp.Online = true
		resp.On = *raw.OnOff != 0
	}
	if raw.Brightness != nil {
		resp.Brightness = color.ClampBrightness(*raw.Brightness)
	}
	if raw.Color != nil {
		resp.Color = *raw.Color
	}
	if raw.Kelvin != nil {
		// Devices in colour mode report kelvin 0; the field's presence still
		// implies colour temperature support.
		resp.HasColorTemp = true
		if *raw.Kelvin > 0 {
			resp.Kelvin = color.ClampKelvin(*raw.Kelvin)
		}
	}
	if raw.Mode != nil && *raw.Mode != "" {
		resp.Mode = *raw.Mode
	}
	if raw.MusicMode != nil {
		resp.MusicMode = *raw.MusicMode
		resp.HasMusicMode = true
	}

	return resp, nil
}
