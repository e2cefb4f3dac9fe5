package dispatch

import (
	"fmt"

	"github.com/lumensync/lumen-core/internal/color"
	"github.com/lumensync/lumen-core/internal/protocol"
)

// Kind identifies a command variant.
type Kind string

// Command variants.
const (
	KindTurn        Kind = "turn"
	KindBrightness  Kind = "brightness"
	KindColor       Kind = "color"
	KindStatusQuery Kind = "status"
)

// Command is one control operation for one device. Commands are immutable
// once constructed and independently retriable; build them with Turn,
// Brightness, ColorAndTemp or StatusQuery.
type Command struct {
	kind     Kind
	on       bool
	level    int
	color    color.RGB
	hasColor bool
	kelvin   int
}

// Turn builds a power command.
func Turn(on bool) Command {
	return Command{kind: KindTurn, on: on}
}

// Brightness builds a brightness command. The level is clamped to [0, 100]
// at encode time.
func Brightness(level int) Command {
	return Command{kind: KindBrightness, level: level}
}

// ColorAndTemp builds a colour command carrying an RGB colour, a colour
// temperature, or both. A nil colour with kelvin zero is rejected at
// encode time; devices treat a non-zero kelvin as "white light at this
// temperature", overriding the colour.
func ColorAndTemp(c *color.RGB, kelvin int) Command {
	cmd := Command{kind: KindColor, kelvin: kelvin}
	if c != nil {
		cmd.color = *c
		cmd.hasColor = true
	}
	return cmd
}

// StatusQuery builds a state query. Unlike control commands, a query is
// only successful once the device's response arrives.
func StatusQuery() Command {
	return Command{kind: KindStatusQuery}
}

// Kind returns the command variant.
func (c Command) Kind() Kind {
	return c.kind
}

// String renders the command for logs.
func (c Command) String() string {
	switch c.kind {
	case KindTurn:
		if c.on {
			return "turn(on)"
		}
		return "turn(off)"
	case KindBrightness:
		return fmt.Sprintf("brightness(%d)", c.level)
	case KindColor:
		if c.hasColor {
			return fmt.Sprintf("color(%d,%d,%d kelvin=%d)", c.color.R, c.color.G, c.color.B, c.kelvin)
		}
		return fmt.Sprintf("color(kelvin=%d)", c.kelvin)
	case KindStatusQuery:
		return "statusQuery"
	default:
		return string(c.kind)
	}
}

// encode renders the command as a wire datagram.
func (c Command) encode() ([]byte, error) {
	switch c.kind {
	case KindTurn:
		return protocol.EncodeTurn(c.on)
	case KindBrightness:
		return protocol.EncodeBrightness(c.level)
	case KindColor:
		var rgb *color.RGB
		if c.hasColor {
			cc := c.color
			rgb = &cc
		}
		return protocol.EncodeColor(rgb, c.kelvin)
	case KindStatusQuery:
		return protocol.EncodeStatusRequest()
	default:
		return nil, fmt.Errorf("dispatch: unknown command kind %q", c.kind)
	}
}
