package protocol

import "errors"

// Codec errors.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, protocol.ErrMalformed) {
//	    // skip the datagram
//	}
var (
	// ErrMalformed is returned when a datagram is not a valid protocol
	// envelope. The datagram should be skipped, never retried.
	ErrMalformed = errors.New("protocol: malformed datagram")

	// ErrUnknownCommand is returned when the envelope carries a command tag
	// this codec does not recognise.
	ErrUnknownCommand = errors.New("protocol: unknown command")

	// ErrEmptyColorCommand is returned when a colour command specifies
	// neither a colour nor a colour temperature.
	ErrEmptyColorCommand = errors.New("protocol: colour command needs a colour or a temperature")
)
