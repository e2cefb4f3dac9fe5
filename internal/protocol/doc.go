// Package protocol implements the LAN wire codec for Lumen Sync Core.
//
// Devices speak newline-terminated JSON datagrams over UDP. Every message is
// wrapped in the same envelope:
//
//	{"msg": {"cmd": "<command>", "data": {...}}}
//
// Outbound commands are scan (discovery probe), devStatus (state query), turn
// (power), brightness and colorwc (colour and/or colour temperature). Inbound
// datagrams are scan responses announcing a device and devStatus responses
// carrying its state.
//
// # Decode is total
//
// Decode never panics and never partially fails: a datagram either yields a
// parsed message or an error the caller can log and skip. Devices in the
// field omit fields freely, so the decoder fills the documented defaults
// (white colour, zero brightness, "normal" mode) rather than rejecting.
//
// # Encode clamps
//
// Encoders clamp every value to the device-accepted ranges before
// marshalling: brightness to [0, 100], channels to [0, 255], colour
// temperature to [2000, 9000] Kelvin. An out-of-range value can therefore
// never reach the wire.
package protocol
