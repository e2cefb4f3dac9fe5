package device

import "errors"

// Sentinel errors for registry and history operations; match with
// errors.Is.
var (
	// ErrDeviceNotFound is returned when the registry holds no device
	// with the requested ID.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrInvalidDevice is returned for a device missing its ID.
	ErrInvalidDevice = errors.New("device: invalid")
)
