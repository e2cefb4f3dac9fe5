package dispatch

import "errors"

// Construction errors. Send itself never returns an error; delivery
// failure is a boolean result.
var (
	// ErrTransportRequired is returned by NewDispatcher when no transport
	// is supplied.
	ErrTransportRequired = errors.New("dispatch: transport is required")

	// ErrRegistryRequired is returned by NewDispatcher when no device
	// registry is supplied. The dispatcher keeps cached device state
	// current; it cannot do that without the registry.
	ErrRegistryRequired = errors.New("dispatch: device registry is required")
)
