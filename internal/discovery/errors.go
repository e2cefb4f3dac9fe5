package discovery

import "errors"

// Common discovery errors. Callers distinguish them with errors.Is:
//
//	if errors.Is(err, discovery.ErrNoTransport) {
//	    // LAN disabled and placeholders not allowed
//	}
var (
	// ErrNoTransport is returned when discovery has no transport to probe
	// with and simulated placeholder devices are not enabled.
	ErrNoTransport = errors.New("discovery: no transport available")

	// ErrRegistryRequired is returned by NewEngine when no device registry
	// is supplied. Discovery has nowhere to record results without one.
	ErrRegistryRequired = errors.New("discovery: device registry is required")

	// ErrScanSendFailed is returned when the scan probe could not be sent.
	// No device can answer a probe that never left the host.
	ErrScanSendFailed = errors.New("discovery: scan probe send failed")
)
