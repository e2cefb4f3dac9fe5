package lightsync

import "errors"

// Common sync-engine errors. Callers match with errors.Is:
//
//	if errors.Is(err, lightsync.ErrNoSource) { ... }
var (
	// ErrNoSource is returned by Start when no pixel source is supplied.
	// A sync session cannot run without something to sample.
	ErrNoSource = errors.New("lightsync: pixel source is required")

	// ErrDispatcherRequired is returned by NewEngine when no dispatcher
	// is supplied.
	ErrDispatcherRequired = errors.New("lightsync: dispatcher is required")

	// ErrRegistryRequired is returned by NewEngine when no device
	// registry is supplied.
	ErrRegistryRequired = errors.New("lightsync: device registry is required")
)
