package remote

import "errors"

var (
	// ErrManagerRequired is returned by NewBridge when no manager is supplied.
	ErrManagerRequired = errors.New("remote: manager is required")

	// ErrClientRequired is returned by NewBridge when no MQTT client is supplied.
	ErrClientRequired = errors.New("remote: MQTT client is required")

	// ErrNoPixelSource is returned when a sync/start command arrives but the
	// bridge was built without a pixel source.
	ErrNoPixelSource = errors.New("remote: no pixel source configured for sync")
)
