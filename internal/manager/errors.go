package manager

import "errors"

// Domain errors for the manager package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, manager.ErrSendFailed) {
//	    // command did not reach the device
//	}
var (
	// ErrSendFailed is returned when a command exhausts its delivery attempts.
	ErrSendFailed = errors.New("manager: command delivery failed")

	// ErrNoDevices is returned when an all-device operation finds no
	// eligible targets.
	ErrNoDevices = errors.New("manager: no eligible devices")

	// ErrNoColors is returned when a zone operation is given an empty palette.
	ErrNoColors = errors.New("manager: no colours given")

	// ErrScenesUnavailable is returned for scene operations when no scene
	// store was configured.
	ErrScenesUnavailable = errors.New("manager: scene store not configured")
)
