package influxdb

import "errors"

// Sentinel errors for the telemetry sink. Check with errors.Is:
//
//	if errors.Is(err, influxdb.ErrNotConnected) {
//	    // telemetry is best-effort; log and move on
//	}
var (
	// ErrNotConnected indicates the client is not connected to InfluxDB.
	ErrNotConnected = errors.New("influxdb: not connected")

	// ErrConnectionFailed indicates the initial connection attempt failed.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrWriteFailed indicates a write operation failed. Most write errors
	// surface asynchronously through the error callback instead.
	ErrWriteFailed = errors.New("influxdb: write failed")

	// ErrDisabled indicates InfluxDB integration is disabled in config.
	ErrDisabled = errors.New("influxdb: disabled in configuration")
)
