// Package influxdb provides InfluxDB connectivity for LumenSync.
//
// It wraps the official influxdb-client-go v2 library with LumenSync-specific
// patterns for connection management, telemetry writing, and health monitoring.
//
// # Purpose
//
// This package handles time-series storage for:
//   - Command results (attempts, acknowledgement latency, failures)
//   - Sync engine ticks (frame rate, per-tick send failures)
//   - Discovery runs (devices found, scan duration)
//   - Device state changes (power, brightness, reachability)
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    URL:    "http://localhost:8086",
//	    Token:  "your-token",
//	    Org:    "lumensync",
//	    Bucket: "telemetry",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Record a command outcome
//	client.WriteCommandResult("7A:B1:C4:38:2E:5F:11:09", "turn", 1, true, 18*time.Millisecond)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are delivered via a
// callback. Connection and health check errors are returned directly.
//
// # Performance
//
// Writes are batched according to config.yaml settings (batch_size,
// flush_interval). Sync mode emits a point per tick, so batching matters:
// at 30 Hz a flush every 10 seconds coalesces ~300 points per request.
package influxdb
