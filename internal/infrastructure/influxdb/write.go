package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// millisecondsPerSecond scales duration seconds into the millisecond
// fields the dashboards chart.
const millisecondsPerSecond = 1000

// WriteCommandResult records the outcome of a single device command.
//
// One point per dispatched command, whether it was acknowledged or
// exhausted its retries. The write is non-blocking; data is batched
// and sent asynchronously.
//
// Parameters:
//   - deviceID: Target device identifier
//   - command: Command name (e.g., "turn", "brightness", "colorwc")
//   - attempts: Number of send attempts, including the first
//   - success: Whether an acknowledgement arrived before retries ran out
//   - duration: Time from first send to acknowledgement or final timeout
//
// Example:
//
//	client.WriteCommandResult("7A:B1:C4:38:2E:5F:11:09", "turn", 1, true, 18*time.Millisecond)
func (c *Client) WriteCommandResult(deviceID string, command string, attempts int, success bool, duration time.Duration) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"commands",
		map[string]string{
			"device_id": deviceID,
			"command":   command,
		},
		map[string]interface{}{
			"attempts":    attempts,
			"success":     success,
			"duration_ms": duration.Seconds() * millisecondsPerSecond,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteSyncTick records one tick of the colour sync engine.
//
// Used for monitoring sustained frame rate and per-tick send failures
// while sync mode is running.
//
// Parameters:
//   - tick: Tick counter since sync started
//   - devices: Number of devices targeted this tick
//   - failures: Sends that failed this tick
//   - duration: Time spent sampling and emitting this tick
func (c *Client) WriteSyncTick(tick uint64, devices int, failures int, duration time.Duration) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"sync_ticks",
		nil,
		map[string]interface{}{
			"tick":        int64(tick),
			"devices":     devices,
			"failures":    failures,
			"duration_ms": duration.Seconds() * millisecondsPerSecond,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteDiscoveryRun records the result of a discovery scan.
//
// Parameters:
//   - found: Number of devices that responded before the window closed
//   - duration: How long the scan listened for responses
func (c *Client) WriteDiscoveryRun(found int, duration time.Duration) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"discovery_runs",
		nil,
		map[string]interface{}{
			"found":       found,
			"duration_ms": duration.Seconds() * millisecondsPerSecond,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteDeviceState records a device state change.
//
// One point per registry transition, giving a power and brightness
// history per device. Offline transitions are recorded too, so gaps
// in reachability are visible.
//
// Parameters:
//   - deviceID: Device identifier
//   - online: Whether the device is currently reachable
//   - on: Power state
//   - brightness: Brightness percentage (0-100)
func (c *Client) WriteDeviceState(deviceID string, online bool, on bool, brightness int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"device_state",
		map[string]string{
			"device_id": deviceID,
		},
		map[string]interface{}{
			"online":     online,
			"on":         on,
			"brightness": brightness,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("system_stats",
//	    map[string]string{"host": "controller-01"},
//	    map[string]interface{}{"goroutines": 42, "heap_mb": 18.5})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., replayed data).
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing
//   - fields: Key-value pairs for the data
//   - timestamp: The exact time for this data point
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
