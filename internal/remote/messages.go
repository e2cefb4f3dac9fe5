package remote

import (
	"time"

	"github.com/lumensync/lumen-core/internal/color"
	"github.com/lumensync/lumen-core/internal/device"
	"github.com/lumensync/lumen-core/internal/lightsync"
)

// MQTT payload types for the remote control surface. Inbound commands are
// published by automation systems; outbound state and events are published
// by the bridge.

// DeviceCommand is the payload on lumensync/command/device/{id}/set.
//
// Every field is optional; present fields are applied in order: power,
// brightness, colour, colour temperature. Pointer fields distinguish
// "absent" from a zero value, so {"power": false} switches a light off
// while {} is rejected.
type DeviceCommand struct {
	// Power switches the device on or off.
	Power *bool `json:"power,omitempty"`

	// Brightness is a percentage in [0, 100].
	Brightness *int `json:"brightness,omitempty"`

	// Color sets an RGB colour, e.g. {"r": 255, "g": 0, "b": 64}.
	Color *color.RGB `json:"color,omitempty"`

	// Kelvin sets a white colour temperature in [2000, 9000]. Zero means
	// not requested.
	Kelvin int `json:"kelvin,omitempty"`
}

// SyncStartCommand is the payload on lumensync/command/sync/start.
// An empty payload starts sync with the configured defaults.
type SyncStartCommand struct {
	// DeviceIDs restricts the session to the given devices. Empty drives
	// every eligible device.
	DeviceIDs []string `json:"devices,omitempty"`
}

// ScenePlayCommand is the payload on lumensync/command/scene/play.
type ScenePlayCommand struct {
	// Scene is the scene ID or slug to play.
	Scene string `json:"scene"`

	// DeviceIDs restricts playback to the given devices. Empty drives
	// every eligible device.
	DeviceIDs []string `json:"devices,omitempty"`

	// FrameRateHz overrides the playback frame rate. Zero keeps the
	// player default.
	FrameRateHz int `json:"frame_rate_hz,omitempty"`
}

// DeviceStateMessage is published retained on lumensync/state/device/{id}
// whenever a device's observed state changes.
type DeviceStateMessage struct {
	// DeviceID is the device's MAC-style identifier.
	DeviceID string `json:"device_id"`

	// Timestamp is when the state was published (UTC).
	Timestamp time.Time `json:"timestamp"`

	// Online reports LAN reachability.
	Online bool `json:"online"`

	// State is the last observed device state.
	State device.State `json:"state"`
}

// NewDeviceStateMessage builds a state message from a registry device.
func NewDeviceStateMessage(d device.Device) DeviceStateMessage {
	return DeviceStateMessage{
		DeviceID:  d.ID,
		Timestamp: time.Now().UTC(),
		Online:    d.Online,
		State:     d.State,
	}
}

// SyncStateMessage is published retained on lumensync/state/sync. It
// reflects the ambient sync session and scene playback together, since
// the two are mutually exclusive.
type SyncStateMessage struct {
	// Timestamp is when the status was published (UTC).
	Timestamp time.Time `json:"timestamp"`

	// Running reports whether an ambient sync session is active.
	Running bool `json:"running"`

	// StartedAt is when the current session started. Omitted when idle.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// Ticks counts sample timer fires for the current session.
	Ticks uint64 `json:"ticks"`

	// EmittedBatches counts colour batches handed to the dispatcher.
	EmittedBatches uint64 `json:"emitted_batches"`

	// DroppedTicks counts ticks skipped because emission was still busy.
	DroppedTicks uint64 `json:"dropped_ticks"`

	// FailedSends counts devices that failed to accept a batch entry.
	FailedSends uint64 `json:"failed_sends"`

	// SampleErrors counts pixel source read failures.
	SampleErrors uint64 `json:"sample_errors"`

	// Devices is the device count in the current session.
	Devices int `json:"devices"`

	// Scene is the scene currently playing, if any.
	Scene string `json:"scene,omitempty"`
}

// NewSyncStateMessage builds a status message from engine stats and the
// currently playing scene reference ("" when none).
func NewSyncStateMessage(stats lightsync.Stats, sceneRef string) SyncStateMessage {
	msg := SyncStateMessage{
		Timestamp:      time.Now().UTC(),
		Running:        stats.Running,
		Ticks:          stats.Ticks,
		EmittedBatches: stats.EmittedBatches,
		DroppedTicks:   stats.DroppedTicks,
		FailedSends:    stats.FailedSends,
		SampleErrors:   stats.SampleErrors,
		Devices:        stats.DeviceCount,
		Scene:          sceneRef,
	}
	if stats.Running && !stats.StartedAt.IsZero() {
		startedAt := stats.StartedAt.UTC()
		msg.StartedAt = &startedAt
	}
	return msg
}

// DiscoveryEventMessage is published on lumensync/event/discovery after a
// broker-triggered discovery run completes.
type DiscoveryEventMessage struct {
	// Timestamp is when the run completed (UTC).
	Timestamp time.Time `json:"timestamp"`

	// Found is the number of devices the run returned.
	Found int `json:"found"`

	// DeviceIDs lists the IDs of the returned devices.
	DeviceIDs []string `json:"device_ids"`
}

// NewDiscoveryEventMessage builds a discovery event from the run's results.
func NewDiscoveryEventMessage(devices []device.Device) DiscoveryEventMessage {
	ids := make([]string, 0, len(devices))
	for _, d := range devices {
		ids = append(ids, d.ID)
	}
	return DiscoveryEventMessage{
		Timestamp: time.Now().UTC(),
		Found:     len(devices),
		DeviceIDs: ids,
	}
}
