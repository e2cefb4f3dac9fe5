package mqtt

import "fmt"

// Topic prefixes for the LumenSync MQTT surface.
//
// All topics use the scheme: lumensync/{category}/{...}
// Commands flow in, state and events flow out.
const (
	// TopicPrefix is the base for all LumenSync topics.
	TopicPrefix = "lumensync"

	// TopicPrefixCommand is the base for inbound command topics.
	TopicPrefixCommand = "lumensync/command"

	// TopicPrefixState is the base for outbound state topics.
	TopicPrefixState = "lumensync/state"

	// TopicPrefixEvent is the base for outbound event topics.
	TopicPrefixEvent = "lumensync/event"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "lumensync/system"
)

// Topics provides builders for LumenSync MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.DeviceState("AA:BB:CC:DD:EE:FF:00:01")
//	// Returns: "lumensync/state/device/AA:BB:CC:DD:EE:FF:00:01"
type Topics struct{}

// ─── Command Topics (inbound) ────────────────────────────────────────────────

// DeviceCommand returns the topic carrying commands for one device.
//
// Example: lumensync/command/device/AA:BB:CC:DD:EE:FF:00:01/set
func (Topics) DeviceCommand(deviceID string) string {
	return fmt.Sprintf("%s/device/%s/set", TopicPrefixCommand, deviceID)
}

// AllDeviceCommands returns the subscription pattern matching every
// device command topic.
//
// Pattern: lumensync/command/device/+/set
func (Topics) AllDeviceCommands() string {
	return fmt.Sprintf("%s/device/+/set", TopicPrefixCommand)
}

// Discover returns the topic that triggers a discovery run.
//
// Example: lumensync/command/discover
func (Topics) Discover() string {
	return fmt.Sprintf("%s/discover", TopicPrefixCommand)
}

// SyncStart returns the topic that starts ambient colour sync.
//
// Example: lumensync/command/sync/start
func (Topics) SyncStart() string {
	return fmt.Sprintf("%s/sync/start", TopicPrefixCommand)
}

// SyncStop returns the topic that stops ambient colour sync.
//
// Example: lumensync/command/sync/stop
func (Topics) SyncStop() string {
	return fmt.Sprintf("%s/sync/stop", TopicPrefixCommand)
}

// ScenePlay returns the topic that starts scene playback.
//
// Example: lumensync/command/scene/play
func (Topics) ScenePlay() string {
	return fmt.Sprintf("%s/scene/play", TopicPrefixCommand)
}

// SceneStop returns the topic that stops scene playback.
//
// Example: lumensync/command/scene/stop
func (Topics) SceneStop() string {
	return fmt.Sprintf("%s/scene/stop", TopicPrefixCommand)
}

// ─── State and Event Topics (outbound) ───────────────────────────────────────

// DeviceState returns the retained per-device state topic.
//
// Example: lumensync/state/device/AA:BB:CC:DD:EE:FF:00:01
func (Topics) DeviceState(deviceID string) string {
	return fmt.Sprintf("%s/device/%s", TopicPrefixState, deviceID)
}

// AllDeviceStates returns the subscription pattern matching every
// device state topic.
//
// Pattern: lumensync/state/device/+
func (Topics) AllDeviceStates() string {
	return fmt.Sprintf("%s/device/+", TopicPrefixState)
}

// SyncState returns the retained sync/playback status topic.
//
// Example: lumensync/state/sync
func (Topics) SyncState() string {
	return fmt.Sprintf("%s/sync", TopicPrefixState)
}

// DiscoveryEvent returns the topic announcing completed discovery runs.
//
// Example: lumensync/event/discovery
func (Topics) DiscoveryEvent() string {
	return fmt.Sprintf("%s/discovery", TopicPrefixEvent)
}

// ─── System Topics ───────────────────────────────────────────────────────────

// SystemStatus returns the availability topic. The client publishes
// online/offline here, and the broker publishes the LWT payload here on
// unexpected disconnect.
//
// Example: lumensync/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// AllTopics returns a pattern matching all LumenSync topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: lumensync/#
func (Topics) AllTopics() string {
	return "lumensync/#"
}
