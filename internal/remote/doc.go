// Package remote exposes the device manager over MQTT.
//
// The bridge subscribes to command topics, translates payloads into
// manager calls, and publishes retained state back to the broker so
// automation systems (Home Assistant, Node-RED, openHAB) can drive the
// lights without speaking the LAN protocol themselves.
//
// # Topics
//
// Inbound commands:
//
//	lumensync/command/device/{id}/set  per-device power/brightness/colour
//	lumensync/command/discover         trigger a discovery run
//	lumensync/command/sync/start       start ambient colour sync
//	lumensync/command/sync/stop        stop ambient colour sync
//	lumensync/command/scene/play       start scene playback
//	lumensync/command/scene/stop       stop scene playback
//
// Outbound state (retained):
//
//	lumensync/state/device/{id}        last observed device state
//	lumensync/state/sync               sync/scene playback status
//
// Outbound events:
//
//	lumensync/event/discovery          devices found by a discovery run
//
// # Error Handling
//
// Handlers return errors to the MQTT client, which logs them; a bad
// payload never breaks the subscription. Device state publishes are
// change-detected so a burst of identical registry updates does not
// flood the broker.
//
// # Usage
//
//	bridge, err := remote.NewBridge(remote.Options{
//	    Manager:  mgr,
//	    Client:   mqttClient,
//	    Registry: mgr.Registry(),
//	    QoS:      1,
//	    Logger:   logger,
//	})
//	if err != nil {
//	    return err
//	}
//	if err := bridge.Start(); err != nil {
//	    return err
//	}
//	defer bridge.Stop()
package remote
