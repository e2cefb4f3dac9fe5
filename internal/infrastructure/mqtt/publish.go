package mqtt

import (
	"fmt"
)

// maxPayloadSize caps outbound payloads at 1MB. State and event messages
// are a few hundred bytes; anything near this limit is a bug upstream.
const maxPayloadSize = 1 << 20

// Publish sends one message to the broker and waits for the
// acknowledgment appropriate to the QoS level.
//
// Retained messages are for state topics: the broker keeps the last
// payload per topic and hands it to new subscribers immediately, which is
// how a freshly started dashboard learns the current light state without
// waiting for a change. Commands and events must not be retained, or a
// reconnecting controller would replay stale ones.
//
// Parameters:
//   - topic: Destination topic, e.g. "lumensync/state/device/AA:01"
//   - payload: Message bytes, typically JSON, at most maxPayloadSize
//   - qos: 0 (at most once), 1 (at least once) or 2 (exactly once)
//   - retained: Whether the broker keeps the payload for new subscribers
//
// Returns:
//   - error: nil on success, or a wrapped sentinel describing the failure
//
// Example:
//
//	topic := mqtt.Topics{}.DeviceCommand("AA:BB:CC:DD:EE:FF:00:01")
//	err := client.Publish(topic, []byte(`{"power":true}`), 1, false)
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes",
			ErrPublishFailed, len(payload), maxPayloadSize)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	return nil
}

// PublishString publishes a string payload. Shorthand for Publish with
// []byte(payload).
func (c *Client) PublishString(topic string, payload string, qos byte, retained bool) error {
	return c.Publish(topic, []byte(payload), qos, retained)
}

// PublishRetained publishes a retained message at the configured default
// QoS. This is the call state topics go through.
func (c *Client) PublishRetained(topic string, payload []byte) error {
	return c.Publish(topic, payload, byte(c.cfg.QoS), true)
}
