package discovery

import "github.com/lumensync/lumen-core/internal/device"

// placeholderDevices returns the fixed simulated device set seeded when no
// transport is available. IDs and models are deliberately implausible for
// real hardware, and every entry carries the Simulated flag.
func placeholderDevices() []*device.Device {
	return []*device.Device{
		{
			ID:           "00:11:22:33:44:55:66:01",
			Name:         "Simulated Strip",
			Model:        "H6159-SIM",
			IP:           "127.0.0.1",
			Online:       true,
			Simulated:    true,
			Capabilities: device.DefaultCapabilities(),
			State:        device.DefaultState(),
		},
		{
			ID:           "00:11:22:33:44:55:66:02",
			Name:         "Simulated Bulb",
			Model:        "H6003-SIM",
			IP:           "127.0.0.1",
			Online:       true,
			Simulated:    true,
			Capabilities: device.DefaultCapabilities(),
			State:        device.DefaultState(),
		},
	}
}

// seedPlaceholders loads the simulated set into the registry and returns
// the resulting snapshot. The warning makes the substitution impossible to
// miss in logs: simulated devices must never pass for real discovery.
func (e *Engine) seedPlaceholders() []device.Device {
	e.logger.Warn("no LAN transport available, seeding simulated placeholder devices")
	for _, d := range placeholderDevices() {
		if _, _, err := e.registry.Upsert(d); err != nil {
			e.logger.Error("failed to seed placeholder device", "device_id", d.ID, "error", err)
		}
	}
	return e.registry.List()
}
