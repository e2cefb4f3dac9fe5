// Package discovery finds lighting devices on the local network.
//
// A discovery session multicasts a scan probe to the devices' discovery
// port, then collects response datagrams on the shared transport until the
// session deadline:
//
//	Engine.Discover
//	    │
//	    ├── JoinMulticast  (so group-addressed replies reach us)
//	    ├── SendDatagram   (scan probe → broadcast, falling back to the group)
//	    │
//	    └── loop until deadline:
//	            ReceiveDatagram ─ protocol.Decode ─┬─ scan      → registry.Upsert
//	                                               └─ devStatus → registry merge
//
// Results land in the device registry as they arrive, so a Discover call
// issued while another session is in flight returns the current registry
// snapshot instead of starting a second probe.
//
// Malformed or foreign datagrams (SSDP and other ecosystems share the
// multicast group) are logged at debug level and skipped; they never abort
// a session. A session that finds nothing is still a successful session —
// an empty network is not an error.
//
// When no transport is available the engine can seed a fixed set of
// simulated devices instead, but only when explicitly enabled. Simulated
// devices carry the Simulated flag so they are never mistaken for hardware.
//
// # Thread Safety
//
// Engine is safe for concurrent use. At most one session runs at a time;
// concurrent callers share its results through the registry.
package discovery
