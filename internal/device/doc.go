// Package device provides the Device Registry for LumenSync.
//
// The registry is the authoritative in-memory catalogue of every LAN light
// the system has seen: its identity, network address, inferred capabilities
// and last observed state. It is the only mutable state shared between the
// discovery engine, the command dispatcher and the sync engine.
//
// # Architecture
//
//	┌────────────────────────────────────────────────────────────┐
//	│                      Device Registry                       │
//	│                                                            │
//	│   writers                          readers                 │
//	│   ┌────────────────┐               ┌────────────────────┐  │
//	│   │ Discovery      │── Upsert ────▶│ Manager.Devices()  │  │
//	│   │ (scan/status)  │   SetState    │ Sync engine subset │  │
//	│   └────────────────┘               │ MQTT state publish │  │
//	│   ┌────────────────┐               └────────────────────┘  │
//	│   │ Dispatcher     │── SetState                            │
//	│   │ (send results) │   MarkOffline                         │
//	│   └────────────────┘                                       │
//	└────────────────────────────────────────────────────────────┘
//
// # Ownership
//
// The registry owns the canonical Device values. Every read returns a deep
// copy and every write goes through a registry method, so callers can hold
// snapshots indefinitely while discovery and dispatch mutate underneath.
// Concurrent writers are last-write-wins; there are no transactions.
//
// Devices are never deleted by normal operation, only marked offline.
// Clear() exists for an explicit operator reset.
package device
