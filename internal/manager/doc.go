// Package manager is the service facade: one constructible object wiring
// the discovery engine, command dispatcher, sync engine, scene player and
// device registry behind a flat operations surface.
//
//	            ┌──────────── Manager ────────────┐
//	 Discover ──▶ discovery.Engine                │
//	 Set* ──────▶ dispatch.Dispatcher ──▶ transport.Transport
//	 StartSync ─▶ lightsync.Engine ──┐            │
//	 PlayScene ─▶ scene.Player ──────┴─▶ dispatch │
//	              device.Registry (shared state)  │
//	            └─────────────────────────────────┘
//
// Sync and scene playback are mutually exclusive: starting one stops the
// other, so the lights always have a single writer.
//
// A Manager built without a transport runs in placeholder mode: discovery
// seeds simulated devices (when allowed by discovery options) and commands
// to them succeed without wire traffic, while anything real fails loudly.
//
// # Thread Safety
//
// All operations are safe for concurrent use; the sub-engines carry their
// own locking.
package manager
