// Package dispatch delivers control commands to devices over the shared
// UDP transport, with retries, batch pacing, and optimistic registry
// updates.
//
// A Command is a small immutable value built by one of the constructors
// (Turn, Brightness, ColorAndTemp, StatusQuery). The Dispatcher encodes
// it, sends it to the device's control port, and reports success as a
// boolean rather than an error, so batch operations can proceed past
// individual failures:
//
//	Send ── encode ── attempt 1 ── fail ── wait ── attempt 2 ── ... ── bool
//	                     │
//	                     └─ status query: also await one response
//
// Devices acknowledge nothing for control commands, so a send that left
// the host counts as delivered and the registry's cached state is updated
// optimistically. LAN firmware does not push state changes; the cache is
// the best view available between status queries.
//
// SendBatch serializes its commands with a fixed pacing delay between
// sends. The pacing is a throughput cap for constrained device radios,
// not a correctness requirement.
//
// # Thread Safety
//
// Dispatcher is safe for concurrent use; independent Send calls are not
// serialized against each other. Configure the telemetry sink before
// first use.
package dispatch
