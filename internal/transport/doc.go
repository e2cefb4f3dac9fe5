// Package transport provides the datagram transport consumed by Lumen Sync
// Core's discovery engine and command dispatcher.
//
// The core never opens sockets itself: a Transport is injected once at
// construction and owns its sockets until Close. This keeps the engines
// testable with scripted fakes and lets the production socket strategy be
// chosen exactly once, not re-probed per call.
//
// UDP is the production implementation. It binds a single IPv4 socket to the
// response port, sends from it (so devices reply to the right port) and
// receives on it. Multicast group membership is added to the same socket.
//
// # Concurrency
//
// Sends are safe for concurrent use and take no lock; the kernel serialises
// datagram writes. Receives are serialised internally because the read
// deadline is per-socket state. With discovery and a status query receiving
// at the same time, either may consume the other's datagram; callers must
// treat a missing response as the ordinary UDP loss it is indistinguishable
// from.
package transport
