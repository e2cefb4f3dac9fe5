package transport

import (
	"errors"
	"time"
)

// Transport errors.
var (
	// ErrTimeout is returned by ReceiveDatagram when no datagram arrives
	// within the timeout. It is an expected outcome, not a failure.
	ErrTimeout = errors.New("transport: receive timeout")

	// ErrClosed is returned when using a transport after Close.
	ErrClosed = errors.New("transport: closed")

	// ErrInvalidAddress is returned when an address cannot be parsed.
	ErrInvalidAddress = errors.New("transport: invalid address")

	// ErrPortMismatch is returned when a multicast join names a port other
	// than the one the transport is bound to.
	ErrPortMismatch = errors.New("transport: multicast port differs from bound port")
)

// Transport moves raw datagrams for the discovery engine and the command
// dispatcher. Implementations own their sockets; Close releases them.
//
// All methods must be safe for concurrent use. ReceiveDatagram returns
// ErrTimeout when nothing arrives in time; any other error means the
// transport is unusable.
type Transport interface {
	// SendDatagram sends one datagram to addr:port.
	SendDatagram(payload []byte, addr string, port int) error

	// ReceiveDatagram waits up to timeout for one datagram and returns its
	// payload and the sender's IP address.
	ReceiveDatagram(timeout time.Duration) (payload []byte, from string, err error)

	// JoinMulticast adds membership of the group so multicast traffic to
	// group:port is delivered to this transport.
	JoinMulticast(group string, port int) error

	// Close releases the underlying sockets. Subsequent calls return
	// ErrClosed.
	Close() error
}
