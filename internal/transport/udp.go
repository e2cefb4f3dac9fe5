package transport

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"golang.org/x/net/ipv4"
)

// UDP socket defaults.
const (
	// DefaultListenAddress binds to all IPv4 interfaces.
	DefaultListenAddress = "0.0.0.0"

	// DefaultPort is the LAN protocol's response port. Devices send their
	// discovery and status responses here.
	DefaultPort = 4002

	// DefaultBufferSize comfortably holds the largest datagram devices send.
	DefaultBufferSize = 2048
)

// UDPOptions configures the production UDP transport.
type UDPOptions struct {
	// ListenAddress is the local bind address. Defaults to all interfaces.
	ListenAddress string

	// Port is the local port for both sending and receiving, so devices
	// reply to the socket we send from. Production wiring passes the
	// configured response port (DefaultPort unless overridden); zero binds
	// an OS-assigned port, which tests rely on.
	Port int

	// BufferSize is the receive buffer per datagram. Defaults to
	// DefaultBufferSize.
	BufferSize int
}

// UDP is the production Transport: one IPv4 socket bound to the response
// port, used for sends, receives and multicast membership.
type UDP struct {
	conn    *net.UDPConn
	pconn   *ipv4.PacketConn // multicast membership control over conn
	bufSize int

	// recvMu serialises receives; the read deadline is per-socket state and
	// concurrent deadline changes would corrupt each other's timeout.
	recvMu sync.Mutex

	// mu guards closed and the joined set.
	mu     sync.Mutex
	closed bool
	joined map[string]bool
}

// NewUDP opens the socket and returns a ready transport.
func NewUDP(opts UDPOptions) (*UDP, error) {
	if opts.ListenAddress == "" {
		opts.ListenAddress = DefaultListenAddress
	}
	if opts.BufferSize == 0 {
		opts.BufferSize = DefaultBufferSize
	}

	ip := net.ParseIP(opts.ListenAddress)
	if ip == nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, opts.ListenAddress)
	}

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: ip, Port: opts.Port})
	if err != nil {
		return nil, fmt.Errorf("bind udp %s:%d: %w", opts.ListenAddress, opts.Port, err)
	}

	return &UDP{
		conn:    conn,
		pconn:   ipv4.NewPacketConn(conn),
		bufSize: opts.BufferSize,
		joined:  make(map[string]bool),
	}, nil
}

// LocalPort returns the port the transport is bound to.
func (u *UDP) LocalPort() int {
	return u.conn.LocalAddr().(*net.UDPAddr).Port
}

// SendDatagram sends one datagram to addr:port. Broadcast and multicast
// destination addresses are valid targets.
func (u *UDP) SendDatagram(payload []byte, addr string, port int) error {
	if u.isClosed() {
		return ErrClosed
	}

	ip := net.ParseIP(addr)
	if ip == nil {
		return fmt.Errorf("%w: %q", ErrInvalidAddress, addr)
	}

	if _, err := u.conn.WriteToUDP(payload, &net.UDPAddr{IP: ip, Port: port}); err != nil {
		return fmt.Errorf("send to %s:%d: %w", addr, port, err)
	}
	return nil
}

// ReceiveDatagram waits up to timeout for one datagram. The returned payload
// is an independent copy; the sender is reported as a bare IP.
func (u *UDP) ReceiveDatagram(timeout time.Duration) ([]byte, string, error) {
	u.recvMu.Lock()
	defer u.recvMu.Unlock()

	if u.isClosed() {
		return nil, "", ErrClosed
	}

	if err := u.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, "", fmt.Errorf("set read deadline: %w", err)
	}

	buf := make([]byte, u.bufSize)
	n, raddr, err := u.conn.ReadFromUDP(buf)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, "", ErrTimeout
		}
		if u.isClosed() {
			return nil, "", ErrClosed
		}
		return nil, "", fmt.Errorf("receive: %w", err)
	}

	return buf[:n:n], raddr.IP.String(), nil
}

// JoinMulticast adds membership of group on the bound socket. The port must
// match the bound port; datagram delivery is per-socket and a different port
// would silently receive nothing.
func (u *UDP) JoinMulticast(group string, port int) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.closed {
		return ErrClosed
	}
	if port != u.LocalPort() {
		return fmt.Errorf("%w: bound %d, requested %d", ErrPortMismatch, u.LocalPort(), port)
	}
	if u.joined[group] {
		return nil
	}

	ip := net.ParseIP(group)
	if ip == nil || !ip.IsMulticast() {
		return fmt.Errorf("%w: %q is not a multicast group", ErrInvalidAddress, group)
	}

	if err := u.pconn.JoinGroup(nil, &net.UDPAddr{IP: ip}); err != nil {
		return fmt.Errorf("join multicast %s: %w", group, err)
	}
	u.joined[group] = true
	return nil
}

// Close releases the socket. Safe to call more than once.
func (u *UDP) Close() error {
	u.mu.Lock()
	if u.closed {
		u.mu.Unlock()
		return ErrClosed
	}
	u.closed = true
	u.mu.Unlock()

	return u.conn.Close()
}

func (u *UDP) isClosed() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.closed
}
