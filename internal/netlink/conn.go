package netlink

// Sender describes the transport-level origin of a received datagram.
// Valid reports whether the address had the expected netlink shape; an
// address of any other shape means the frame cannot be trusted at all.
type Sender struct {
	Valid  bool
	PortID uint32
	Groups uint32
}

// FromKernel reports whether the datagram originated inside the kernel.
// Userspace senders always carry a nonzero port id.
func (s Sender) FromKernel() bool {
	return s.Valid && s.PortID == 0
}

// Conn is the blocking datagram channel to the kernel peer. Exactly one
// goroutine owns a Conn at a time.
type Conn interface {
	// Peek copies up to len(buf) bytes of the next datagram without
	// consuming it.
	Peek(buf []byte) (int, error)

	// Recv consumes the next datagram into buf and reports its sender.
	Recv(buf []byte) (int, Sender, error)

	// Send transmits one datagram to the kernel peer.
	Send(b []byte) error

	// Close releases the endpoint.
	Close() error
}
