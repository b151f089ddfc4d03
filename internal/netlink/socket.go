package netlink

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

var (
	ErrChannelUnavailable = errors.New("netlink: channel unavailable")
	ErrBindFailed         = errors.New("netlink: bind failed")
)

// Socket is the production Conn: a raw netlink socket bound to this
// process's port id so the kernel addresses replies to us.
type Socket struct {
	fd int
}

// Open creates the raw netlink endpoint for the given protocol family and
// binds it to the current process. Failure here is fatal to daemon startup;
// the caller never retries.
func Open(protocol int) (*Socket, error) {
	fd, err := unix.Socket(unix.AF_NETLINK, unix.SOCK_RAW, protocol)
	if err != nil {
		return nil, fmt.Errorf("%w: socket(AF_NETLINK, %d): %v", ErrChannelUnavailable, protocol, err)
	}
	addr := &unix.SockaddrNetlink{
		Family: unix.AF_NETLINK,
		Pid:    uint32(os.Getpid()),
	}
	if err := unix.Bind(fd, addr); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("%w: %v", ErrBindFailed, err)
	}
	return &Socket{fd: fd}, nil
}

func (s *Socket) Peek(buf []byte) (int, error) {
	n, _, err := unix.Recvfrom(s.fd, buf, unix.MSG_PEEK)
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Socket) Recv(buf []byte) (int, Sender, error) {
	n, from, err := unix.Recvfrom(s.fd, buf, 0)
	if err != nil {
		return 0, Sender{}, err
	}
	nl, ok := from.(*unix.SockaddrNetlink)
	if !ok {
		return n, Sender{}, nil
	}
	return n, Sender{Valid: true, PortID: nl.Pid, Groups: nl.Groups}, nil
}

// Send transmits b to the kernel: port id zero, no multicast groups.
func (s *Socket) Send(b []byte) error {
	dst := &unix.SockaddrNetlink{Family: unix.AF_NETLINK}
	return unix.Sendto(s.fd, b, 0, dst)
}

func (s *Socket) Close() error {
	return unix.Close(s.fd)
}
