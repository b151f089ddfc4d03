package bridge

import (
	"errors"

	"github.com/danmuck/keybridge/internal/netlink"
	"github.com/danmuck/keybridge/internal/protocol"
)

var errNoFrames = errors.New("no frames queued")

// fakeDatagram is one inbound datagram with its transport-level sender, or
// an injected receive error.
type fakeDatagram struct {
	data   []byte
	sender netlink.Sender
	err    error
}

// fakeConn is an in-memory Conn with peek semantics matching the real
// socket: Peek copies without consuming, Recv pops.
type fakeConn struct {
	inbound []fakeDatagram
	sent    [][]byte
	sendErr error
	closed  bool
}

func kernelSender() netlink.Sender {
	return netlink.Sender{Valid: true, PortID: 0}
}

func (c *fakeConn) queueFrame(t protocol.MessageType, seq uint32, payload []byte, sender netlink.Sender) {
	frame, err := protocol.EncodeFrame(t, 0, seq, payload, protocol.Limits{MaxFrameBytes: 1 << 20})
	if err != nil {
		panic(err)
	}
	c.inbound = append(c.inbound, fakeDatagram{data: frame, sender: sender})
}

func (c *fakeConn) queueError(err error) {
	c.inbound = append(c.inbound, fakeDatagram{err: err})
}

func (c *fakeConn) queueRaw(data []byte, sender netlink.Sender) {
	c.inbound = append(c.inbound, fakeDatagram{data: data, sender: sender})
}

func (c *fakeConn) Peek(buf []byte) (int, error) {
	if len(c.inbound) == 0 {
		return 0, errNoFrames
	}
	d := c.inbound[0]
	if d.err != nil {
		// An injected transport error is consumed by the attempt that
		// observes it, like a real failed recv.
		c.inbound = c.inbound[1:]
		return 0, d.err
	}
	return copy(buf, d.data), nil
}

func (c *fakeConn) Recv(buf []byte) (int, netlink.Sender, error) {
	if len(c.inbound) == 0 {
		return 0, netlink.Sender{}, errNoFrames
	}
	d := c.inbound[0]
	c.inbound = c.inbound[1:]
	if d.err != nil {
		return 0, netlink.Sender{}, d.err
	}
	return copy(buf, d.data), d.sender, nil
}

func (c *fakeConn) Send(b []byte) error {
	if c.sendErr != nil {
		return c.sendErr
	}
	frame := make([]byte, len(b))
	copy(frame, b)
	c.sent = append(c.sent, frame)
	return nil
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}
