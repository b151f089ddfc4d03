package bridge

import (
	"fmt"

	"github.com/danmuck/keybridge/internal/netlink"
	"github.com/danmuck/keybridge/internal/observability"
	"github.com/danmuck/keybridge/internal/protocol"
)

// Receiver consumes frames from the kernel peer one at a time. The receive
// buffer is sized per frame and never outlives the call.
type Receiver struct {
	conn   netlink.Conn
	limits protocol.Limits
}

func NewReceiver(conn netlink.Conn, limits protocol.Limits) *Receiver {
	if limits.MaxFrameBytes == 0 {
		limits = protocol.DefaultLimits()
	}
	return &Receiver{conn: conn, limits: limits}
}

// Receive blocks for the next frame and returns its decoded message (nil
// for header-only frames), sequence number, and type.
//
// The frame length is not known up front, so the receive is two-phase:
// peek a header-sized prefix to learn the declared length, size the buffer
// to exactly that length, then consume the datagram for real. A declared
// length beyond the configured limit is rejected as malformed rather than
// trusted, even though the peer is the kernel.
func (r *Receiver) Receive() (*protocol.Message, uint32, protocol.MessageType, error) {
	peek := make([]byte, protocol.HeaderSize)
	n, err := r.conn.Peek(peek)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("%w: peek: %v", ErrReceiveFailed, err)
	}
	if uint32(n) < protocol.HeaderSize {
		return nil, 0, 0, fmt.Errorf("%w: %v", ErrMalformedFrame, protocol.ErrShortHeader)
	}
	peeked, err := protocol.DecodeHeader(peek)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if peeked.Len < protocol.HeaderSize {
		return nil, 0, 0, fmt.Errorf("%w: %v", ErrMalformedFrame, protocol.ErrFrameTooSmall)
	}
	if peeked.Len > r.limits.MaxFrameBytes {
		return nil, 0, 0, fmt.Errorf("%w: %v (declared %d)", ErrMalformedFrame, protocol.ErrFrameTooLarge, peeked.Len)
	}

	buf := make([]byte, peeked.Len)
	n, sender, err := r.conn.Recv(buf)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("%w: %v", ErrReceiveFailed, err)
	}
	if !sender.Valid {
		return nil, 0, 0, fmt.Errorf("%w: sender address has unexpected shape", ErrMalformedFrame)
	}
	if !sender.FromKernel() {
		return nil, 0, 0, fmt.Errorf("%w: port id %d", ErrSpoofedSender, sender.PortID)
	}

	h, err := protocol.DecodeHeader(buf)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if uint32(n) < h.Len || h.Len < protocol.HeaderSize {
		return nil, 0, 0, fmt.Errorf("%w: %v", ErrMalformedFrame, protocol.ErrTruncated)
	}

	payloadLen := h.Len - protocol.HeaderSize
	if payloadLen == 0 {
		observability.RecordFrameReceived(h.Type.String())
		return nil, h.Seq, h.Type, nil
	}

	// The message owns its bytes; the frame buffer dies with this call.
	payload := make([]byte, payloadLen)
	copy(payload, buf[protocol.HeaderSize:h.Len])

	var msg *protocol.Message
	if h.Type == protocol.TypeRequest {
		msg, err = protocol.UnmarshalRequest(payload)
		if err != nil {
			return nil, 0, 0, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
	} else {
		msg = &protocol.Message{Data: payload}
	}
	observability.RecordFrameReceived(h.Type.String())
	return msg, h.Seq, h.Type, nil
}
