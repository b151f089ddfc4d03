package protocol

import "encoding/binary"

// HeaderSize is the fixed wire header length in bytes.
const HeaderSize uint32 = 16

// MessageType classifies a frame. Values are part of the kernel ABI.
type MessageType uint16

const (
	TypeHello    MessageType = 100
	TypeQuit     MessageType = 101
	TypeRequest  MessageType = 102
	TypeResponse MessageType = 103
)

func (t MessageType) String() string {
	switch t {
	case TypeHello:
		return "hello"
	case TypeQuit:
		return "quit"
	case TypeRequest:
		return "request"
	case TypeResponse:
		return "response"
	default:
		return "unknown"
	}
}

// Header is the fixed wire header. Len covers the header itself plus the
// payload. PortID is zero on every frame the kernel originates; the sender
// identity check happens at the transport address, not here.
//
// The kernel reads this struct from its own address space, so the byte
// order is the host's, not network order.
type Header struct {
	Len    uint32
	Type   MessageType
	Flags  uint16
	Seq    uint32
	PortID uint32
}

// Limits constrains how large a declared frame the receiver will buffer.
type Limits struct {
	MaxFrameBytes uint32
}

func DefaultLimits() Limits {
	return Limits{MaxFrameBytes: 64 * 1024}
}

// EncodeHeader serializes h into a fresh HeaderSize buffer.
func EncodeHeader(h Header) []byte {
	buf := make([]byte, HeaderSize)
	binary.NativeEndian.PutUint32(buf[0:4], h.Len)
	binary.NativeEndian.PutUint16(buf[4:6], uint16(h.Type))
	binary.NativeEndian.PutUint16(buf[6:8], h.Flags)
	binary.NativeEndian.PutUint32(buf[8:12], h.Seq)
	binary.NativeEndian.PutUint32(buf[12:16], h.PortID)
	return buf
}

// DecodeHeader parses the fixed header from the front of b.
func DecodeHeader(b []byte) (Header, error) {
	if uint32(len(b)) < HeaderSize {
		return Header{}, ErrShortHeader
	}
	return Header{
		Len:    binary.NativeEndian.Uint32(b[0:4]),
		Type:   MessageType(binary.NativeEndian.Uint16(b[4:6])),
		Flags:  binary.NativeEndian.Uint16(b[6:8]),
		Seq:    binary.NativeEndian.Uint32(b[8:12]),
		PortID: binary.NativeEndian.Uint32(b[12:16]),
	}, nil
}

// EncodeFrame builds one complete wire frame around payload. The payload may
// be nil for header-only message types.
func EncodeFrame(t MessageType, flags uint16, seq uint32, payload []byte, limits Limits) ([]byte, error) {
	total := uint64(HeaderSize) + uint64(len(payload))
	if limits.MaxFrameBytes > 0 && total > uint64(limits.MaxFrameBytes) {
		return nil, ErrFrameTooLarge
	}
	h := Header{
		Len:   uint32(total),
		Type:  t,
		Flags: flags,
		Seq:   seq,
	}
	frame := make([]byte, total)
	copy(frame, EncodeHeader(h))
	copy(frame[HeaderSize:], payload)
	return frame, nil
}
