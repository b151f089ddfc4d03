package protocol

import "encoding/binary"

const indexSize = 4

// Message is the decoded payload handed between the transport layer and the
// request handler. Index is an opaque correlation token the kernel uses to
// find its request state; it is copied verbatim from request to reply and is
// distinct from the header sequence number.
type Message struct {
	Index uint32
	Data  []byte
}

// MarshalRequest lays out a request payload: data bytes followed by the
// trailing index token. The kernel peer expects this layout bit for bit.
func MarshalRequest(m *Message) ([]byte, error) {
	if m == nil {
		return nil, ErrNilMessage
	}
	buf := make([]byte, len(m.Data)+indexSize)
	copy(buf, m.Data)
	binary.NativeEndian.PutUint32(buf[len(m.Data):], m.Index)
	return buf, nil
}

// UnmarshalRequest decodes a request payload produced by the kernel peer.
func UnmarshalRequest(payload []byte) (*Message, error) {
	if len(payload) < indexSize {
		return nil, ErrShortPayload
	}
	split := len(payload) - indexSize
	data := make([]byte, split)
	copy(data, payload[:split])
	return &Message{
		Index: binary.NativeEndian.Uint32(payload[split:]),
		Data:  data,
	}, nil
}

// MarshalResponse lays out a reply payload: leading index token followed by
// the data bytes.
func MarshalResponse(m *Message) ([]byte, error) {
	if m == nil {
		return nil, ErrNilMessage
	}
	buf := make([]byte, indexSize+len(m.Data))
	binary.NativeEndian.PutUint32(buf, m.Index)
	copy(buf[indexSize:], m.Data)
	return buf, nil
}

// UnmarshalResponse decodes a reply payload.
func UnmarshalResponse(payload []byte) (*Message, error) {
	if len(payload) < indexSize {
		return nil, ErrShortPayload
	}
	data := make([]byte, len(payload)-indexSize)
	copy(data, payload[indexSize:])
	return &Message{
		Index: binary.NativeEndian.Uint32(payload[:indexSize]),
		Data:  data,
	}, nil
}
