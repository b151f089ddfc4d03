package bridge

import (
	"fmt"

	"github.com/danmuck/keybridge/internal/netlink"
	"github.com/danmuck/keybridge/internal/observability"
	"github.com/danmuck/keybridge/internal/protocol"
)

// Send frames msg and transmits it to the kernel peer in one shot. A nil
// msg produces a header-only frame, which is how handshake and termination
// types travel. The caller decides whether a failure is worth retrying.
func Send(conn netlink.Conn, msg *protocol.Message, t protocol.MessageType, flags uint16, seq uint32, limits protocol.Limits) error {
	var payload []byte
	if msg != nil {
		var err error
		switch t {
		case protocol.TypeResponse:
			payload, err = protocol.MarshalResponse(msg)
		case protocol.TypeRequest:
			payload, err = protocol.MarshalRequest(msg)
		default:
			payload = msg.Data
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrSendFailed, err)
		}
	}

	frame, err := protocol.EncodeFrame(t, flags, seq, payload, limits)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	if err := conn.Send(frame); err != nil {
		observability.RecordSendFailure()
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	observability.RecordFrameSent(t.String())
	return nil
}
