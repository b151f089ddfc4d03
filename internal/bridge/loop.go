package bridge

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/danmuck/keybridge/internal/netlink"
	"github.com/danmuck/keybridge/internal/observability"
	"github.com/danmuck/keybridge/internal/protocol"
)

// DefaultErrorThreshold is how many consecutive receive failures the loop
// tolerates before giving up on the channel.
const DefaultErrorThreshold = 10

// Handler answers decoded kernel requests. It must not retain the request
// past the call and must return a freshly allocated reply; the reply's
// Index is overwritten by the loop before transmission.
type Handler interface {
	HandleRequest(req *protocol.Message) (*protocol.Message, error)
}

// Loop is the daemon's dispatch loop. It owns the channel for its lifetime
// and processes exactly one frame at a time: receive, classify, delegate,
// respond. Run returns nil when the peer asks the daemon to quit and an
// error when the consecutive receive-error threshold is crossed.
type Loop struct {
	conn      netlink.Conn
	recv      *Receiver
	handler   Handler
	threshold int
	limits    protocol.Limits
	log       zerolog.Logger

	consecutiveErrors int
}

func NewLoop(conn netlink.Conn, handler Handler, threshold int, limits protocol.Limits, log zerolog.Logger) *Loop {
	if threshold <= 0 {
		threshold = DefaultErrorThreshold
	}
	if limits.MaxFrameBytes == 0 {
		limits = protocol.DefaultLimits()
	}
	return &Loop{
		conn:      conn,
		recv:      NewReceiver(conn, limits),
		handler:   handler,
		threshold: threshold,
		limits:    limits,
		log:       log,
	}
}

// Run blocks until the peer sends a termination frame (nil) or the error
// threshold is crossed (ErrThresholdExceeded).
func (l *Loop) Run() error {
	for {
		done, err := l.step()
		if done {
			return err
		}
	}
}

// step processes a single receive/dispatch/send cycle. It reports done=true
// with a nil error on peer-initiated shutdown and done=true with
// ErrThresholdExceeded on fatal transport failure; every other outcome
// leaves the loop running.
func (l *Loop) step() (bool, error) {
	msg, seq, msgType, err := l.recv.Receive()
	if err != nil {
		if errors.Is(err, ErrSpoofedSender) {
			// A parsed but untrusted frame is not a transport fault;
			// it does not count toward the threshold.
			observability.RecordSpoofRejection()
			l.log.Warn().Err(err).Msg("rejected frame from untrusted sender")
			return false, nil
		}
		observability.RecordReceiveError()
		l.consecutiveErrors++
		l.log.Error().Err(err).Int("consecutive_errors", l.consecutiveErrors).Msg("receive failed")
		if l.consecutiveErrors >= l.threshold {
			return true, fmt.Errorf("%w: %d failures", ErrThresholdExceeded, l.consecutiveErrors)
		}
		return false, nil
	}

	switch msgType {
	case protocol.TypeHello:
		l.log.Debug().Uint32("seq", seq).Msg("received hello from kernel")
		l.consecutiveErrors = 0

	case protocol.TypeQuit:
		l.log.Debug().Uint32("seq", seq).Msg("received quit from kernel")
		return true, nil

	case protocol.TypeRequest:
		if l.dispatchRequest(msg, seq) {
			l.consecutiveErrors = 0
		}

	default:
		l.log.Debug().Uint32("seq", seq).Uint16("type", uint16(msgType)).Msg("ignoring unrecognized message type")
	}
	return false, nil
}

// dispatchRequest reports whether the handler produced a reply. Only a
// handled request resets the error counter; a handler failure leaves it
// untouched.
func (l *Loop) dispatchRequest(req *protocol.Message, seq uint32) bool {
	reply, err := l.handler.HandleRequest(req)
	if err == nil && reply == nil {
		err = ErrNoReply
	}
	if err != nil {
		// Business-logic failure: logged, never escalated to the
		// transport error counter.
		observability.RecordHandlerFailure()
		l.log.Error().Err(err).Uint32("seq", seq).Msg("request handler failed")
		return false
	}
	reply.Index = req.Index
	if err := Send(l.conn, reply, protocol.TypeResponse, 0, seq, l.limits); err != nil {
		l.log.Error().Err(err).Uint32("seq", seq).Msg("failed to send response")
	}
	return true
}
