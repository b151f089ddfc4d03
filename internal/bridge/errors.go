package bridge

import "errors"

var (
	ErrSendFailed        = errors.New("bridge: send failed")
	ErrReceiveFailed     = errors.New("bridge: receive failed")
	ErrMalformedFrame    = errors.New("bridge: malformed frame")
	ErrSpoofedSender     = errors.New("bridge: frame sender is not the kernel")
	ErrThresholdExceeded = errors.New("bridge: consecutive receive-error threshold exceeded")
	ErrNoReply           = errors.New("bridge: handler returned no reply")
)
