package protocol

import "errors"

var (
	ErrShortHeader   = errors.New("protocol: short fixed header")
	ErrFrameTooSmall = errors.New("protocol: declared length smaller than fixed header")
	ErrFrameTooLarge = errors.New("protocol: declared length exceeds frame limit")
	ErrTruncated     = errors.New("protocol: truncated frame")
	ErrShortPayload  = errors.New("protocol: payload too short for index token")
	ErrNilMessage    = errors.New("protocol: nil message")
)
