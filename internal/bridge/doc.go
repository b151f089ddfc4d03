// Package bridge implements the transport and dispatch core of the daemon:
// single-shot frame transmission, the two-phase (peek, resize, read)
// receive path with sender-identity validation, and the dispatch loop that
// classifies frames, delegates requests to the key-module handler, and
// decides when the daemon terminates.
package bridge
