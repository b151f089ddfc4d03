// Package protocol owns the kernel bridge wire contract.
//
// Ownership boundary:
// - fixed frame header encode/decode
// - request/reply payload layouts and the index correlation token
// - declared-length sanity limits
package protocol
