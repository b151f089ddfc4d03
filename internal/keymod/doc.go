// Package keymod is the key-management subsystem behind the dispatch loop:
// a registry of key modules bracketing the daemon's lifetime, a sqlite
// record store for per-alias key material metadata, and the request handler
// that interprets kernel request payloads.
package keymod
