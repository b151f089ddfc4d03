// Package netlink owns the datagram endpoint shared with the kernel peer:
// socket creation, binding to this process, raw peek/receive/send, and
// teardown. It knows nothing about the frame contents.
package netlink
