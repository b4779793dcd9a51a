package core

import "errors"

var (
	// ErrBackpressure is returned by TrySend when the send queue is full.
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

// Frame is a raw text payload.
type Frame []byte

// ConnID is the opaque identity issued to a transport connection on accept.
type ConnID string

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	// TrySend queues f without blocking.
	TrySend(Frame) error
	// Ping sends a liveness probe.
	Ping() error
	// Close terminates the transport without a closing handshake.
	Close()
	// Shutdown sends a normal-closure close frame, then closes.
	Shutdown(reason string)
}
