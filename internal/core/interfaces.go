package core

import "errors"

// Frame is a raw payload ready to go out on a signal connection.
type Frame []byte

// SessionID identifies one connected endpoint. Assigned by the transport
// layer, opaque to the core.
type SessionID string

// ErrBackpressure is returned by TrySend when the connection's outbound
// buffer is full. The frame is dropped, never queued.
var ErrBackpressure = errors.New("send buffer full")

// SignalConnection abstracts the messaging transport of one participant.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}
