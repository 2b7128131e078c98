package voicert

import (
	"errors"
	"fmt"
)

var (
	// ErrConnectionClosed signals that the realtime connection was closed
	// cleanly. It is a terminal condition rather than a failure.
	ErrConnectionClosed = errors.New("connection closed")

	ErrNotConnected = errors.New("not connected")

	// ErrResponseFailed is returned when the server finishes a response with
	// status "failed".
	ErrResponseFailed = errors.New("response failed")
)

// SessionError reports a failed session handshake.
type SessionError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *SessionError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("session %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("session %s: %v", e.Op, e.Err)
}

func (e *SessionError) Unwrap() error { return e.Err }

// ConnectionError reports a transport failure other than a clean close.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ProtocolError reports an inbound payload that could not be decoded.
type ProtocolError struct {
	Payload []byte
	Err     error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error: %v", e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }
