package client

import "errors"

var (
	// ErrNotConnected rejects an operation without a network round trip.
	ErrNotConnected = errors.New("not connected")
	// ErrConnectionLost is reported once reconnection gives up.
	ErrConnectionLost = errors.New("connection lost")
	ErrClosed         = errors.New("session closed")
	ErrNoPlayer       = errors.New("no player attached")
)

// ServerError is an error message sent back by the server.
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string { return e.Message }
