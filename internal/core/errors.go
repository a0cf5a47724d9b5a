package core

import "errors"

// Messages of these errors travel to clients verbatim.
var (
	ErrRoomNotFound          = errors.New("Room not found")
	ErrRoomFull              = errors.New("Room is full")
	ErrNotInRoom             = errors.New("Not in a room")
	ErrCapacityConfigInvalid = errors.New("Invalid room capacity")
	ErrMalformedMessage      = errors.New("Malformed message")
	ErrUnknownMessageType    = errors.New("Unknown message type")
	ErrRateLimited           = errors.New("Rate limit exceeded")
)
