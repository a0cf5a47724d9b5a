// Package protocol defines the JSON messages exchanged over the room
// websocket, one message per text frame, each with a mandatory type.
package protocol

import (
	"time"

	"github.com/dkeye/Jam/internal/domain"
)

const (
	TypeHandshake       = "handshake"
	TypeWelcome         = "welcome"
	TypeCreateRoom      = "create-room"
	TypeJoinRoom        = "join-room"
	TypeRoomJoined      = "room-joined"
	TypeUserJoined      = "user-joined"
	TypeLeaveRoom       = "leave-room"
	TypeUserLeft        = "user-left"
	TypeListRooms       = "list-rooms"
	TypeRoomList        = "room-list"
	TypePatternUpdate   = "pattern-update"
	TypeChat            = "chat"
	TypeUpdateRoomState = "update-room-state"
	TypeRoomState       = "room-state"
	TypeError           = "error"
	TypePing            = "ping"
	TypePong            = "pong"
)

var clientTypes = map[string]struct{}{
	TypeHandshake:       {},
	TypeCreateRoom:      {},
	TypeJoinRoom:        {},
	TypeLeaveRoom:       {},
	TypeListRooms:       {},
	TypePatternUpdate:   {},
	TypeChat:            {},
	TypeUpdateRoomState: {},
	TypePing:            {},
}

// IsClientType reports whether t is a message a client may send.
func IsClientType(t string) bool {
	_, ok := clientTypes[t]
	return ok
}

// Now is the wire timestamp: unix milliseconds.
func Now() int64 { return time.Now().UnixMilli() }

// Client -> server.

type Handshake struct {
	Type     string `json:"type"`
	Username string `json:"username"`
	Version  string `json:"version,omitempty"`
}

type RoomConfig struct {
	Name     string   `json:"name,omitempty" validate:"max=64"`
	MaxUsers *int     `json:"maxUsers,omitempty"`
	Genre    string   `json:"genre,omitempty" validate:"max=32"`
	Tempo    *float64 `json:"tempo,omitempty" validate:"omitempty,gt=0,lte=999"`
	Key      string   `json:"key,omitempty" validate:"max=16"`
	IsPublic *bool    `json:"isPublic,omitempty"`
}

func (c RoomConfig) Domain() domain.RoomConfig {
	return domain.RoomConfig{
		Name:     c.Name,
		MaxUsers: c.MaxUsers,
		Genre:    c.Genre,
		Tempo:    c.Tempo,
		Key:      c.Key,
		IsPublic: c.IsPublic,
	}
}

type CreateRoom struct {
	Type   string     `json:"type"`
	Config RoomConfig `json:"config"`
}

type JoinRoom struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId" validate:"required"`
}

type LeaveRoom struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId,omitempty"`
}

type ListRooms struct {
	Type string `json:"type"`
}

// PatternUpdate travels both ways: the sender fills RoomID, the broadcast
// carries the author.
type PatternUpdate struct {
	Type      string `json:"type"`
	RoomID    string `json:"roomId,omitempty"`
	UserID    string `json:"userId,omitempty"`
	Username  string `json:"username,omitempty"`
	Pattern   string `json:"pattern"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// Chat travels both ways as well.
type Chat struct {
	Type      string `json:"type"`
	RoomID    string `json:"roomId,omitempty"`
	UserID    string `json:"userId,omitempty"`
	Username  string `json:"username,omitempty"`
	Message   string `json:"message" validate:"required,max=1000"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

type StateUpdates struct {
	Tempo *float64 `json:"tempo,omitempty" validate:"omitempty,gt=0,lte=999"`
	Key   *string  `json:"key,omitempty" validate:"omitempty,max=16"`
	Genre *string  `json:"genre,omitempty" validate:"omitempty,max=32"`
}

func (u StateUpdates) Domain() domain.StateUpdate {
	return domain.StateUpdate{Tempo: u.Tempo, Key: u.Key, Genre: u.Genre}
}

type UpdateRoomState struct {
	Type    string        `json:"type"`
	RoomID  string        `json:"roomId,omitempty"`
	Updates *StateUpdates `json:"updates" validate:"required"`
}

type Ping struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// Server -> client.

type Welcome struct {
	Type          string   `json:"type"`
	UserID        string   `json:"userId"`
	ServerVersion string   `json:"serverVersion"`
	Features      []string `json:"features"`
}

type RoomJoined struct {
	Type         string               `json:"type"`
	RoomID       domain.RoomID        `json:"roomId"`
	Room         domain.RoomSummary   `json:"room"`
	Participants []domain.Participant `json:"participants"`
	State        domain.RoomState     `json:"state"`
	Layers       []domain.Layer       `json:"layers"`
}

type UserJoined struct {
	Type string             `json:"type"`
	User domain.Participant `json:"user"`
}

type UserLeft struct {
	Type     string `json:"type"`
	UserID   string `json:"userId"`
	Username string `json:"username,omitempty"`
}

type RoomList struct {
	Type  string               `json:"type"`
	Rooms []domain.RoomSummary `json:"rooms"`
}

type RoomState struct {
	Type  string           `json:"type"`
	State domain.RoomState `json:"state"`
}

type Error struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

type Pong struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

func NewError(msg string) Error {
	return Error{Type: TypeError, Message: msg, Timestamp: Now()}
}
