package domain

import "time"

type RoomID string

const (
	DefaultMaxUsers = 8
	DefaultTempo    = 120
	DefaultRoomName = "Untitled"
)

type Room struct {
	ID        RoomID    `json:"id"`
	Name      string    `json:"name"`
	IsPublic  bool      `json:"isPublic"`
	MaxUsers  int       `json:"maxUsers"`
	CreatedAt time.Time `json:"createdAt"`
}

// RoomState is the musical state shared by everyone in a room.
type RoomState struct {
	Tempo float64 `json:"tempo"`
	Key   string  `json:"key,omitempty"`
	Genre string  `json:"genre,omitempty"`
}

// StateUpdate is a partial RoomState; nil fields are left untouched.
type StateUpdate struct {
	Tempo *float64 `json:"tempo,omitempty"`
	Key   *string  `json:"key,omitempty"`
	Genre *string  `json:"genre,omitempty"`
}

func (s RoomState) Apply(u StateUpdate) RoomState {
	if u.Tempo != nil {
		s.Tempo = *u.Tempo
	}
	if u.Key != nil {
		s.Key = *u.Key
	}
	if u.Genre != nil {
		s.Genre = *u.Genre
	}
	return s
}

// RoomConfig is what a creator asks for. Pointer fields distinguish
// "absent" from zero values.
type RoomConfig struct {
	Name     string   `json:"name,omitempty"`
	MaxUsers *int     `json:"maxUsers,omitempty"`
	Genre    string   `json:"genre,omitempty"`
	Tempo    *float64 `json:"tempo,omitempty"`
	Key      string   `json:"key,omitempty"`
	IsPublic *bool    `json:"isPublic,omitempty"`
}

// RoomSummary is the listing view of a room.
type RoomSummary struct {
	ID               RoomID    `json:"id"`
	Name             string    `json:"name"`
	Genre            string    `json:"genre,omitempty"`
	Tempo            float64   `json:"tempo"`
	ParticipantCount int       `json:"participantCount"`
	MaxUsers         int       `json:"maxUsers"`
	IsPublic         bool      `json:"isPublic"`
	CreatedAt        time.Time `json:"createdAt"`
}
