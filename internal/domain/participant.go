package domain

import "time"

// Participant is a user's presence in one room.
type Participant struct {
	ID       UserID    `json:"id"`
	Username string    `json:"username"`
	JoinedAt time.Time `json:"joinedAt"`
}

// Layer is the single pattern a participant contributes to a room.
// A new update overwrites it.
type Layer struct {
	UserID    UserID    `json:"userId"`
	Pattern   string    `json:"pattern"`
	UpdatedAt time.Time `json:"updatedAt"`
}
