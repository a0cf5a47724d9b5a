package core

import (
	"github.com/dkeye/Jam/internal/domain"
)

// PublishResult reports delivery stats/backpressure to orchestrator.
type PublishResult struct {
	SendTo  int
	Dropped []MemberSession
}

// RoomService is the core-facing API of a room.
// It owns membership, layers and shared state but never touches transport resources.
type RoomService interface {
	Room() *domain.Room
	State() domain.RoomState
	Summary() domain.RoomSummary

	ParticipantCount() int
	Has(id domain.UserID) bool
	// Participants and Layers are ordered by join order.
	Participants() []domain.Participant
	Layers() []domain.Layer

	AddParticipant(user domain.User) (domain.Participant, error)
	RemoveParticipant(id domain.UserID) (domain.Participant, bool)
	Rename(id domain.UserID, username string)
	SetLayer(id domain.UserID, pattern string) (domain.Layer, error)
	MergeLayers() string
	ApplyStateUpdate(u domain.StateUpdate) domain.RoomState

	// CloseIfEmpty retires an empty room; a closed room rejects joins.
	CloseIfEmpty() bool
}

// RoomManager is the authoritative registry of live rooms.
type RoomManager interface {
	// CreateRoom publishes a room that already contains its creator,
	// so no room is ever reachable without a participant.
	CreateRoom(cfg domain.RoomConfig, creator domain.User) (RoomService, domain.Participant, error)
	GetRoom(id domain.RoomID) (RoomService, bool)
	ListPublic() []domain.RoomSummary
	DeleteIfEmpty(id domain.RoomID) bool
	Count() int
}
