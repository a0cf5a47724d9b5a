package orch

import (
	"github.com/dkeye/Jam/internal/core"
	"github.com/dkeye/Jam/internal/domain"
)

// CurrentRoom resolves the caller's room. A non-empty roomID must name that
// room; anything else is ErrNotInRoom.
func (o *Orchestrator) CurrentRoom(sid core.SessionID, roomID domain.RoomID) (core.RoomService, domain.User, error) {
	user, ok := o.Registry.User(sid)
	if !ok {
		return nil, domain.User{}, ErrUnknownSession
	}
	current, ok := o.Registry.RoomOf(sid)
	if !ok || (roomID != "" && roomID != current) {
		return nil, user, core.ErrNotInRoom
	}
	room, ok := o.Rooms.GetRoom(current)
	if !ok {
		return nil, user, core.ErrNotInRoom
	}
	return room, user, nil
}

// UpdatePattern overwrites the caller's layer. Last write wins.
func (o *Orchestrator) UpdatePattern(sid core.SessionID, roomID domain.RoomID, text string) (core.RoomService, domain.User, error) {
	room, user, err := o.CurrentRoom(sid, roomID)
	if err != nil {
		return nil, user, err
	}
	if _, err := room.SetLayer(user.ID, text); err != nil {
		return nil, user, err
	}
	return room, user, nil
}

func (o *Orchestrator) UpdateState(sid core.SessionID, roomID domain.RoomID, u domain.StateUpdate) (core.RoomService, domain.RoomState, error) {
	room, _, err := o.CurrentRoom(sid, roomID)
	if err != nil {
		return nil, domain.RoomState{}, err
	}
	return room, room.ApplyStateUpdate(u), nil
}

func (o *Orchestrator) ListRooms() []domain.RoomSummary {
	return o.Rooms.ListPublic()
}
