package orch

import (
	"github.com/dkeye/Jam/internal/core"
	"github.com/dkeye/Jam/internal/domain"
	"github.com/dkeye/Jam/internal/metric"
	"github.com/rs/zerolog/log"
)

type JoinResult struct {
	Room   core.RoomService
	Joined domain.Participant
	// Left is set when joining implied leaving another room.
	Left *LeaveResult
	// Already means the participant was in this room before the request.
	Already bool
}

type LeaveResult struct {
	RoomID      domain.RoomID
	Room        core.RoomService
	Participant domain.Participant
	Removed     bool
	RoomDeleted bool
}

// Handshake binds a display name to the id assigned at connect time.
func (o *Orchestrator) Handshake(sid core.SessionID, username string) (domain.User, error) {
	if err := o.Registry.UpdateUsername(sid, username); err != nil {
		return domain.User{}, err
	}
	user, ok := o.Registry.User(sid)
	if !ok {
		return domain.User{}, ErrUnknownSession
	}
	if roomID, ok := o.Registry.RoomOf(sid); ok {
		if room, ok := o.Rooms.GetRoom(roomID); ok {
			room.Rename(user.ID, user.Username)
		}
	}
	return user, nil
}

// CreateAndJoin creates a room with the caller already inside it. A previous
// room, if any, is left once the new one exists.
func (o *Orchestrator) CreateAndJoin(sid core.SessionID, cfg domain.RoomConfig) (JoinResult, error) {
	user, ok := o.Registry.User(sid)
	if !ok {
		return JoinResult{}, ErrUnknownSession
	}
	room, owner, err := o.Rooms.CreateRoom(cfg, user)
	if err != nil {
		return JoinResult{}, err
	}
	res := JoinResult{Room: room, Joined: owner}
	if prev, ok := o.Registry.RoomOf(sid); ok {
		left := o.leaveRoom(sid, prev)
		res.Left = &left
	}
	o.Registry.UpdateRoom(sid, room.Room().ID)
	metric.SetActiveRooms(o.Rooms.Count())
	return res, nil
}

// Join moves the caller into roomID. The new seat is taken before the old
// room is left, so a rejected join leaves the caller where they were.
func (o *Orchestrator) Join(sid core.SessionID, roomID domain.RoomID) (JoinResult, error) {
	user, ok := o.Registry.User(sid)
	if !ok {
		return JoinResult{}, ErrUnknownSession
	}
	room, ok := o.Rooms.GetRoom(roomID)
	if !ok {
		return JoinResult{}, core.ErrRoomNotFound
	}

	prev, inRoom := o.Registry.RoomOf(sid)
	if inRoom && prev == roomID {
		if room.Has(user.ID) {
			return JoinResult{Room: room, Already: true}, nil
		}
	}

	joined, err := room.AddParticipant(user)
	if err != nil {
		return JoinResult{}, err
	}
	res := JoinResult{Room: room, Joined: joined}
	if inRoom && prev != roomID {
		left := o.leaveRoom(sid, prev)
		res.Left = &left
		log.Info().Str("module", "orch").Str("sid", string(sid)).Str("from_room", string(prev)).Msg("left previous room")
	}
	o.Registry.UpdateRoom(sid, roomID)
	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("room", string(roomID)).Msg("added to room")
	return res, nil
}

// Leave is idempotent: without a current room it reports false and does nothing.
func (o *Orchestrator) Leave(sid core.SessionID) (LeaveResult, bool) {
	roomID, ok := o.Registry.RoomOf(sid)
	if !ok {
		return LeaveResult{}, false
	}
	res := o.leaveRoom(sid, roomID)
	o.Registry.RemoveRoom(sid)
	return res, res.Removed
}

// Disconnect is an implicit leave followed by dropping the participant record.
func (o *Orchestrator) Disconnect(sid core.SessionID) (LeaveResult, bool) {
	res, left := o.Leave(sid)
	o.Registry.Unbind(sid)
	return res, left
}

func (o *Orchestrator) leaveRoom(sid core.SessionID, roomID domain.RoomID) LeaveResult {
	res := LeaveResult{RoomID: roomID}
	room, ok := o.Rooms.GetRoom(roomID)
	if !ok {
		return res
	}
	res.Room = room
	res.Participant, res.Removed = room.RemoveParticipant(domain.UserID(sid))
	res.RoomDeleted = o.Rooms.DeleteIfEmpty(roomID)
	if res.RoomDeleted {
		metric.SetActiveRooms(o.Rooms.Count())
	}
	return res
}
