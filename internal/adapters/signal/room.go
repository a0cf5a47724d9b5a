package signal

import (
	"github.com/dkeye/Jam/internal/app/orch"
	"github.com/dkeye/Jam/internal/core"
	"github.com/dkeye/Jam/internal/domain"
	"github.com/dkeye/Jam/internal/protocol"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handleCreateRoom(
	sid core.SessionID,
	conn *WsSignalConn,
	env protocol.Envelope,
) {
	p, err := protocol.DecodePayload[protocol.CreateRoom](env)
	if err != nil {
		ctl.sendError(conn, err)
		return
	}

	res, err := ctl.Orch.CreateAndJoin(sid, p.Config.Domain())
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("create room rejected")
		ctl.sendError(conn, err)
		return
	}
	if res.Left != nil {
		ctl.announceLeft(sid, *res.Left)
	}
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("room_id", string(res.Room.Room().ID)).Msg("create room")
	ctl.sendJSON(conn, roomJoined(res.Room))
}

func (ctl *SignalWSController) handleJoin(
	sid core.SessionID,
	conn *WsSignalConn,
	env protocol.Envelope,
) {
	p, err := protocol.DecodePayload[protocol.JoinRoom](env)
	if err != nil {
		ctl.sendError(conn, err)
		return
	}

	res, err := ctl.Orch.Join(sid, domain.RoomID(p.RoomID))
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Str("room_id", p.RoomID).Msg("join rejected")
		ctl.sendError(conn, err)
		return
	}
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("room_id", p.RoomID).Bool("already", res.Already).Msg("join")

	if res.Left != nil {
		ctl.announceLeft(sid, *res.Left)
	}
	ctl.sendJSON(conn, roomJoined(res.Room))
	if res.Already {
		return
	}
	ctl.broadcast(res.Room, sid, protocol.UserJoined{
		Type: protocol.TypeUserJoined,
		User: res.Joined,
	})
}

// handleLeave leaves the current room; the connection stays open.
func (ctl *SignalWSController) handleLeave(sid core.SessionID) {
	res, left := ctl.Orch.Leave(sid)
	if !left {
		return
	}
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("room_id", string(res.RoomID)).Msg("leave")
	ctl.announceLeft(sid, res)
}

func (ctl *SignalWSController) handleListRooms(conn *WsSignalConn) {
	ctl.sendJSON(conn, protocol.RoomList{
		Type:  protocol.TypeRoomList,
		Rooms: ctl.Orch.ListRooms(),
	})
}

func (ctl *SignalWSController) announceLeft(sid core.SessionID, res orch.LeaveResult) {
	if !res.Removed || res.RoomDeleted || res.Room == nil {
		return
	}
	ctl.broadcast(res.Room, sid, protocol.UserLeft{
		Type:     protocol.TypeUserLeft,
		UserID:   string(res.Participant.ID),
		Username: res.Participant.Username,
	})
}

func roomJoined(room core.RoomService) protocol.RoomJoined {
	return protocol.RoomJoined{
		Type:         protocol.TypeRoomJoined,
		RoomID:       room.Room().ID,
		Room:         room.Summary(),
		Participants: room.Participants(),
		State:        room.State(),
		Layers:       room.Layers(),
	}
}
