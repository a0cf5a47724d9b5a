package signal

import (
	"github.com/dkeye/Jam/internal/core"
	"github.com/dkeye/Jam/internal/domain"
	"github.com/dkeye/Jam/internal/protocol"
	"github.com/rs/zerolog/log"
)

// handlePatternUpdate stores the sender's layer and fans it out to
// everyone else; the sender already has it.
func (ctl *SignalWSController) handlePatternUpdate(
	sid core.SessionID,
	conn *WsSignalConn,
	env protocol.Envelope,
) {
	p, err := protocol.DecodePayload[protocol.PatternUpdate](env)
	if err != nil {
		ctl.sendError(conn, err)
		return
	}
	room, user, err := ctl.Orch.UpdatePattern(sid, domain.RoomID(p.RoomID), p.Pattern)
	if err != nil {
		ctl.sendError(conn, err)
		return
	}
	ts := p.Timestamp
	if ts == 0 {
		ts = protocol.Now()
	}
	log.Debug().Str("module", "signal").Str("sid", string(sid)).Str("room_id", string(room.Room().ID)).Int("len", len(p.Pattern)).Msg("pattern update")

	ctl.broadcast(room, sid, protocol.PatternUpdate{
		Type:      protocol.TypePatternUpdate,
		UserID:    string(user.ID),
		Username:  user.Username,
		Pattern:   p.Pattern,
		Timestamp: ts,
	})
}

// handleChat echoes to the sender too, so every client renders chat from
// one code path.
func (ctl *SignalWSController) handleChat(
	sid core.SessionID,
	conn *WsSignalConn,
	env protocol.Envelope,
) {
	p, err := protocol.DecodePayload[protocol.Chat](env)
	if err != nil {
		ctl.sendError(conn, err)
		return
	}
	room, user, err := ctl.Orch.CurrentRoom(sid, domain.RoomID(p.RoomID))
	if err != nil {
		ctl.sendError(conn, err)
		return
	}
	ctl.broadcast(room, "", protocol.Chat{
		Type:      protocol.TypeChat,
		UserID:    string(user.ID),
		Username:  user.Username,
		Message:   p.Message,
		Timestamp: protocol.Now(),
	})
}

func (ctl *SignalWSController) handleUpdateRoomState(
	sid core.SessionID,
	conn *WsSignalConn,
	env protocol.Envelope,
) {
	p, err := protocol.DecodePayload[protocol.UpdateRoomState](env)
	if err != nil {
		ctl.sendError(conn, err)
		return
	}
	room, state, err := ctl.Orch.UpdateState(sid, domain.RoomID(p.RoomID), p.Updates.Domain())
	if err != nil {
		ctl.sendError(conn, err)
		return
	}
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("room_id", string(room.Room().ID)).Float64("tempo", state.Tempo).Msg("room state updated")
	ctl.broadcast(room, "", protocol.RoomState{
		Type:  protocol.TypeRoomState,
		State: state,
	})
}
