package signal

import (
	"context"
	"errors"
	"time"

	"github.com/dkeye/Jam/internal/core"
	"github.com/dkeye/Jam/internal/domain"
	"github.com/dkeye/Jam/internal/metric"
	"github.com/dkeye/Jam/internal/protocol"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const writeWait = 5 * time.Second

func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.opts.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				c.Close()
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Warn().Err(err).Str("module", "signal").Msg("writePump ping failed")
				c.Close()
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(ctx context.Context, sid core.SessionID, c *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump closing")
		c.Close()
		ctl.disconnect(sid)
		metric.DecrementWSActiveConnections()
	}()

	pongWait := ctl.opts.PingPeriod * 10 / 9
	c.conn.SetReadLimit(ctl.opts.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("readPump read error")
				}
				return
			}
			_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
			ctl.handleSignal(sid, c, data)
		}
	}
}

// disconnect is the implicit leave of a closed transport.
func (ctl *SignalWSController) disconnect(sid core.SessionID) {
	ctl.Orch.Registry.Cancel(sid)
	res, left := ctl.Orch.Disconnect(sid)
	ctl.limiter.Forget(domain.UserID(sid))
	if left {
		ctl.announceLeft(sid, res)
	}
}

func (ctl *SignalWSController) handleSignal(sid core.SessionID, c *WsSignalConn, data []byte) {
	env, err := protocol.Decode(data)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("bad frame")
		ctl.sendError(c, err)
		return
	}
	if protocol.IsClientType(env.Type) {
		metric.RecordMessage(env.Type)
	} else {
		metric.RecordMessage("unknown")
	}

	switch env.Type {
	case protocol.TypePatternUpdate, protocol.TypeChat, protocol.TypeUpdateRoomState:
		if !ctl.limiter.Allow(domain.UserID(sid)) {
			ctl.sendError(c, core.ErrRateLimited)
			return
		}
	}

	switch env.Type {
	case protocol.TypeHandshake:
		ctl.handleHandshake(sid, c, env)
	case protocol.TypeCreateRoom:
		ctl.handleCreateRoom(sid, c, env)
	case protocol.TypeJoinRoom:
		ctl.handleJoin(sid, c, env)
	case protocol.TypeLeaveRoom:
		ctl.handleLeave(sid)
	case protocol.TypeListRooms:
		ctl.handleListRooms(c)
	case protocol.TypePatternUpdate:
		ctl.handlePatternUpdate(sid, c, env)
	case protocol.TypeChat:
		ctl.handleChat(sid, c, env)
	case protocol.TypeUpdateRoomState:
		ctl.handleUpdateRoomState(sid, c, env)
	case protocol.TypePing:
		ctl.handlePing(c)
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown signal")
		ctl.sendError(c, protocol.UnknownType(env.Type))
	}
}

func (ctl *SignalWSController) sendJSON(c core.SignalConnection, v any) {
	b, err := protocol.Encode(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}

func (ctl *SignalWSController) broadcast(room core.RoomService, except core.SessionID, v any) {
	b, err := protocol.Encode(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("broadcast marshal")
		return
	}
	ctl.Orch.Broadcast(room, except, b)
}

// sendError answers the originating connection only.
func (ctl *SignalWSController) sendError(c core.SignalConnection, err error) {
	metric.RecordError(errorReason(err))
	ctl.sendJSON(c, protocol.NewError(err.Error()))
}

func errorReason(err error) string {
	switch {
	case errors.Is(err, core.ErrRoomNotFound):
		return "room_not_found"
	case errors.Is(err, core.ErrRoomFull):
		return "room_full"
	case errors.Is(err, core.ErrNotInRoom):
		return "not_in_room"
	case errors.Is(err, core.ErrCapacityConfigInvalid):
		return "capacity_invalid"
	case errors.Is(err, core.ErrMalformedMessage):
		return "malformed"
	case errors.Is(err, core.ErrUnknownMessageType):
		return "unknown_type"
	case errors.Is(err, core.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, domain.ErrUsernameEmpty), errors.Is(err, domain.ErrUsernameTooLong):
		return "invalid_username"
	default:
		return "internal"
	}
}
