package signal

import (
	"github.com/dkeye/Jam/internal/core"
	"github.com/dkeye/Jam/internal/protocol"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handleHandshake(
	sid core.SessionID,
	conn *WsSignalConn,
	env protocol.Envelope,
) {
	p, err := protocol.DecodePayload[protocol.Handshake](env)
	if err != nil {
		ctl.sendError(conn, err)
		return
	}

	user, err := ctl.Orch.Handshake(sid, p.Username)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("handshake rejected")
		ctl.sendError(conn, err)
		return
	}
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("name", user.Username).Str("version", p.Version).Msg("handshake")

	ctl.sendJSON(conn, protocol.Welcome{
		Type:          protocol.TypeWelcome,
		UserID:        string(user.ID),
		ServerVersion: ctl.opts.ServerVersion,
		Features:      ctl.opts.Features,
	})
}
