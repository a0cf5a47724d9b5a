package signal

import (
	"github.com/dkeye/Jam/internal/protocol"
)

func (ctl *SignalWSController) handlePing(
	conn *WsSignalConn,
) {
	ctl.sendJSON(conn, protocol.Pong{
		Type:      protocol.TypePong,
		Timestamp: protocol.Now(),
	})
}
