package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/Jam/internal/app/orch"
	"github.com/dkeye/Jam/internal/core"
	"github.com/dkeye/Jam/internal/metric"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

type Options struct {
	ServerVersion string
	Features      []string
	ReadLimit     int64
	PingPeriod    time.Duration
	SendBuffer    int
	RatePerSecond float64
	RateBurst     int
}

func (o Options) withDefaults() Options {
	if o.ReadLimit <= 0 {
		o.ReadLimit = 32768
	}
	if o.PingPeriod <= 0 {
		o.PingPeriod = 54 * time.Second
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = 64
	}
	if o.Features == nil {
		o.Features = []string{}
	}
	return o
}

type SignalWSController struct {
	Orch *orch.Orchestrator

	opts    Options
	limiter *RoomRateLimiter
	pumps   conc.WaitGroup
}

func NewSignalWSController(o *orch.Orchestrator, opts Options) *SignalWSController {
	opts = opts.withDefaults()
	return &SignalWSController{
		Orch:    o,
		opts:    opts,
		limiter: NewRoomRateLimiter(opts.RatePerSecond, opts.RateBurst),
	}
}

type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the request and runs the connection until either
// side closes it. The participant id is assigned here, one per connection.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	sid := core.SessionID(uuid.NewString())
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("remote", c.ClientIP()).Msg("new WS connection")

	conn := &WsSignalConn{
		conn: ws,
		send: make(chan core.Frame, ctl.opts.SendBuffer),
	}

	ctx, cancel := context.WithCancel(ctx)
	ctl.Orch.Registry.BindSignal(sid, conn, cancel)
	metric.IncrementWSActiveConnections()

	ctl.pumps.Go(func() { ctl.writePump(ctx, conn) })
	ctl.pumps.Go(func() { ctl.readPump(ctx, sid, conn) })
}

// Shutdown closes every live connection and waits until all pumps have
// finished their cleanup.
func (ctl *SignalWSController) Shutdown() {
	snaps := ctl.Orch.Registry.Snapshot()
	for _, s := range snaps {
		s.Session.Signal().Close()
	}
	ctl.pumps.Wait()
	log.Info().Str("module", "signal").Int("closed", len(snaps)).Msg("all connections closed")
}
