package client

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	DefaultReconnectDelay    = 5 * time.Second
	DefaultReconnectAttempts = 5
	DefaultHandshakeTimeout  = 10 * time.Second
	ProtocolVersion          = "1"
)

// Player is the audio engine: it gets the merged pattern on play.
type Player interface {
	Play(pattern string) error
}

type Options struct {
	URL      string
	Username string

	ReconnectDelay    time.Duration
	ReconnectAttempts int
	HandshakeTimeout  time.Duration

	Dialer *websocket.Dialer
	Player Player

	// OnDisconnect fires exactly once, when reconnection is exhausted.
	OnDisconnect func(err error)
	// OnReconnectAttempt fires before every dial of the reconnect loop.
	OnReconnectAttempt func(attempt int)
	OnReconnected      func()
}

func (o Options) withDefaults() Options {
	if o.ReconnectDelay <= 0 {
		o.ReconnectDelay = DefaultReconnectDelay
	}
	if o.ReconnectAttempts <= 0 {
		o.ReconnectAttempts = DefaultReconnectAttempts
	}
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if o.Dialer == nil {
		o.Dialer = websocket.DefaultDialer
	}
	if o.Username == "" {
		o.Username = "Anonymous"
	}
	return o
}
