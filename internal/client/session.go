// Package client is the participant side of a jam: it keeps one websocket
// to the server, a local copy of the joined room and reconnects when the
// connection drops.
package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dkeye/Jam/internal/domain"
	"github.com/dkeye/Jam/internal/protocol"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Event is a server message as delivered to handlers. Message holds the
// decoded protocol struct, or the raw frame for types this client does not know.
type Event struct {
	Type    string
	Message any
}

type Handler func(Event)

type Session struct {
	opts Options

	mu       sync.Mutex
	state    State
	conn     *websocket.Conn
	userID   domain.UserID
	cache    *roomCache
	handlers map[string][]Handler

	writeMu sync.Mutex

	ctx            context.Context
	cancel         context.CancelFunc
	disconnectOnce sync.Once
}

func New(opts Options) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		opts:     opts.withDefaults(),
		cache:    newRoomCache(),
		handlers: make(map[string][]Handler),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Connect dials, handshakes and waits for the welcome. A failure here is
// returned as is; reconnection only covers connections that were up.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case StateClosed:
		s.mu.Unlock()
		return ErrClosed
	case StateDisconnected:
	default:
		s.mu.Unlock()
		return fmt.Errorf("connect in state %s", s.state)
	}
	s.state = StateConnecting
	s.mu.Unlock()

	conn, uid, err := s.establish(ctx)

	s.mu.Lock()
	if err != nil {
		if s.state == StateConnecting {
			s.state = StateDisconnected
		}
		s.mu.Unlock()
		return err
	}
	if s.state == StateClosed {
		s.mu.Unlock()
		_ = conn.Close()
		return ErrClosed
	}
	s.conn = conn
	s.userID = uid
	s.state = StateConnected
	s.mu.Unlock()

	log.Info().Str("module", "client").Str("user", string(uid)).Msg("connected")
	go s.readLoop(conn)
	return nil
}

// establish opens a transport and completes the handshake on it.
func (s *Session) establish(ctx context.Context) (*websocket.Conn, domain.UserID, error) {
	conn, _, err := s.opts.Dialer.DialContext(ctx, s.opts.URL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("dial %s: %w", s.opts.URL, err)
	}

	frame, err := protocol.Encode(protocol.Handshake{
		Type:     protocol.TypeHandshake,
		Username: s.opts.Username,
		Version:  ProtocolVersion,
	})
	if err == nil {
		err = conn.WriteMessage(websocket.TextMessage, frame)
	}
	if err != nil {
		_ = conn.Close()
		return nil, "", fmt.Errorf("handshake: %w", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(s.opts.HandshakeTimeout))
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			_ = conn.Close()
			return nil, "", fmt.Errorf("handshake: %w", err)
		}
		env, err := protocol.Decode(data)
		if err != nil {
			continue
		}
		switch env.Type {
		case protocol.TypeWelcome:
			w, err := protocol.DecodePayload[protocol.Welcome](env)
			if err != nil {
				_ = conn.Close()
				return nil, "", fmt.Errorf("handshake: %w", err)
			}
			_ = conn.SetReadDeadline(time.Time{})
			return conn, domain.UserID(w.UserID), nil
		case protocol.TypeError:
			e, _ := protocol.DecodePayload[protocol.Error](env)
			_ = conn.Close()
			return nil, "", fmt.Errorf("handshake: %w", &ServerError{Message: e.Message})
		}
	}
}

func (s *Session) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			log.Debug().Err(err).Str("module", "client").Msg("read loop ended")
			break
		}
		s.dispatch(data)
	}
	s.connectionLost(conn)
}

func (s *Session) connectionLost(conn *websocket.Conn) {
	s.mu.Lock()
	if s.conn != conn || s.state != StateConnected {
		s.mu.Unlock()
		return
	}
	_ = conn.Close()
	s.conn = nil
	s.state = StateReconnecting
	s.cache.reset()
	s.mu.Unlock()

	log.Warn().Str("module", "client").Msg("connection lost, reconnecting")
	s.reconnect()
}

func (s *Session) dispatch(data []byte) {
	env, err := protocol.Decode(data)
	if err != nil {
		log.Warn().Err(err).Str("module", "client").Msg("bad frame from server")
		return
	}

	var msg any
	s.mu.Lock()
	switch env.Type {
	case protocol.TypeRoomJoined:
		if m, err := protocol.DecodePayload[protocol.RoomJoined](env); err == nil {
			s.cache.rebuild(m)
			msg = m
		}
	case protocol.TypeRoomState:
		if m, err := protocol.DecodePayload[protocol.RoomState](env); err == nil {
			s.cache.state = m.State
			msg = m
		}
	case protocol.TypeUserJoined:
		if m, err := protocol.DecodePayload[protocol.UserJoined](env); err == nil {
			if s.cache.roomID != "" {
				s.cache.add(m.User)
			}
			msg = m
		}
	case protocol.TypeUserLeft:
		if m, err := protocol.DecodePayload[protocol.UserLeft](env); err == nil {
			s.cache.remove(domain.UserID(m.UserID))
			msg = m
		}
	case protocol.TypePatternUpdate:
		if m, err := protocol.DecodePayload[protocol.PatternUpdate](env); err == nil {
			s.cache.setLayer(domain.UserID(m.UserID), m.Pattern)
			msg = m
		}
	case protocol.TypeChat:
		if m, err := protocol.DecodePayload[protocol.Chat](env); err == nil {
			msg = m
		}
	case protocol.TypeRoomList:
		if m, err := protocol.DecodePayload[protocol.RoomList](env); err == nil {
			msg = m
		}
	case protocol.TypeWelcome:
		if m, err := protocol.DecodePayload[protocol.Welcome](env); err == nil {
			s.userID = domain.UserID(m.UserID)
			msg = m
		}
	case protocol.TypeError:
		if m, err := protocol.DecodePayload[protocol.Error](env); err == nil {
			msg = m
		}
	case protocol.TypePong:
		if m, err := protocol.DecodePayload[protocol.Pong](env); err == nil {
			msg = m
		}
	default:
		msg = data
	}
	handlers := append(append([]Handler(nil), s.handlers[env.Type]...), s.handlers["*"]...)
	s.mu.Unlock()

	if msg == nil {
		log.Warn().Str("module", "client").Str("type", env.Type).Msg("undecodable message")
		return
	}
	ev := Event{Type: env.Type, Message: msg}
	for _, h := range handlers {
		h(ev)
	}
}

// On registers fn for a message type; "*" receives every message.
func (s *Session) On(msgType string, fn Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[msgType] = append(s.handlers[msgType], fn)
}

func (s *Session) send(v any) error {
	s.mu.Lock()
	conn := s.conn
	connected := s.state == StateConnected
	s.mu.Unlock()
	if !connected || conn == nil {
		return ErrNotConnected
	}

	frame, err := protocol.Encode(v)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("%w: %v", ErrNotConnected, err)
	}
	return nil
}

func (s *Session) roomID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return string(s.cache.roomID)
}

func (s *Session) CreateRoom(cfg protocol.RoomConfig) error {
	return s.send(protocol.CreateRoom{Type: protocol.TypeCreateRoom, Config: cfg})
}

func (s *Session) JoinRoom(roomID string) error {
	return s.send(protocol.JoinRoom{Type: protocol.TypeJoinRoom, RoomID: roomID})
}

// LeaveRoom drops the local room view right away; the server does not ack.
func (s *Session) LeaveRoom() error {
	if err := s.send(protocol.LeaveRoom{Type: protocol.TypeLeaveRoom, RoomID: s.roomID()}); err != nil {
		return err
	}
	s.mu.Lock()
	s.cache.reset()
	s.mu.Unlock()
	return nil
}

func (s *Session) ListRooms() error {
	return s.send(protocol.ListRooms{Type: protocol.TypeListRooms})
}

// UpdatePattern sends the local layer and applies it to the cache, since
// the server does not echo it back.
func (s *Session) UpdatePattern(text string) error {
	err := s.send(protocol.PatternUpdate{
		Type:      protocol.TypePatternUpdate,
		RoomID:    s.roomID(),
		Pattern:   text,
		Timestamp: protocol.Now(),
	})
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.cache.setLayer(s.userID, text)
	s.mu.Unlock()
	return nil
}

func (s *Session) SendChat(text string) error {
	return s.send(protocol.Chat{Type: protocol.TypeChat, RoomID: s.roomID(), Message: text})
}

func (s *Session) UpdateRoomState(u protocol.StateUpdates) error {
	return s.send(protocol.UpdateRoomState{Type: protocol.TypeUpdateRoomState, RoomID: s.roomID(), Updates: &u})
}

func (s *Session) Ping() error {
	return s.send(protocol.Ping{Type: protocol.TypePing, Timestamp: protocol.Now()})
}

// MergedPattern merges the cached layers in join order.
func (s *Session) MergedPattern() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.merged()
}

func (s *Session) Play() error {
	if s.opts.Player == nil {
		return ErrNoPlayer
	}
	return s.opts.Player.Play(s.MergedPattern())
}

func (s *Session) Room() RoomView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.view()
}

func (s *Session) UserID() domain.UserID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Close ends the session for good. It never triggers a reconnect.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return nil
	}
	s.state = StateClosed
	conn := s.conn
	s.conn = nil
	s.cache.reset()
	s.mu.Unlock()

	s.cancel()
	if conn == nil {
		return nil
	}
	s.writeMu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	s.writeMu.Unlock()
	return conn.Close()
}
