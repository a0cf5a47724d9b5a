package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dkeye/Jam/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/sethvargo/go-retry"
)

// reconnect runs the bounded retry loop: every attempt waits the fixed
// delay first. Success re-handshakes but does not rejoin the old room.
func (s *Session) reconnect() {
	ctx := s.ctx
	attempt := 0

	var (
		conn *websocket.Conn
		uid  domain.UserID
	)
	backoff := retry.WithMaxRetries(uint64(s.opts.ReconnectAttempts-1), retry.NewConstant(s.opts.ReconnectDelay))
	err := s.waitDelay(ctx)
	if err == nil {
		err = retry.Do(ctx, backoff, func(ctx context.Context) error {
			attempt++
			log.Info().Str("module", "client").Int("attempt", attempt).Int("max", s.opts.ReconnectAttempts).Msg("reconnect attempt")
			if s.opts.OnReconnectAttempt != nil {
				s.opts.OnReconnectAttempt(attempt)
			}
			c, id, err := s.establish(ctx)
			if err != nil {
				return retry.RetryableError(err)
			}
			conn, uid = c, id
			return nil
		})
	}

	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		s.giveUp(attempt, err)
		return
	}

	s.mu.Lock()
	if s.state != StateReconnecting {
		s.mu.Unlock()
		_ = conn.Close()
		return
	}
	s.conn = conn
	s.userID = uid
	s.state = StateConnected
	s.cache.reset()
	s.mu.Unlock()

	log.Info().Str("module", "client").Str("user", string(uid)).Int("attempts", attempt).Msg("reconnected")
	if s.opts.OnReconnected != nil {
		s.opts.OnReconnected()
	}
	go s.readLoop(conn)
}

func (s *Session) waitDelay(ctx context.Context) error {
	t := time.NewTimer(s.opts.ReconnectDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (s *Session) giveUp(attempts int, cause error) {
	s.mu.Lock()
	if s.state != StateReconnecting {
		s.mu.Unlock()
		return
	}
	s.state = StateClosed
	s.mu.Unlock()
	s.cancel()

	err := fmt.Errorf("%w after %d attempts: %v", ErrConnectionLost, attempts, cause)
	log.Error().Err(err).Str("module", "client").Msg("giving up")
	s.disconnectOnce.Do(func() {
		if s.opts.OnDisconnect != nil {
			s.opts.OnDisconnect(err)
		}
	})
}
