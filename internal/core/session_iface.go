package core

import "github.com/dkeye/Jam/internal/domain"

type SessionID string

// MemberSession binds a connected user and its transport endpoint.
// Rooms never hold it: they know who is inside, the registry knows how to reach them.
type MemberSession interface {
	Meta() *domain.User
	Signal() SignalConnection
}
