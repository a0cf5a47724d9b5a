package app

import (
	"context"
	"sync"

	"github.com/dkeye/Jam/internal/core"
	"github.com/dkeye/Jam/internal/domain"
	"github.com/rs/zerolog/log"
)

type sessionEntry struct {
	RoomID  domain.RoomID
	User    *domain.User
	Session core.MemberSession
	Cancel  context.CancelFunc
}

// Registry is the connection registry: who is connected, how to reach them
// and which room they are in. Rooms only know identities.
type Registry struct {
	mu       sync.RWMutex
	sessions map[core.SessionID]*sessionEntry
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[core.SessionID]*sessionEntry),
	}
}

// BindSignal registers a fresh connection under a placeholder username.
func (r *Registry) BindSignal(sid core.SessionID, conn core.SignalConnection, cancel context.CancelFunc) core.MemberSession {
	user := domain.NewUser(domain.UserID(sid))
	sess := core.NewMemberSession(user, conn)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sid] = &sessionEntry{User: user, Session: sess, Cancel: cancel}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("bound signal")
	return sess
}

func (r *Registry) Unbind(sid core.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sid)
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("unbind session")
}

func (r *Registry) GetSession(sid core.SessionID) (core.MemberSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.sessions[sid]; ok {
		return e.Session, true
	}
	return nil, false
}

// User returns a copy so callers never race with UpdateUsername.
func (r *Registry) User(sid core.SessionID) (domain.User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.sessions[sid]; ok {
		return *e.User, true
	}
	return domain.User{}, false
}

func (r *Registry) UpdateUsername(sid core.SessionID, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok {
		return nil
	}
	if err := e.User.SetUsername(name); err != nil {
		return err
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("username", name).Msg("updated username")
	return nil
}

func (r *Registry) RoomOf(sid core.SessionID) (domain.RoomID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.sessions[sid]
	if !ok || entry.RoomID == "" {
		return "", false
	}
	return entry.RoomID, true
}

func (r *Registry) UpdateRoom(sid core.SessionID, roomID domain.RoomID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.sessions[sid]
	if !ok {
		return false
	}
	entry.RoomID = roomID
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("room", string(roomID)).Msg("updated room")
	return true
}

func (r *Registry) RemoveRoom(sid core.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.sessions[sid]; ok {
		entry.RoomID = ""
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("removed room association")
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

type regSnap struct {
	SID     core.SessionID
	Session core.MemberSession
}

func (r *Registry) Snapshot() []regSnap {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]regSnap, 0, len(r.sessions))
	for sid, e := range r.sessions {
		out = append(out, regSnap{SID: sid, Session: e.Session})
	}
	return out
}

func (r *Registry) Cancel(sid core.SessionID) bool {
	r.mu.RLock()
	e, ok := r.sessions[sid]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("canceled session")
	return true
}
