package core

import (
	"sort"
	"sync"
	"time"

	"github.com/dkeye/Jam/internal/domain"
	"github.com/dkeye/Jam/internal/pattern"
	"github.com/rs/zerolog/log"
)

type member struct {
	domain.Participant
	seq uint64
}

// roomImpl is a threadsafe in-memory room.
// Every mutation happens under mu, so capacity checks and layer updates are atomic.
type roomImpl struct {
	room *domain.Room

	mu      sync.RWMutex
	state   domain.RoomState
	members map[domain.UserID]*member
	layers  map[domain.UserID]domain.Layer
	seq     uint64
	closed  bool
}

func NewRoomService(room *domain.Room, state domain.RoomState) RoomService {
	return &roomImpl{
		room:    room,
		state:   state,
		members: make(map[domain.UserID]*member),
		layers:  make(map[domain.UserID]domain.Layer),
	}
}

func (r *roomImpl) Room() *domain.Room { return r.room }

func (r *roomImpl) State() domain.RoomState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

func (r *roomImpl) Summary() domain.RoomSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return domain.RoomSummary{
		ID:               r.room.ID,
		Name:             r.room.Name,
		Genre:            r.state.Genre,
		Tempo:            r.state.Tempo,
		ParticipantCount: len(r.members),
		MaxUsers:         r.room.MaxUsers,
		IsPublic:         r.room.IsPublic,
		CreatedAt:        r.room.CreatedAt,
	}
}

func (r *roomImpl) ParticipantCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

func (r *roomImpl) Has(id domain.UserID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.members[id]
	return ok
}

func (r *roomImpl) AddParticipant(user domain.User) (domain.Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return domain.Participant{}, ErrRoomNotFound
	}
	if m, ok := r.members[user.ID]; ok {
		return m.Participant, nil
	}
	if len(r.members) >= r.room.MaxUsers {
		return domain.Participant{}, ErrRoomFull
	}
	r.seq++
	m := &member{
		Participant: domain.Participant{ID: user.ID, Username: user.Username, JoinedAt: time.Now()},
		seq:         r.seq,
	}
	r.members[user.ID] = m
	log.Info().Str("module", "core.room").Str("room", string(r.room.ID)).Str("user", string(user.ID)).Int("count", len(r.members)).Msg("participant added")
	return m.Participant, nil
}

func (r *roomImpl) RemoveParticipant(id domain.UserID) (domain.Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.members[id]
	if !ok {
		return domain.Participant{}, false
	}
	delete(r.members, id)
	delete(r.layers, id)
	log.Info().Str("module", "core.room").Str("room", string(r.room.ID)).Str("user", string(id)).Int("count", len(r.members)).Msg("participant removed")
	return m.Participant, true
}

func (r *roomImpl) Rename(id domain.UserID, username string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.members[id]; ok {
		m.Username = username
	}
}

func (r *roomImpl) SetLayer(id domain.UserID, text string) (domain.Layer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.members[id]; !ok {
		return domain.Layer{}, ErrNotInRoom
	}
	l := domain.Layer{UserID: id, Pattern: text, UpdatedAt: time.Now()}
	r.layers[id] = l
	return l, nil
}

func (r *roomImpl) ApplyStateUpdate(u domain.StateUpdate) domain.RoomState {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = r.state.Apply(u)
	return r.state
}

func (r *roomImpl) Participants() []domain.Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ordered := r.orderedLocked()
	out := make([]domain.Participant, 0, len(ordered))
	for _, m := range ordered {
		out = append(out, m.Participant)
	}
	return out
}

func (r *roomImpl) Layers() []domain.Layer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.layersLocked()
}

func (r *roomImpl) MergeLayers() string {
	r.mu.RLock()
	layers := r.layersLocked()
	r.mu.RUnlock()

	texts := make([]string, 0, len(layers))
	for _, l := range layers {
		texts = append(texts, l.Pattern)
	}
	return pattern.Merge(texts)
}

func (r *roomImpl) CloseIfEmpty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.members) > 0 {
		return false
	}
	r.closed = true
	return true
}

func (r *roomImpl) layersLocked() []domain.Layer {
	out := make([]domain.Layer, 0, len(r.layers))
	for _, m := range r.orderedLocked() {
		if l, ok := r.layers[m.ID]; ok {
			out = append(out, l)
		}
	}
	return out
}

// orderedLocked sorts by join time; seq breaks ties between equal timestamps.
func (r *roomImpl) orderedLocked() []*member {
	out := make([]*member, 0, len(r.members))
	for _, m := range r.members {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].JoinedAt.Before(out[j].JoinedAt)
		}
		return out[i].seq < out[j].seq
	})
	return out
}
