package app

import (
	"sort"
	"sync"
	"time"

	"github.com/dkeye/Jam/internal/core"
	"github.com/dkeye/Jam/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// RoomDefaults holds what a creator gets when the config omits a field.
type RoomDefaults struct {
	MaxUsers    int
	MaxUsersCap int
	Tempo       float64
}

func DefaultRoomDefaults() RoomDefaults {
	return RoomDefaults{
		MaxUsers:    domain.DefaultMaxUsers,
		MaxUsersCap: 32,
		Tempo:       domain.DefaultTempo,
	}
}

type RoomManagerImpl struct {
	defaults RoomDefaults

	mu    sync.RWMutex
	rooms map[domain.RoomID]core.RoomService
}

func NewRoomManager(defaults RoomDefaults) core.RoomManager {
	if defaults.MaxUsers <= 0 {
		defaults.MaxUsers = domain.DefaultMaxUsers
	}
	if defaults.MaxUsersCap < defaults.MaxUsers {
		defaults.MaxUsersCap = defaults.MaxUsers
	}
	if defaults.Tempo <= 0 {
		defaults.Tempo = domain.DefaultTempo
	}
	return &RoomManagerImpl{
		defaults: defaults,
		rooms:    make(map[domain.RoomID]core.RoomService),
	}
}

func (f *RoomManagerImpl) CreateRoom(cfg domain.RoomConfig, creator domain.User) (core.RoomService, domain.Participant, error) {
	maxUsers := f.defaults.MaxUsers
	if cfg.MaxUsers != nil {
		if *cfg.MaxUsers <= 0 {
			return nil, domain.Participant{}, core.ErrCapacityConfigInvalid
		}
		maxUsers = min(*cfg.MaxUsers, f.defaults.MaxUsersCap)
	}
	isPublic := true
	if cfg.IsPublic != nil {
		isPublic = *cfg.IsPublic
	}
	tempo := f.defaults.Tempo
	if cfg.Tempo != nil && *cfg.Tempo > 0 {
		tempo = *cfg.Tempo
	}
	name := cfg.Name
	if name == "" {
		name = domain.DefaultRoomName
	}

	room := core.NewRoomService(&domain.Room{
		ID:        domain.RoomID(uuid.NewString()),
		Name:      name,
		IsPublic:  isPublic,
		MaxUsers:  maxUsers,
		CreatedAt: time.Now(),
	}, domain.RoomState{Tempo: tempo, Key: cfg.Key, Genre: cfg.Genre})

	owner, err := room.AddParticipant(creator)
	if err != nil {
		return nil, domain.Participant{}, err
	}

	f.mu.Lock()
	f.rooms[room.Room().ID] = room
	f.mu.Unlock()

	log.Info().Str("module", "app.rooms").Str("room", string(room.Room().ID)).Str("name", name).Int("max_users", maxUsers).Bool("public", isPublic).Msg("room created")
	return room, owner, nil
}

func (f *RoomManagerImpl) GetRoom(id domain.RoomID) (core.RoomService, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	room, ok := f.rooms[id]
	return room, ok
}

func (f *RoomManagerImpl) ListPublic() []domain.RoomSummary {
	f.mu.RLock()
	rooms := make([]core.RoomService, 0, len(f.rooms))
	for _, r := range f.rooms {
		if r.Room().IsPublic {
			rooms = append(rooms, r)
		}
	}
	f.mu.RUnlock()

	out := make([]domain.RoomSummary, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, r.Summary())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// DeleteIfEmpty closes the room under its own lock first, so a join racing
// with the deletion fails with ErrRoomNotFound instead of landing in a dead room.
func (f *RoomManagerImpl) DeleteIfEmpty(id domain.RoomID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	room, ok := f.rooms[id]
	if !ok || !room.CloseIfEmpty() {
		return false
	}
	delete(f.rooms, id)
	log.Info().Str("module", "app.rooms").Str("room", string(id)).Msg("room deleted")
	return true
}

func (f *RoomManagerImpl) Count() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.rooms)
}
