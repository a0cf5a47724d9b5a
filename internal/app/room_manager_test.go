package app

import (
	"errors"
	"testing"
	"time"

	"github.com/dkeye/Jam/internal/core"
	"github.com/dkeye/Jam/internal/domain"
)

func intp(v int) *int { return &v }

func boolp(v bool) *bool { return &v }

func floatp(v float64) *float64 { return &v }

func creator(id string) domain.User {
	return domain.User{ID: domain.UserID(id), Username: id}
}

func TestCreateRoomDefaults(t *testing.T) {
	m := NewRoomManager(DefaultRoomDefaults())

	room, owner, err := m.CreateRoom(domain.RoomConfig{}, creator("a"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	r := room.Room()
	if r.Name != domain.DefaultRoomName || r.MaxUsers != 8 || !r.IsPublic {
		t.Fatalf("defaults not applied: %+v", r)
	}
	if room.State().Tempo != 120 {
		t.Fatalf("tempo %v", room.State().Tempo)
	}
	if owner.ID != "a" || room.ParticipantCount() != 1 {
		t.Fatalf("creator must be inside: %+v", owner)
	}
	if r.ID == "" {
		t.Fatal("empty id")
	}
}

func TestCreateRoomCapacity(t *testing.T) {
	m := NewRoomManager(DefaultRoomDefaults())

	for _, bad := range []int{0, -3} {
		if _, _, err := m.CreateRoom(domain.RoomConfig{MaxUsers: intp(bad)}, creator("a")); !errors.Is(err, core.ErrCapacityConfigInvalid) {
			t.Fatalf("maxUsers=%d: expected ErrCapacityConfigInvalid, got %v", bad, err)
		}
	}
	room, _, err := m.CreateRoom(domain.RoomConfig{MaxUsers: intp(500)}, creator("a"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if room.Room().MaxUsers != 32 {
		t.Fatalf("expected clamp to 32, got %d", room.Room().MaxUsers)
	}
	if m.Count() != 1 {
		t.Fatalf("count %d", m.Count())
	}
}

func TestListPublic(t *testing.T) {
	m := NewRoomManager(DefaultRoomDefaults())

	first, _, _ := m.CreateRoom(domain.RoomConfig{Name: "first", Genre: "techno", Tempo: floatp(128)}, creator("a"))
	time.Sleep(time.Millisecond)
	_, _, _ = m.CreateRoom(domain.RoomConfig{Name: "secret", IsPublic: boolp(false)}, creator("b"))
	time.Sleep(time.Millisecond)
	_, _, _ = m.CreateRoom(domain.RoomConfig{Name: "second"}, creator("c"))

	list := m.ListPublic()
	if len(list) != 2 || list[0].Name != "first" || list[1].Name != "second" {
		t.Fatalf("list: %+v", list)
	}
	if list[0].ID != first.Room().ID || list[0].Genre != "techno" || list[0].Tempo != 128 || list[0].ParticipantCount != 1 {
		t.Fatalf("summary: %+v", list[0])
	}
}

func TestDeleteIfEmpty(t *testing.T) {
	m := NewRoomManager(DefaultRoomDefaults())
	room, _, _ := m.CreateRoom(domain.RoomConfig{}, creator("a"))
	id := room.Room().ID

	if m.DeleteIfEmpty(id) {
		t.Fatal("occupied room deleted")
	}
	room.RemoveParticipant("a")
	if !m.DeleteIfEmpty(id) {
		t.Fatal("empty room kept")
	}
	if m.DeleteIfEmpty(id) {
		t.Fatal("second delete must report false")
	}
	if _, ok := m.GetRoom(id); ok {
		t.Fatal("deleted room still reachable")
	}
	if _, err := room.AddParticipant(creator("late")); !errors.Is(err, core.ErrRoomNotFound) {
		t.Fatalf("join into deleted room: %v", err)
	}
}
