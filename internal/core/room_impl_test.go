package core

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dkeye/Jam/internal/domain"
)

func newTestRoom(maxUsers int) RoomService {
	return NewRoomService(&domain.Room{
		ID:        "r1",
		Name:      "test",
		IsPublic:  true,
		MaxUsers:  maxUsers,
		CreatedAt: time.Now(),
	}, domain.RoomState{Tempo: 120})
}

func user(id string) domain.User {
	return domain.User{ID: domain.UserID(id), Username: "user-" + id}
}

func TestConcurrentJoinsNeverExceedCapacity(t *testing.T) {
	const (
		capacity = 4
		joiners  = 64
	)
	room := newTestRoom(capacity)

	var (
		wg       sync.WaitGroup
		admitted atomic.Int32
		rejected atomic.Int32
	)
	for i := 0; i < joiners; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := room.AddParticipant(user(fmt.Sprint(i)))
			switch {
			case err == nil:
				admitted.Add(1)
			case errors.Is(err, ErrRoomFull):
				rejected.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if got := room.ParticipantCount(); got != capacity {
		t.Fatalf("participants = %d, want %d", got, capacity)
	}
	if admitted.Load() != capacity || rejected.Load() != joiners-capacity {
		t.Fatalf("admitted=%d rejected=%d", admitted.Load(), rejected.Load())
	}
}

func TestRemoveParticipantDropsLayerAndIsIdempotent(t *testing.T) {
	room := newTestRoom(2)
	if _, err := room.AddParticipant(user("a")); err != nil {
		t.Fatal(err)
	}
	if _, err := room.SetLayer("a", "bd sd"); err != nil {
		t.Fatal(err)
	}

	if _, ok := room.RemoveParticipant("a"); !ok {
		t.Fatal("first remove should report removal")
	}
	if _, ok := room.RemoveParticipant("a"); ok {
		t.Fatal("second remove should be a no-op")
	}
	if n := len(room.Layers()); n != 0 {
		t.Fatalf("layer survived its participant: %d layers", n)
	}
}

func TestSetLayerOverwritesAndRequiresMembership(t *testing.T) {
	room := newTestRoom(2)
	if _, err := room.SetLayer("ghost", "x"); !errors.Is(err, ErrNotInRoom) {
		t.Fatalf("want ErrNotInRoom, got %v", err)
	}
	_, _ = room.AddParticipant(user("a"))
	_, _ = room.SetLayer("a", "first")
	_, _ = room.SetLayer("a", "second")

	layers := room.Layers()
	if len(layers) != 1 || layers[0].Pattern != "second" {
		t.Fatalf("layer not overwritten: %+v", layers)
	}
}

func TestMergeLayersFollowsJoinOrder(t *testing.T) {
	room := newTestRoom(3)
	for _, id := range []string{"z", "a", "m"} {
		if _, err := room.AddParticipant(user(id)); err != nil {
			t.Fatal(err)
		}
	}
	_, _ = room.SetLayer("m", "[hh*4]")
	_, _ = room.SetLayer("z", "bd")
	_, _ = room.SetLayer("a", "  ")

	if got, want := room.MergeLayers(), "[bd, hh*4]"; got != want {
		t.Fatalf("merge = %q, want %q", got, want)
	}
	if got := room.Participants(); got[0].ID != "z" || got[1].ID != "a" || got[2].ID != "m" {
		t.Fatalf("participants not in join order: %+v", got)
	}
}

func TestCloseIfEmptyRejectsLateJoin(t *testing.T) {
	room := newTestRoom(2)
	_, _ = room.AddParticipant(user("a"))
	if room.CloseIfEmpty() {
		t.Fatal("occupied room must not close")
	}
	room.RemoveParticipant("a")
	if !room.CloseIfEmpty() {
		t.Fatal("empty room should close")
	}
	if _, err := room.AddParticipant(user("b")); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("join into closed room: want ErrRoomNotFound, got %v", err)
	}
}

func TestRejoinIsNoop(t *testing.T) {
	room := newTestRoom(1)
	first, err := room.AddParticipant(user("a"))
	if err != nil {
		t.Fatal(err)
	}
	again, err := room.AddParticipant(user("a"))
	if err != nil {
		t.Fatalf("rejoin into own full room: %v", err)
	}
	if !first.JoinedAt.Equal(again.JoinedAt) {
		t.Fatal("rejoin must keep the original record")
	}
}

func TestApplyStateUpdateReflectedInSummary(t *testing.T) {
	room := newTestRoom(2)
	genre := "house"
	state := room.ApplyStateUpdate(domain.StateUpdate{Genre: &genre})
	if state.Genre != "house" || state.Tempo != 120 {
		t.Fatalf("unexpected state %+v", state)
	}
	if s := room.Summary(); s.Genre != "house" || s.ParticipantCount != 0 {
		t.Fatalf("unexpected summary %+v", s)
	}
}
