package orch

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/dkeye/Jam/internal/app"
	"github.com/dkeye/Jam/internal/core"
	"github.com/dkeye/Jam/internal/core/mocks"
	"github.com/dkeye/Jam/internal/domain"
	"go.uber.org/mock/gomock"
)

func newTestOrch(policy app.Policy) *Orchestrator {
	return New(app.NewRegistry(), app.NewRoomManager(app.DefaultRoomDefaults()), policy)
}

func bind(t *testing.T, o *Orchestrator, ctrl *gomock.Controller, sid string) *mocks.MockSignalConnection {
	t.Helper()
	conn := mocks.NewMockSignalConnection(ctrl)
	o.Registry.BindSignal(core.SessionID(sid), conn, nil)
	if _, err := o.Handshake(core.SessionID(sid), "user-"+sid); err != nil {
		t.Fatalf("handshake: %v", err)
	}
	return conn
}

func intp(v int) *int { return &v }

// assertNoDangling checks that every session's current room exists and lists it.
func assertNoDangling(t *testing.T, o *Orchestrator) {
	t.Helper()
	for _, s := range o.Registry.Snapshot() {
		roomID, ok := o.Registry.RoomOf(s.SID)
		if !ok {
			continue
		}
		room, ok := o.Rooms.GetRoom(roomID)
		if !ok {
			t.Fatalf("%s points at missing room %s", s.SID, roomID)
		}
		if !room.Has(domain.UserID(s.SID)) {
			t.Fatalf("%s points at room %s without being in it", s.SID, roomID)
		}
	}
}

func TestCreateAndJoinIncludesCreator(t *testing.T) {
	ctrl := gomock.NewController(t)
	o := newTestOrch(nil)
	bind(t, o, ctrl, "a")

	res, err := o.CreateAndJoin("a", domain.RoomConfig{Name: "jam"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !res.Room.Has("a") || res.Joined.Username != "user-a" {
		t.Fatalf("creator not joined: %+v", res.Joined)
	}
	if roomID, _ := o.Registry.RoomOf("a"); roomID != res.Room.Room().ID {
		t.Fatalf("registry room %q", roomID)
	}
	assertNoDangling(t, o)

	if _, err := o.CreateAndJoin("a", domain.RoomConfig{MaxUsers: intp(-1)}); !errors.Is(err, core.ErrCapacityConfigInvalid) {
		t.Fatalf("expected ErrCapacityConfigInvalid, got %v", err)
	}
	// A rejected create keeps the caller where it was.
	if roomID, _ := o.Registry.RoomOf("a"); roomID != res.Room.Room().ID {
		t.Fatalf("registry room moved to %q", roomID)
	}
}

func TestCreateWhileInRoomLeavesOldRoom(t *testing.T) {
	ctrl := gomock.NewController(t)
	o := newTestOrch(nil)
	bind(t, o, ctrl, "a")

	first, _ := o.CreateAndJoin("a", domain.RoomConfig{})
	second, err := o.CreateAndJoin("a", domain.RoomConfig{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if second.Left == nil || !second.Left.RoomDeleted || second.Left.RoomID != first.Room.Room().ID {
		t.Fatalf("old room not left: %+v", second.Left)
	}
	if o.Rooms.Count() != 1 {
		t.Fatalf("rooms: %d", o.Rooms.Count())
	}
	assertNoDangling(t, o)
}

func TestJoinFullRoomKeepsCurrentRoom(t *testing.T) {
	ctrl := gomock.NewController(t)
	o := newTestOrch(nil)
	for _, sid := range []string{"a", "b", "c"} {
		bind(t, o, ctrl, sid)
	}

	full, _ := o.CreateAndJoin("a", domain.RoomConfig{MaxUsers: intp(1)})
	home, _ := o.CreateAndJoin("b", domain.RoomConfig{})
	if _, err := o.Join("c", home.Room.Room().ID); err != nil {
		t.Fatalf("join: %v", err)
	}

	if _, err := o.Join("c", full.Room.Room().ID); !errors.Is(err, core.ErrRoomFull) {
		t.Fatalf("expected ErrRoomFull, got %v", err)
	}
	if roomID, _ := o.Registry.RoomOf("c"); roomID != home.Room.Room().ID {
		t.Fatalf("failed join moved c to %q", roomID)
	}
	if _, err := o.Join("c", "missing"); !errors.Is(err, core.ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
	assertNoDangling(t, o)
}

func TestLeaveIsIdempotent(t *testing.T) {
	ctrl := gomock.NewController(t)
	o := newTestOrch(nil)
	bind(t, o, ctrl, "a")
	bind(t, o, ctrl, "b")

	res, _ := o.CreateAndJoin("a", domain.RoomConfig{})
	if _, err := o.Join("b", res.Room.Room().ID); err != nil {
		t.Fatalf("join: %v", err)
	}

	left, ok := o.Leave("b")
	if !ok || !left.Removed || left.RoomDeleted || left.Participant.ID != "b" {
		t.Fatalf("first leave: %+v %v", left, ok)
	}
	if _, ok := o.Leave("b"); ok {
		t.Fatal("second leave must be a no-op")
	}
	if _, ok := o.Disconnect("b"); ok {
		t.Fatal("disconnect after leave must not leave again")
	}

	left, ok = o.Disconnect("a")
	if !ok || !left.RoomDeleted {
		t.Fatalf("last disconnect must delete the room: %+v", left)
	}
	if o.Rooms.Count() != 0 || o.Registry.Count() != 0 {
		t.Fatalf("leftovers: rooms=%d sessions=%d", o.Rooms.Count(), o.Registry.Count())
	}
}

func TestBroadcastIsolatesFailingRecipient(t *testing.T) {
	ctrl := gomock.NewController(t)
	o := newTestOrch(app.SimplePolicy{})
	a := bind(t, o, ctrl, "a")
	b := bind(t, o, ctrl, "b")
	c := bind(t, o, ctrl, "c")

	res, _ := o.CreateAndJoin("a", domain.RoomConfig{})
	_, _ = o.Join("b", res.Room.Room().ID)
	_, _ = o.Join("c", res.Room.Room().ID)

	frame := core.Frame(`{"type":"chat"}`)
	a.EXPECT().TrySend(gomock.Any()).Times(0)
	b.EXPECT().TrySend(frame).Return(errors.New("backpressure"))
	c.EXPECT().TrySend(frame).Return(nil)
	b.EXPECT().Close().Times(0)

	out := o.Broadcast(res.Room, "a", frame)
	if out.SendTo != 1 || len(out.Dropped) != 1 || out.Dropped[0].Meta().ID != "b" {
		t.Fatalf("publish result: %+v", out)
	}
}

func TestStrictPolicyKicksSlowRecipient(t *testing.T) {
	ctrl := gomock.NewController(t)
	o := newTestOrch(app.StrictPolicy{})
	a := bind(t, o, ctrl, "a")
	b := bind(t, o, ctrl, "b")

	res, _ := o.CreateAndJoin("a", domain.RoomConfig{})
	_, _ = o.Join("b", res.Room.Room().ID)

	a.EXPECT().TrySend(gomock.Any()).Return(nil)
	b.EXPECT().TrySend(gomock.Any()).Return(errors.New("backpressure"))
	b.EXPECT().Close()

	out := o.Broadcast(res.Room, "", core.Frame(`{}`))
	if out.SendTo != 1 {
		t.Fatalf("sent to %d", out.SendTo)
	}
}

func TestUpdatePatternAndState(t *testing.T) {
	ctrl := gomock.NewController(t)
	o := newTestOrch(nil)
	bind(t, o, ctrl, "a")

	if _, _, err := o.UpdatePattern("a", "", "bd"); !errors.Is(err, core.ErrNotInRoom) {
		t.Fatalf("expected ErrNotInRoom, got %v", err)
	}
	res, _ := o.CreateAndJoin("a", domain.RoomConfig{})
	roomID := res.Room.Room().ID

	if _, _, err := o.UpdatePattern("a", "other-room", "bd"); !errors.Is(err, core.ErrNotInRoom) {
		t.Fatalf("foreign room id must be rejected, got %v", err)
	}
	room, user, err := o.UpdatePattern("a", roomID, "[bd sd]")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if user.Username != "user-a" || room.MergeLayers() != "[bd sd]" {
		t.Fatalf("merged %q", room.MergeLayers())
	}

	key := "Dm"
	_, state, err := o.UpdateState("a", roomID, domain.StateUpdate{Key: &key})
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if state.Key != "Dm" || state.Tempo != domain.DefaultTempo {
		t.Fatalf("state: %+v", state)
	}
}

func TestHandshakeRenamesParticipant(t *testing.T) {
	ctrl := gomock.NewController(t)
	o := newTestOrch(nil)
	bind(t, o, ctrl, "a")
	res, _ := o.CreateAndJoin("a", domain.RoomConfig{})

	if _, err := o.Handshake("a", ""); !errors.Is(err, domain.ErrUsernameEmpty) {
		t.Fatalf("expected ErrUsernameEmpty, got %v", err)
	}
	if _, err := o.Handshake("a", "renamed"); err != nil {
		t.Fatalf("handshake: %v", err)
	}
	if got := res.Room.Participants()[0].Username; got != "renamed" {
		t.Fatalf("participant name %q", got)
	}
}

func TestConcurrentMovesLeaveNoDanglingRooms(t *testing.T) {
	ctrl := gomock.NewController(t)
	o := newTestOrch(nil)
	const sessions = 16
	for i := 0; i < sessions; i++ {
		conn := mocks.NewMockSignalConnection(ctrl)
		conn.EXPECT().TrySend(gomock.Any()).Return(nil).AnyTimes()
		o.Registry.BindSignal(core.SessionID(fmt.Sprint(i)), conn, nil)
	}
	seed, _ := o.CreateAndJoin("0", domain.RoomConfig{MaxUsers: intp(4)})

	var wg sync.WaitGroup
	for i := 1; i < sessions; i++ {
		wg.Add(1)
		go func(sid core.SessionID) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				if _, err := o.Join(sid, seed.Room.Room().ID); err == nil {
					o.Leave(sid)
				}
				if res, err := o.CreateAndJoin(sid, domain.RoomConfig{}); err == nil {
					_, _ = o.Join(sid, res.Room.Room().ID)
				}
			}
		}(core.SessionID(fmt.Sprint(i)))
	}
	wg.Wait()

	assertNoDangling(t, o)
	if n := seed.Room.ParticipantCount(); n > 4 {
		t.Fatalf("capacity exceeded: %d", n)
	}
}
