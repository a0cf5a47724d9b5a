package domain

import (
	"strings"
	"testing"
)

func TestRoomStateApplyIsShallow(t *testing.T) {
	s := RoomState{Tempo: 120, Key: "C", Genre: "techno"}
	tempo := 140.0
	got := s.Apply(StateUpdate{Tempo: &tempo})
	if got.Tempo != 140 || got.Key != "C" || got.Genre != "techno" {
		t.Fatalf("unexpected state %+v", got)
	}

	key := ""
	got = got.Apply(StateUpdate{Key: &key})
	if got.Key != "" || got.Tempo != 140 {
		t.Fatalf("explicit empty key should overwrite: %+v", got)
	}
}

func TestSetUsername(t *testing.T) {
	u := NewUser("u1")
	if u.Username != DefaultUsername {
		t.Fatalf("want default username, got %q", u.Username)
	}
	if err := u.SetUsername(""); err != ErrUsernameEmpty {
		t.Fatalf("want ErrUsernameEmpty, got %v", err)
	}
	if err := u.SetUsername(strings.Repeat("x", MaxUsernameLen+1)); err != ErrUsernameTooLong {
		t.Fatalf("want ErrUsernameTooLong, got %v", err)
	}
	if err := u.SetUsername("alice"); err != nil || u.Username != "alice" {
		t.Fatalf("rename failed: %v %q", err, u.Username)
	}
}
