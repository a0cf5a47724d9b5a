package app

import (
	"github.com/dkeye/Jam/internal/core"
)

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropFrame
	KickMember
)

// Policy decides what happens to a participant whose send queue is full.
type Policy interface {
	OnBackPressure(roomID string, member core.MemberSession) BackpressureAction
}

// SimplePolicy drops the frame; broadcasts are best effort.
type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(string, core.MemberSession) BackpressureAction {
	return DropFrame
}

// StrictPolicy disconnects participants that cannot keep up.
type StrictPolicy struct{}

func (StrictPolicy) OnBackPressure(string, core.MemberSession) BackpressureAction {
	return KickMember
}

func PolicyByName(name string) Policy {
	switch name {
	case "kick":
		return StrictPolicy{}
	default:
		return SimplePolicy{}
	}
}
