package orch

import (
	"errors"
	"time"

	"github.com/dkeye/Jam/internal/app"
	"github.com/dkeye/Jam/internal/core"
	"github.com/dkeye/Jam/internal/domain"
	"github.com/dkeye/Jam/internal/metric"
	"github.com/rs/zerolog/log"
)

var ErrUnknownSession = errors.New("unknown session")

// Orchestrator is the session coordinator: it turns one connection's
// requests into room registry transitions. Wire encoding stays in adapters.
type Orchestrator struct {
	Registry *app.Registry
	Rooms    core.RoomManager
	Policy   app.Policy

	startedAt time.Time
}

func New(reg *app.Registry, rooms core.RoomManager, policy app.Policy) *Orchestrator {
	if policy == nil {
		policy = app.SimplePolicy{}
	}
	return &Orchestrator{
		Registry:  reg,
		Rooms:     rooms,
		Policy:    policy,
		startedAt: time.Now(),
	}
}

// Stats is the read-only health snapshot.
type Stats struct {
	RoomCount        int     `json:"roomCount"`
	ParticipantCount int     `json:"participantCount"`
	Uptime           float64 `json:"uptime"`
}

func (o *Orchestrator) Stats() Stats {
	return Stats{
		RoomCount:        o.Rooms.Count(),
		ParticipantCount: o.Registry.Count(),
		Uptime:           time.Since(o.startedAt).Seconds(),
	}
}

// Broadcast fans a frame out to every participant of room except one.
// Each recipient is an independent non-blocking send; a failed one never
// holds back the rest.
func (o *Orchestrator) Broadcast(room core.RoomService, except core.SessionID, f core.Frame) core.PublishResult {
	res := core.PublishResult{}
	for _, p := range room.Participants() {
		sid := core.SessionID(p.ID)
		if sid == except {
			continue
		}
		sess, ok := o.Registry.GetSession(sid)
		if !ok {
			continue
		}
		if err := sess.Signal().TrySend(f); err != nil {
			res.Dropped = append(res.Dropped, sess)
			continue
		}
		res.SendTo++
	}
	log.Debug().Str("module", "orch").Str("room", string(room.Room().ID)).Str("from", string(except)).Int("sent_to", res.SendTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")

	if len(res.Dropped) > 0 {
		metric.RecordDropped(len(res.Dropped))
		o.applyPolicy(room.Room().ID, res.Dropped)
	}
	return res
}

func (o *Orchestrator) applyPolicy(roomID domain.RoomID, dropped []core.MemberSession) {
	for _, slow := range dropped {
		switch o.Policy.OnBackPressure(string(roomID), slow) {
		case app.KickMember:
			log.Warn().Str("module", "orch").Str("room", string(roomID)).Str("user", string(slow.Meta().ID)).Msg("kicking slow participant")
			// Closing the transport ends its read loop, which runs the disconnect cleanup.
			slow.Signal().Close()
		case app.DropFrame, app.NoAction:
		}
	}
}
