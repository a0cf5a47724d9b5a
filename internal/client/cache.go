package client

import (
	"github.com/dkeye/Jam/internal/domain"
	"github.com/dkeye/Jam/internal/pattern"
	"github.com/dkeye/Jam/internal/protocol"
)

// Palette is cycled in join order, so every client colors a room the same way
// as long as it saw the same joins.
var Palette = []string{"cyan", "magenta", "yellow", "green", "blue", "red", "white", "orange"}

type LocalParticipant struct {
	domain.Participant
	Color string `json:"color"`
}

// RoomView is a copy of the local room cache.
type RoomView struct {
	RoomID       domain.RoomID
	Room         domain.RoomSummary
	State        domain.RoomState
	Participants []LocalParticipant
	Layers       map[domain.UserID]string
}

type roomCache struct {
	roomID       domain.RoomID
	room         domain.RoomSummary
	state        domain.RoomState
	participants []LocalParticipant
	layers       map[domain.UserID]string
	nextIndex    int
}

func newRoomCache() *roomCache {
	return &roomCache{layers: make(map[domain.UserID]string)}
}

func (c *roomCache) reset() {
	*c = roomCache{layers: make(map[domain.UserID]string)}
}

func (c *roomCache) rebuild(m protocol.RoomJoined) {
	c.reset()
	c.roomID = m.RoomID
	c.room = m.Room
	c.state = m.State
	for _, p := range m.Participants {
		c.add(p)
	}
	for _, l := range m.Layers {
		c.layers[l.UserID] = l.Pattern
	}
}

func (c *roomCache) add(p domain.Participant) {
	for _, lp := range c.participants {
		if lp.ID == p.ID {
			return
		}
	}
	c.participants = append(c.participants, LocalParticipant{
		Participant: p,
		Color:       Palette[c.nextIndex%len(Palette)],
	})
	c.nextIndex++
}

func (c *roomCache) remove(id domain.UserID) {
	for i, lp := range c.participants {
		if lp.ID == id {
			c.participants = append(c.participants[:i], c.participants[i+1:]...)
			break
		}
	}
	delete(c.layers, id)
}

func (c *roomCache) setLayer(id domain.UserID, text string) {
	if c.roomID == "" {
		return
	}
	c.layers[id] = text
}

func (c *roomCache) merged() string {
	texts := make([]string, 0, len(c.layers))
	for _, lp := range c.participants {
		if t, ok := c.layers[lp.ID]; ok {
			texts = append(texts, t)
		}
	}
	return pattern.Merge(texts)
}

func (c *roomCache) view() RoomView {
	v := RoomView{
		RoomID:       c.roomID,
		Room:         c.room,
		State:        c.state,
		Participants: append([]LocalParticipant(nil), c.participants...),
		Layers:       make(map[domain.UserID]string, len(c.layers)),
	}
	for id, t := range c.layers {
		v.Layers[id] = t
	}
	return v
}
