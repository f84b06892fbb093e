package relay

import (
	"time"

	"github.com/google/uuid"
)

// Table maps room ids to rooms. Like the matchmaking pool it is owned by a
// single goroutine and carries no lock.
type Table struct {
	rooms    map[string]*Room
	byMember map[string]map[string]struct{}
	now      func() time.Time
	newID    func() string
}

// NewTable creates an empty table. now stamps CreatedAt; nil means time.Now.
func NewTable(now func() time.Time) *Table {
	if now == nil {
		now = time.Now
	}
	return &Table{
		rooms:    make(map[string]*Room),
		byMember: make(map[string]map[string]struct{}),
		now:      now,
		newID:    uuid.NewString,
	}
}

// Open creates a room for a and b and returns it.
func (t *Table) Open(a, b string) *Room {
	room := &Room{
		ID:        t.newID(),
		MemberA:   a,
		MemberB:   b,
		CreatedAt: t.now(),
		presentA:  true,
		presentB:  true,
	}
	t.rooms[room.ID] = room
	t.index(a, room.ID)
	t.index(b, room.ID)
	return room
}

// Get returns the room with the given id.
func (t *Table) Get(roomID string) (*Room, bool) {
	room, ok := t.rooms[roomID]
	return room, ok
}

// Peer returns the member a message from sender in roomID should be
// delivered to. ok is false when the room is unknown, sender is not a
// present member, or the other member is gone; the caller drops the message.
func (t *Table) Peer(roomID, sender string) (string, bool) {
	room, ok := t.rooms[roomID]
	if !ok {
		return "", false
	}
	other, otherPresent, member := room.other(sender)
	if !member || !otherPresent {
		return "", false
	}
	return other, true
}

// Leave removes connID from roomID. partner is the remaining member to notify;
// ok is false when there is nobody to notify. The room is deleted once both
// members are gone.
func (t *Table) Leave(connID, roomID string) (partner string, ok bool) {
	room, exists := t.rooms[roomID]
	if !exists {
		return "", false
	}
	other, otherPresent, member := room.other(connID)
	if !member {
		return "", false
	}
	room.remove(connID)
	t.unindex(connID, roomID)
	if room.empty() {
		delete(t.rooms, roomID)
	}
	return other, otherPresent
}

// Departure names a partner left behind in a room.
type Departure struct {
	RoomID  string
	Partner string
}

// Drop removes connID from every room it is in, for a closed connection, and
// returns the partners that are still present.
func (t *Table) Drop(connID string) []Departure {
	var left []Departure
	for roomID := range t.byMember[connID] {
		if partner, ok := t.Leave(connID, roomID); ok {
			left = append(left, Departure{RoomID: roomID, Partner: partner})
		}
	}
	delete(t.byMember, connID)
	return left
}

// Len returns the number of rooms with at least one present member.
func (t *Table) Len() int { return len(t.rooms) }

func (t *Table) index(connID, roomID string) {
	rooms, ok := t.byMember[connID]
	if !ok {
		rooms = make(map[string]struct{})
		t.byMember[connID] = rooms
	}
	rooms[roomID] = struct{}{}
}

func (t *Table) unindex(connID, roomID string) {
	if rooms, ok := t.byMember[connID]; ok {
		delete(rooms, roomID)
		if len(rooms) == 0 {
			delete(t.byMember, connID)
		}
	}
}
