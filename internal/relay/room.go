// Package relay keeps the table of two-member rooms the signaling hub routes
// handshake, chat and typing messages through.
package relay

import "time"

// Room pairs exactly two connections. A member that left or disconnected
// stays recorded but is no longer reachable.
type Room struct {
	ID        string
	MemberA   string
	MemberB   string
	CreatedAt time.Time

	presentA bool
	presentB bool
}

// other returns the member opposite connID and whether connID is a present
// member at all.
func (r *Room) other(connID string) (string, bool, bool) {
	switch {
	case connID == r.MemberA && r.presentA:
		return r.MemberB, r.presentB, true
	case connID == r.MemberB && r.presentB:
		return r.MemberA, r.presentA, true
	}
	return "", false, false
}

func (r *Room) remove(connID string) {
	if connID == r.MemberA {
		r.presentA = false
	}
	if connID == r.MemberB {
		r.presentB = false
	}
}

func (r *Room) empty() bool { return !r.presentA && !r.presentB }
