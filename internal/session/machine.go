// Package session is the client side of a match: it drives one peer
// connection through matchmaking, the offer/answer/candidate handshake and
// automatic recovery.
package session

// State is the coarse connection state shown to the user.
type State int32

const (
	Idle State = iota
	Matching
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Matching:
		return "matching"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	}
	return "unknown"
}

// Event is an input to the transition table.
type Event int

const (
	EventStart            Event = iota // user asks for a partner
	EventMatchFound                    // server paired us
	EventTransportUp                   // ICE connected or first remote track
	EventTransportDown                 // ICE failed, disconnected or closed
	EventPartnerLeft                   // server says the partner is gone
	EventHandshakeTimeout              // stuck in Connecting too long
	EventSkip                          // user asks for the next partner
	EventEnd                           // user ends the session
)

func (e Event) String() string {
	switch e {
	case EventStart:
		return "start"
	case EventMatchFound:
		return "match-found"
	case EventTransportUp:
		return "transport-up"
	case EventTransportDown:
		return "transport-down"
	case EventPartnerLeft:
		return "partner-left"
	case EventHandshakeTimeout:
		return "handshake-timeout"
	case EventSkip:
		return "skip"
	case EventEnd:
		return "end"
	}
	return "unknown"
}

// Action is the side effect the session performs on a transition.
type Action int

const (
	ActionNone     Action = iota
	ActionJoin            // send join-matchmaking
	ActionOpenPeer        // tear down any old peer, create a new one, offer if initiator
	ActionDecline         // leave the room of a match that arrived after End
	ActionRecover         // tear down, leave the room, join again with the same criteria
	ActionTeardown        // tear down, leave room or pool, stay idle
)

func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionJoin:
		return "join"
	case ActionOpenPeer:
		return "open-peer"
	case ActionDecline:
		return "decline"
	case ActionRecover:
		return "recover"
	case ActionTeardown:
		return "teardown"
	}
	return "unknown"
}

type transitionKey struct {
	from  State
	event Event
}

type transition struct {
	to     State
	action Action
}

var transitions = map[transitionKey]transition{
	{Idle, EventStart}:     {Matching, ActionJoin},
	{Matching, EventStart}: {Matching, ActionJoin},

	{Idle, EventMatchFound}:       {Idle, ActionDecline},
	{Matching, EventMatchFound}:   {Connecting, ActionOpenPeer},
	{Connecting, EventMatchFound}: {Connecting, ActionOpenPeer},
	{Connected, EventMatchFound}:  {Connecting, ActionOpenPeer},

	{Connecting, EventTransportUp}: {Connected, ActionNone},

	{Connecting, EventTransportDown}:    {Matching, ActionRecover},
	{Connected, EventTransportDown}:     {Matching, ActionRecover},
	{Connecting, EventPartnerLeft}:      {Matching, ActionRecover},
	{Connected, EventPartnerLeft}:       {Matching, ActionRecover},
	{Connecting, EventHandshakeTimeout}: {Matching, ActionRecover},
	{Connecting, EventSkip}:             {Matching, ActionRecover},
	{Connected, EventSkip}:              {Matching, ActionRecover},

	{Matching, EventEnd}:   {Idle, ActionTeardown},
	{Connecting, EventEnd}: {Idle, ActionTeardown},
	{Connected, EventEnd}:  {Idle, ActionTeardown},
}

// Next looks up the transition for event in state. ok is false when the
// event has no effect in that state, e.g. a transport failure while idle.
func Next(from State, event Event) (to State, action Action, ok bool) {
	t, ok := transitions[transitionKey{from, event}]
	if !ok {
		return from, ActionNone, false
	}
	return t.to, t.action, true
}
