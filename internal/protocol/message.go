// Package protocol defines the envelope exchanged over the signaling WebSocket
// and the codecs used to put it on the wire.
package protocol

import (
	"errors"
	"fmt"
	"strings"
)

// Event names the kind of envelope.
type Event string

const (
	EventJoinMatchmaking     Event = "join-matchmaking"     // client → server
	EventMatchFound          Event = "match-found"          // server → client
	EventSignal              Event = "signal"               // both ways, relayed by room
	EventChatMessage         Event = "chat-message"         // both ways, relayed by room
	EventTyping              Event = "typing"               // both ways, relayed by room
	EventLeaveMatch          Event = "leave-match"          // client → server
	EventPartnerDisconnected Event = "partner-disconnected" // server → client
	EventOnlineCount         Event = "online-count"         // server → client
)

// Relayed reports whether the server forwards this event to the other room
// member without looking at its payload.
func (e Event) Relayed() bool {
	switch e {
	case EventSignal, EventChatMessage, EventTyping:
		return true
	}
	return false
}

var (
	ErrUnknownEvent  = errors.New("unknown event")
	ErrInvalidSignal = errors.New("invalid signal")
)

// Gender is the optional preference carried in Criteria. The pool does not
// score on it; it is forwarded to the partner for display.
type Gender string

const (
	GenderAny    Gender = "any"
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// ParseGender accepts the enum case-insensitively. Empty input means GenderAny.
func ParseGender(s string) (Gender, error) {
	switch g := Gender(strings.ToLower(strings.TrimSpace(s))); g {
	case "":
		return GenderAny, nil
	case GenderAny, GenderMale, GenderFemale, GenderOther:
		return g, nil
	}
	return "", fmt.Errorf("unknown gender %q", s)
}

// Criteria is the opaque preference blob a client enters matchmaking with.
type Criteria struct {
	Interests []string `json:"interests" msgpack:"interests"`
	Gender    Gender   `json:"gender,omitempty" msgpack:"gender,omitempty"`
}

// MatchFound is sent to both members of a freshly opened room.
type MatchFound struct {
	RoomID      string   `json:"roomId" msgpack:"roomId"`
	IsInitiator bool     `json:"isInitiator" msgpack:"isInitiator"`
	Partner     Criteria `json:"partner" msgpack:"partner"`
}

// Chat carries the auxiliary chat-message and typing payloads.
type Chat struct {
	Text     string `json:"text,omitempty" msgpack:"text,omitempty"`
	IsTyping bool   `json:"isTyping,omitempty" msgpack:"isTyping,omitempty"`
}

// Envelope is the single frame type on the signaling channel. Only the field
// matching Event is populated.
type Envelope struct {
	Event  Event  `json:"event" msgpack:"event"`
	RoomID string `json:"roomId,omitempty" msgpack:"roomId,omitempty"`

	Criteria *Criteria   `json:"criteria,omitempty" msgpack:"criteria,omitempty"`
	Match    *MatchFound `json:"match,omitempty" msgpack:"match,omitempty"`
	Signal   *Signal     `json:"signal,omitempty" msgpack:"signal,omitempty"`
	Chat     *Chat       `json:"chat,omitempty" msgpack:"chat,omitempty"`
	Count    int         `json:"count,omitempty" msgpack:"count,omitempty"`
}

// Validate checks that Event is known. Payloads are not inspected: relayed
// events are opaque to the server.
func (e *Envelope) Validate() error {
	switch e.Event {
	case EventJoinMatchmaking, EventMatchFound, EventSignal, EventChatMessage,
		EventTyping, EventLeaveMatch, EventPartnerDisconnected, EventOnlineCount:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownEvent, e.Event)
}
