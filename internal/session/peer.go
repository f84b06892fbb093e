package session

import "github.com/1ureka/whodis/internal/protocol"

// ICEState is the low-level transport diagnostic reported next to State.
type ICEState string

const (
	ICENew          ICEState = "new"
	ICEChecking     ICEState = "checking"
	ICEConnected    ICEState = "connected"
	ICECompleted    ICEState = "completed"
	ICEDisconnected ICEState = "disconnected"
	ICEFailed       ICEState = "failed"
	ICEClosed       ICEState = "closed"
)

func (s ICEState) up() bool { return s == ICEConnected || s == ICECompleted }

func (s ICEState) down() bool {
	return s == ICEFailed || s == ICEDisconnected || s == ICEClosed
}

// Peer is one peer connection. Implementations apply descriptions to the
// underlying connection; the session decides when.
type Peer interface {
	// CreateOffer creates an offer, sets it as the local description and
	// returns its SDP.
	CreateOffer() (string, error)
	// CreateAnswer does the same for an answer. The remote offer must be set.
	CreateAnswer() (string, error)
	SetRemoteDescription(kind protocol.SignalKind, sdp string) error
	AddICECandidate(c protocol.Candidate) error
	Close() error
}

// PeerEvents are the callbacks a Peer reports through. They may be called
// from any goroutine.
type PeerEvents struct {
	OnCandidate func(protocol.Candidate)
	OnICEState  func(ICEState)
	OnTrack     func(kind, id string)
}

// PeerFactory creates a peer wired to events, with local media attached.
type PeerFactory func(events PeerEvents) (Peer, error)

// Signaler sends envelopes to the signaling server.
type Signaler interface {
	Send(env *protocol.Envelope) error
}

// Hooks surface session activity to the UI. All of them run on the session
// goroutine and must not block. Nil hooks are skipped.
type Hooks struct {
	OnState       func(State)
	OnICEState    func(ICEState)
	OnPartner     func(protocol.Criteria)
	OnTrack       func(kind, id string)
	OnChat        func(text string)
	OnTyping      func(typing bool)
	OnOnlineCount func(count int)
}
