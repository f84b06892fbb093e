package protocol

import "fmt"

// SignalKind tags the handshake variant carried by a Signal.
type SignalKind string

const (
	SignalOffer     SignalKind = "offer"
	SignalAnswer    SignalKind = "answer"
	SignalCandidate SignalKind = "candidate"
)

// Candidate mirrors the browser's RTCIceCandidateInit so that web and Go
// clients interoperate through the relay unchanged.
type Candidate struct {
	Candidate        string  `json:"candidate" msgpack:"candidate"`
	SDPMid           *string `json:"sdpMid,omitempty" msgpack:"sdpMid,omitempty"`
	SDPMLineIndex    *uint16 `json:"sdpMLineIndex,omitempty" msgpack:"sdpMLineIndex,omitempty"`
	UsernameFragment *string `json:"usernameFragment,omitempty" msgpack:"usernameFragment,omitempty"`
}

// Signal is one handshake message. Offers and answers carry SDP; candidates
// carry Candidate. Use the constructors to build well-formed values.
type Signal struct {
	Kind      SignalKind `json:"type" msgpack:"type"`
	SDP       string     `json:"sdp,omitempty" msgpack:"sdp,omitempty"`
	Candidate *Candidate `json:"candidate,omitempty" msgpack:"candidate,omitempty"`
}

// NewOffer wraps an SDP offer.
func NewOffer(sdp string) *Signal { return &Signal{Kind: SignalOffer, SDP: sdp} }

// NewAnswer wraps an SDP answer.
func NewAnswer(sdp string) *Signal { return &Signal{Kind: SignalAnswer, SDP: sdp} }

// NewCandidate wraps a trickled ICE candidate.
func NewCandidate(c Candidate) *Signal { return &Signal{Kind: SignalCandidate, Candidate: &c} }

// Validate rejects signals whose payload does not match their kind. The
// relay never calls it; clients do before acting on a signal.
func (s *Signal) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: missing signal", ErrInvalidSignal)
	}
	switch s.Kind {
	case SignalOffer, SignalAnswer:
		if s.SDP == "" {
			return fmt.Errorf("%w: %s without sdp", ErrInvalidSignal, s.Kind)
		}
		if s.Candidate != nil {
			return fmt.Errorf("%w: %s carries a candidate", ErrInvalidSignal, s.Kind)
		}
	case SignalCandidate:
		if s.Candidate == nil {
			return fmt.Errorf("%w: candidate without body", ErrInvalidSignal)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidSignal, s.Kind)
	}
	return nil
}
