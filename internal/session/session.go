package session

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/1ureka/whodis/internal/protocol"
	"github.com/1ureka/whodis/internal/util"
)

// ErrSignalingClosed is returned by Run when the incoming channel closes.
var ErrSignalingClosed = errors.New("signaling channel closed")

// Options configure a Session.
type Options struct {
	Signaler Signaler
	NewPeer  PeerFactory
	Hooks    Hooks

	// HandshakeTimeout bounds the time spent in Connecting. Zero disables it.
	HandshakeTimeout time.Duration
}

// Session owns the state machine and at most one peer. Everything below
// runs on the goroutine executing Run; the exported methods only post work
// to it.
type Session struct {
	signaler Signaler
	newPeer  PeerFactory
	hooks    Hooks
	timeout  time.Duration
	after    func(d time.Duration, f func()) (stop func() bool)

	events  chan func()
	done    chan struct{}
	current atomic.Int32

	state     State
	criteria  protocol.Criteria
	roomID    string
	peer      Peer
	gen       uint64 // bumped on every teardown; stale callbacks carry an old value
	remoteSet bool
	pending   []protocol.Candidate
	backlog   []*protocol.Envelope
	stopTimer func() bool
}

// New creates an idle session.
func New(opts Options) *Session {
	return &Session{
		signaler: opts.Signaler,
		newPeer:  opts.NewPeer,
		hooks:    opts.Hooks,
		timeout:  opts.HandshakeTimeout,
		after: func(d time.Duration, f func()) func() bool {
			return time.AfterFunc(d, f).Stop
		},
		events: make(chan func(), 64),
		done:   make(chan struct{}),
	}
}

// State returns the current state. Safe from any goroutine.
func (s *Session) State() State { return State(s.current.Load()) }

// Start enters matchmaking with criteria. Calling it again while matching
// re-joins with the new criteria.
func (s *Session) Start(criteria protocol.Criteria) {
	s.post(func() {
		s.criteria = criteria
		s.fire(EventStart, nil)
	})
}

// Skip leaves the current partner and looks for the next one.
func (s *Session) Skip() { s.post(func() { s.fire(EventSkip, nil) }) }

// End tears everything down and returns to Idle without re-joining.
func (s *Session) End() { s.post(func() { s.fire(EventEnd, nil) }) }

// SendChat sends a chat message to the current partner.
func (s *Session) SendChat(text string) {
	s.post(func() {
		s.sendToRoom(&protocol.Envelope{Event: protocol.EventChatMessage, Chat: &protocol.Chat{Text: text}})
	})
}

// SetTyping tells the partner whether we are typing.
func (s *Session) SetTyping(typing bool) {
	s.post(func() {
		s.sendToRoom(&protocol.Envelope{Event: protocol.EventTyping, Chat: &protocol.Chat{IsTyping: typing}})
	})
}

// Run processes incoming envelopes and posted work until ctx is cancelled
// or incoming closes. On return the session is torn down and Idle.
func (s *Session) Run(ctx context.Context, incoming <-chan *protocol.Envelope) error {
	defer func() {
		s.fire(EventEnd, nil)
		close(s.done)
	}()

	for {
		select {
		case fn := <-s.events:
			fn()
		case env, ok := <-incoming:
			if !ok {
				return ErrSignalingClosed
			}
			s.handle(env)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Session) post(fn func()) {
	select {
	case s.events <- fn:
	case <-s.done:
	}
}

// postFor posts fn only if the peer of generation gen is still current
// when it runs.
func (s *Session) postFor(gen uint64, fn func()) {
	s.post(func() {
		if gen == s.gen && s.peer != nil {
			fn()
		}
	})
}

func (s *Session) handle(env *protocol.Envelope) {
	switch env.Event {
	case protocol.EventMatchFound:
		match := env.Match
		if match == nil {
			match = &protocol.MatchFound{RoomID: env.RoomID}
		}
		s.fire(EventMatchFound, match)

	case protocol.EventPartnerDisconnected:
		if env.RoomID != "" && env.RoomID != s.roomID {
			util.Log(util.LevelDebug, "stale partner-disconnected ignored", "room", env.RoomID)
			return
		}
		s.fire(EventPartnerLeft, nil)

	case protocol.EventSignal:
		s.handleSignal(env)

	case protocol.EventChatMessage:
		if env.Chat != nil && s.inRoom(env.RoomID) && s.hooks.OnChat != nil {
			s.hooks.OnChat(env.Chat.Text)
		}

	case protocol.EventTyping:
		if env.Chat != nil && s.inRoom(env.RoomID) && s.hooks.OnTyping != nil {
			s.hooks.OnTyping(env.Chat.IsTyping)
		}

	case protocol.EventOnlineCount:
		if s.hooks.OnOnlineCount != nil {
			s.hooks.OnOnlineCount(env.Count)
		}

	default:
		util.Log(util.LevelDebug, "ignored client-bound event", "event", env.Event)
	}
}

func (s *Session) inRoom(roomID string) bool {
	return s.roomID != "" && roomID == s.roomID
}

// fire runs one transition. match is only used for EventMatchFound.
func (s *Session) fire(ev Event, match *protocol.MatchFound) {
	to, action, ok := Next(s.state, ev)
	if !ok {
		util.Log(util.LevelDebug, "event ignored", "state", s.state, "event", ev)
		return
	}
	util.Log(util.LevelDebug, "transition", "from", s.state, "event", ev, "to", to, "action", action)
	s.setState(to)

	switch action {
	case ActionJoin:
		s.join()

	case ActionOpenPeer:
		s.teardown()
		s.leaveRoom()
		s.openPeer(match)

	case ActionDecline:
		s.send(&protocol.Envelope{Event: protocol.EventLeaveMatch, RoomID: match.RoomID})

	case ActionRecover:
		s.teardown()
		s.leaveRoom()
		s.join()

	case ActionTeardown:
		s.teardown()
		if s.roomID == "" {
			s.send(&protocol.Envelope{Event: protocol.EventLeaveMatch})
		}
		s.leaveRoom()
		s.backlog = nil
	}
}

func (s *Session) setState(to State) {
	if to != Connecting {
		s.disarmTimeout()
	}
	if to == s.state {
		return
	}
	s.state = to
	s.current.Store(int32(to))
	if s.hooks.OnState != nil {
		s.hooks.OnState(to)
	}
}

func (s *Session) join() {
	crit := s.criteria
	s.send(&protocol.Envelope{Event: protocol.EventJoinMatchmaking, Criteria: &crit})
}

// leaveRoom tells the server we are out of the current room.
func (s *Session) leaveRoom() {
	if s.roomID == "" {
		return
	}
	s.send(&protocol.Envelope{Event: protocol.EventLeaveMatch, RoomID: s.roomID})
	s.roomID = ""
}

func (s *Session) openPeer(match *protocol.MatchFound) {
	s.roomID = match.RoomID
	s.gen++
	gen := s.gen

	peer, err := s.newPeer(PeerEvents{
		OnCandidate: func(c protocol.Candidate) {
			s.postFor(gen, func() {
				s.sendToRoom(&protocol.Envelope{Event: protocol.EventSignal, Signal: protocol.NewCandidate(c)})
			})
		},
		OnICEState: func(state ICEState) {
			s.postFor(gen, func() { s.onICEState(state) })
		},
		OnTrack: func(kind, id string) {
			s.postFor(gen, func() {
				if s.hooks.OnTrack != nil {
					s.hooks.OnTrack(kind, id)
				}
				s.fire(EventTransportUp, nil)
			})
		},
	})
	if err != nil {
		util.Log(util.LevelError, "failed to create peer connection", "err", err)
		s.fire(EventTransportDown, nil)
		return
	}
	s.peer = peer
	s.armTimeout(gen)
	if s.hooks.OnPartner != nil {
		s.hooks.OnPartner(match.Partner)
	}

	backlog := s.backlog
	s.backlog = nil
	for _, env := range backlog {
		s.handleSignal(env)
	}

	if match.IsInitiator {
		sdp, err := peer.CreateOffer()
		if err != nil {
			util.Log(util.LevelWarn, "create offer failed", "err", err)
			return
		}
		s.sendToRoom(&protocol.Envelope{Event: protocol.EventSignal, Signal: protocol.NewOffer(sdp)})
	}
}

func (s *Session) armTimeout(gen uint64) {
	if s.timeout <= 0 {
		return
	}
	s.disarmTimeout()
	s.stopTimer = s.after(s.timeout, func() {
		s.postFor(gen, func() {
			util.Log(util.LevelWarn, "handshake timed out", "room", s.roomID, "after", s.timeout)
			s.fire(EventHandshakeTimeout, nil)
		})
	})
}

func (s *Session) disarmTimeout() {
	if s.stopTimer != nil {
		s.stopTimer()
		s.stopTimer = nil
	}
}

// teardown closes the peer. Callbacks it still delivers carry a stale
// generation and are ignored.
func (s *Session) teardown() {
	s.disarmTimeout()
	s.gen++
	s.remoteSet = false
	s.pending = nil
	if s.peer == nil {
		return
	}
	if err := s.peer.Close(); err != nil {
		util.Log(util.LevelDebug, "peer close", "err", err)
	}
	s.peer = nil
}

func (s *Session) onICEState(state ICEState) {
	if s.hooks.OnICEState != nil {
		s.hooks.OnICEState(state)
	}
	switch {
	case state.up():
		s.fire(EventTransportUp, nil)
	case state.down():
		s.fire(EventTransportDown, nil)
	}
}

// handleSignal applies one relayed handshake message. Errors are logged and
// never change state; a dead handshake ends through ICE failure or the
// handshake timeout.
func (s *Session) handleSignal(env *protocol.Envelope) {
	sig := env.Signal
	if err := sig.Validate(); err != nil {
		util.Log(util.LevelWarn, "bad signal dropped", "err", err)
		return
	}

	if s.peer == nil {
		if s.state == Idle {
			return
		}
		s.backlog = append(s.backlog, env)
		return
	}
	if env.RoomID != s.roomID {
		util.Log(util.LevelDebug, "signal for another room dropped", "room", env.RoomID)
		return
	}

	switch sig.Kind {
	case protocol.SignalOffer:
		if err := s.peer.SetRemoteDescription(protocol.SignalOffer, sig.SDP); err != nil {
			util.Log(util.LevelWarn, "set remote offer failed", "err", err)
			return
		}
		s.remoteSet = true
		sdp, err := s.peer.CreateAnswer()
		if err != nil {
			util.Log(util.LevelWarn, "create answer failed", "err", err)
		} else {
			s.sendToRoom(&protocol.Envelope{Event: protocol.EventSignal, Signal: protocol.NewAnswer(sdp)})
		}
		s.drainCandidates()

	case protocol.SignalAnswer:
		if err := s.peer.SetRemoteDescription(protocol.SignalAnswer, sig.SDP); err != nil {
			util.Log(util.LevelWarn, "set remote answer failed", "err", err)
			return
		}
		s.remoteSet = true
		s.drainCandidates()

	case protocol.SignalCandidate:
		if !s.remoteSet {
			s.pending = append(s.pending, *sig.Candidate)
			return
		}
		s.addCandidate(*sig.Candidate)
	}
}

func (s *Session) drainCandidates() {
	pending := s.pending
	s.pending = nil
	for _, c := range pending {
		s.addCandidate(c)
	}
}

func (s *Session) addCandidate(c protocol.Candidate) {
	if err := s.peer.AddICECandidate(c); err != nil {
		util.Log(util.LevelWarn, "add ICE candidate failed", "err", err)
	}
}

func (s *Session) sendToRoom(env *protocol.Envelope) {
	if s.roomID == "" {
		return
	}
	env.RoomID = s.roomID
	s.send(env)
}

func (s *Session) send(env *protocol.Envelope) {
	if err := s.signaler.Send(env); err != nil {
		util.Log(util.LevelWarn, "signaling send failed", "event", env.Event, "err", err)
	}
}
