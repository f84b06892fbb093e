// Package transport wraps a pion PeerConnection as a session.Peer.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/1ureka/whodis/internal/protocol"
	"github.com/1ureka/whodis/internal/session"
	"github.com/1ureka/whodis/internal/util"
)

var _ session.Peer = (*Transport)(nil)

// Transport wraps a single PeerConnection, its local tracks and a
// pre-negotiated DataChannel.
//
// The session decides when descriptions and candidates are applied; the
// Transport only reports what pion observes (local candidates, ICE state,
// remote tracks) through the session.PeerEvents given at construction.
type Transport struct {
	pc *webrtc.PeerConnection
	dc *webrtc.DataChannel

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.RWMutex
	pcState  webrtc.PeerConnectionState
	iceState webrtc.ICEConnectionState
}

// New creates a Transport with local attached. Callbacks in events may fire
// as soon as the first description is applied.
func New(ctx context.Context, cfg Config, local []webrtc.TrackLocal, events session.PeerEvents) (*Transport, error) {
	pc, err := newPeerConnection(cfg)
	if err != nil {
		return nil, fmt.Errorf("create peer connection: %w", err)
	}

	dc, err := newDataChannel(pc)
	if err != nil {
		pc.Close()
		return nil, fmt.Errorf("create data channel: %w", err)
	}

	tCtx, tCancel := context.WithCancel(ctx)
	t := &Transport{
		pc:       pc,
		dc:       dc,
		ctx:      tCtx,
		cancel:   tCancel,
		pcState:  webrtc.PeerConnectionStateNew,
		iceState: webrtc.ICEConnectionStateNew,
	}

	for _, track := range local {
		sender, err := pc.AddTrack(track)
		if err != nil {
			t.Close()
			return nil, fmt.Errorf("add %s track: %w", track.Kind(), err)
		}
		go drainRTCP(sender)
	}

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c != nil && events.OnCandidate != nil {
			events.OnCandidate(fromInit(c.ToJSON()))
		}
	})

	pc.OnICEConnectionStateChange(func(state webrtc.ICEConnectionState) {
		util.LogDebug("ICE connection state: %s", state)
		t.mu.Lock()
		t.iceState = state
		t.mu.Unlock()
		if events.OnICEState != nil {
			events.OnICEState(session.ICEState(state.String()))
		}
	})

	// Record PC state (informational only).
	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		util.LogDebug("PeerConnection state: %s", state)
		t.mu.Lock()
		t.pcState = state
		t.mu.Unlock()
	})

	pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		util.LogDebug("remote %s track %s (%s)", track.Kind(), track.ID(), track.Codec().MimeType)
		if events.OnTrack != nil {
			events.OnTrack(track.Kind().String(), track.ID())
		}
		go t.drainTrack(track)
	})

	return t, nil
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

// Done returns a channel that is closed once the Transport is closed or the
// parent context is cancelled.
func (t *Transport) Done() <-chan struct{} {
	return t.ctx.Done()
}

// Close shuts down the DataChannel and PeerConnection.
func (t *Transport) Close() error {
	t.cancel()
	return errors.Join(t.dc.Close(), t.pc.Close())
}

// ConnectionState returns the last observed PeerConnection state.
func (t *Transport) ConnectionState() webrtc.PeerConnectionState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.pcState
}

// ICEState returns the last observed ICE connection state.
func (t *Transport) ICEState() webrtc.ICEConnectionState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.iceState
}

// ---------------------------------------------------------------------------
// Signaling
// ---------------------------------------------------------------------------

// CreateOffer generates an SDP offer and applies it as the local description.
func (t *Transport) CreateOffer() (string, error) {
	offer, err := t.pc.CreateOffer(nil)
	if err != nil {
		return "", fmt.Errorf("CreateOffer: %w", err)
	}
	if err := t.pc.SetLocalDescription(offer); err != nil {
		return "", fmt.Errorf("SetLocalDescription: %w", err)
	}
	return offer.SDP, nil
}

// CreateAnswer generates an SDP answer and applies it as the local description.
func (t *Transport) CreateAnswer() (string, error) {
	answer, err := t.pc.CreateAnswer(nil)
	if err != nil {
		return "", fmt.Errorf("CreateAnswer: %w", err)
	}
	if err := t.pc.SetLocalDescription(answer); err != nil {
		return "", fmt.Errorf("SetLocalDescription: %w", err)
	}
	return answer.SDP, nil
}

// SetRemoteDescription applies the remote offer or answer.
func (t *Transport) SetRemoteDescription(kind protocol.SignalKind, sdp string) error {
	typ, ok := sdpType(kind)
	if !ok {
		return fmt.Errorf("%w: %q is not a description", protocol.ErrInvalidSignal, kind)
	}
	if err := t.pc.SetRemoteDescription(webrtc.SessionDescription{Type: typ, SDP: sdp}); err != nil {
		return fmt.Errorf("SetRemoteDescription: %w", err)
	}
	return nil
}

// AddICECandidate adds a remote ICE candidate received through signaling.
func (t *Transport) AddICECandidate(c protocol.Candidate) error {
	if err := t.pc.AddICECandidate(toInit(c)); err != nil {
		return fmt.Errorf("AddICECandidate: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Media
// ---------------------------------------------------------------------------

// drainTrack reads a remote track until the Transport closes so pion's
// receive buffers never fill. Rendering is outside this package.
func (t *Transport) drainTrack(track *webrtc.TrackRemote) {
	buf := make([]byte, 1500)
	var total int
	defer func() {
		util.LogDebug("remote %s track ended after %d bytes", track.Kind(), total)
	}()
	for {
		select {
		case <-t.ctx.Done():
			return
		default:
		}
		n, _, err := track.Read(buf)
		if err != nil {
			return
		}
		total += n
	}
}

// drainRTCP consumes RTCP for a local track; interceptors such as NACK only
// run while something reads.
func drainRTCP(sender *webrtc.RTPSender) {
	buf := make([]byte, 1500)
	for {
		if _, _, err := sender.Read(buf); err != nil {
			if !errors.Is(err, io.EOF) {
				util.LogDebug("RTCP read: %v", err)
			}
			return
		}
	}
}
