package transport

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/pion/webrtc/v4"

	"github.com/1ureka/whodis/internal/protocol"
	"github.com/1ureka/whodis/internal/session"
)

func newTestTransport(t *testing.T, local ...webrtc.TrackLocal) *Transport {
	t.Helper()
	tr, err := New(context.Background(), Config{}, local, session.PeerEvents{})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { tr.Close() })
	return tr
}

func TestOfferAnswerNegotiation(t *testing.T) {
	audio, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus}, "audio", "whodis")
	if err != nil {
		t.Fatal(err)
	}
	caller := newTestTransport(t, audio)
	callee := newTestTransport(t)

	offer, err := caller.CreateOffer()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(offer, "m=audio") || !strings.Contains(offer, "m=application") {
		t.Fatalf("offer lacks expected m-sections:\n%s", offer)
	}

	if err := callee.SetRemoteDescription(protocol.SignalOffer, offer); err != nil {
		t.Fatal(err)
	}
	answer, err := callee.CreateAnswer()
	if err != nil {
		t.Fatal(err)
	}
	if err := caller.SetRemoteDescription(protocol.SignalAnswer, answer); err != nil {
		t.Fatal(err)
	}

	for name, tr := range map[string]*Transport{"caller": caller, "callee": callee} {
		if got := tr.pc.SignalingState(); got != webrtc.SignalingStateStable {
			t.Errorf("%s signaling state = %s, want stable", name, got)
		}
	}
}

func TestAnswerWithoutOfferFails(t *testing.T) {
	tr := newTestTransport(t)
	if _, err := tr.CreateAnswer(); err == nil {
		t.Fatal("CreateAnswer without a remote offer succeeded")
	}
}

func TestSetRemoteRejectsCandidateKind(t *testing.T) {
	tr := newTestTransport(t)
	err := tr.SetRemoteDescription(protocol.SignalCandidate, "v=0")
	if !errors.Is(err, protocol.ErrInvalidSignal) {
		t.Fatalf("err = %v, want ErrInvalidSignal", err)
	}
}

func TestICEServers(t *testing.T) {
	if got := (Config{}).iceServers(); len(got) != 0 {
		t.Fatalf("empty config gave %v", got)
	}

	cfg := Config{
		STUN:     []string{"stun:stun.example.test:3478"},
		TURN:     []string{"turn:turn.example.test:3478?transport=udp"},
		TURNUser: "user",
		TURNPass: "pass",
	}
	got := cfg.iceServers()
	if len(got) != 2 {
		t.Fatalf("got %d servers, want 2", len(got))
	}
	if got[1].Username != "user" || got[1].Credential != "pass" {
		t.Errorf("TURN credentials not carried: %+v", got[1])
	}
}

func TestCandidateMapping(t *testing.T) {
	mid, idx, ufrag := "0", uint16(1), "abcd"
	c := protocol.Candidate{
		Candidate:        "candidate:1 1 udp 2130706431 192.0.2.1 5000 typ host",
		SDPMid:           &mid,
		SDPMLineIndex:    &idx,
		UsernameFragment: &ufrag,
	}
	back := fromInit(toInit(c))
	if back.Candidate != c.Candidate || *back.SDPMid != mid || *back.SDPMLineIndex != idx || *back.UsernameFragment != ufrag {
		t.Fatalf("got %+v", back)
	}
}
