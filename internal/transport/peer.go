package transport

import (
	"github.com/pion/webrtc/v4"

	"github.com/1ureka/whodis/internal/protocol"
)

// Config selects the ICE servers. TURN is optional; without it only
// direct and STUN-reflexive paths are tried.
type Config struct {
	STUN     []string
	TURN     []string
	TURNUser string
	TURNPass string
}

func (c Config) iceServers() []webrtc.ICEServer {
	var servers []webrtc.ICEServer
	if len(c.STUN) > 0 {
		servers = append(servers, webrtc.ICEServer{URLs: c.STUN})
	}
	if len(c.TURN) > 0 {
		servers = append(servers, webrtc.ICEServer{
			URLs:       c.TURN,
			Username:   c.TURNUser,
			Credential: c.TURNPass,
		})
	}
	return servers
}

// newPeerConnection creates a PeerConnection configured with cfg's ICE servers.
func newPeerConnection(cfg Config) (*webrtc.PeerConnection, error) {
	return webrtc.NewPeerConnection(webrtc.Configuration{
		ICEServers: cfg.iceServers(),
	})
}

// newDataChannel creates a pre-negotiated DataChannel on the given
// PeerConnection. Using negotiated mode (ID 0) allows both sides to create
// the channel independently without relying on OnDataChannel. It gives a
// text-only session an m-section to run ICE on.
func newDataChannel(pc *webrtc.PeerConnection) (*webrtc.DataChannel, error) {
	negotiated := true
	id := uint16(0)

	return pc.CreateDataChannel("whodis", &webrtc.DataChannelInit{
		Negotiated: &negotiated,
		ID:         &id,
	})
}

func toInit(c protocol.Candidate) webrtc.ICECandidateInit {
	return webrtc.ICECandidateInit{
		Candidate:        c.Candidate,
		SDPMid:           c.SDPMid,
		SDPMLineIndex:    c.SDPMLineIndex,
		UsernameFragment: c.UsernameFragment,
	}
}

func fromInit(init webrtc.ICECandidateInit) protocol.Candidate {
	return protocol.Candidate{
		Candidate:        init.Candidate,
		SDPMid:           init.SDPMid,
		SDPMLineIndex:    init.SDPMLineIndex,
		UsernameFragment: init.UsernameFragment,
	}
}

func sdpType(kind protocol.SignalKind) (webrtc.SDPType, bool) {
	switch kind {
	case protocol.SignalOffer:
		return webrtc.SDPTypeOffer, true
	case protocol.SignalAnswer:
		return webrtc.SDPTypeAnswer, true
	}
	return webrtc.SDPTypeUnknown, false
}
