package signaling

import (
	"testing"

	"github.com/1ureka/whodis/internal/protocol"
)

func testClient(h *Hub, id string, codec protocol.Codec, buffer int) *Client {
	c := newClient(h, nil, codec, connLimits{sendBuffer: buffer})
	c.ID = id
	return c
}

// next pops the next queued envelope for c, skipping online-count noise.
func next(t *testing.T, c *Client) *protocol.Envelope {
	t.Helper()
	for {
		select {
		case data := <-c.send:
			env, err := c.codec.Decode(data)
			if err != nil {
				t.Fatalf("%s: decode: %v", c.ID, err)
			}
			if env.Event == protocol.EventOnlineCount {
				continue
			}
			return env
		default:
			t.Fatalf("%s: nothing queued", c.ID)
			return nil
		}
	}
}

func expectNothing(t *testing.T, c *Client) {
	t.Helper()
	for {
		select {
		case data := <-c.send:
			env, _ := c.codec.Decode(data)
			if env != nil && env.Event == protocol.EventOnlineCount {
				continue
			}
			t.Fatalf("%s: unexpected %+v", c.ID, env)
		default:
			return
		}
	}
}

func join(h *Hub, c *Client, interests ...string) {
	h.dispatch(c, &protocol.Envelope{
		Event:    protocol.EventJoinMatchmaking,
		Criteria: &protocol.Criteria{Interests: interests},
	})
}

// pair connects a and b and matches them, returning the room id.
func pair(t *testing.T, h *Hub, a, b *Client) string {
	t.Helper()
	h.addClient(a)
	h.addClient(b)
	join(h, a, "music")
	join(h, b, "music")
	ma, mb := next(t, a), next(t, b)
	if ma.Match == nil || mb.Match == nil || ma.RoomID != mb.RoomID {
		t.Fatalf("bad match: %+v / %+v", ma, mb)
	}
	return ma.RoomID
}

func TestJoinPairsAndAssignsRoles(t *testing.T) {
	h := NewHub()
	a := testClient(h, "a", protocol.JSONCodec{}, 16)
	b := testClient(h, "b", protocol.JSONCodec{}, 16)
	h.addClient(a)
	h.addClient(b)

	h.dispatch(a, &protocol.Envelope{
		Event:    protocol.EventJoinMatchmaking,
		Criteria: &protocol.Criteria{Interests: []string{"Music"}, Gender: protocol.GenderFemale},
	})
	expectNothing(t, a)
	if h.pool.Len() != 1 {
		t.Fatalf("pool len = %d, want 1", h.pool.Len())
	}

	join(h, b, "music")
	ma, mb := next(t, a), next(t, b)
	if ma.Event != protocol.EventMatchFound || mb.Event != protocol.EventMatchFound {
		t.Fatalf("events = %s, %s", ma.Event, mb.Event)
	}
	if !ma.Match.IsInitiator || mb.Match.IsInitiator {
		t.Fatal("the waiting client must be the initiator")
	}
	if ma.Match.RoomID != mb.Match.RoomID || ma.Match.RoomID == "" {
		t.Fatalf("room ids %q / %q", ma.Match.RoomID, mb.Match.RoomID)
	}
	if mb.Match.Partner.Gender != protocol.GenderFemale {
		t.Errorf("responder got partner %+v", mb.Match.Partner)
	}
	if got := ma.Match.Partner.Interests; len(got) != 1 || got[0] != "music" {
		t.Errorf("initiator got partner %+v", ma.Match.Partner)
	}
	if h.pool.Len() != 0 || h.rooms.Len() != 1 {
		t.Fatalf("pool=%d rooms=%d, want 0 and 1", h.pool.Len(), h.rooms.Len())
	}
}

func TestRelayOnlyBetweenMembers(t *testing.T) {
	h := NewHub()
	a := testClient(h, "a", protocol.JSONCodec{}, 16)
	b := testClient(h, "b", protocol.JSONCodec{}, 16)
	m := testClient(h, "mallory", protocol.JSONCodec{}, 16)
	roomID := pair(t, h, a, b)
	h.addClient(m)

	offer := &protocol.Envelope{Event: protocol.EventSignal, RoomID: roomID, Signal: protocol.NewOffer("v=0")}
	h.dispatch(m, offer)
	expectNothing(t, a)
	expectNothing(t, b)

	h.dispatch(a, &protocol.Envelope{Event: protocol.EventSignal, RoomID: "nope", Signal: protocol.NewOffer("v=0")})
	expectNothing(t, b)

	h.dispatch(a, offer)
	got := next(t, b)
	if got.Event != protocol.EventSignal || got.Signal.Kind != protocol.SignalOffer || got.Signal.SDP != "v=0" {
		t.Fatalf("b got %+v", got)
	}
	expectNothing(t, a)

	h.dispatch(b, &protocol.Envelope{Event: protocol.EventChatMessage, RoomID: roomID, Chat: &protocol.Chat{Text: "hi"}})
	if got := next(t, a); got.Chat == nil || got.Chat.Text != "hi" {
		t.Fatalf("a got %+v", got)
	}
}

func TestRelayTranslatesCodecs(t *testing.T) {
	h := NewHub()
	a := testClient(h, "a", protocol.MsgpackCodec{}, 16)
	b := testClient(h, "b", protocol.JSONCodec{}, 16)
	roomID := pair(t, h, a, b)

	mid, idx := "0", uint16(0)
	h.dispatch(a, &protocol.Envelope{
		Event:  protocol.EventSignal,
		RoomID: roomID,
		Signal: protocol.NewCandidate(protocol.Candidate{Candidate: "candidate:1 1 udp 1 10.0.0.1 5000 typ host", SDPMid: &mid, SDPMLineIndex: &idx}),
	})
	got := next(t, b)
	if got.Signal == nil || got.Signal.Candidate == nil || *got.Signal.Candidate.SDPMid != "0" {
		t.Fatalf("b got %+v", got)
	}
}

func TestLeaveMatchNotifiesPartner(t *testing.T) {
	h := NewHub()
	a := testClient(h, "a", protocol.JSONCodec{}, 16)
	b := testClient(h, "b", protocol.JSONCodec{}, 16)
	roomID := pair(t, h, a, b)

	h.dispatch(a, &protocol.Envelope{Event: protocol.EventLeaveMatch, RoomID: roomID})
	got := next(t, b)
	if got.Event != protocol.EventPartnerDisconnected || got.RoomID != roomID {
		t.Fatalf("b got %+v", got)
	}

	// b can no longer reach a through the room.
	h.dispatch(b, &protocol.Envelope{Event: protocol.EventSignal, RoomID: roomID, Signal: protocol.NewAnswer("v=0")})
	expectNothing(t, a)
}

func TestLeaveMatchWhileWaiting(t *testing.T) {
	h := NewHub()
	a := testClient(h, "a", protocol.JSONCodec{}, 16)
	h.addClient(a)
	join(h, a)
	h.dispatch(a, &protocol.Envelope{Event: protocol.EventLeaveMatch})
	if h.pool.Len() != 0 {
		t.Fatalf("pool len = %d after leave, want 0", h.pool.Len())
	}
}

func TestDisconnectCleansUp(t *testing.T) {
	h := NewHub()
	a := testClient(h, "a", protocol.JSONCodec{}, 16)
	b := testClient(h, "b", protocol.JSONCodec{}, 16)
	w := testClient(h, "w", protocol.JSONCodec{}, 16)
	roomID := pair(t, h, a, b)
	h.addClient(w)
	join(h, w)

	h.removeClient(a)
	got := next(t, b)
	if got.Event != protocol.EventPartnerDisconnected || got.RoomID != roomID {
		t.Fatalf("b got %+v", got)
	}
	for open := true; open; {
		select {
		case _, open = <-a.send:
		default:
			t.Fatal("a's send channel still open")
		}
	}

	h.removeClient(w)
	if h.pool.Len() != 0 {
		t.Fatalf("pool len = %d, disconnected client still waiting", h.pool.Len())
	}
	if h.registry.Count() != 1 {
		t.Fatalf("online = %d, want 1", h.registry.Count())
	}

	// Removing twice is harmless.
	h.removeClient(a)
}

func TestOnlineCountBroadcast(t *testing.T) {
	h := NewHub()
	a := testClient(h, "a", protocol.JSONCodec{}, 16)
	b := testClient(h, "b", protocol.JSONCodec{}, 16)

	counts := func(c *Client) []int {
		var out []int
		for {
			select {
			case data := <-c.send:
				env, err := c.codec.Decode(data)
				if err != nil {
					t.Fatal(err)
				}
				if env.Event == protocol.EventOnlineCount {
					out = append(out, env.Count)
				}
			default:
				return out
			}
		}
	}

	h.addClient(a)
	h.addClient(b)
	h.removeClient(b)

	if got := counts(a); len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 1 {
		t.Fatalf("a saw counts %v, want [1 2 1]", got)
	}
}

func TestFullBufferDrops(t *testing.T) {
	h := NewHub()
	a := testClient(h, "a", protocol.JSONCodec{}, 16)
	b := testClient(h, "b", protocol.JSONCodec{}, 16)
	roomID := pair(t, h, a, b)

	// Shrink b's queue to one slot and fill it.
	b.send = make(chan []byte, 1)
	h.dispatch(a, &protocol.Envelope{Event: protocol.EventTyping, RoomID: roomID, Chat: &protocol.Chat{IsTyping: true}})
	h.dispatch(a, &protocol.Envelope{Event: protocol.EventTyping, RoomID: roomID, Chat: &protocol.Chat{IsTyping: false}})

	got := next(t, b)
	if got.Chat == nil || !got.Chat.IsTyping {
		t.Fatalf("b got %+v", got)
	}
	expectNothing(t, b)
}
