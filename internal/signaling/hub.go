// Package signaling is the matchmaking and relay server plus the WebSocket
// client used to talk to it.
//
// The Hub is the single goroutine that owns every piece of server state:
// the presence registry, the matchmaking pool and the room table. Each
// connection runs a read pump and a write pump; the read pump posts decoded
// envelopes to the hub, the hub answers through the connection's buffered
// send channel. No state is shared between goroutines otherwise.
package signaling

import (
	"context"
	"time"

	"github.com/1ureka/whodis/internal/matchmaking"
	"github.com/1ureka/whodis/internal/presence"
	"github.com/1ureka/whodis/internal/protocol"
	"github.com/1ureka/whodis/internal/relay"
	"github.com/1ureka/whodis/internal/util"
)

// inbound is an envelope read from a client, on its way to the hub.
type inbound struct {
	from *Client
	env  *protocol.Envelope
}

// Health is the snapshot served on /health.
type Health struct {
	Status  string `json:"status"`
	Time    string `json:"time"`
	Online  int    `json:"online"`
	Waiting int    `json:"waiting"`
	Rooms   int    `json:"rooms"`
}

// Hub pairs clients and routes messages between room members.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	inbound    chan inbound
	health     chan chan Health
	done       chan struct{}

	clients  map[string]*Client
	registry *presence.Registry
	pool     *matchmaking.Pool
	rooms    *relay.Table
	now      func() time.Time
}

// NewHub creates a hub. Call Run to start it.
func NewHub() *Hub {
	h := &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan inbound, 64),
		health:     make(chan chan Health),
		done:       make(chan struct{}),
		clients:    make(map[string]*Client),
		pool:       matchmaking.NewPool(nil),
		rooms:      relay.NewTable(nil),
		now:        time.Now,
	}
	h.registry = presence.NewRegistry(h.broadcastOnline)
	return h
}

// Run processes hub events until ctx is cancelled. On return every client's
// send channel is closed, which makes its write pump hang up.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		close(h.done)
		for _, c := range h.clients {
			close(c.send)
		}
		h.clients = nil
	}()

	for {
		select {
		case c := <-h.register:
			h.addClient(c)

		case c := <-h.unregister:
			h.removeClient(c)

		case in := <-h.inbound:
			h.dispatch(in.from, in.env)

		case reply := <-h.health:
			reply <- h.snapshot()

		case <-ctx.Done():
			return
		}
	}
}

// Health asks the hub for a snapshot. It fails if the hub has stopped or ctx
// expires first.
func (h *Hub) Health(ctx context.Context) (Health, error) {
	reply := make(chan Health, 1)
	select {
	case h.health <- reply:
	case <-h.done:
		return Health{}, context.Canceled
	case <-ctx.Done():
		return Health{}, ctx.Err()
	}
	select {
	case snap := <-reply:
		return snap, nil
	case <-ctx.Done():
		return Health{}, ctx.Err()
	}
}

func (h *Hub) snapshot() Health {
	return Health{
		Status:  "ok",
		Time:    h.now().UTC().Format(time.RFC3339),
		Online:  h.registry.Count(),
		Waiting: h.pool.Len(),
		Rooms:   h.rooms.Len(),
	}
}

func (h *Hub) addClient(c *Client) {
	h.clients[c.ID] = c
	util.Log(util.LevelDebug, "client connected", "id", c.ID, "codec", c.codec.Name())
	util.Stats.SetOnline(h.registry.Add(c.ID))
}

// removeClient runs the disconnect path: leave the pool, vacate every room
// (telling partners), drop out of presence.
func (h *Hub) removeClient(c *Client) {
	if _, ok := h.clients[c.ID]; !ok {
		return
	}
	delete(h.clients, c.ID)
	close(c.send)

	if h.pool.Leave(c.ID) {
		util.Stats.SetWaiting(h.pool.Len())
	}
	for _, d := range h.rooms.Drop(c.ID) {
		h.sendTo(d.Partner, &protocol.Envelope{Event: protocol.EventPartnerDisconnected, RoomID: d.RoomID})
	}
	util.Stats.SetOnline(h.registry.Remove(c.ID))
	util.Log(util.LevelDebug, "client disconnected", "id", c.ID)
}

func (h *Hub) dispatch(c *Client, env *protocol.Envelope) {
	if _, ok := h.clients[c.ID]; !ok {
		return
	}

	switch {
	case env.Event == protocol.EventJoinMatchmaking:
		h.join(c, env.Criteria)

	case env.Event == protocol.EventLeaveMatch:
		h.leave(c, env.RoomID)

	case env.Event.Relayed():
		h.relay(c, env)

	default:
		util.Log(util.LevelDebug, "ignored server-bound event", "id", c.ID, "event", env.Event)
		util.Stats.AddDropped()
	}
}

func (h *Hub) join(c *Client, criteria *protocol.Criteria) {
	var crit protocol.Criteria
	if criteria != nil {
		crit = *criteria
	}

	for {
		partner, matched := h.pool.Join(c.ID, crit)
		if !matched {
			util.Log(util.LevelDebug, "waiting for a match", "id", c.ID, "interests", crit.Interests)
			break
		}
		initiator, ok := h.clients[partner.ConnID]
		if !ok {
			// Entry outlived its connection; search again without it.
			continue
		}

		room := h.rooms.Open(initiator.ID, c.ID)
		h.deliver(initiator, &protocol.Envelope{
			Event:  protocol.EventMatchFound,
			RoomID: room.ID,
			Match:  &protocol.MatchFound{RoomID: room.ID, IsInitiator: true, Partner: crit},
		})
		h.deliver(c, &protocol.Envelope{
			Event:  protocol.EventMatchFound,
			RoomID: room.ID,
			Match:  &protocol.MatchFound{RoomID: room.ID, IsInitiator: false, Partner: partner.Criteria},
		})
		util.Stats.AddMatch()
		util.Log(util.LevelInfo, "match", "room", room.ID, "initiator", initiator.ID, "responder", c.ID,
			"waited", h.now().Sub(partner.EnqueuedAt).Round(time.Millisecond))
		break
	}
	util.Stats.SetWaiting(h.pool.Len())
}

func (h *Hub) leave(c *Client, roomID string) {
	if partner, ok := h.rooms.Leave(c.ID, roomID); ok {
		h.sendTo(partner, &protocol.Envelope{Event: protocol.EventPartnerDisconnected, RoomID: roomID})
	}
	if h.pool.Leave(c.ID) {
		util.Stats.SetWaiting(h.pool.Len())
	}
}

func (h *Hub) relay(c *Client, env *protocol.Envelope) {
	partner, ok := h.rooms.Peer(env.RoomID, c.ID)
	if !ok {
		util.Log(util.LevelDebug, "relay dropped", "id", c.ID, "room", env.RoomID, "event", env.Event)
		util.Stats.AddDropped()
		return
	}
	if h.sendTo(partner, env) {
		util.Stats.AddRelayed()
	}
}

func (h *Hub) broadcastOnline(count int) {
	env := &protocol.Envelope{Event: protocol.EventOnlineCount, Count: count}
	for _, c := range h.clients {
		h.deliver(c, env)
	}
}

func (h *Hub) sendTo(id string, env *protocol.Envelope) bool {
	c, ok := h.clients[id]
	if !ok {
		util.Stats.AddDropped()
		return false
	}
	return h.deliver(c, env)
}

// deliver encodes env with the receiver's codec and queues it without
// blocking the hub. A full queue drops the message.
func (h *Hub) deliver(c *Client, env *protocol.Envelope) bool {
	data, err := c.codec.Encode(env)
	if err != nil {
		util.Log(util.LevelWarn, "encode failed", "id", c.ID, "event", env.Event, "err", err)
		util.Stats.AddDropped()
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		util.Log(util.LevelWarn, "send buffer full, message dropped", "id", c.ID, "event", env.Event)
		util.Stats.AddDropped()
		return false
	}
}
