package signaling

import (
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/1ureka/whodis/internal/protocol"
	"github.com/1ureka/whodis/internal/util"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

// Client is the server side of one WebSocket connection.
type Client struct {
	ID string

	hub       *Hub
	conn      *websocket.Conn
	codec     protocol.Codec
	limiter   *rate.Limiter
	readLimit int64

	// send carries encoded frames to the write pump. Only the hub closes it.
	send chan []byte
}

func newClient(hub *Hub, conn *websocket.Conn, codec protocol.Codec, limits connLimits) *Client {
	limit, burst := rate.Inf, limits.burst
	if limits.rate > 0 {
		limit = rate.Limit(limits.rate)
		burst = max(burst, 1)
	}
	return &Client{
		ID:        uuid.NewString(),
		hub:       hub,
		conn:      conn,
		codec:     codec,
		limiter:   rate.NewLimiter(limit, burst),
		readLimit: limits.readLimit,
		send:      make(chan []byte, limits.sendBuffer),
	}
}

// connLimits are the per-connection knobs taken from the server config.
type connLimits struct {
	readLimit  int64
	sendBuffer int
	rate       float64
	burst      int
}

// ReadPump decodes frames and hands them to the hub until the connection
// fails. It is the only reader of the connection.
func (c *Client) ReadPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.readLimit)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				util.Log(util.LevelWarn, "read failed", "id", c.ID, "err", err)
			}
			return
		}

		if !c.limiter.Allow() {
			util.Log(util.LevelDebug, "rate limited, frame dropped", "id", c.ID)
			util.Stats.AddDropped()
			continue
		}

		env, err := c.codec.Decode(data)
		if err != nil {
			util.Log(util.LevelDebug, "malformed frame dropped", "id", c.ID, "err", err)
			util.Stats.AddDropped()
			continue
		}

		select {
		case c.hub.inbound <- inbound{from: c, env: env}:
		case <-c.hub.done:
			return
		}
	}
}

// WritePump drains the send channel onto the connection and keeps it alive
// with pings. It is the only writer of the connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(c.codec.FrameType(), data); err != nil {
				util.Log(util.LevelDebug, "write failed", "id", c.ID, "err", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
