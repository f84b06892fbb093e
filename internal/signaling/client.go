package signaling

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/1ureka/whodis/internal/protocol"
	"github.com/1ureka/whodis/internal/util"
)

// ErrClosed is returned by Send after the connection went away.
var ErrClosed = errors.New("signaling connection closed")

// Conn is the client side of the signaling WebSocket.
type Conn struct {
	ws    *websocket.Conn
	codec protocol.Codec

	mu       sync.Mutex // serializes writes
	incoming chan *protocol.Envelope
	done     chan struct{}
	err      error

	closeOnce sync.Once
	closing   chan struct{}
}

// Dial connects to the signaling server at url, offering codec's
// subprotocol. The server's choice wins; a server that picks none gets JSON.
func Dial(ctx context.Context, url string, codec protocol.Codec) (*Conn, error) {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: 15 * time.Second,
		Subprotocols:     []string{codec.Name()},
	}
	ws, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to WS server: %w", err)
	}

	c := &Conn{
		ws:       ws,
		codec:    protocol.CodecFor(ws.Subprotocol()),
		incoming: make(chan *protocol.Envelope, 32),
		done:     make(chan struct{}),
		closing:  make(chan struct{}),
	}
	go c.watch()
	return c, nil
}

// Codec returns the negotiated codec.
func (c *Conn) Codec() protocol.Codec { return c.codec }

// Incoming delivers decoded envelopes in arrival order. It is closed when
// the connection ends.
func (c *Conn) Incoming() <-chan *protocol.Envelope { return c.incoming }

// Done is closed when the connection ends; Err then reports why.
func (c *Conn) Done() <-chan struct{} { return c.done }

// Err returns the read error that ended the connection, if any.
func (c *Conn) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

// Send encodes env and writes it, guarded by a mutex.
func (c *Conn) Send(env *protocol.Envelope) error {
	data, err := c.codec.Encode(env)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(c.codec.FrameType(), data)
}

// Close says goodbye and closes the socket. The read loop then ends.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() { close(c.closing) })
	c.mu.Lock()
	c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	c.mu.Unlock()
	return c.ws.Close()
}

// watch is the read loop. Malformed frames are skipped.
func (c *Conn) watch() {
	defer func() {
		close(c.incoming)
		close(c.done)
	}()

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				c.err = fmt.Errorf("read WS message: %w", err)
			}
			return
		}
		env, err := c.codec.Decode(data)
		if err != nil {
			util.Log(util.LevelDebug, "skipping malformed frame", "err", err)
			continue
		}
		select {
		case c.incoming <- env:
		case <-c.closing:
			return
		}
	}
}
