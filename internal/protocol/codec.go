package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

// WebSocket subprotocol names. A client picks its codec by offering one of
// them during the handshake; no subprotocol means JSON.
const (
	SubprotocolJSON    = "whodis.json"
	SubprotocolMsgpack = "whodis.msgpack"
)

// Subprotocols lists every supported subprotocol in server preference order.
var Subprotocols = []string{SubprotocolJSON, SubprotocolMsgpack}

// Codec turns envelopes into WebSocket frames and back.
type Codec interface {
	// Name is the subprotocol this codec is negotiated under.
	Name() string
	// FrameType is websocket.TextMessage or websocket.BinaryMessage.
	FrameType() int
	Encode(env *Envelope) ([]byte, error)
	Decode(data []byte) (*Envelope, error)
}

// CodecFor returns the codec negotiated under subprotocol. Unknown or empty
// names fall back to JSON.
func CodecFor(subprotocol string) Codec {
	if subprotocol == SubprotocolMsgpack {
		return MsgpackCodec{}
	}
	return JSONCodec{}
}

// CodecByName resolves a user-facing codec name ("json" or "msgpack").
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSONCodec{}, nil
	case "msgpack":
		return MsgpackCodec{}, nil
	}
	return nil, fmt.Errorf("unknown codec %q", name)
}

// JSONCodec encodes envelopes as JSON text frames.
type JSONCodec struct{}

func (JSONCodec) Name() string   { return SubprotocolJSON }
func (JSONCodec) FrameType() int { return websocket.TextMessage }

func (JSONCodec) Encode(env *Envelope) ([]byte, error) {
	return json.Marshal(env)
}

func (JSONCodec) Decode(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode json envelope: %w", err)
	}
	if err := env.Validate(); err != nil {
		return nil, err
	}
	return &env, nil
}

// MsgpackCodec encodes envelopes as msgpack binary frames.
type MsgpackCodec struct{}

func (MsgpackCodec) Name() string   { return SubprotocolMsgpack }
func (MsgpackCodec) FrameType() int { return websocket.BinaryMessage }

func (MsgpackCodec) Encode(env *Envelope) ([]byte, error) {
	return msgpack.Marshal(env)
}

func (MsgpackCodec) Decode(data []byte) (*Envelope, error) {
	var env Envelope
	if err := msgpack.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode msgpack envelope: %w", err)
	}
	if err := env.Validate(); err != nil {
		return nil, err
	}
	return &env, nil
}
