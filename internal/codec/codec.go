// Package codec encodes signaling frames. A frame is {"event": name, "data": payload}.
// JSON travels in text frames; clients that negotiate the "msgpack"
// subprotocol get the same shape as MessagePack in binary frames.
//
// MessagePack maps may carry non-string keys. Inbound maps are always decoded
// as map[string]any with keys formatted as text, so any payload can be
// relayed to a JSON client.
package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	NameJSON    = "json"
	NameMsgpack = "msgpack"
)

// ErrMissingEvent is returned for frames without an event name.
var ErrMissingEvent = errors.New("frame has no event")

// Frame is a decoded inbound frame whose data is decoded lazily.
type Frame struct {
	Event string
	data  []byte
	codec Codec
}

// Decode fills v from the frame data. Absent data leaves v untouched.
func (f Frame) Decode(v any) error {
	if len(f.data) == 0 {
		return nil
	}
	return f.codec.decodeData(f.data, v)
}

// Codec converts between frames and websocket messages.
type Codec interface {
	Name() string
	// MessageType is the websocket message type frames are written with.
	MessageType() int
	Encode(event string, payload any) ([]byte, error)
	Decode(msg []byte) (Frame, error)
	decodeData(data []byte, v any) error
}

// Subprotocols lists the names offered during the websocket handshake.
func Subprotocols() []string {
	return []string{NameJSON, NameMsgpack}
}

// ForSubprotocol picks the codec for a negotiated subprotocol; JSON is the default.
func ForSubprotocol(name string) Codec {
	if name == NameMsgpack {
		return Msgpack{}
	}
	return JSON{}
}

// JSON is the default codec.
type JSON struct{}

type jsonFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func (JSON) Name() string     { return NameJSON }
func (JSON) MessageType() int { return websocket.TextMessage }

func (JSON) Encode(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", event, err)
	}
	return json.Marshal(jsonFrame{Event: event, Data: data})
}

func (c JSON) Decode(msg []byte) (Frame, error) {
	var f jsonFrame
	if err := json.Unmarshal(msg, &f); err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}
	if f.Event == "" {
		return Frame{}, ErrMissingEvent
	}
	data := []byte(f.Data)
	if bytes.Equal(data, []byte("null")) {
		data = nil
	}
	return Frame{Event: f.Event, data: data, codec: c}, nil
}

func (JSON) decodeData(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// Msgpack encodes frames as MessagePack and reuses the json struct tags.
type Msgpack struct{}

type msgpackFrame struct {
	Event string             `msgpack:"event"`
	Data  msgpack.RawMessage `msgpack:"data,omitempty"`
}

func (Msgpack) Name() string     { return NameMsgpack }
func (Msgpack) MessageType() int { return websocket.BinaryMessage }

func (Msgpack) Encode(event string, payload any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(payload); err != nil {
		return nil, fmt.Errorf("encode %s: %w", event, err)
	}
	return msgpack.Marshal(&msgpackFrame{Event: event, Data: buf.Bytes()})
}

func (c Msgpack) Decode(msg []byte) (Frame, error) {
	var f msgpackFrame
	if err := msgpack.Unmarshal(msg, &f); err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}
	if f.Event == "" {
		return Frame{}, ErrMissingEvent
	}
	return Frame{Event: f.Event, data: f.Data, codec: c}, nil
}

func (Msgpack) decodeData(data []byte, v any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	dec.SetMapDecoder(decodeStringKeyedMap)
	return dec.Decode(v)
}

func decodeStringKeyedMap(d *msgpack.Decoder) (any, error) {
	n, err := d.DecodeMapLen()
	if err != nil {
		return nil, err
	}
	if n == -1 {
		return nil, nil
	}

	m := make(map[string]any, n)
	for i := 0; i < n; i++ {
		k, err := d.DecodeInterface()
		if err != nil {
			return nil, err
		}
		v, err := d.DecodeInterface()
		if err != nil {
			return nil, err
		}
		m[mapKey(k)] = v
	}
	return m, nil
}

func mapKey(k any) string {
	switch k := k.(type) {
	case string:
		return k
	case []byte:
		return string(k)
	default:
		return fmt.Sprint(k)
	}
}
