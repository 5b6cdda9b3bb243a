package codec_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/mossy-p/meet-signaling/internal/codec"
	"github.com/mossy-p/meet-signaling/internal/models"
)

func TestForSubprotocol(t *testing.T) {
	if c := codec.ForSubprotocol(""); c.Name() != codec.NameJSON || c.MessageType() != websocket.TextMessage {
		t.Fatalf("default codec = %s", c.Name())
	}
	if c := codec.ForSubprotocol("msgpack"); c.Name() != codec.NameMsgpack || c.MessageType() != websocket.BinaryMessage {
		t.Fatalf("msgpack codec = %s", c.Name())
	}
}

func TestJSONDecode(t *testing.T) {
	c := codec.JSON{}
	f, err := c.Decode([]byte(`{"event":"join-room","data":{"roomId":"r1","userName":"alice"}}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if f.Event != models.EventJoinRoom {
		t.Fatalf("event = %q", f.Event)
	}
	var req models.JoinRoomRequest
	if err := f.Decode(&req); err != nil {
		t.Fatalf("Decode data: %v", err)
	}
	if req != (models.JoinRoomRequest{RoomID: "r1", UserName: "alice"}) {
		t.Fatalf("req = %+v", req)
	}
}

func TestJSONDecodeErrors(t *testing.T) {
	c := codec.JSON{}
	if _, err := c.Decode([]byte(`{"data":{}}`)); !errors.Is(err, codec.ErrMissingEvent) {
		t.Fatalf("missing event err = %v", err)
	}
	if _, err := c.Decode([]byte(`not json`)); err == nil {
		t.Fatal("expected error for garbage")
	}

	f, err := c.Decode([]byte(`{"event":"leave-room","data":null}`))
	if err != nil {
		t.Fatalf("null data: %v", err)
	}
	var req models.LeaveRoomRequest
	if err := f.Decode(&req); err != nil || req.RoomID != "" {
		t.Fatalf("null data decoded to %+v, %v", req, err)
	}
}

func TestJSONEncodeKeepsSignalOpaque(t *testing.T) {
	signal := map[string]any{"type": "offer", "sdp": "v=0\r\n"}
	b, err := codec.JSON{}.Encode(models.EventReceiveCall, models.ReceiveCall{Signal: signal, From: "bob"})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	var out struct {
		Event string `json:"event"`
		Data  struct {
			Signal map[string]any `json:"signal"`
			From   string         `json:"from"`
			Info   *struct{}      `json:"info"`
		} `json:"data"`
	}
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if out.Event != models.EventReceiveCall || out.Data.From != "bob" {
		t.Fatalf("frame = %s", b)
	}
	if out.Data.Signal["sdp"] != "v=0\r\n" || out.Data.Signal["type"] != "offer" {
		t.Fatalf("signal changed: %v", out.Data.Signal)
	}
	if out.Data.Info != nil {
		t.Fatalf("absent info should be omitted: %s", b)
	}
}

func TestUserExistsReplyShapes(t *testing.T) {
	taken := false
	b, _ := codec.JSON{}.Encode(models.EventUserExists, models.UserExistsReply{Error: &taken})
	if string(b) != `{"event":"error-user-exists","data":{"error":false}}` {
		t.Fatalf("got %s", b)
	}
	b, _ = codec.JSON{}.Encode(models.EventUserExists, models.UserExistsReply{Err: true})
	if string(b) != `{"event":"error-user-exists","data":{"err":true}}` {
		t.Fatalf("got %s", b)
	}
}

func TestMsgpackRoundTripUsesJSONNames(t *testing.T) {
	c := codec.Msgpack{}
	b, err := c.Encode(models.EventToggleCamera, models.ToggleCamera{UserID: "a", SwitchTarget: models.MediaVideo})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	var raw struct {
		Event string         `msgpack:"event"`
		Data  map[string]any `msgpack:"data"`
	}
	if err := msgpack.Unmarshal(b, &raw); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if raw.Event != models.EventToggleCamera || raw.Data["userId"] != "a" || raw.Data["switchTarget"] != "video" {
		t.Fatalf("frame = %+v", raw)
	}

	f, err := c.Decode(b)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	var back models.ToggleCamera
	if err := f.Decode(&back); err != nil {
		t.Fatalf("Decode data: %v", err)
	}
	if back != (models.ToggleCamera{UserID: "a", SwitchTarget: models.MediaVideo}) {
		t.Fatalf("back = %+v", back)
	}
}

func TestMsgpackNonStringKeysRelayToJSON(t *testing.T) {
	frame, err := msgpack.Marshal(map[string]any{
		"event": models.EventCallUser,
		"data": map[string]any{
			"userToCall": "bob",
			"from":       "Alice",
			"signal": map[any]any{
				int64(1): "offer",
				"sdp":    "v=0",
				"candidates": []any{
					map[any]any{true: "host", int64(7): nil},
				},
			},
		},
	})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	f, err := codec.Msgpack{}.Decode(frame)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	var req models.CallUserRequest
	if err := f.Decode(&req); err != nil {
		t.Fatalf("Decode data: %v", err)
	}

	signal, ok := req.Signal.(map[string]any)
	if !ok {
		t.Fatalf("signal = %T, want map[string]any", req.Signal)
	}
	if signal["1"] != "offer" || signal["sdp"] != "v=0" {
		t.Fatalf("signal = %v", signal)
	}
	candidates, ok := signal["candidates"].([]any)
	if !ok || len(candidates) != 1 {
		t.Fatalf("candidates = %#v", signal["candidates"])
	}
	inner, ok := candidates[0].(map[string]any)
	if !ok || inner["true"] != "host" {
		t.Fatalf("candidate = %#v", candidates[0])
	}
	if _, ok := inner["7"]; !ok {
		t.Fatalf("candidate = %#v", inner)
	}

	out, err := codec.JSON{}.Encode(models.EventCallUser, models.ReceiveCall{Signal: req.Signal, From: req.From})
	if err != nil {
		t.Fatalf("JSON Encode: %v", err)
	}
	var back struct {
		Data struct {
			Signal map[string]any `json:"signal"`
		} `json:"data"`
	}
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if back.Data.Signal["1"] != "offer" {
		t.Fatalf("relayed signal = %v", back.Data.Signal)
	}
}
