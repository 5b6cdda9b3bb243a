package relay

import (
	"context"
	"errors"
	"fmt"

	"github.com/mossy-p/meet-signaling/internal/models"
)

// Message is one inbound frame. Decode fills v from the frame's data using the
// codec the connection negotiated.
type Message struct {
	Event  string
	Decode func(v any) error
}

type eventKind int

const (
	eventConnect eventKind = iota
	eventDisconnect
	eventMessage
	eventCall
)

type event struct {
	kind eventKind
	conn models.ConnectionID
	msg  Message
	fn   func(ctx context.Context)
}

// Run processes events one at a time until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) {
	defer close(r.done)
	r.log.Info().Msg("relay worker started")

	for {
		select {
		case <-ctx.Done():
			r.log.Info().Int("pending", len(r.events)).Msg("relay worker stopped")
			return
		case ev := <-r.events:
			r.handle(ctx, ev)
		}
	}
}

func (r *Relay) handle(ctx context.Context, ev event) {
	switch ev.kind {
	case eventConnect:
		r.Connect(ev.conn)
	case eventDisconnect:
		r.Disconnect(ev.conn)
	case eventMessage:
		if err := r.Dispatch(ctx, ev.conn, ev.msg); err != nil {
			r.logFailure(ev.conn, ev.msg.Event, err)
		}
	case eventCall:
		ev.fn(ctx)
	}
}

func (r *Relay) logFailure(id models.ConnectionID, name string, err error) {
	l := r.log.With().Str("conn_id", string(id)).Str("event", name).Logger()
	switch {
	case errors.Is(err, ErrUnknownEvent):
		l.Debug().Err(err).Msg("ignoring unknown event")
	case errors.Is(err, ErrInvalidPayload), errors.Is(err, ErrUnknownConnection):
		l.Warn().Err(err).Msg("rejected message")
	default:
		l.Error().Err(err).Msg("failed to handle message")
	}
}

// Dispatch decodes msg and runs the matching protocol handler on the calling
// goroutine. Run uses it for queued messages; tests may call it directly.
func (r *Relay) Dispatch(ctx context.Context, self models.ConnectionID, msg Message) error {
	switch msg.Event {
	case models.EventCheckUser:
		var req models.CheckUserRequest
		if err := decode(msg, &req); err != nil {
			return err
		}
		return r.CheckUser(ctx, self, req)
	case models.EventJoinRoom:
		var req models.JoinRoomRequest
		if err := decode(msg, &req); err != nil {
			return err
		}
		return r.JoinRoom(ctx, self, req)
	case models.EventCallUser:
		var req models.CallUserRequest
		if err := decode(msg, &req); err != nil {
			return err
		}
		return r.CallUser(ctx, self, req)
	case models.EventAcceptCall:
		var req models.AcceptCallRequest
		if err := decode(msg, &req); err != nil {
			return err
		}
		return r.AcceptCall(ctx, self, req)
	case models.EventSendMessage:
		var req models.SendMessageRequest
		if err := decode(msg, &req); err != nil {
			return err
		}
		return r.SendMessage(ctx, self, req)
	case models.EventLeaveRoom:
		var req models.LeaveRoomRequest
		if err := decode(msg, &req); err != nil {
			return err
		}
		return r.LeaveRoom(ctx, self, req)
	case models.EventToggleMedia:
		var req models.ToggleMediaRequest
		if err := decode(msg, &req); err != nil {
			return err
		}
		return r.ToggleMedia(ctx, self, req)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEvent, msg.Event)
	}
}

func decode(msg Message, v any) error {
	if msg.Decode == nil {
		return fmt.Errorf("%w: %s has no data", ErrInvalidPayload, msg.Event)
	}
	if err := msg.Decode(v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidPayload, msg.Event, err)
	}
	return nil
}

func (r *Relay) enqueue(ctx context.Context, ev event) error {
	select {
	case r.events <- ev:
		return nil
	case <-r.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Connected queues the connect event for id.
func (r *Relay) Connected(ctx context.Context, id models.ConnectionID) error {
	return r.enqueue(ctx, event{kind: eventConnect, conn: id})
}

// Disconnected queues the disconnect event for id.
func (r *Relay) Disconnected(ctx context.Context, id models.ConnectionID) error {
	return r.enqueue(ctx, event{kind: eventDisconnect, conn: id})
}

// Submit queues an inbound message from id.
func (r *Relay) Submit(ctx context.Context, id models.ConnectionID, msg Message) error {
	return r.enqueue(ctx, event{kind: eventMessage, conn: id, msg: msg})
}

// Do runs fn on the worker and waits for it to finish.
func (r *Relay) Do(ctx context.Context, fn func(ctx context.Context)) error {
	finished := make(chan struct{})
	err := r.enqueue(ctx, event{kind: eventCall, fn: func(ctx context.Context) {
		defer close(finished)
		fn(ctx)
	}})
	if err != nil {
		return err
	}

	select {
	case <-finished:
		return nil
	case <-r.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Rooms lists non-empty rooms.
func (r *Relay) Rooms(ctx context.Context) ([]models.RoomSummary, error) {
	var out []models.RoomSummary
	err := r.Do(ctx, func(context.Context) {
		out = r.rooms.Rooms()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Snapshot returns the members of roomID with their presence, in join order.
func (r *Relay) Snapshot(ctx context.Context, roomID string) (models.RoomSnapshot, error) {
	snap := models.RoomSnapshot{RoomID: roomID, Members: []models.RoomMember{}}
	var lookupErr error
	err := r.Do(ctx, func(ctx context.Context) {
		members, err := r.rooms.Members(ctx, roomID)
		if err != nil {
			lookupErr = err
			return
		}
		for _, id := range members {
			snap.Members = append(snap.Members, models.RoomMember{UserID: id, Info: r.presenceOf(id)})
		}
	})
	if err != nil {
		return models.RoomSnapshot{}, err
	}
	return snap, lookupErr
}

// Stats counts registered connections and non-empty rooms. It runs on the
// worker, so every event queued before the call is reflected.
func (r *Relay) Stats(ctx context.Context) (models.RelayStats, error) {
	var stats models.RelayStats
	err := r.Do(ctx, func(context.Context) {
		stats = models.RelayStats{
			Connections: r.registry.Len(),
			Rooms:       len(r.rooms.Rooms()),
		}
	})
	if err != nil {
		return models.RelayStats{}, err
	}
	return stats, nil
}
