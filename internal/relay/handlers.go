package relay

import (
	"context"
	"fmt"

	"github.com/mossy-p/meet-signaling/internal/models"
)

// Connect registers a new connection with default presence.
func (r *Relay) Connect(id models.ConnectionID) {
	r.registry.Connect(id)
	r.log.Debug().Str("conn_id", string(id)).Msg("connection registered")
}

// Disconnect drops the registry entry and every membership of id.
// Other members are not told; only an explicit leave is announced.
func (r *Relay) Disconnect(id models.ConnectionID) {
	r.registry.Disconnect(id)
	left := r.rooms.LeaveAll(id)
	r.mirror.Gone(id, left)
	r.log.Debug().Str("conn_id", string(id)).Strs("rooms", left).Msg("connection removed")
}

// CheckUser tells the requester whether userName is taken in the room.
// The answer is advisory: a concurrent join can still produce a duplicate.
func (r *Relay) CheckUser(ctx context.Context, self models.ConnectionID, req models.CheckUserRequest) error {
	if req.RoomID == "" {
		return fmt.Errorf("%w: roomId is required", ErrInvalidPayload)
	}

	members, err := r.rooms.Members(ctx, req.RoomID)
	if err != nil {
		r.out.Send(self, models.EventUserExists, models.UserExistsReply{Err: true})
		return fmt.Errorf("check user in room %s: %w", req.RoomID, err)
	}

	taken := false
	for _, id := range members {
		// members without an entry count as no match
		if p, ok := r.registry.Get(id); ok && p.UserName == req.UserName {
			taken = true
			break
		}
	}

	r.out.Send(self, models.EventUserExists, models.UserExistsReply{Error: &taken})
	return nil
}

// JoinRoom adds self to the room under userName and sends the full member
// list to everyone else in it. Media flags are reset to enabled on every join.
func (r *Relay) JoinRoom(ctx context.Context, self models.ConnectionID, req models.JoinRoomRequest) error {
	if req.RoomID == "" {
		return fmt.Errorf("%w: roomId is required", ErrInvalidPayload)
	}

	if err := r.rooms.Join(ctx, req.RoomID, self); err != nil {
		r.out.Send(self, models.EventUserExists, models.UserExistsReply{Err: true})
		return fmt.Errorf("join room %s: %w", req.RoomID, err)
	}

	p := models.Presence{UserName: req.UserName, Video: true, Audio: true}
	r.registry.Put(self, p)
	r.mirror.Joined(req.RoomID, self, p)

	members, err := r.rooms.Members(ctx, req.RoomID)
	if err != nil {
		r.out.Send(self, models.EventUserExists, models.UserExistsReply{Err: true})
		return fmt.Errorf("list members of room %s: %w", req.RoomID, err)
	}

	users := make([]models.RoomMember, 0, len(members))
	for _, id := range members {
		users = append(users, models.RoomMember{UserID: id, Info: r.presenceOf(id)})
	}

	sent := r.broadcast(members, self, models.EventUserJoin, users)
	r.log.Info().
		Str("conn_id", string(self)).
		Str("room_id", req.RoomID).
		Str("user_name", req.UserName).
		Int("members", len(members)).
		Int("notified", sent).
		Msg("user joined room")
	return nil
}

// CallUser forwards an offer to one connection. There is no existence
// check; the sender drops messages for ids that are not live.
func (r *Relay) CallUser(_ context.Context, self models.ConnectionID, req models.CallUserRequest) error {
	if req.UserToCall == "" {
		return fmt.Errorf("%w: userToCall is required", ErrInvalidPayload)
	}

	r.out.Send(req.UserToCall, models.EventReceiveCall, models.ReceiveCall{
		Signal: req.Signal,
		From:   req.From,
		Info:   r.presenceOf(self),
	})
	return nil
}

// AcceptCall forwards an answer back to the caller.
func (r *Relay) AcceptCall(_ context.Context, self models.ConnectionID, req models.AcceptCallRequest) error {
	if req.To == "" {
		return fmt.Errorf("%w: to is required", ErrInvalidPayload)
	}

	r.out.Send(req.To, models.EventCallAccepted, models.CallAccepted{
		Signal:   req.Signal,
		AnswerID: self,
	})
	return nil
}

// SendMessage relays a chat message to the whole room, sender included.
func (r *Relay) SendMessage(ctx context.Context, self models.ConnectionID, req models.SendMessageRequest) error {
	if req.RoomID == "" {
		return fmt.Errorf("%w: roomId is required", ErrInvalidPayload)
	}

	members, err := r.rooms.Members(ctx, req.RoomID)
	if err != nil {
		return fmt.Errorf("list members of room %s: %w", req.RoomID, err)
	}

	r.broadcast(members, "", models.EventReceiveMessage, models.ReceiveMessage{
		Msg:    req.Msg,
		Sender: req.Sender,
	})
	return nil
}

// LeaveRoom removes self's registry entry, tells the other members, and only
// then removes self from the room.
func (r *Relay) LeaveRoom(ctx context.Context, self models.ConnectionID, req models.LeaveRoomRequest) error {
	if req.RoomID == "" {
		return fmt.Errorf("%w: roomId is required", ErrInvalidPayload)
	}

	r.registry.Disconnect(self)

	var listErr error
	members, err := r.rooms.Members(ctx, req.RoomID)
	if err != nil {
		listErr = fmt.Errorf("list members of room %s: %w", req.RoomID, err)
	} else {
		r.broadcast(members, self, models.EventUserLeave, models.UserLeave{
			UserID:   self,
			UserName: req.Leaver,
		})
	}

	if err := r.rooms.Leave(ctx, req.RoomID, self); err != nil {
		return fmt.Errorf("leave room %s: %w", req.RoomID, err)
	}
	r.mirror.Left(req.RoomID, self)

	r.log.Info().
		Str("conn_id", string(self)).
		Str("room_id", req.RoomID).
		Str("user_name", req.Leaver).
		Msg("user left room")
	return listErr
}

// ToggleMedia flips self's video or audio flag and tells the other members.
func (r *Relay) ToggleMedia(ctx context.Context, self models.ConnectionID, req models.ToggleMediaRequest) error {
	if req.RoomID == "" {
		return fmt.Errorf("%w: roomId is required", ErrInvalidPayload)
	}
	if !req.SwitchTarget.Valid() {
		return fmt.Errorf("%w: switchTarget %q", ErrInvalidPayload, req.SwitchTarget)
	}

	p, ok := r.registry.Update(self, func(p *models.Presence) {
		switch req.SwitchTarget {
		case models.MediaVideo:
			p.Video = !p.Video
		case models.MediaAudio:
			p.Audio = !p.Audio
		}
	})
	if !ok {
		return fmt.Errorf("toggle %s: %w", req.SwitchTarget, ErrUnknownConnection)
	}
	r.mirror.Updated(self, p)

	members, err := r.rooms.Members(ctx, req.RoomID)
	if err != nil {
		return fmt.Errorf("list members of room %s: %w", req.RoomID, err)
	}

	r.broadcast(members, self, models.EventToggleCamera, models.ToggleCamera{
		UserID:       self,
		SwitchTarget: req.SwitchTarget,
	})
	return nil
}
