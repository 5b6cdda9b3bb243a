package models

// Inbound event names (client -> relay)
const (
	EventCheckUser   = "check-user"
	EventJoinRoom    = "join-room"
	EventCallUser    = "call-user"
	EventAcceptCall  = "accept-call"
	EventSendMessage = "send-message"
	EventLeaveRoom   = "leave-room"
	EventToggleMedia = "toggle-camera-audio"
)

// Outbound event names (relay -> client)
const (
	EventUserExists     = "error-user-exists"
	EventUserJoin       = "user-join"
	EventReceiveCall    = "receive-call"
	EventCallAccepted   = "call-accepted"
	EventReceiveMessage = "receive-message"
	EventUserLeave      = "user-leave"
	EventToggleCamera   = "toggle-camera"
)

// CheckUserRequest asks whether a display name is already used in a room.
type CheckUserRequest struct {
	RoomID   string `json:"roomId"`
	UserName string `json:"userName"`
}

// JoinRoomRequest is sent by a client entering a room under a display name.
type JoinRoomRequest struct {
	RoomID   string `json:"roomId"`
	UserName string `json:"userName"`
}

// CallUserRequest carries an offer signal addressed to one connection.
// Signal is opaque and forwarded untouched.
type CallUserRequest struct {
	UserToCall ConnectionID `json:"userToCall"`
	From       string       `json:"from"`
	Signal     any          `json:"signal"`
}

// AcceptCallRequest carries an answer signal back to the caller.
type AcceptCallRequest struct {
	Signal any          `json:"signal"`
	To     ConnectionID `json:"to"`
}

// SendMessageRequest is a chat message for everyone in a room.
type SendMessageRequest struct {
	RoomID string `json:"roomId"`
	Msg    any    `json:"msg"`
	Sender string `json:"sender"`
}

// LeaveRoomRequest announces an explicit leave.
type LeaveRoomRequest struct {
	RoomID string `json:"roomId"`
	Leaver string `json:"leaver"`
}

// ToggleMediaRequest flips the caller's camera or microphone flag.
type ToggleMediaRequest struct {
	RoomID       string      `json:"roomId"`
	SwitchTarget MediaTarget `json:"switchTarget"`
}

// UserExistsReply answers check-user. Err is set instead of Error when the
// membership lookup itself failed.
type UserExistsReply struct {
	Error *bool `json:"error,omitempty"`
	Err   bool  `json:"err,omitempty"`
}

// RoomMember is one entry of the user-join list.
type RoomMember struct {
	UserID ConnectionID `json:"userId"`
	Info   *Presence    `json:"info,omitempty"`
}

// ReceiveCall is delivered to the callee.
type ReceiveCall struct {
	Signal any       `json:"signal"`
	From   string    `json:"from"`
	Info   *Presence `json:"info,omitempty"`
}

// CallAccepted is delivered to the caller once the callee answers.
type CallAccepted struct {
	Signal   any          `json:"signal"`
	AnswerID ConnectionID `json:"answerId"`
}

// ReceiveMessage is a relayed chat message.
type ReceiveMessage struct {
	Msg    any    `json:"msg"`
	Sender string `json:"sender"`
}

// UserLeave tells the remaining members who left.
type UserLeave struct {
	UserID   ConnectionID `json:"userId"`
	UserName string       `json:"userName"`
}

// ToggleCamera tells the other members which flag a connection flipped.
type ToggleCamera struct {
	UserID       ConnectionID `json:"userId"`
	SwitchTarget MediaTarget  `json:"switchTarget"`
}
