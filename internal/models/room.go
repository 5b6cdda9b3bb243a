package models

// RoomSummary is one row of the room listing
type RoomSummary struct {
	RoomID      string `json:"roomId"`
	MemberCount int    `json:"memberCount"`
}

// RoomSnapshot is a point-in-time view of a room taken on the relay worker
type RoomSnapshot struct {
	RoomID  string       `json:"roomId"`
	Members []RoomMember `json:"members"`
}

// RelayStats counts live state on the relay worker.
type RelayStats struct {
	Connections int `json:"connections"`
	Rooms       int `json:"rooms"`
}

// LoginRequest represents the operator login request body
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents the operator login response
type LoginResponse struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
}
