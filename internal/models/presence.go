package models

// ConnectionID identifies one live transport session.
type ConnectionID string

// MediaTarget names the flag a toggle message flips.
type MediaTarget string

const (
	MediaVideo MediaTarget = "video"
	MediaAudio MediaTarget = "audio"
)

// Valid reports whether t is one of the known media targets.
func (t MediaTarget) Valid() bool {
	return t == MediaVideo || t == MediaAudio
}

// Presence is the per-connection state other participants see.
// UserName is empty until the connection joins a room.
type Presence struct {
	UserName string `json:"userName,omitempty"`
	Video    bool   `json:"video"`
	Audio    bool   `json:"audio"`
}

// NewPresence returns the state of a freshly connected client.
func NewPresence() Presence {
	return Presence{Video: true, Audio: true}
}
