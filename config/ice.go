package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/pion/webrtc/v4"
)

// DefaultSTUN is handed to clients when no ICE servers are configured.
const DefaultSTUN = "stun:stun.l.google.com:19302"

const (
	envICEServersJSON = "ICE_SERVERS_JSON"

	envStunURLs       = "STUN_URLS"
	envTurnURLs       = "TURN_URLS"
	envTurnUsername   = "TURN_USERNAME"
	envTurnCredential = "TURN_CREDENTIAL"
)

func parseICEServersFromValues(iceServersJSON, stunURLs, turnURLs, turnUsername, turnCredential string) ([]webrtc.ICEServer, error) {
	if raw := strings.TrimSpace(iceServersJSON); raw != "" {
		servers, err := ParseICEServersJSON(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", envICEServersJSON, err)
		}
		return servers, nil
	}
	return parseICEServersFromLists(stunURLs, turnURLs, turnUsername, turnCredential)
}

type iceServerJSON struct {
	URLs       stringOrStringSlice `json:"urls"`
	Username   string              `json:"username,omitempty"`
	Credential string              `json:"credential,omitempty"`
}

type stringOrStringSlice []string

func (s *stringOrStringSlice) UnmarshalJSON(b []byte) error {
	var single string
	if err := json.Unmarshal(b, &single); err == nil {
		*s = []string{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return err
	}
	*s = many
	return nil
}

// ParseICEServersJSON parses the RTCIceServer-shaped list browsers accept,
// e.g. [{"urls":"stun:host:3478"},{"urls":["turn:host"],"username":"u","credential":"p"}].
func ParseICEServersJSON(raw string) ([]webrtc.ICEServer, error) {
	var servers []iceServerJSON
	if err := json.Unmarshal([]byte(raw), &servers); err != nil {
		return nil, err
	}

	out := make([]webrtc.ICEServer, 0, len(servers))
	for i, server := range servers {
		urls := trimAll(server.URLs)
		if len(urls) == 0 {
			return nil, fmt.Errorf("server %d has no urls", i)
		}
		s := webrtc.ICEServer{
			URLs:     urls,
			Username: strings.TrimSpace(server.Username),
		}
		if server.Credential != "" {
			s.Credential = server.Credential
		}
		if err := checkTURNCredentials(s); err != nil {
			return nil, fmt.Errorf("server %d: %w", i, err)
		}
		out = append(out, s)
	}
	return out, nil
}

func parseICEServersFromLists(stunURLs, turnURLs, turnUsername, turnCredential string) ([]webrtc.ICEServer, error) {
	var out []webrtc.ICEServer
	if urls := splitList(stunURLs); len(urls) > 0 {
		out = append(out, webrtc.ICEServer{URLs: urls})
	}
	if urls := splitList(turnURLs); len(urls) > 0 {
		s := webrtc.ICEServer{URLs: urls, Username: turnUsername}
		if turnCredential != "" {
			s.Credential = turnCredential
		}
		if err := checkTURNCredentials(s); err != nil {
			return nil, fmt.Errorf("%s: %w", envTurnURLs, err)
		}
		out = append(out, s)
	}
	return out, nil
}

func checkTURNCredentials(s webrtc.ICEServer) error {
	for _, u := range s.URLs {
		if strings.HasPrefix(u, "turn:") || strings.HasPrefix(u, "turns:") {
			if s.Username == "" || s.Credential == nil {
				return errors.New("turn servers need a username and credential")
			}
			return nil
		}
	}
	return nil
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
