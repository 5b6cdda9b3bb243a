package config

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "ENVIRONMENT", "LOG_LEVEL", "ALLOWED_ORIGINS", "REDIS_ENABLED", "ICE_SERVERS_JSON", "STUN_URLS", "TURN_URLS"} {
		t.Setenv(key, "")
	}

	cfg, err := Load(Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "3001" || cfg.Environment != EnvDevelopment || cfg.LogLevel != zerolog.InfoLevel {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if !slices.Equal(cfg.AllowedOrigins, []string{"*"}) {
		t.Fatalf("default origins = %v, want *", cfg.AllowedOrigins)
	}
	if cfg.Redis.Enabled || cfg.Redis.Addr() != "localhost:6379" || cfg.Redis.KeyTTL != 24*time.Hour {
		t.Fatalf("redis defaults = %+v", cfg.Redis)
	}
	if cfg.WebSocket.MaxMessageBytes != 64*1024 || cfg.WebSocket.SendBuffer != 256 {
		t.Fatalf("websocket defaults = %+v", cfg.WebSocket)
	}
	if len(cfg.ICEServers) != 1 || cfg.ICEServers[0].URLs[0] != DefaultSTUN {
		t.Fatalf("ice defaults = %+v", cfg.ICEServers)
	}
}

func TestLoadFlagsOverrideEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("REDIS_ENABLED", "true")

	off := false
	cfg, err := Load(Options{Port: "9100", LogLevel: "debug", Redis: &off})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9100" {
		t.Fatalf("Port = %s, want flag value", cfg.Port)
	}
	if cfg.LogLevel != zerolog.DebugLevel {
		t.Fatalf("LogLevel = %v", cfg.LogLevel)
	}
	if cfg.Redis.Enabled {
		t.Fatal("--redis=false should win over REDIS_ENABLED")
	}
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", "https://meet.example.com, http://localhost:3000 ,")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("JWT_SECRET", "s3cret-from-vault")
	t.Setenv("WS_MESSAGES_PER_SECOND", "5.5")
	t.Setenv("REDIS_KEY_TTL", "90m")

	cfg, err := Load(Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "http://localhost:3000" {
		t.Fatalf("origins = %q", cfg.AllowedOrigins)
	}
	if !cfg.IsProduction() || slices.Contains(cfg.AllowedOrigins, "*") {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.WebSocket.MessagesPerSecond != 5.5 || cfg.Redis.KeyTTL != 90*time.Minute {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"PORT":                   "http",
		"ENVIRONMENT":            "staging",
		"LOG_LEVEL":              "chatty",
		"REDIS_ENABLED":          "maybe",
		"WS_SEND_BUFFER":         "0",
		"WS_MESSAGES_PER_SECOND": "-1",
		"REDIS_KEY_TTL":          "forever",
		"TURN_URLS":              "turn:turn.example.com",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			if _, err := Load(Options{}); !errors.Is(err, ErrInvalid) {
				t.Fatalf("%s=%s: err = %v, want ErrInvalid", key, value, err)
			}
		})
	}
}

func TestProductionRequiresPrivateJWTSecret(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")

	for _, secret := range []string{"", DefaultJWTSecret} {
		t.Run("secret="+secret, func(t *testing.T) {
			t.Setenv("JWT_SECRET", secret)
			if _, err := Load(Options{}); !errors.Is(err, ErrInvalid) {
				t.Fatalf("err = %v, want ErrInvalid", err)
			}
		})
	}

	t.Setenv("JWT_SECRET", "s3cret-from-vault")
	if _, err := Load(Options{}); err != nil {
		t.Fatalf("Load: %v", err)
	}
}

func TestDevelopmentKeepsDefaultJWTSecret(t *testing.T) {
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("ADMIN_PASSWORD", "")

	cfg, err := Load(Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.JWTSecret != DefaultJWTSecret {
		t.Fatalf("JWTSecret = %q", cfg.JWTSecret)
	}
	if cfg.OperatorLoginEnabled() {
		t.Fatal("operator login enabled without ADMIN_PASSWORD")
	}
}

func TestParseICEServersJSON(t *testing.T) {
	servers, err := ParseICEServersJSON(`[
		{"urls": "stun:stun.example.com:3478"},
		{"urls": ["turn:turn.example.com:3478?transport=udp", " "], "username": "u", "credential": "p"}
	]`)
	if err != nil {
		t.Fatalf("ParseICEServersJSON: %v", err)
	}
	if len(servers) != 2 {
		t.Fatalf("servers = %+v", servers)
	}
	if len(servers[1].URLs) != 1 || servers[1].Username != "u" || servers[1].Credential != "p" {
		t.Fatalf("turn server = %+v", servers[1])
	}

	if _, err := ParseICEServersJSON(`[{"urls": []}]`); err == nil {
		t.Fatal("expected error for server without urls")
	}
	if _, err := ParseICEServersJSON(`[{"urls": "turns:t.example.com"}]`); err == nil {
		t.Fatal("expected error for turn server without credentials")
	}
}

func TestICEServersFromLists(t *testing.T) {
	t.Setenv("STUN_URLS", "stun:a.example.com,stun:b.example.com")
	t.Setenv("TURN_URLS", "turn:t.example.com")
	t.Setenv("TURN_USERNAME", "user")
	t.Setenv("TURN_CREDENTIAL", "secret")

	cfg, err := Load(Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.ICEServers) != 2 || len(cfg.ICEServers[0].URLs) != 2 {
		t.Fatalf("ice = %+v", cfg.ICEServers)
	}
	if cfg.ICEServers[1].Username != "user" || cfg.ICEServers[1].Credential != "secret" {
		t.Fatalf("turn = %+v", cfg.ICEServers[1])
	}
}
