package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
)

// ErrInvalid wraps every validation failure returned by Load.
var ErrInvalid = errors.New("invalid configuration")

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// DefaultJWTSecret is the development signing key. Production refuses it.
const DefaultJWTSecret = "change-me-in-production"

type Config struct {
	Port           string
	Environment    string
	LogLevel       zerolog.Level
	AllowedOrigins []string
	JWTSecret      string
	AdminUsername  string
	AdminPassword  string
	Redis          RedisConfig
	WebSocket      WebSocketConfig
	ICEServers     []webrtc.ICEServer
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
	KeyTTL   time.Duration
}

// Addr returns host:port for the Redis client.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// WebSocketConfig bounds what a single signaling connection may do.
type WebSocketConfig struct {
	MaxMessageBytes   int64
	SendBuffer        int
	MessagesPerSecond float64
	MessageBurst      int
}

// Options carries command line overrides. Empty fields fall through to the
// environment and then to defaults.
type Options struct {
	Port        string
	Environment string
	LogLevel    string
	Redis       *bool
}

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options)
// 2. Environment variables
// 3. Defaults
func Load(opts Options) (*Config, error) {
	// Parse allowed origins (comma-separated, "*" allows any)
	origins := splitList(getEnv("ALLOWED_ORIGINS", "*"))

	logLevel, err := parseLogLevel(pick(opts.LogLevel, getEnv("LOG_LEVEL", "info")))
	if err != nil {
		return nil, err
	}

	redisEnabled, err := getBool("REDIS_ENABLED", false)
	if err != nil {
		return nil, err
	}
	if opts.Redis != nil {
		redisEnabled = *opts.Redis
	}
	redisDB, err := getInt("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}
	keyTTL, err := getDuration("REDIS_KEY_TTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}

	maxBytes, err := getInt("WS_MAX_MESSAGE_BYTES", 64*1024)
	if err != nil {
		return nil, err
	}
	sendBuffer, err := getInt("WS_SEND_BUFFER", 256)
	if err != nil {
		return nil, err
	}
	perSecond, err := getFloat("WS_MESSAGES_PER_SECOND", 50)
	if err != nil {
		return nil, err
	}
	burst, err := getInt("WS_MESSAGE_BURST", 100)
	if err != nil {
		return nil, err
	}

	iceServers, err := parseICEServersFromValues(
		os.Getenv(envICEServersJSON),
		getEnv(envStunURLs, DefaultSTUN),
		os.Getenv(envTurnURLs),
		os.Getenv(envTurnUsername),
		os.Getenv(envTurnCredential),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	cfg := &Config{
		Port:           pick(opts.Port, getEnv("PORT", "3001")),
		Environment:    pick(opts.Environment, getEnv("ENVIRONMENT", EnvDevelopment)),
		LogLevel:       logLevel,
		AllowedOrigins: origins,
		JWTSecret:      getEnv("JWT_SECRET", DefaultJWTSecret),
		AdminUsername:  getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword:  os.Getenv("ADMIN_PASSWORD"),
		Redis: RedisConfig{
			Enabled:  redisEnabled,
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
			KeyTTL:   keyTTL,
		},
		WebSocket: WebSocketConfig{
			MaxMessageBytes:   int64(maxBytes),
			SendBuffer:        sendBuffer,
			MessagesPerSecond: perSecond,
			MessageBurst:      burst,
		},
		ICEServers: iceServers,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("%w: PORT %q is not a number", ErrInvalid, c.Port)
	}
	if c.Environment != EnvDevelopment && c.Environment != EnvProduction {
		return fmt.Errorf("%w: ENVIRONMENT must be %q or %q, got %q", ErrInvalid, EnvDevelopment, EnvProduction, c.Environment)
	}
	if c.IsProduction() && (c.JWTSecret == "" || c.JWTSecret == DefaultJWTSecret) {
		return fmt.Errorf("%w: JWT_SECRET must be set to a private value in production", ErrInvalid)
	}
	if c.WebSocket.MaxMessageBytes <= 0 || c.WebSocket.SendBuffer <= 0 {
		return fmt.Errorf("%w: WS_MAX_MESSAGE_BYTES and WS_SEND_BUFFER must be positive", ErrInvalid)
	}
	if c.WebSocket.MessagesPerSecond <= 0 || c.WebSocket.MessageBurst <= 0 {
		return fmt.Errorf("%w: WS_MESSAGES_PER_SECOND and WS_MESSAGE_BURST must be positive", ErrInvalid)
	}
	return nil
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// OperatorLoginEnabled reports whether the login and room inspection
// endpoints are served. Both need an admin password and a signing key.
func (c *Config) OperatorLoginEnabled() bool {
	return c.AdminPassword != "" && c.JWTSecret != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func pick(flag, fallback string) string {
	if flag != "" {
		return flag
	}
	return fallback
}

func getInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalid, key, err)
	}
	return n, nil
}

func getFloat(key string, defaultValue float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalid, key, err)
	}
	return f, nil
}

func getBool(key string, defaultValue bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrInvalid, key, err)
	}
	return b, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalid, key, err)
	}
	return d, nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseLogLevel(raw string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug", "dev":
		return zerolog.DebugLevel, nil
	case "info", "":
		return zerolog.InfoLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	default:
		return zerolog.NoLevel, fmt.Errorf("%w: LOG_LEVEL %q", ErrInvalid, raw)
	}
}
