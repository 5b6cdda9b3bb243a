package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/mossy-p/meet-signaling/config"
)

const (
	queueSize    = 1024
	opTimeout    = 2 * time.Second
	drainTimeout = 3 * time.Second
)

// Store mirrors room membership and presence into Redis so operators and
// other services can see who is connected. The relay never reads it back;
// in-process state stays authoritative.
type Store struct {
	client *redis.Client
	ttl    time.Duration
	ops    chan op
	done   chan struct{}
	log    zerolog.Logger
}

// Connect initializes the Redis client and checks it with a PING.
func Connect(ctx context.Context, cfg config.RedisConfig, log zerolog.Logger) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return newStore(client, cfg.KeyTTL, log), nil
}

func newStore(client *redis.Client, ttl time.Duration, log zerolog.Logger) *Store {
	return &Store{
		client: client,
		ttl:    ttl,
		ops:    make(chan op, queueSize),
		done:   make(chan struct{}),
		log:    log.With().Str("module", "redis").Logger(),
	}
}

// Run applies queued writes until ctx is cancelled, then flushes what is
// still queued. Done is closed once it returns.
func (s *Store) Run(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			s.drain()
			return
		case o := <-s.ops:
			s.apply(ctx, o)
		}
	}
}

// Done is closed when Run has returned.
func (s *Store) Done() <-chan struct{} {
	return s.done
}

func (s *Store) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()

	flushed := 0
	for {
		select {
		case o := <-s.ops:
			s.apply(ctx, o)
			flushed++
		default:
			s.log.Debug().Int("flushed", flushed).Msg("presence mirror drained")
			return
		}
	}
}

func (s *Store) apply(ctx context.Context, o op) {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	if err := o.apply(opCtx, s); err != nil {
		s.log.Warn().Err(err).Str("op", o.name).Msg("presence mirror write failed")
	}
}

// Ping checks that Redis is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (s *Store) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// PeerCount returns the number of mirrored peers in a room.
func (s *Store) PeerCount(ctx context.Context, roomID string) (int64, error) {
	return s.client.SCard(ctx, peersKey(roomID)).Result()
}

func (s *Store) enqueue(o op) {
	select {
	case s.ops <- o:
	default:
		s.log.Warn().Str("op", o.name).Msg("presence mirror queue full, dropping write")
	}
}

func peersKey(roomID string) string {
	return "room:" + roomID + ":peers"
}

func presenceKey(id string) string {
	return "presence:" + id
}
