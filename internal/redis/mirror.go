package redis

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/mossy-p/meet-signaling/internal/models"
)

type op struct {
	name  string
	apply func(ctx context.Context, s *Store) error
}

// Joined records id as a member of roomID with its presence.
func (s *Store) Joined(roomID string, id models.ConnectionID, p models.Presence) {
	s.enqueue(op{name: "joined", apply: func(ctx context.Context, s *Store) error {
		_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.SAdd(ctx, peersKey(roomID), string(id))
			pipe.Expire(ctx, peersKey(roomID), s.ttl)
			pipe.HSet(ctx, presenceKey(string(id)), presenceFields(p))
			pipe.Expire(ctx, presenceKey(string(id)), s.ttl)
			return nil
		})
		return err
	}})
}

// Left removes id from roomID and drops its presence hash, which the relay
// deletes on leave.
func (s *Store) Left(roomID string, id models.ConnectionID) {
	s.enqueue(op{name: "left", apply: func(ctx context.Context, s *Store) error {
		_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.SRem(ctx, peersKey(roomID), string(id))
			pipe.Del(ctx, presenceKey(string(id)))
			return nil
		})
		return err
	}})
}

// Updated overwrites id's presence hash.
func (s *Store) Updated(id models.ConnectionID, p models.Presence) {
	s.enqueue(op{name: "updated", apply: func(ctx context.Context, s *Store) error {
		_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, presenceKey(string(id)), presenceFields(p))
			pipe.Expire(ctx, presenceKey(string(id)), s.ttl)
			return nil
		})
		return err
	}})
}

// Gone removes every trace of a disconnected connection.
func (s *Store) Gone(id models.ConnectionID, rooms []string) {
	s.enqueue(op{name: "gone", apply: func(ctx context.Context, s *Store) error {
		_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, roomID := range rooms {
				pipe.SRem(ctx, peersKey(roomID), string(id))
			}
			pipe.Del(ctx, presenceKey(string(id)))
			return nil
		})
		return err
	}})
}

func presenceFields(p models.Presence) map[string]any {
	return map[string]any{
		"userName": p.UserName,
		"video":    p.Video,
		"audio":    p.Audio,
	}
}
