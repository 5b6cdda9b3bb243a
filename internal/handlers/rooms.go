package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/mossy-p/meet-signaling/internal/models"
	"github.com/mossy-p/meet-signaling/internal/relay"
)

const snapshotTimeout = 2 * time.Second

// PresenceStore is the optional external mirror of room membership.
type PresenceStore interface {
	Ping(ctx context.Context) error
	PeerCount(ctx context.Context, roomID string) (int64, error)
}

// ListRooms returns every non-empty room with its member count.
func ListRooms(rly *relay.Relay) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), snapshotTimeout)
		defer cancel()

		list, err := rly.Rooms(ctx)
		if err != nil {
			log.Error().Err(err).Msg("failed to list rooms")
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Relay unavailable"})
			return
		}

		if list == nil {
			list = []models.RoomSummary{}
		}
		c.JSON(http.StatusOK, gin.H{"rooms": list, "count": len(list)})
	}
}

// GetRoom returns the members of one room. Rooms exist only while they have
// members, so an empty room is reported as not found. store may be nil.
func GetRoom(rly *relay.Relay, store PresenceStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		roomID := c.Param("roomId")

		ctx, cancel := context.WithTimeout(c.Request.Context(), snapshotTimeout)
		defer cancel()

		snap, err := rly.Snapshot(ctx, roomID)
		if err != nil {
			log.Error().Err(err).Str("room_id", roomID).Msg("failed to snapshot room")
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Relay unavailable"})
			return
		}
		if len(snap.Members) == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
			return
		}

		resp := gin.H{"roomId": snap.RoomID, "members": snap.Members}
		if store != nil {
			// Mirror lag is expected; report what Redis has without failing.
			if n, err := store.PeerCount(ctx, roomID); err == nil {
				resp["mirroredPeers"] = n
			} else {
				log.Warn().Err(err).Str("room_id", roomID).Msg("failed to read mirrored peers")
			}
		}

		c.JSON(http.StatusOK, resp)
	}
}
