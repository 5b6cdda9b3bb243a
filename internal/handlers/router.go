package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mossy-p/meet-signaling/config"
	"github.com/mossy-p/meet-signaling/internal/middleware"
	"github.com/mossy-p/meet-signaling/internal/relay"
)

const healthTimeout = 2 * time.Second

// Server bundles what the HTTP routes need. Store is nil when the Redis
// mirror is disabled.
type Server struct {
	Config *config.Config
	Relay  *relay.Relay
	Hub    *Hub
	Store  PresenceStore
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(s Server) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger())

	// Global CORS middleware (runs before routing)
	router.Use(OriginFilter(s.Config.AllowedOrigins))

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true})
	})
	router.GET("/health", s.health)

	// WebSocket signaling endpoint
	router.GET("/ws", HandleSignaling(s.Hub, s.Relay, s.Config.WebSocket))

	apiGroup := router.Group("/api")
	{
		// Login endpoint (public)
		apiGroup.POST("/auth/login", Login(s.Config))

		apiGroup.GET("/ice-servers", ICEServers(s.Config.ICEServers))

		// Room inspection (requires JWT), only served with operator login enabled
		if s.Config.OperatorLoginEnabled() {
			authed := apiGroup.Group("", middleware.JWTAuth(s.Config.JWTSecret))
			authed.GET("/rooms", ListRooms(s.Relay))
			authed.GET("/rooms/:roomId", GetRoom(s.Relay, s.Store))
		}
	}

	return router
}

func (s Server) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	status := http.StatusOK
	resp := gin.H{
		"status":      "ok",
		"connections": s.Hub.Len(),
		"redis":       "disabled",
	}

	stats, err := s.Relay.Stats(ctx)
	if err != nil {
		status = http.StatusServiceUnavailable
		resp["status"] = "degraded"
		resp["error"] = err.Error()
	} else {
		resp["relay"] = stats
	}

	if s.Store != nil {
		if err := s.Store.Ping(ctx); err != nil {
			// The mirror is optional; signaling keeps working without it.
			resp["redis"] = "unreachable"
		} else {
			resp["redis"] = "ok"
		}
	}

	c.JSON(status, resp)
}
