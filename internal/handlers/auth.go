package handlers

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/mossy-p/meet-signaling/config"
	"github.com/mossy-p/meet-signaling/internal/middleware"
	"github.com/mossy-p/meet-signaling/internal/models"
)

const tokenTTL = 24 * time.Hour

// Login exchanges the operator credentials for a JWT used by the room API.
// It answers 503 while no admin password is configured.
func Login(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cfg.OperatorLoginEnabled() {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error": "Operator login is disabled",
			})
			return
		}

		var req models.LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid request body",
			})
			return
		}

		userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(cfg.AdminUsername)) == 1
		passOK := subtle.ConstantTimeCompare([]byte(req.Password), []byte(cfg.AdminPassword)) == 1
		if !userOK || !passOK {
			log.Warn().Str("username", req.Username).Str("remote", c.ClientIP()).Msg("failed operator login")
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid credentials",
			})
			return
		}

		token, err := middleware.IssueToken(cfg.JWTSecret, req.Username, tokenTTL)
		if err != nil {
			log.Error().Err(err).Msg("failed to sign token")
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to generate token",
			})
			return
		}

		c.JSON(http.StatusOK, models.LoginResponse{
			Token:  token,
			UserID: req.Username,
		})
	}
}
