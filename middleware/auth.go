package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/thejoltjoker/crowdplay-sub000/services"
)

const (
	ContextPlayerID   = "player_id"
	ContextPlayerName = "player_name"
)

var (
	ErrMissingAuthHeader = errors.New("missing Authorization header")
	ErrMalformedHeader   = errors.New("malformed Authorization header")
)

type tokenParser interface {
	Parse(token string) (*services.Claims, error)
}

// AuthMiddleware rejects requests without a valid player token and stores the
// player's id and name in the context.
func AuthMiddleware(identity tokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := extractToken(c)
		if err != nil {
			logrus.WithError(err).Debug("Auth middleware: no usable token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
			return
		}

		claims, err := identity.Parse(token)
		if err != nil {
			logrus.WithError(err).Warn("Auth middleware: invalid token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		setIdentity(c, claims)
		c.Next()
	}
}

// OptionalAuth sets the player identity when a valid token is present and
// lets anonymous requests through.
func OptionalAuth(identity tokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, err := extractToken(c); err == nil {
			if claims, err := identity.Parse(token); err == nil {
				setIdentity(c, claims)
			}
		}
		c.Next()
	}
}

func PlayerID(c *gin.Context) string {
	return c.GetString(ContextPlayerID)
}

func PlayerName(c *gin.Context) string {
	return c.GetString(ContextPlayerName)
}

func setIdentity(c *gin.Context, claims *services.Claims) {
	c.Set(ContextPlayerID, claims.PlayerID)
	c.Set(ContextPlayerName, claims.Name)
}

func extractToken(c *gin.Context) (string, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", ErrMissingAuthHeader
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", ErrMalformedHeader
	}
	return parts[1], nil
}
