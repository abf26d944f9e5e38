package routes

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/thejoltjoker/crowdplay-sub000/handlers"
	"github.com/thejoltjoker/crowdplay-sub000/middleware"
	"github.com/thejoltjoker/crowdplay-sub000/services"
)

func newUpgrader(allowedOrigin string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if allowedOrigin == "*" {
				return true
			}
			origin := r.Header.Get("Origin")
			return origin == "" || origin == allowedOrigin
		},
	}
}

func SetupRoutes(
	router *gin.Engine,
	gameHandler *handlers.GameHandler,
	resultsHandler *handlers.ResultsHandler,
	hub *services.Hub,
	gameService *services.GameService,
	identity *services.IdentityService,
	allowedOrigin string,
) {
	api := router.Group("/api")
	{
		// Entry points; a valid token is reused so a player keeps one id.
		entry := api.Group("/games")
		entry.Use(middleware.OptionalAuth(identity))
		{
			entry.POST("", gameHandler.CreateGame)
			entry.POST("/join", gameHandler.JoinGame)
		}

		games := api.Group("/games/:id")
		games.Use(middleware.AuthMiddleware(identity))
		{
			games.GET("", gameHandler.GetGame)
			games.DELETE("/players/:playerId", gameHandler.RemovePlayer)

			games.POST("/questions", gameHandler.AddQuestion)
			games.POST("/questions/import", gameHandler.ImportQuestions)
			games.PUT("/questions/order", gameHandler.ReorderQuestion)
			games.DELETE("/questions/:questionId", gameHandler.RemoveQuestion)
			games.PUT("/settings", gameHandler.UpdateSettings)

			games.POST("/start", gameHandler.StartGame)
			games.POST("/next", gameHandler.NextQuestion)
			games.POST("/end", gameHandler.EndGame)
			games.POST("/answer", gameHandler.SubmitAnswer)

			games.GET("/leaderboard", gameHandler.Leaderboard)
			games.GET("/stats", gameHandler.Stats)
		}

		if resultsHandler != nil {
			api.GET("/results/:id", resultsHandler.GetResults)

			mine := api.Group("/results")
			mine.Use(middleware.AuthMiddleware(identity))
			{
				mine.GET("", resultsHandler.ListMine)
				mine.DELETE("/:id", resultsHandler.DeleteResults)
			}
		}
	}

	upgrader := newUpgrader(allowedOrigin)

	// WebSocket endpoint for real-time game state. Browsers cannot set headers
	// on the handshake, so the token comes as a query parameter.
	router.GET("/ws/:id", func(c *gin.Context) {
		gameID := c.Param("id")
		log := logrus.WithField("game_id", gameID)

		claims, err := identity.Parse(c.Query("token"))
		if err != nil {
			log.WithError(err).Warn("WebSocket connection with invalid token")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		g, err := gameService.GetGame(c.Request.Context(), gameID, claims.PlayerID)
		switch {
		case errors.Is(err, services.ErrNotInGame):
			log.WithField("player_id", claims.PlayerID).Warn("WebSocket connection from non-member")
			c.JSON(http.StatusForbidden, gin.H{"error": "Player not found in game"})
			return
		case err != nil:
			c.JSON(http.StatusNotFound, gin.H{"error": "Game not found"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade has already written the error response.
			log.WithError(err).Warn("WebSocket upgrade failed")
			return
		}

		client := hub.RegisterClient(conn, g, claims.PlayerID, claims.Name)
		if client == nil {
			return
		}
		log.WithField("player_id", claims.PlayerID).Info("WebSocket connection established")

		// Read the state again now that the client is subscribed, so that no
		// commit falls between the snapshot and the first broadcast.
		if current, err := gameService.GetGame(c.Request.Context(), gameID, claims.PlayerID); err == nil {
			g = current
		} else {
			log.WithError(err).Warn("Re-reading game after connect failed")
		}
		hub.SendState(client, g)
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
