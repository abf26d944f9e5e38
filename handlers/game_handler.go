package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/thejoltjoker/crowdplay-sub000/game"
	"github.com/thejoltjoker/crowdplay-sub000/middleware"
	"github.com/thejoltjoker/crowdplay-sub000/quizfile"
	"github.com/thejoltjoker/crowdplay-sub000/services"
)

const maxImportSize = 1 << 20

type GameHandler struct {
	gameService *services.GameService
	identity    *services.IdentityService
}

func NewGameHandler(gameService *services.GameService, identity *services.IdentityService) *GameHandler {
	return &GameHandler{
		gameService: gameService,
		identity:    identity,
	}
}

// SessionResponse is returned when a player enters a game. The token
// identifies the player on every later request.
type SessionResponse struct {
	Game     game.Game `json:"game"`
	PlayerID string    `json:"playerId"`
	Token    string    `json:"token"`
}

func (h *GameHandler) CreateGame(c *gin.Context) {
	var req services.CreateGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	playerID := h.playerIDOrNew(c)
	g, err := h.gameService.CreateGame(c.Request.Context(), playerID, req.HostName)
	if err != nil {
		handleError(c, err)
		return
	}
	h.respondSession(c, http.StatusCreated, g, playerID, req.HostName)
}

func (h *GameHandler) JoinGame(c *gin.Context) {
	var req services.JoinGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	playerID := h.playerIDOrNew(c)
	g, err := h.gameService.JoinGame(c.Request.Context(), req.JoinCode, playerID, req.Name)
	if err != nil {
		handleError(c, err)
		return
	}
	h.respondSession(c, http.StatusOK, g, playerID, req.Name)
}

func (h *GameHandler) GetGame(c *gin.Context) {
	g, err := h.gameService.GetGame(c.Request.Context(), c.Param("id"), middleware.PlayerID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

func (h *GameHandler) RemovePlayer(c *gin.Context) {
	g, err := h.gameService.RemovePlayer(c.Request.Context(), c.Param("id"), middleware.PlayerID(c), c.Param("playerId"))
	h.respond(c, g, err)
}

func (h *GameHandler) AddQuestion(c *gin.Context) {
	var req services.AddQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	g, err := h.gameService.AddQuestion(c.Request.Context(), c.Param("id"), middleware.PlayerID(c), req.Question())
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, g)
}

// ImportQuestions takes a YAML quiz file as the request body.
func (h *GameHandler) ImportQuestions(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImportSize)
	file, err := quizfile.Parse(c.Request.Body)
	if err != nil {
		handleError(c, err)
		return
	}

	g, err := h.gameService.ImportQuestions(c.Request.Context(), c.Param("id"), middleware.PlayerID(c), file.GameQuestions())
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, g)
}

func (h *GameHandler) RemoveQuestion(c *gin.Context) {
	g, err := h.gameService.RemoveQuestion(c.Request.Context(), c.Param("id"), middleware.PlayerID(c), c.Param("questionId"))
	h.respond(c, g, err)
}

func (h *GameHandler) ReorderQuestion(c *gin.Context) {
	var req services.ReorderQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	g, err := h.gameService.ReorderQuestion(c.Request.Context(), c.Param("id"), middleware.PlayerID(c), req.From, req.To)
	h.respond(c, g, err)
}

func (h *GameHandler) UpdateSettings(c *gin.Context) {
	var req services.SettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	g, err := h.gameService.SetAllowLateJoin(c.Request.Context(), c.Param("id"), middleware.PlayerID(c), *req.AllowLateJoin)
	h.respond(c, g, err)
}

func (h *GameHandler) StartGame(c *gin.Context) {
	g, err := h.gameService.StartGame(c.Request.Context(), c.Param("id"), middleware.PlayerID(c))
	h.respond(c, g, err)
}

func (h *GameHandler) NextQuestion(c *gin.Context) {
	g, err := h.gameService.AdvanceQuestion(c.Request.Context(), c.Param("id"), middleware.PlayerID(c))
	h.respond(c, g, err)
}

func (h *GameHandler) EndGame(c *gin.Context) {
	g, err := h.gameService.EndGame(c.Request.Context(), c.Param("id"), middleware.PlayerID(c))
	h.respond(c, g, err)
}

func (h *GameHandler) SubmitAnswer(c *gin.Context) {
	var req services.SubmitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	playerID := middleware.PlayerID(c)
	g, err := h.gameService.SubmitAnswer(c.Request.Context(), c.Param("id"), playerID, *req.OptionIndex)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, g.Players[playerID])
}

func (h *GameHandler) Leaderboard(c *gin.Context) {
	board, err := h.gameService.Leaderboard(c.Request.Context(), c.Param("id"), middleware.PlayerID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, board)
}

func (h *GameHandler) Stats(c *gin.Context) {
	stats, err := h.gameService.Stats(c.Request.Context(), c.Param("id"), middleware.PlayerID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *GameHandler) respond(c *gin.Context, g game.Game, err error) {
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

// playerIDOrNew reuses the caller's identity when it sent a valid token.
func (h *GameHandler) playerIDOrNew(c *gin.Context) string {
	if id := middleware.PlayerID(c); id != "" {
		return id
	}
	return h.identity.NewPlayerID()
}

func (h *GameHandler) respondSession(c *gin.Context, status int, g game.Game, playerID, name string) {
	token, err := h.identity.Issue(playerID, name)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(status, SessionResponse{Game: g, PlayerID: playerID, Token: token})
}
