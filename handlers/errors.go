package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/thejoltjoker/crowdplay-sub000/game"
	"github.com/thejoltjoker/crowdplay-sub000/quizfile"
	"github.com/thejoltjoker/crowdplay-sub000/services"
)

// statusFor maps domain errors to HTTP status codes. Unknown errors are 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, game.ErrInvalidInput),
		errors.Is(err, game.ErrIndexOutOfRange),
		errors.Is(err, game.ErrInvalidOperation),
		errors.Is(err, quizfile.ErrInvalidFile):
		return http.StatusBadRequest
	case errors.Is(err, game.ErrNotFound),
		errors.Is(err, services.ErrGameNotFound),
		errors.Is(err, services.ErrResultsNotFound):
		return http.StatusNotFound
	case errors.Is(err, game.ErrInvalidState),
		errors.Is(err, game.ErrDuplicatePlayer),
		errors.Is(err, game.ErrEmptyQuestionSet),
		errors.Is(err, services.ErrUpdateConflict):
		return http.StatusConflict
	case errors.Is(err, services.ErrNotHost),
		errors.Is(err, services.ErrNotInGame):
		return http.StatusForbidden
	case errors.Is(err, services.ErrInvalidToken):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func handleError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logrus.WithError(err).WithField("path", c.FullPath()).Error("Unhandled internal server error")
		c.JSON(status, gin.H{"error": "An unexpected error occurred"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
