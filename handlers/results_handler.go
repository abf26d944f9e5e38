package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/thejoltjoker/crowdplay-sub000/middleware"
	"github.com/thejoltjoker/crowdplay-sub000/services"
)

type ResultsHandler struct {
	archive *services.ArchiveService
}

func NewResultsHandler(archive *services.ArchiveService) *ResultsHandler {
	return &ResultsHandler{archive: archive}
}

func (h *ResultsHandler) GetResults(c *gin.Context) {
	record, err := h.archive.GetResults(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// ListMine lists the games the caller hosted.
func (h *ResultsHandler) ListMine(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	records, err := h.archive.ListByHost(c.Request.Context(), middleware.PlayerID(c), limit)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func (h *ResultsHandler) DeleteResults(c *gin.Context) {
	if err := h.archive.DeleteResults(c.Request.Context(), c.Param("id"), middleware.PlayerID(c)); err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Results deleted"})
}
