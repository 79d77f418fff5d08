package resource

import (
	"net/http"

	"github.com/Ridham19/GYM-flow/internal/api"
	"github.com/Ridham19/GYM-flow/internal/logger"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	repo Repository
}

func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

// ListResources returns the bookable machines and trainers.
func (h *Handler) ListResources(c *gin.Context) {
	resources, err := h.repo.List(c.Request.Context())
	if err != nil {
		logger.Error("failed to list resources", "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to fetch resources"})
		return
	}

	c.JSON(http.StatusOK, resources)
}
