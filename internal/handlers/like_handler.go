package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// LikeHandler handles HTTP requests related to likes
type LikeHandler struct {
	sessions *Sessions
}

// NewLikeHandler creates a new LikeHandler
func NewLikeHandler(sessions *Sessions) *LikeHandler {
	return &LikeHandler{sessions: sessions}
}

// RegisterLikeRoutes registers like-related routes
func (h *LikeHandler) RegisterLikeRoutes(g *echo.Group) {
	g.POST("/stories/:id/like", h.ToggleLike)
}

// ToggleLike flips the viewer's like on a story. A press made while the
// previous one is still pending comes back with "ignored": true.
func (h *LikeHandler) ToggleLike(c echo.Context) error {
	b, err := h.sessions.Bundle(c)
	if err != nil {
		return err
	}

	state, err := b.Mutator.ToggleLike(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, state)
}
