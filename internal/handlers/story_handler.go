package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// StoryHandler handles HTTP requests related to stories
type StoryHandler struct {
	sessions *Sessions
}

// NewStoryHandler creates a new StoryHandler
func NewStoryHandler(sessions *Sessions) *StoryHandler {
	return &StoryHandler{sessions: sessions}
}

// RegisterStoryRoutes registers story routes
func (h *StoryHandler) RegisterStoryRoutes(g *echo.Group) {
	g.DELETE("/stories/:id", h.DeleteStory)
}

// DeleteStory deletes a story written by the viewer, or any story for
// admins.
func (h *StoryHandler) DeleteStory(c echo.Context) error {
	b, err := h.sessions.Bundle(c)
	if err != nil {
		return err
	}

	if err := b.Mutator.DeleteStory(c.Request().Context(), c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
