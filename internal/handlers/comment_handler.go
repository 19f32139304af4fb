package handlers

import (
	"net/http"

	"github.com/anonto42/storyshare/backend/internal/models"
	"github.com/labstack/echo/v4"
)

// CommentHandler handles HTTP requests related to comments
type CommentHandler struct {
	sessions *Sessions
}

// NewCommentHandler creates a new CommentHandler
func NewCommentHandler(sessions *Sessions) *CommentHandler {
	return &CommentHandler{sessions: sessions}
}

// RegisterCommentRoutes registers comment-related routes
func (h *CommentHandler) RegisterCommentRoutes(g *echo.Group) {
	g.GET("/stories/:id/comments", h.GetComments)
	g.POST("/stories/:id/comments", h.CreateComment)
	g.DELETE("/comments/:id", h.DeleteComment)
}

// GetComments fetches the comments of a story.
func (h *CommentHandler) GetComments(c echo.Context) error {
	b, err := h.sessions.Bundle(c)
	if err != nil {
		return err
	}

	comments, err := b.Mutator.LoadComments(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"comments": nonNil(comments)})
}

// CreateComment adds a comment and returns the refreshed list.
func (h *CommentHandler) CreateComment(c echo.Context) error {
	var req models.CreateCommentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	b, err := h.sessions.Bundle(c)
	if err != nil {
		return err
	}

	comments, err := b.Mutator.AddComment(c.Request().Context(), c.Param("id"), req.Text)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"comments": nonNil(comments)})
}

// DeleteComment removes a comment when the viewer may. Anyone else gets
// "deleted": false and nothing changes.
func (h *CommentHandler) DeleteComment(c echo.Context) error {
	b, err := h.sessions.Bundle(c)
	if err != nil {
		return err
	}

	deleted, err := b.Mutator.DeleteComment(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"deleted": deleted})
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
