package handlers

import (
	"net/http"

	"github.com/anonto42/storyshare/backend/internal/session"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// SessionHandler serves the cold-start routing hint and sign-out.
type SessionHandler struct {
	sessions *Sessions
}

// NewSessionHandler creates a new SessionHandler
func NewSessionHandler(sessions *Sessions) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// RegisterPublicRoutes registers routes that need no token.
func (h *SessionHandler) RegisterPublicRoutes(g *echo.Group) {
	g.GET("/session", h.GetSession)
}

// RegisterSessionRoutes registers routes that need a token.
func (h *SessionHandler) RegisterSessionRoutes(g *echo.Group) {
	g.DELETE("/session", h.EndSession)
}

// GetSession reports whether the device has an active session.
func (h *SessionHandler) GetSession(c echo.Context) error {
	device := deviceID(c)
	if device == "" {
		return c.JSON(http.StatusOK, echo.Map{"active": false})
	}

	active, err := h.sessions.flags.Has(c.Request().Context(), device)
	if err != nil {
		h.sessions.logger.Warn("failed to read session flag", zap.String("device", device), zap.Error(err))
		active = false
	}
	return c.JSON(http.StatusOK, echo.Map{"active": active})
}

// EndSession clears the device flag and drops the viewer's controllers.
func (h *SessionHandler) EndSession(c echo.Context) error {
	if device := deviceID(c); device != "" {
		if err := h.sessions.flags.Clear(c.Request().Context(), device); err != nil {
			h.sessions.logger.Error("failed to clear session flag", zap.String("device", device), zap.Error(err))
			return echo.NewHTTPError(http.StatusInternalServerError, "Could not end session")
		}
	}
	h.sessions.registry.Drop(session.Key(userOf(c), deviceID(c)))
	return c.NoContent(http.StatusNoContent)
}
