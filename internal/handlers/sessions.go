package handlers

import (
	"net/http"

	"github.com/anonto42/storyshare/backend/internal/middleware"
	"github.com/anonto42/storyshare/backend/internal/remote"
	"github.com/anonto42/storyshare/backend/internal/session"
	"github.com/anonto42/storyshare/backend/pkg/config"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Sessions resolves the controller bundle behind a request.
type Sessions struct {
	registry *session.Registry
	flags    session.FlagStore
	logger   *zap.Logger
}

// NewSessions creates a new Sessions.
func NewSessions(registry *session.Registry, flags session.FlagStore, logger *zap.Logger) *Sessions {
	return &Sessions{registry: registry, flags: flags, logger: logger}
}

func deviceID(c echo.Context) string {
	return c.Request().Header.Get(config.DeviceHeader)
}

func userOf(c echo.Context) *remote.User {
	v := middleware.ViewerFrom(c)
	if v == nil {
		return nil
	}
	return &remote.User{ID: v.ID, Email: v.Email}
}

// Bundle returns the session bundle for the request's viewer or device.
// Authenticated requests also mark the device as having a session.
func (s *Sessions) Bundle(c echo.Context) (*session.Bundle, error) {
	user := userOf(c)
	device := deviceID(c)

	if user != nil && device != "" {
		if err := s.flags.Set(c.Request().Context(), device); err != nil {
			s.logger.Warn("failed to set session flag", zap.String("device", device), zap.Error(err))
		}
	}

	b, err := s.registry.Get(user, device)
	if err != nil {
		s.logger.Error("failed to open session", zap.Error(err))
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "Could not open session")
	}
	return b, nil
}
