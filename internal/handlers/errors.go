package handlers

import (
	"errors"
	"net/http"

	"github.com/anonto42/storyshare/backend/internal/apperr"
	"github.com/labstack/echo/v4"
)

// httpError maps core errors onto responses. Transport details never reach
// the client.
func httpError(err error) error {
	var remoteErr *apperr.RemoteError
	switch {
	case errors.Is(err, apperr.ErrNotAuthenticated):
		return echo.NewHTTPError(http.StatusUnauthorized, "Sign in required")
	case errors.Is(err, apperr.ErrPermissionDenied):
		return echo.NewHTTPError(http.StatusForbidden, "You are not allowed to do that")
	case errors.Is(err, apperr.ErrEmptyComment):
		return echo.NewHTTPError(http.StatusBadRequest, "Comment text is empty")
	case errors.Is(err, apperr.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Not found")
	case errors.As(err, &remoteErr):
		return echo.NewHTTPError(http.StatusServiceUnavailable, echo.Map{
			"message":   remoteErr.Error(),
			"retryable": remoteErr.Retryable(),
		})
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "Internal error")
	}
}
