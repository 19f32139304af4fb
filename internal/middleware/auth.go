package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/anonto42/storyshare/backend/internal/models"
	"github.com/labstack/echo/v4"
)

const viewerKey = "viewer"

// Verifier turns a bearer token into the viewer it was issued to.
type Verifier interface {
	Verify(ctx context.Context, token string) (*models.Viewer, error)
}

// bearerToken extracts the token from an "Authorization: Bearer <token>"
// header. ok is false when the header is absent.
func bearerToken(c echo.Context) (token string, ok bool, err error) {
	authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
	if authHeader == "" {
		return "", false, nil
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
		return "", true, echo.NewHTTPError(http.StatusUnauthorized, "Authorization header must be in Bearer format")
	}
	return parts[1], true, nil
}

// RequireAuth rejects requests without a valid bearer token and stores the
// viewer in the context.
func RequireAuth(v Verifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok, err := bearerToken(c)
			if err != nil {
				return err
			}
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "Missing Authorization header")
			}

			viewer, err := v.Verify(c.Request().Context(), token)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
			}
			c.Set(viewerKey, viewer)
			return next(c)
		}
	}
}

// OptionalAuth lets anonymous requests through. A token that is present
// must still be valid.
func OptionalAuth(v Verifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok, err := bearerToken(c)
			if err != nil {
				return err
			}
			if !ok {
				return next(c)
			}

			viewer, err := v.Verify(c.Request().Context(), token)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
			}
			c.Set(viewerKey, viewer)
			return next(c)
		}
	}
}

// ViewerFrom returns the viewer stored by the auth middleware, or nil for
// anonymous requests.
func ViewerFrom(c echo.Context) *models.Viewer {
	v, _ := c.Get(viewerKey).(*models.Viewer)
	return v
}
