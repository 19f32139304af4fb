package router

import (
	"github.com/anonto42/storyshare/backend/internal/handlers"
	"github.com/anonto42/storyshare/backend/internal/middleware"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// SetupRoutes configures all application routes and injects dependencies
func SetupRoutes(e *echo.Echo, sessions *handlers.Sessions, verifier middleware.Verifier, logger *zap.Logger) {
	e.GET("/health", handlers.HealthCheck)

	sessionHandler := handlers.NewSessionHandler(sessions)
	feedHandler := handlers.NewFeedHandler(sessions)
	likeHandler := handlers.NewLikeHandler(sessions)
	commentHandler := handlers.NewCommentHandler(sessions)
	storyHandler := handlers.NewStoryHandler(sessions)
	notificationHandler := handlers.NewNotificationHandler(sessions, logger)

	// --- Unprotected routes ---
	public := e.Group("/api/v1")
	sessionHandler.RegisterPublicRoutes(public)

	// --- Anonymous browsing allowed ---
	browse := e.Group("/api/v1", middleware.OptionalAuth(verifier))
	feedHandler.RegisterFeedRoutes(browse)
	logger.Debug("Feed routes configured")

	// --- Protected routes ---
	api := e.Group("/api/v1", middleware.RequireAuth(verifier))
	likeHandler.RegisterLikeRoutes(api)
	commentHandler.RegisterCommentRoutes(api)
	storyHandler.RegisterStoryRoutes(api)
	notificationHandler.RegisterNotificationRoutes(api)
	sessionHandler.RegisterSessionRoutes(api)
	logger.Debug("Protected routes configured")

	logger.Info("All routes configured")
}
