package handlers

import (
	"net/http"
	"sync"

	"github.com/anonto42/storyshare/backend/internal/models"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// NotificationHandler handles notification-related HTTP requests
type NotificationHandler struct {
	sessions *Sessions
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(sessions *Sessions, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		sessions: sessions,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: logger,
	}
}

// RegisterNotificationRoutes registers notification routes
func (h *NotificationHandler) RegisterNotificationRoutes(g *echo.Group) {
	g.GET("/notifications", h.GetNotifications)
	g.GET("/notifications/unread", h.GetUnread)
	g.GET("/notifications/stream", h.Stream)
	g.PUT("/notifications/read-all", h.MarkAllAsRead)
	g.PUT("/notifications/:id/read", h.MarkAsRead)
}

// NotificationsResponse is the enriched list and the unread flag.
type NotificationsResponse struct {
	Notifications []models.NotificationView `json:"notifications"`
	HasUnread     bool                      `json:"has_unread"`
}

// GetNotifications refetches the viewer's notifications.
func (h *NotificationHandler) GetNotifications(c echo.Context) error {
	b, err := h.sessions.Bundle(c)
	if err != nil {
		return err
	}

	list, err := b.Tracker.Refresh(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, NotificationsResponse{Notifications: nonNil(list), HasUnread: b.Tracker.HasUnread()})
}

// GetUnread recomputes the unread flag.
func (h *NotificationHandler) GetUnread(c echo.Context) error {
	b, err := h.sessions.Bundle(c)
	if err != nil {
		return err
	}

	unread, err := b.Tracker.CheckUnread(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"has_unread": unread})
}

// MarkAllAsRead marks every notification of the viewer as read.
func (h *NotificationHandler) MarkAllAsRead(c echo.Context) error {
	b, err := h.sessions.Bundle(c)
	if err != nil {
		return err
	}

	if err := b.Tracker.MarkAllRead(c.Request().Context()); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"has_unread": b.Tracker.HasUnread()})
}

// MarkAsRead marks one notification as read.
func (h *NotificationHandler) MarkAsRead(c echo.Context) error {
	b, err := h.sessions.Bundle(c)
	if err != nil {
		return err
	}

	if err := b.Tracker.MarkRead(c.Request().Context(), c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"has_unread": b.Tracker.HasUnread()})
}

// Stream upgrades to a websocket and pushes the full notification list
// once on connect and again after every new notification.
func (h *NotificationHandler) Stream(c echo.Context) error {
	b, err := h.sessions.Bundle(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	initial, err := b.Tracker.Refresh(ctx)
	if err != nil {
		return httpError(err)
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// The upgrader has already written the error response.
		return nil
	}
	defer conn.Close()

	var writeMu sync.Mutex
	push := func(list []models.NotificationView) {
		writeMu.Lock()
		defer writeMu.Unlock()
		msg := NotificationsResponse{Notifications: nonNil(list), HasUnread: b.Tracker.HasUnread()}
		if err := conn.WriteJSON(msg); err != nil {
			h.logger.Debug("notification push failed", zap.Error(err))
		}
	}

	push(initial)

	watch, err := b.Tracker.Watch(ctx, push)
	if err != nil {
		h.logger.Warn("failed to watch notifications", zap.String("session", b.Key), zap.Error(err))
		return nil
	}
	defer func() {
		if err := watch.Stop(); err != nil {
			h.logger.Warn("failed to stop notification watch", zap.Error(err))
		}
	}()

	// Block until the client goes away; inbound messages are ignored.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return nil
		}
	}
}
