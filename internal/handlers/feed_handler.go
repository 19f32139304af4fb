package handlers

import (
	"net/http"

	"github.com/anonto42/storyshare/backend/internal/feed"
	"github.com/anonto42/storyshare/backend/internal/models"
	"github.com/anonto42/storyshare/backend/internal/session"
	"github.com/labstack/echo/v4"
)

// FeedHandler serves the cached feed of a session.
type FeedHandler struct {
	sessions *Sessions
}

// NewFeedHandler creates a new FeedHandler
func NewFeedHandler(sessions *Sessions) *FeedHandler {
	return &FeedHandler{sessions: sessions}
}

// RegisterFeedRoutes registers feed routes
func (h *FeedHandler) RegisterFeedRoutes(g *echo.Group) {
	g.GET("/feed", h.GetFeed)
	g.POST("/feed/refresh", h.RefreshFeed)
}

// StoryView is a feed story with its display badges.
type StoryView struct {
	models.Story
	EarlyAdopter bool `json:"early_adopter"`
}

// FeedResponse is the feed and the derived state next to it.
type FeedResponse struct {
	Status        feed.Status     `json:"status"`
	Stories       []StoryView     `json:"stories"`
	LikedStoryIDs []string        `json:"liked_story_ids"`
	Viewer        *models.Profile `json:"viewer"`
	// Degraded is set when the last load failed and the feed is empty.
	Degraded bool `json:"degraded"`
}

// GetFeed loads the feed on first use and serves the cache afterwards.
func (h *FeedHandler) GetFeed(c echo.Context) error {
	var q models.FeedQuery
	if err := c.Bind(&q); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid query")
	}
	if err := c.Validate(q); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	b, err := h.sessions.Bundle(c)
	if err != nil {
		return err
	}
	b.Feed.Load(c.Request().Context())
	return c.JSON(http.StatusOK, feedResponse(b, models.Category(q.Category)))
}

// RefreshFeed discards the cache and reloads it.
func (h *FeedHandler) RefreshFeed(c echo.Context) error {
	b, err := h.sessions.Bundle(c)
	if err != nil {
		return err
	}
	b.Feed.Refresh(c.Request().Context())
	return c.JSON(http.StatusOK, feedResponse(b, ""))
}

func feedResponse(b *session.Bundle, category models.Category) FeedResponse {
	stories := b.Feed.Stories()
	views := make([]StoryView, 0, len(stories))
	for _, st := range stories {
		if category != "" && st.Category != category {
			continue
		}
		views = append(views, StoryView{Story: st, EarlyAdopter: st.Profiles.IsEarlyAdopter()})
	}

	liked := b.Feed.LikedByViewer()
	if liked == nil {
		liked = []string{}
	}

	return FeedResponse{
		Status:        b.Feed.Status(),
		Stories:       views,
		LikedStoryIDs: liked,
		Viewer:        b.Feed.Viewer(),
		Degraded:      b.Feed.Err() != nil,
	}
}
