package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/anonto42/storyshare/backend/internal/handlers"
	"github.com/anonto42/storyshare/backend/internal/middleware"
	"github.com/anonto42/storyshare/backend/internal/models"
	"github.com/anonto42/storyshare/backend/internal/remote"
	"github.com/anonto42/storyshare/backend/internal/remote/memstore"
	"github.com/anonto42/storyshare/backend/internal/session"
	"github.com/anonto42/storyshare/backend/internal/validators"
	"github.com/anonto42/storyshare/backend/pkg/config"
	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const secret = "router-secret"

var base = time.Date(2024, 11, 5, 9, 0, 0, 0, time.UTC)

type server struct {
	t     *testing.T
	e     *echo.Echo
	store *memstore.Store
}

func newServer(t *testing.T) *server {
	store := memstore.New()
	store.Seed(models.RelProfiles,
		remote.Row{"id": "u1", "display_name": "Ada", "avatar_url": "ada.png", "is_admin": false, "created_at": base},
		remote.Row{"id": "u2", "display_name": "Bo", "avatar_url": nil, "is_admin": false, "created_at": base.AddDate(1, 0, 0)},
	)
	store.Seed(models.RelStories,
		remote.Row{"id": "s1", "title": "Rain", "author_id": "u1", "author_name": "Ada", "category": "poetry", "like_count": 0, "comment_count": 0, "created_at": base.AddDate(1, 1, 0)},
		remote.Row{"id": "s2", "title": "Sun", "author_id": "u2", "author_name": "Bo", "category": "humor", "like_count": 2, "comment_count": 0, "created_at": base.AddDate(1, 2, 0)},
	)

	logger := zaptest.NewLogger(t)
	registry := session.NewRegistry(store, session.Options{}, logger)

	e := echo.New()
	e.Validator = validators.NewValidator()
	SetupRoutes(e, handlers.NewSessions(registry, session.NewMemoryFlags(), logger), middleware.NewJWTVerifier(secret), logger)
	return &server{t: t, e: e, store: store}
}

func token(t *testing.T, userID string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &models.JwtCustomClaims{
		UserID:           userID,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func (s *server) do(method, path, user, device, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if user != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token(s.t, user))
	}
	if device != "" {
		req.Header.Set(config.DeviceHeader, device)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	s := newServer(t)
	rec := s.do(http.MethodGet, "/health", "", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAnonymousFeed(t *testing.T) {
	s := newServer(t)

	rec := s.do(http.MethodGet, "/api/v1/feed", "", "phone", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[handlers.FeedResponse](t, rec)
	assert.Equal(t, "loaded", string(resp.Status))
	require.Len(t, resp.Stories, 2)
	assert.Equal(t, "s2", resp.Stories[0].ID)
	assert.True(t, resp.Stories[1].EarlyAdopter)
	assert.False(t, resp.Stories[0].EarlyAdopter)
	assert.Empty(t, resp.LikedStoryIDs)
	assert.Nil(t, resp.Viewer)

	rec = s.do(http.MethodGet, "/api/v1/feed?category=poetry", "", "phone", "")
	resp = decode[handlers.FeedResponse](t, rec)
	require.Len(t, resp.Stories, 1)
	assert.Equal(t, "s1", resp.Stories[0].ID)

	rec = s.do(http.MethodGet, "/api/v1/feed?category=sci-fi", "", "phone", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, "/api/v1/session", "", "phone", "")
	assert.JSONEq(t, `{"active":false}`, rec.Body.String())
}

func TestLikeFlow(t *testing.T) {
	s := newServer(t)

	rec := s.do(http.MethodPost, "/api/v1/stories/s1/like", "", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	s.do(http.MethodGet, "/api/v1/feed", "u2", "phone", "")
	rec = s.do(http.MethodPost, "/api/v1/stories/s1/like", "u2", "phone", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.LikeState{StoryID: "s1", Liked: true, LikeCount: 1}, decode[models.LikeState](t, rec))

	resp := decode[handlers.FeedResponse](t, s.do(http.MethodGet, "/api/v1/feed", "u2", "phone", ""))
	assert.Equal(t, []string{"s1"}, resp.LikedStoryIDs)
	require.NotNil(t, resp.Viewer)
	assert.Equal(t, "Bo", resp.Viewer.DisplayName)

	rec = s.do(http.MethodGet, "/api/v1/notifications", "u1", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	notes := decode[handlers.NotificationsResponse](t, rec)
	assert.True(t, notes.HasUnread)
	require.Len(t, notes.Notifications, 1)
	assert.Equal(t, "Bo", notes.Notifications[0].Actor.DisplayName)
	assert.Equal(t, "Rain", notes.Notifications[0].Story.Title)

	rec = s.do(http.MethodPut, "/api/v1/notifications/read-all", "u1", "", "")
	assert.JSONEq(t, `{"has_unread":false}`, rec.Body.String())

	rec = s.do(http.MethodGet, "/api/v1/session", "", "phone", "")
	assert.JSONEq(t, `{"active":true}`, rec.Body.String())

	rec = s.do(http.MethodDelete, "/api/v1/session", "u2", "phone", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(http.MethodGet, "/api/v1/session", "", "phone", "")
	assert.JSONEq(t, `{"active":false}`, rec.Body.String())
}

func TestComments(t *testing.T) {
	s := newServer(t)

	rec := s.do(http.MethodPost, "/api/v1/stories/s1/comments", "u2", "", `{"text":"   "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, s.store.Calls("insert", models.RelComments))

	rec = s.do(http.MethodPost, "/api/v1/stories/s1/comments", "u2", "", `{"text":"lovely"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	body := decode[struct {
		Comments []models.Comment `json:"comments"`
	}](t, rec)
	require.Len(t, body.Comments, 1)
	assert.Equal(t, "Bo", body.Comments[0].Author.DisplayName)

	rec = s.do(http.MethodDelete, "/api/v1/comments/"+body.Comments[0].ID, "u1", "", "")
	assert.JSONEq(t, `{"deleted":true}`, rec.Body.String())

	rec = s.do(http.MethodGet, "/api/v1/stories/s1/comments", "u1", "", "")
	assert.JSONEq(t, `{"comments":[]}`, rec.Body.String())
}

func TestDeleteStoryDenied(t *testing.T) {
	s := newServer(t)

	rec := s.do(http.MethodDelete, "/api/v1/stories/s1", "u2", "", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Len(t, s.store.Rows(models.RelStories), 2)

	rec = s.do(http.MethodDelete, "/api/v1/stories/s1", "u1", "", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRemoteFailureIsRetryable(t *testing.T) {
	s := newServer(t)
	s.store.SetHook(func(_ context.Context, c memstore.Call) error {
		if c.Op == "insert" {
			return errors.New("dial tcp: connection refused")
		}
		return nil
	})

	rec := s.do(http.MethodPost, "/api/v1/stories/s1/like", "u2", "", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, true, body["retryable"])
	assert.NotContains(t, rec.Body.String(), "connection refused")
}
