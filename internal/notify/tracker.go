// Package notify tracks the viewer's notifications: the unread flag and the
// enriched list, refetched in full whenever a new notification arrives.
package notify

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/anonto42/storyshare/backend/internal/apperr"
	"github.com/anonto42/storyshare/backend/internal/models"
	"github.com/anonto42/storyshare/backend/internal/remote"
	"go.uber.org/zap"
)

// DefaultLimit bounds the enriched list.
const DefaultLimit = 100

type notificationRow struct {
	models.Notification
	Actor remote.One[models.Commenter]    `json:"actor"`
	Story remote.One[models.StorySummary] `json:"story"`
}

// Tracker holds the notification state of one app session.
type Tracker struct {
	client remote.Client
	limit  int
	logger *zap.Logger

	// refreshMu keeps overlapping refetches from landing out of order.
	refreshMu sync.Mutex

	mu        sync.RWMutex
	hasUnread bool
	list      []models.NotificationView
}

// NewTracker creates a Tracker. A non-positive limit means DefaultLimit.
func NewTracker(client remote.Client, limit int, logger *zap.Logger) *Tracker {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Tracker{client: client, limit: limit, logger: logger}
}

func (t *Tracker) viewer(ctx context.Context) (*remote.User, error) {
	user, err := t.client.CurrentUser(ctx)
	if err != nil {
		return nil, apperr.Remote("identify viewer", err)
	}
	if user == nil {
		return nil, apperr.ErrNotAuthenticated
	}
	return user, nil
}

// CheckUnread recomputes the unread flag with a count query.
func (t *Tracker) CheckUnread(ctx context.Context) (bool, error) {
	user, err := t.viewer(ctx)
	if err != nil {
		return false, err
	}
	return t.checkUnread(ctx, user.ID)
}

func (t *Tracker) checkUnread(ctx context.Context, userID string) (bool, error) {
	n, err := t.client.Count(ctx, models.RelNotifications,
		remote.Eq("recipient_id", userID),
		remote.Is("read", false),
	)
	if err != nil {
		return false, apperr.Remote("count unread notifications", err)
	}

	t.mu.Lock()
	t.hasUnread = n > 0
	t.mu.Unlock()
	return n > 0, nil
}

// HasUnread returns the last computed unread flag.
func (t *Tracker) HasUnread() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.hasUnread
}

// Notifications returns the last fetched list, newest first.
func (t *Tracker) Notifications() []models.NotificationView {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.list)
}

// Refresh refetches the enriched list and the unread flag.
func (t *Tracker) Refresh(ctx context.Context) ([]models.NotificationView, error) {
	user, err := t.viewer(ctx)
	if err != nil {
		return nil, err
	}
	return t.refresh(ctx, user.ID)
}

func (t *Tracker) refresh(ctx context.Context, userID string) ([]models.NotificationView, error) {
	t.refreshMu.Lock()
	defer t.refreshMu.Unlock()

	found, err := t.client.Select(ctx, remote.Query{
		Relation: models.RelNotifications,
		Columns:  []string{"id", "recipient_id", "actor_id", "type", "story_id", "read", "created_at"},
		Filters:  []remote.Filter{remote.Eq("recipient_id", userID)},
		Order:    []remote.Order{{Column: "created_at", Descending: true}},
		Limit:    t.limit,
		Embeds: []remote.Embed{
			{
				Relation:   models.RelProfiles,
				As:         "actor",
				LocalKey:   "actor_id",
				ForeignKey: "id",
				Columns:    []string{"display_name", "avatar_url"},
			},
			{
				Relation:   models.RelStories,
				As:         "story",
				LocalKey:   "story_id",
				ForeignKey: "id",
				Columns:    []string{"id", "title", "cover_url"},
			},
		},
	})
	if err != nil {
		return nil, apperr.Remote("load notifications", err)
	}

	var rows []notificationRow
	if err := remote.Decode(found, &rows); err != nil {
		return nil, apperr.Remote("load notifications", err)
	}

	list := make([]models.NotificationView, len(rows))
	for i, r := range rows {
		actor, _ := r.Actor.Get()
		list[i] = models.NotificationView{Notification: r.Notification, Actor: actor}
		if story, ok := r.Story.Get(); ok {
			list[i].Story = &story
		}
	}

	t.mu.Lock()
	t.list = list
	t.mu.Unlock()

	if _, err := t.checkUnread(ctx, userID); err != nil {
		return slices.Clone(list), err
	}
	return slices.Clone(list), nil
}

// MarkAllRead marks every unread notification of the viewer as read.
func (t *Tracker) MarkAllRead(ctx context.Context) error {
	user, err := t.viewer(ctx)
	if err != nil {
		return err
	}

	err = t.client.Update(ctx, models.RelNotifications, remote.Row{"read": true},
		remote.Eq("recipient_id", user.ID),
		remote.Is("read", false),
	)
	if err != nil {
		return apperr.Remote("mark notifications read", err)
	}

	t.mu.Lock()
	for i := range t.list {
		t.list[i].Read = true
	}
	t.mu.Unlock()

	_, err = t.checkUnread(ctx, user.ID)
	return err
}

// MarkRead marks one of the viewer's notifications as read.
func (t *Tracker) MarkRead(ctx context.Context, id string) error {
	user, err := t.viewer(ctx)
	if err != nil {
		return err
	}

	err = t.client.Update(ctx, models.RelNotifications, remote.Row{"read": true},
		remote.Eq("id", id),
		remote.Eq("recipient_id", user.ID),
	)
	if err != nil {
		return apperr.Remote("mark notification read", err)
	}

	t.mu.Lock()
	for i := range t.list {
		if t.list[i].ID == id {
			t.list[i].Read = true
		}
	}
	t.mu.Unlock()

	_, err = t.checkUnread(ctx, user.ID)
	return err
}

// Watch is a live subscription to the viewer's new notifications.
type Watch struct {
	tracker *Tracker
	sub     remote.Subscription
	stopped atomic.Bool
}

// Watch subscribes to inserts addressed to the viewer. Every insert
// triggers a full refetch, after which onChange receives the new list.
// Events that arrive after Stop are discarded.
func (t *Tracker) Watch(ctx context.Context, onChange func([]models.NotificationView)) (*Watch, error) {
	user, err := t.viewer(ctx)
	if err != nil {
		return nil, err
	}

	w := &Watch{tracker: t}
	sub, err := t.client.SubscribeInsert(ctx, models.RelNotifications, remote.Eq("recipient_id", user.ID), func(remote.Event) {
		if w.stopped.Load() {
			return
		}
		list, err := t.refresh(ctx, user.ID)
		if err != nil {
			t.logger.Warn("failed to refetch notifications after insert", zap.String("user_id", user.ID), zap.Error(err))
			return
		}
		if w.stopped.Load() || onChange == nil {
			return
		}
		onChange(list)
	})
	if err != nil {
		return nil, apperr.Remote("subscribe notifications", err)
	}
	w.sub = sub
	return w, nil
}

// Stop ends the subscription. It is safe to call more than once.
func (w *Watch) Stop() error {
	if w.stopped.Swap(true) {
		return nil
	}
	return w.tracker.client.Unsubscribe(w.sub)
}
