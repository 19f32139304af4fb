// Package mutation applies likes, comments and deletions for the viewer,
// patching the shared feed state optimistically and reverting it when the
// remote write fails.
package mutation

import (
	"context"
	"fmt"
	"sync"

	"github.com/anonto42/storyshare/backend/internal/apperr"
	"github.com/anonto42/storyshare/backend/internal/feed"
	"github.com/anonto42/storyshare/backend/internal/models"
	"github.com/anonto42/storyshare/backend/internal/remote"
	"go.uber.org/zap"
)

// Mutator performs the viewer's writes for one app session.
type Mutator struct {
	client remote.Client
	state  *feed.State
	logger *zap.Logger

	mu       sync.RWMutex
	comments map[string][]models.Comment
}

// NewMutator creates a Mutator that patches state.
func NewMutator(client remote.Client, state *feed.State, logger *zap.Logger) *Mutator {
	return &Mutator{
		client:   client,
		state:    state,
		logger:   logger,
		comments: make(map[string][]models.Comment),
	}
}

func (m *Mutator) viewer(ctx context.Context) (*remote.User, error) {
	user, err := m.client.CurrentUser(ctx)
	if err != nil {
		return nil, apperr.Remote("identify viewer", err)
	}
	if user == nil {
		return nil, apperr.ErrNotAuthenticated
	}
	return user, nil
}

// storyTarget is what a write needs to know about a story.
type storyTarget struct {
	AuthorID  string `json:"author_id"`
	LikeCount int    `json:"like_count"`
	local     bool
}

// story returns the story from the feed state, or from the store when the
// feed does not hold it.
func (m *Mutator) story(ctx context.Context, storyID string) (storyTarget, error) {
	if st, ok := m.state.Story(storyID); ok {
		return storyTarget{AuthorID: st.AuthorID, LikeCount: st.LikeCount, local: true}, nil
	}

	rows, err := m.client.Select(ctx, remote.Query{
		Relation: models.RelStories,
		Columns:  []string{"author_id", "like_count"},
		Filters:  []remote.Filter{remote.Eq("id", storyID)},
		Limit:    1,
	})
	if err != nil {
		return storyTarget{}, apperr.Remote("look up story", err)
	}
	if len(rows) == 0 {
		return storyTarget{}, fmt.Errorf("story %s: %w", storyID, apperr.ErrNotFound)
	}

	var t storyTarget
	if err := remote.DecodeRow(rows[0], &t); err != nil {
		return storyTarget{}, apperr.Remote("look up story", err)
	}
	return t, nil
}

func (m *Mutator) notify(ctx context.Context, typ models.NotificationType, recipient, actor, storyID string) {
	_, err := m.client.Insert(ctx, models.RelNotifications, remote.Row{
		"recipient_id": recipient,
		"actor_id":     actor,
		"type":         string(typ),
		"story_id":     storyID,
		"read":         false,
	})
	if err != nil {
		m.logger.Warn("failed to create notification",
			zap.String("type", string(typ)),
			zap.String("story_id", storyID),
			zap.String("recipient_id", recipient),
			zap.Error(err),
		)
	}
}
