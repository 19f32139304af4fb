package feed

import (
	"context"
	"testing"
	"time"

	"github.com/anonto42/storyshare/backend/internal/identity"
	"github.com/anonto42/storyshare/backend/internal/models"
	"github.com/anonto42/storyshare/backend/internal/remote"
	"github.com/anonto42/storyshare/backend/internal/remote/memstore"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// joinStore simulates a backend whose story/profile join loses data: the
// embed of stories by a stripped author comes back empty or without an
// avatar, and batched profile lookups can be forced to a given avatar.
type joinStore struct {
	*memstore.Store
	dropEmbed   map[string]bool
	blankAvatar map[string]bool
	batchAvatar *string
}

func (s *joinStore) Select(ctx context.Context, q remote.Query) ([]remote.Row, error) {
	rows, err := s.Store.Select(ctx, q)
	if err != nil {
		return nil, err
	}

	switch q.Relation {
	case models.RelStories:
		for _, r := range rows {
			author, _ := r["author_id"].(string)
			switch {
			case s.dropEmbed[author]:
				r["profiles"] = nil
			case s.blankAvatar[author]:
				r["profiles"] = map[string]any{"avatar_url": nil, "is_admin": false}
			}
		}
	case models.RelProfiles:
		if s.batchAvatar != nil && len(q.Filters) == 1 && q.Filters[0].Op == remote.OpIn {
			for _, r := range rows {
				r["avatar_url"] = *s.batchAvatar
			}
		}
	}
	return rows, nil
}

func newJoinStore() *joinStore {
	s := memstore.New()
	s.Seed(models.RelProfiles,
		remote.Row{"id": "u1", "display_name": "Ada", "avatar_url": "ada.png", "is_admin": false, "created_at": base.AddDate(-2, 0, 0)},
		remote.Row{"id": "u2", "display_name": "Bo", "avatar_url": "bo.png", "is_admin": true, "created_at": base.AddDate(0, -1, 0)},
	)
	s.Seed(models.RelStories,
		remote.Row{"id": "s1", "title": "First", "author_id": "u1", "author_name": "Ada", "category": "poetry", "like_count": 1, "comment_count": 0, "created_at": base},
		remote.Row{"id": "s2", "title": "Second", "author_id": "u2", "author_name": "Bo", "category": "memoir", "like_count": 0, "comment_count": 2, "created_at": base.Add(time.Hour)},
		remote.Row{"id": "s3", "title": "Third", "author_id": "u1", "author_name": "Ada", "category": "sci-fi", "like_count": 0, "comment_count": 0, "created_at": base.Add(2 * time.Hour)},
	)
	s.Seed(models.RelStoryLikes,
		remote.Row{"user_id": "u1", "story_id": "s2", "created_at": base},
		remote.Row{"user_id": "u2", "story_id": "s1", "created_at": base},
	)
	return &joinStore{Store: s, dropEmbed: map[string]bool{}, blankAvatar: map[string]bool{}}
}

func newAggregator(t *testing.T, store remote.Store, user *remote.User, limit int) (*Aggregator, *identity.Resolver) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	resolver, err := identity.NewResolver(store, 16, logger)
	require.NoError(t, err)
	return NewAggregator(remote.Bind(store, user), resolver, limit, logger), resolver
}

func byID(stories []models.Story) map[string]models.Story {
	out := make(map[string]models.Story, len(stories))
	for _, st := range stories {
		out[st.ID] = st
	}
	return out
}

func ptr[T any](v T) *T { return &v }
