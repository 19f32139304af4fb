package mutation

import (
	"testing"
	"time"

	"github.com/anonto42/storyshare/backend/internal/feed"
	"github.com/anonto42/storyshare/backend/internal/models"
	"github.com/anonto42/storyshare/backend/internal/remote"
	"github.com/anonto42/storyshare/backend/internal/remote/memstore"
	"go.uber.org/zap/zaptest"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// fixture: u1 wrote s1, u2 wrote s2, u3 is an admin. s3 exists remotely
// but is not part of the loaded feed.
func newStore() *memstore.Store {
	s := memstore.New()
	s.Seed(models.RelProfiles,
		remote.Row{"id": "u1", "display_name": "Ada", "avatar_url": "ada.png", "is_admin": false},
		remote.Row{"id": "u2", "display_name": "Bo", "avatar_url": nil, "is_admin": false},
		remote.Row{"id": "u3", "display_name": "Cy", "avatar_url": nil, "is_admin": true},
	)
	s.Seed(models.RelStories,
		remote.Row{"id": "s1", "author_id": "u1", "like_count": 0, "comment_count": 0, "created_at": base},
		remote.Row{"id": "s2", "author_id": "u2", "like_count": 4, "comment_count": 0, "created_at": base.Add(time.Hour)},
		remote.Row{"id": "s3", "author_id": "u1", "like_count": 7, "comment_count": 0, "created_at": base.Add(-time.Hour)},
	)
	return s
}

func newState() *feed.State {
	st := feed.NewState()
	st.Replace([]models.Story{
		{ID: "s2", AuthorID: "u2", LikeCount: 4},
		{ID: "s1", AuthorID: "u1", LikeCount: 0},
	}, nil)
	return st
}

func newMutator(t *testing.T, store remote.Store, userID string) (*Mutator, *feed.State) {
	t.Helper()
	var user *remote.User
	if userID != "" {
		user = &remote.User{ID: userID}
	}
	state := newState()
	return NewMutator(remote.Bind(store, user), state, zaptest.NewLogger(t)), state
}

func unread(t *testing.T, store *memstore.Store, recipient string) int64 {
	t.Helper()
	n, err := store.Count(t.Context(), models.RelNotifications, remote.Eq("recipient_id", recipient), remote.Is("read", false))
	if err != nil {
		t.Fatalf("count notifications: %v", err)
	}
	return n
}
