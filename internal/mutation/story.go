package mutation

import (
	"context"

	"github.com/anonto42/storyshare/backend/internal/apperr"
	"github.com/anonto42/storyshare/backend/internal/models"
	"github.com/anonto42/storyshare/backend/internal/remote"
	"go.uber.org/zap"
)

// DeleteStory removes a story written by the viewer, or any story when the
// viewer is an admin. Local state is only touched after the store confirms.
func (m *Mutator) DeleteStory(ctx context.Context, storyID string) error {
	user, err := m.viewer(ctx)
	if err != nil {
		return err
	}

	target, err := m.story(ctx, storyID)
	if err != nil {
		return err
	}

	if target.AuthorID != user.ID {
		admin, err := m.isAdmin(ctx, user.ID)
		if err != nil {
			return err
		}
		if !admin {
			return apperr.ErrPermissionDenied
		}
	}

	n, err := m.client.Delete(ctx, models.RelStories, remote.Eq("id", storyID))
	if err != nil {
		return apperr.Remote("delete story", err)
	}
	if n == 0 {
		m.logger.Info("story already gone", zap.String("story_id", storyID))
	}

	m.state.Remove(storyID)
	m.mu.Lock()
	delete(m.comments, storyID)
	m.mu.Unlock()
	return nil
}

func (m *Mutator) isAdmin(ctx context.Context, userID string) (bool, error) {
	rows, err := m.client.Select(ctx, remote.Query{
		Relation: models.RelProfiles,
		Columns:  []string{"is_admin"},
		Filters:  []remote.Filter{remote.Eq("id", userID)},
		Limit:    1,
	})
	if err != nil {
		return false, apperr.Remote("look up profile", err)
	}
	if len(rows) == 0 {
		return false, nil
	}
	var p models.Profile
	if err := remote.DecodeRow(rows[0], &p); err != nil {
		return false, apperr.Remote("look up profile", err)
	}
	return p.IsAdmin, nil
}
