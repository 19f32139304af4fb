package mutation

import (
	"context"
	"errors"

	"github.com/anonto42/storyshare/backend/internal/apperr"
	"github.com/anonto42/storyshare/backend/internal/models"
	"github.com/anonto42/storyshare/backend/internal/remote"
	"go.uber.org/zap"
)

// ToggleLike flips the viewer's like on a story. The local membership and
// count change before the remote write and are reverted if it fails. A
// press that arrives while an earlier toggle for the same story is still in
// flight is ignored and reported with Ignored set.
func (m *Mutator) ToggleLike(ctx context.Context, storyID string) (models.LikeState, error) {
	user, err := m.viewer(ctx)
	if err != nil {
		return models.LikeState{}, err
	}

	if !m.state.Acquire(storyID) {
		return m.ignoredPress(storyID), nil
	}
	defer m.state.Release(storyID)

	target, err := m.story(ctx, storyID)
	if err != nil {
		return models.LikeState{}, err
	}

	wasLiked := m.state.Liked(storyID)
	if !target.local {
		n, err := m.client.Count(ctx, models.RelStoryLikes, remote.Eq("user_id", user.ID), remote.Eq("story_id", storyID))
		if err != nil {
			return models.LikeState{}, apperr.Remote("look up like", err)
		}
		wasLiked = n > 0
	}

	liked, delta := !wasLiked, 1
	if wasLiked {
		delta = -1
	}
	count, applied := m.state.PatchLike(storyID, liked, delta)
	if !target.local {
		count = max(target.LikeCount+delta, 0)
	}

	duplicate, err := m.writeLike(ctx, user.ID, storyID, liked)
	if err != nil {
		n, _ := m.state.PatchLike(storyID, wasLiked, -applied)
		if !target.local {
			n = target.LikeCount
		}
		op := "like story"
		if !liked {
			op = "unlike story"
		}
		m.logger.Warn("like write failed, reverted",
			zap.String("story_id", storyID),
			zap.Bool("liked", liked),
			zap.Error(err),
		)
		return models.LikeState{StoryID: storyID, Liked: wasLiked, LikeCount: n}, apperr.Remote(op, err)
	}

	// The existing row is already part of the store's counter.
	if duplicate {
		count, _ = m.state.PatchLike(storyID, true, -applied)
		if !target.local {
			count = target.LikeCount
		}
	}

	if target.AuthorID != "" && target.AuthorID != user.ID {
		switch {
		case liked && !duplicate:
			m.notify(ctx, models.NotificationLike, target.AuthorID, user.ID, storyID)
		case !liked:
			m.retractLikeNotification(ctx, target.AuthorID, user.ID, storyID)
		}
	}

	return models.LikeState{StoryID: storyID, Liked: liked, LikeCount: count}, nil
}

// writeLike inserts or deletes the membership row. A duplicate insert means
// another press already liked the story and counts as success.
func (m *Mutator) writeLike(ctx context.Context, userID, storyID string, liked bool) (duplicate bool, err error) {
	if liked {
		_, err := m.client.Insert(ctx, models.RelStoryLikes, remote.Row{"user_id": userID, "story_id": storyID})
		if errors.Is(err, remote.ErrDuplicate) {
			m.logger.Debug("like already exists", zap.String("story_id", storyID))
			return true, nil
		}
		return false, err
	}
	_, err = m.client.Delete(ctx, models.RelStoryLikes, remote.Eq("user_id", userID), remote.Eq("story_id", storyID))
	return false, err
}

func (m *Mutator) retractLikeNotification(ctx context.Context, recipient, actor, storyID string) {
	_, err := m.client.Delete(ctx, models.RelNotifications,
		remote.Eq("recipient_id", recipient),
		remote.Eq("actor_id", actor),
		remote.Eq("type", string(models.NotificationLike)),
		remote.Eq("story_id", storyID),
	)
	if err != nil {
		m.logger.Warn("failed to delete like notification", zap.String("story_id", storyID), zap.Error(err))
	}
}

func (m *Mutator) ignoredPress(storyID string) models.LikeState {
	ls := models.LikeState{StoryID: storyID, Liked: m.state.Liked(storyID), Ignored: true}
	if st, ok := m.state.Story(storyID); ok {
		ls.LikeCount = st.LikeCount
	}
	return ls
}
