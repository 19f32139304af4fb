package mutation

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/anonto42/storyshare/backend/internal/apperr"
	"github.com/anonto42/storyshare/backend/internal/models"
	"github.com/anonto42/storyshare/backend/internal/remote"
	"go.uber.org/zap"
)

type commentRow struct {
	ID        string                       `json:"id"`
	StoryID   string                       `json:"story_id"`
	UserID    string                       `json:"user_id"`
	Text      string                       `json:"text"`
	CreatedAt time.Time                    `json:"created_at"`
	Author    remote.One[models.Commenter] `json:"author"`
}

// LoadComments fetches the comments of a story, oldest first, with each
// commenter's display data, and caches the list.
func (m *Mutator) LoadComments(ctx context.Context, storyID string) ([]models.Comment, error) {
	found, err := m.client.Select(ctx, remote.Query{
		Relation: models.RelComments,
		Columns:  []string{"id", "story_id", "user_id", "text", "created_at"},
		Filters:  []remote.Filter{remote.Eq("story_id", storyID)},
		Order:    []remote.Order{{Column: "created_at"}},
		Embeds: []remote.Embed{{
			Relation:   models.RelProfiles,
			As:         "author",
			LocalKey:   "user_id",
			ForeignKey: "id",
			Columns:    []string{"display_name", "avatar_url"},
		}},
	})
	if err != nil {
		return nil, apperr.Remote("load comments", err)
	}

	var rows []commentRow
	if err := remote.Decode(found, &rows); err != nil {
		return nil, apperr.Remote("load comments", err)
	}

	comments := make([]models.Comment, len(rows))
	for i, r := range rows {
		author, _ := r.Author.Get()
		comments[i] = models.Comment{
			ID:        r.ID,
			StoryID:   r.StoryID,
			UserID:    r.UserID,
			Text:      r.Text,
			CreatedAt: r.CreatedAt,
			Author:    author,
		}
	}

	m.mu.Lock()
	m.comments[storyID] = comments
	m.mu.Unlock()

	return slices.Clone(comments), nil
}

// Comments returns the cached comment list of a story.
func (m *Mutator) Comments(storyID string) []models.Comment {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.comments[storyID])
}

// AddComment posts a comment as the viewer, notifies the story author when
// it is someone else, and returns the refetched comment list. Blank text is
// rejected without touching the store. Once the insert succeeds the call
// succeeds; a failed refetch returns the cached list instead.
func (m *Mutator) AddComment(ctx context.Context, storyID, text string) ([]models.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.ErrEmptyComment
	}

	user, err := m.viewer(ctx)
	if err != nil {
		return nil, err
	}

	target, err := m.story(ctx, storyID)
	if err != nil {
		return nil, err
	}

	_, err = m.client.Insert(ctx, models.RelComments, remote.Row{
		"story_id": storyID,
		"user_id":  user.ID,
		"text":     text,
	})
	if err != nil {
		return nil, apperr.Remote("add comment", err)
	}

	if target.AuthorID != "" && target.AuthorID != user.ID {
		m.notify(ctx, models.NotificationComment, target.AuthorID, user.ID, storyID)
	}

	comments, err := m.LoadComments(ctx, storyID)
	if err != nil {
		m.logger.Warn("comment added but list refresh failed", zap.String("story_id", storyID), zap.Error(err))
		return m.Comments(storyID), nil
	}
	return comments, nil
}

// DeleteComment removes a comment when the viewer wrote it or wrote the
// story it belongs to. For anyone else it does nothing and reports false.
func (m *Mutator) DeleteComment(ctx context.Context, commentID string) (bool, error) {
	user, err := m.viewer(ctx)
	if err != nil {
		return false, err
	}

	c, err := m.comment(ctx, commentID)
	if err != nil {
		return false, err
	}

	if c.UserID != user.ID {
		target, err := m.story(ctx, c.StoryID)
		if err != nil {
			return false, err
		}
		if target.AuthorID != user.ID {
			m.logger.Debug("comment delete refused",
				zap.String("comment_id", commentID),
				zap.String("user_id", user.ID),
			)
			return false, nil
		}
	}

	if _, err := m.client.Delete(ctx, models.RelComments, remote.Eq("id", commentID)); err != nil {
		return false, apperr.Remote("delete comment", err)
	}

	m.mu.Lock()
	m.comments[c.StoryID] = slices.DeleteFunc(m.comments[c.StoryID], func(x models.Comment) bool {
		return x.ID == commentID
	})
	m.mu.Unlock()

	return true, nil
}

// comment finds a comment in the cached lists, falling back to the store.
func (m *Mutator) comment(ctx context.Context, commentID string) (models.Comment, error) {
	m.mu.RLock()
	for _, list := range m.comments {
		for _, c := range list {
			if c.ID == commentID {
				m.mu.RUnlock()
				return c, nil
			}
		}
	}
	m.mu.RUnlock()

	rows, err := m.client.Select(ctx, remote.Query{
		Relation: models.RelComments,
		Columns:  []string{"id", "story_id", "user_id"},
		Filters:  []remote.Filter{remote.Eq("id", commentID)},
		Limit:    1,
	})
	if err != nil {
		return models.Comment{}, apperr.Remote("look up comment", err)
	}
	if len(rows) == 0 {
		return models.Comment{}, fmt.Errorf("comment %s: %w", commentID, apperr.ErrNotFound)
	}

	var c models.Comment
	if err := remote.DecodeRow(rows[0], &c); err != nil {
		return models.Comment{}, apperr.Remote("look up comment", err)
	}
	return c, nil
}
