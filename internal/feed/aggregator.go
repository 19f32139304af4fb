// Package feed loads the story feed and owns the in-memory feed state.
package feed

import (
	"context"
	"time"

	"github.com/anonto42/storyshare/backend/internal/apperr"
	"github.com/anonto42/storyshare/backend/internal/identity"
	"github.com/anonto42/storyshare/backend/internal/models"
	"github.com/anonto42/storyshare/backend/internal/remote"
	"go.uber.org/zap"
)

// DefaultLimit is the number of most recent stories a load fetches.
const DefaultLimit = 100

var storyColumns = []string{
	"id", "title", "body", "cover_url", "like_count", "comment_count",
	"created_at", "author_id", "author_name", "category",
}

// storyRow is a stories row with its author profile embedded.
type storyRow struct {
	ID           string                           `json:"id"`
	Title        string                           `json:"title"`
	Body         string                           `json:"body"`
	CoverURL     *string                          `json:"cover_url"`
	LikeCount    int                              `json:"like_count"`
	CommentCount int                              `json:"comment_count"`
	CreatedAt    time.Time                        `json:"created_at"`
	AuthorID     string                           `json:"author_id"`
	AuthorName   string                           `json:"author_name"`
	Category     models.Category                  `json:"category"`
	Profiles     remote.One[models.AuthorProfile] `json:"profiles"`
}

// Result is one load of the feed.
type Result struct {
	Viewer  *models.Profile
	Stories []models.Story
	Liked   map[string]struct{}
	// Err is set when the story fetch failed and the feed degraded to empty.
	Err error
}

// Aggregator fetches the feed for one client session.
type Aggregator struct {
	client   remote.Client
	resolver *identity.Resolver
	limit    int
	logger   *zap.Logger
}

// NewAggregator creates a new Aggregator. A non-positive limit means
// DefaultLimit.
func NewAggregator(client remote.Client, resolver *identity.Resolver, limit int, logger *zap.Logger) *Aggregator {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Aggregator{client: client, resolver: resolver, limit: limit, logger: logger}
}

// Load runs the feed pipeline: viewer profile, stories with embedded
// profiles, fallback resolution for missing avatars, and liked membership.
// It never fails outright; a failed story fetch yields an empty result.
func (a *Aggregator) Load(ctx context.Context) Result {
	res := Result{Liked: make(map[string]struct{})}

	user, err := a.client.CurrentUser(ctx)
	if err != nil {
		a.logger.Warn("failed to identify viewer, loading anonymously", zap.Error(err))
		user = nil
	}

	if user != nil {
		res.Viewer, err = a.resolver.Profile(ctx, user.ID)
		if err != nil {
			a.logger.Warn("failed to fetch viewer profile", zap.String("user_id", user.ID), zap.Error(err))
		}
	}

	rows, err := a.fetchStories(ctx)
	if err != nil {
		a.logger.Error("failed to fetch stories, feed is empty", zap.Error(err))
		res.Err = apperr.Remote("load feed", err)
		return res
	}

	res.Stories = a.resolveProfiles(ctx, rows, user, res.Viewer)

	if user != nil && len(res.Stories) > 0 {
		res.Liked = a.likedBy(ctx, user.ID, res.Stories)
	}

	a.logger.Debug("feed loaded",
		zap.Int("stories", len(res.Stories)),
		zap.Int("liked", len(res.Liked)),
		zap.Bool("anonymous", user == nil),
	)
	return res
}

func (a *Aggregator) fetchStories(ctx context.Context) ([]storyRow, error) {
	found, err := a.client.Select(ctx, remote.Query{
		Relation: models.RelStories,
		Columns:  storyColumns,
		Order:    []remote.Order{{Column: "created_at", Descending: true}},
		Limit:    a.limit,
		Embeds: []remote.Embed{{
			Relation:   models.RelProfiles,
			LocalKey:   "author_id",
			ForeignKey: "id",
			Columns:    []string{"avatar_url", "is_admin", "created_at"},
		}},
	})
	if err != nil {
		return nil, err
	}
	var rows []storyRow
	if err := remote.Decode(found, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// resolveProfiles fills every story's profile projection. A row whose
// embed is missing or has no avatar takes, in order: the viewer's own
// profile when the viewer wrote it, the batched lookup, or whatever the
// embed carried (possibly nothing).
func (a *Aggregator) resolveProfiles(ctx context.Context, rows []storyRow, user *remote.User, viewer *models.Profile) []models.Story {
	stories := make([]models.Story, len(rows))
	var pending []int
	var pendingIDs []string

	for i, r := range rows {
		stories[i] = models.Story{
			ID:           r.ID,
			Title:        r.Title,
			Body:         r.Body,
			CoverURL:     r.CoverURL,
			LikeCount:    max(r.LikeCount, 0),
			CommentCount: max(r.CommentCount, 0),
			CreatedAt:    r.CreatedAt,
			AuthorID:     r.AuthorID,
			AuthorName:   r.AuthorName,
			Category:     r.Category.Normalize(),
		}

		embedded, ok := r.Profiles.Get()
		if ok && embedded.AvatarURL != nil {
			stories[i].Profiles = embedded
			continue
		}

		if user != nil && viewer != nil && r.AuthorID == user.ID {
			stories[i].Profiles = fillAvatar(embedded, ok, viewer.ToAuthorProfile())
			continue
		}

		stories[i].Profiles = embedded
		pending = append(pending, i)
		pendingIDs = append(pendingIDs, r.AuthorID)
	}

	if len(pending) == 0 {
		return stories
	}

	resolved := a.resolver.ResolveAvatars(ctx, pendingIDs)
	for _, i := range pending {
		fallback, found := resolved[stories[i].AuthorID]
		if !found {
			continue
		}
		_, hadEmbed := rows[i].Profiles.Get()
		stories[i].Profiles = fillAvatar(stories[i].Profiles, hadEmbed, fallback)
	}
	return stories
}

// fillAvatar takes the avatar from fallback. Badge fields come from the
// embed when there was one.
func fillAvatar(embedded models.AuthorProfile, hadEmbed bool, fallback models.AuthorProfile) models.AuthorProfile {
	if !hadEmbed {
		return fallback
	}
	embedded.AvatarURL = fallback.AvatarURL
	if embedded.CreatedAt == nil {
		embedded.CreatedAt = fallback.CreatedAt
	}
	return embedded
}

func (a *Aggregator) likedBy(ctx context.Context, userID string, stories []models.Story) map[string]struct{} {
	ids := make([]string, len(stories))
	for i, st := range stories {
		ids[i] = st.ID
	}

	liked := make(map[string]struct{})
	found, err := a.client.Select(ctx, remote.Query{
		Relation: models.RelStoryLikes,
		Columns:  []string{"story_id"},
		Filters:  []remote.Filter{remote.Eq("user_id", userID), remote.In("story_id", ids)},
	})
	if err != nil {
		a.logger.Warn("failed to fetch liked stories", zap.String("user_id", userID), zap.Error(err))
		return liked
	}

	var rows []models.StoryLike
	if err := remote.Decode(found, &rows); err != nil {
		a.logger.Warn("failed to decode liked stories", zap.Error(err))
		return liked
	}
	for _, r := range rows {
		liked[r.StoryID] = struct{}{}
	}
	return liked
}
