// Package identity resolves author profile projections for stories whose
// embedded profile is missing.
package identity

import (
	"context"
	"fmt"

	"github.com/anonto42/storyshare/backend/internal/models"
	"github.com/anonto42/storyshare/backend/internal/remote"
	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"
)

// DefaultCacheSize is used when NewResolver is given a non-positive size.
const DefaultCacheSize = 512

var profileColumns = []string{"id", "display_name", "avatar_url", "is_admin", "likes_public", "created_at"}

// Resolver looks up author profiles in bulk and remembers what it found.
type Resolver struct {
	store  remote.Store
	cache  *lru.Cache
	logger *zap.Logger
}

// NewResolver creates a Resolver backed by an LRU cache of cacheSize
// profiles.
func NewResolver(store remote.Store, cacheSize int, logger *zap.Logger) (*Resolver, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create profile cache: %w", err)
	}
	return &Resolver{store: store, cache: cache, logger: logger}, nil
}

// ResolveAvatars returns the author projection for every id it can find.
// Uncached ids are fetched with a single lookup. Ids that do not exist get
// no entry, and a failed lookup yields only what the cache already held.
func (r *Resolver) ResolveAvatars(ctx context.Context, ids []string) map[string]models.AuthorProfile {
	out := make(map[string]models.AuthorProfile, len(ids))
	missing := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))

	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		if v, ok := r.cache.Get(id); ok {
			out[id] = v.(models.Profile).ToAuthorProfile()
			continue
		}
		missing = append(missing, id)
	}

	if len(missing) == 0 {
		return out
	}

	profiles, err := r.fetch(ctx, remote.In("id", missing))
	if err != nil {
		r.logger.Warn("profile lookup failed, continuing without fallback avatars",
			zap.Int("ids", len(missing)),
			zap.Error(err),
		)
		return out
	}

	for _, p := range profiles {
		r.cache.Add(p.ID, p)
		out[p.ID] = p.ToAuthorProfile()
	}
	return out
}

// Profile fetches a fresh copy of one profile, bypassing the cache. It
// returns nil when the profile does not exist.
func (r *Resolver) Profile(ctx context.Context, id string) (*models.Profile, error) {
	profiles, err := r.fetch(ctx, remote.Eq("id", id))
	if err != nil {
		return nil, err
	}
	if len(profiles) == 0 {
		r.cache.Remove(id)
		return nil, nil
	}
	p := profiles[0]
	r.cache.Add(p.ID, p)
	return &p, nil
}

// Purge drops every cached profile.
func (r *Resolver) Purge() {
	r.cache.Purge()
}

func (r *Resolver) fetch(ctx context.Context, filter remote.Filter) ([]models.Profile, error) {
	rows, err := r.store.Select(ctx, remote.Query{
		Relation: models.RelProfiles,
		Columns:  profileColumns,
		Filters:  []remote.Filter{filter},
	})
	if err != nil {
		return nil, fmt.Errorf("select profiles: %w", err)
	}
	var profiles []models.Profile
	if err := remote.Decode(rows, &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}
