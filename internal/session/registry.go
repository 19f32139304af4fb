package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/anonto42/storyshare/backend/internal/feed"
	"github.com/anonto42/storyshare/backend/internal/identity"
	"github.com/anonto42/storyshare/backend/internal/mutation"
	"github.com/anonto42/storyshare/backend/internal/notify"
	"github.com/anonto42/storyshare/backend/internal/remote"
	"go.uber.org/zap"
)

// Bundle is the set of controllers owned by one app session.
type Bundle struct {
	Key     string
	Feed    *feed.Controller
	Mutator *mutation.Mutator
	Tracker *notify.Tracker

	mu       sync.Mutex
	lastSeen time.Time
}

func (b *Bundle) touch(now time.Time) {
	b.mu.Lock()
	b.lastSeen = now
	b.mu.Unlock()
}

func (b *Bundle) idleSince() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastSeen
}

// Options configures the controllers a Registry builds.
type Options struct {
	FeedLimit        int
	ProfileCacheSize int
}

// Registry hands out one Bundle per session key, creating it on first use.
type Registry struct {
	store  remote.Store
	opts   Options
	logger *zap.Logger
	now    func() time.Time

	mu      sync.Mutex
	bundles map[string]*Bundle
}

// NewRegistry creates an empty Registry over store.
func NewRegistry(store remote.Store, opts Options, logger *zap.Logger) *Registry {
	return &Registry{
		store:   store,
		opts:    opts,
		logger:  logger,
		now:     time.Now,
		bundles: make(map[string]*Bundle),
	}
}

// Key returns the session key for a viewer, or for an anonymous device
// when user is nil.
func Key(user *remote.User, device string) string {
	if user != nil {
		return "user:" + user.ID
	}
	return "device:" + device
}

// Get returns the Bundle for user (or the anonymous device), building it
// the first time.
func (r *Registry) Get(user *remote.User, device string) (*Bundle, error) {
	key := Key(user, device)

	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.bundles[key]; ok {
		b.touch(r.now())
		return b, nil
	}

	b, err := r.build(key, user)
	if err != nil {
		return nil, err
	}
	b.touch(r.now())
	r.bundles[key] = b
	r.logger.Debug("session opened", zap.String("key", key))
	return b, nil
}

func (r *Registry) build(key string, user *remote.User) (*Bundle, error) {
	client := remote.Bind(r.store, user)
	logger := r.logger.With(zap.String("session", key))

	resolver, err := identity.NewResolver(r.store, r.opts.ProfileCacheSize, logger)
	if err != nil {
		return nil, fmt.Errorf("build session %s: %w", key, err)
	}

	state := feed.NewState()
	agg := feed.NewAggregator(client, resolver, r.opts.FeedLimit, logger)
	return &Bundle{
		Key:     key,
		Feed:    feed.NewController(agg, resolver, state, logger),
		Mutator: mutation.NewMutator(client, state, logger),
		Tracker: notify.NewTracker(client, 0, logger),
	}, nil
}

// Drop forgets the Bundle for key.
func (r *Registry) Drop(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bundles[key]; ok {
		delete(r.bundles, key)
		r.logger.Debug("session closed", zap.String("key", key))
	}
}

// Sweep drops every Bundle unused for longer than idle and returns how
// many were dropped.
func (r *Registry) Sweep(idle time.Duration) int {
	cutoff := r.now().Add(-idle)

	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for key, b := range r.bundles {
		if b.idleSince().Before(cutoff) {
			delete(r.bundles, key)
			n++
		}
	}
	return n
}

// Len returns the number of open sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bundles)
}
