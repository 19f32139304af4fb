package feed

import (
	"context"
	"sync"

	"github.com/anonto42/storyshare/backend/internal/identity"
	"github.com/anonto42/storyshare/backend/internal/models"
	"go.uber.org/zap"
)

// Status is the feed cache state.
type Status string

const (
	StatusCold       Status = "cold"
	StatusLoaded     Status = "loaded"
	StatusRefreshing Status = "refreshing"
)

// Controller owns the feed cache for one app session. The feed is loaded
// once and only reloaded by an explicit Refresh.
type Controller struct {
	agg      *Aggregator
	resolver *identity.Resolver
	state    *State
	logger   *zap.Logger

	// loadMu serializes Load and Refresh.
	loadMu sync.Mutex

	mu      sync.RWMutex
	status  Status
	viewer  *models.Profile
	lastErr error
}

// NewController creates a cold Controller over state.
func NewController(agg *Aggregator, resolver *identity.Resolver, state *State, logger *zap.Logger) *Controller {
	return &Controller{
		agg:      agg,
		resolver: resolver,
		state:    state,
		logger:   logger,
		status:   StatusCold,
	}
}

// Load fetches the feed if the cache is cold. Once loaded it is a no-op,
// even if the load degraded to an empty feed.
func (c *Controller) Load(ctx context.Context) {
	c.loadMu.Lock()
	defer c.loadMu.Unlock()

	if c.Status() != StatusCold {
		return
	}
	c.apply(c.agg.Load(ctx))
}

// Refresh invalidates the cache and rebuilds the story list and the liked
// set from scratch.
func (c *Controller) Refresh(ctx context.Context) {
	c.loadMu.Lock()
	defer c.loadMu.Unlock()

	c.mu.Lock()
	c.status = StatusRefreshing
	c.mu.Unlock()

	c.resolver.Purge()
	c.apply(c.agg.Load(ctx))
}

func (c *Controller) apply(res Result) {
	c.state.Replace(res.Stories, res.Liked)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = StatusLoaded
	c.viewer = res.Viewer
	c.lastErr = res.Err
}

// Status returns the cache state.
func (c *Controller) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// Viewer returns the viewer profile fetched by the last load, or nil.
func (c *Controller) Viewer() *models.Profile {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.viewer
}

// Err returns the failure that emptied the last load, if any.
func (c *Controller) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// Stories returns the cached stories in feed order.
func (c *Controller) Stories() []models.Story {
	return c.state.Stories()
}

// LikedByViewer returns the ids of cached stories the viewer has liked.
func (c *Controller) LikedByViewer() []string {
	return c.state.LikedByViewer()
}

// State returns the shared state the mutator patches.
func (c *Controller) State() *State {
	return c.state
}
