package feed

import (
	"slices"
	"sync"

	"github.com/anonto42/storyshare/backend/internal/models"
)

// State is the in-memory story list and liked-by-viewer set shared by the
// aggregator and the mutator. Full reloads replace stories by id; mutations
// patch single fields. A story whose like is in flight keeps its local like
// count and membership across reloads until the lock is released.
type State struct {
	mu       sync.RWMutex
	stories  []models.Story
	index    map[string]int
	liked    map[string]struct{}
	inFlight map[string]struct{}
}

// NewState returns an empty State.
func NewState() *State {
	return &State{
		index:    make(map[string]int),
		liked:    make(map[string]struct{}),
		inFlight: make(map[string]struct{}),
	}
}

// Replace rebuilds the list and the liked set from a fresh load.
func (s *State) Replace(stories []models.Story, liked map[string]struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]models.Story, len(stories))
	copy(next, stories)
	nextLiked := make(map[string]struct{}, len(liked))
	for id := range liked {
		nextLiked[id] = struct{}{}
	}

	for i := range next {
		id := next[i].ID
		if _, busy := s.inFlight[id]; !busy {
			continue
		}
		if pos, ok := s.index[id]; ok {
			next[i].LikeCount = s.stories[pos].LikeCount
		}
		if _, ok := s.liked[id]; ok {
			nextLiked[id] = struct{}{}
		} else {
			delete(nextLiked, id)
		}
	}

	s.stories = next
	s.liked = nextLiked
	s.reindexLocked()
}

// Clear empties the list and the liked set.
func (s *State) Clear() {
	s.Replace(nil, nil)
}

// Stories returns a copy of the list in feed order.
func (s *State) Stories() []models.Story {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.stories)
}

// Story returns the story with id.
func (s *State) Story(id string) (models.Story, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pos, ok := s.index[id]
	if !ok {
		return models.Story{}, false
	}
	return s.stories[pos], true
}

// LikedByViewer returns the liked story ids in feed order.
func (s *State) LikedByViewer() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.liked))
	for _, st := range s.stories {
		if _, ok := s.liked[st.ID]; ok {
			ids = append(ids, st.ID)
		}
	}
	return ids
}

// Liked reports whether the viewer has liked id.
func (s *State) Liked(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.liked[id]
	return ok
}

// Acquire takes the in-flight lock for id. It returns false when a like
// for id is already in flight.
func (s *State) Acquire(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[id]; busy {
		return false
	}
	s.inFlight[id] = struct{}{}
	return true
}

// Release drops the in-flight lock for id.
func (s *State) Release(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, id)
}

// InFlight reports whether a like for id is pending.
func (s *State) InFlight(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.inFlight[id]
	return ok
}

// PatchLike sets membership for id and adds delta to its like count, never
// going below zero. It returns the resulting count and the delta actually
// applied, which differs from delta only when the floor was hit. count is -1
// and applied 0 when id is not in the list (membership is still updated).
func (s *State) PatchLike(id string, liked bool, delta int) (count, applied int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if liked {
		s.liked[id] = struct{}{}
	} else {
		delete(s.liked, id)
	}

	pos, ok := s.index[id]
	if !ok {
		return -1, 0
	}
	prev := s.stories[pos].LikeCount
	n := max(prev+delta, 0)
	s.stories[pos].LikeCount = n
	return n, n - prev
}

// Remove drops id from the list and the liked set.
func (s *State) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.liked, id)
	pos, ok := s.index[id]
	if !ok {
		return
	}
	s.stories = slices.Delete(s.stories, pos, pos+1)
	s.reindexLocked()
}

func (s *State) reindexLocked() {
	s.index = make(map[string]int, len(s.stories))
	for i, st := range s.stories {
		s.index[st.ID] = i
	}
}
