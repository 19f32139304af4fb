package feed

import (
	"testing"

	"github.com/anonto42/storyshare/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stories(counts map[string]int, order ...string) []models.Story {
	out := make([]models.Story, len(order))
	for i, id := range order {
		out[i] = models.Story{ID: id, LikeCount: counts[id]}
	}
	return out
}

func TestStateReplaceKeepsInFlightPatch(t *testing.T) {
	s := NewState()
	s.Replace(stories(map[string]int{"a": 1, "b": 5}, "a", "b"), map[string]struct{}{"b": {}})

	require.True(t, s.Acquire("a"))
	n, _ := s.PatchLike("a", true, 1)
	assert.Equal(t, 2, n)

	// A reload that raced the pending like still reports the old values.
	s.Replace(stories(map[string]int{"a": 1, "b": 6, "c": 0}, "c", "a", "b"), map[string]struct{}{})

	got, ok := s.Story("a")
	require.True(t, ok)
	assert.Equal(t, 2, got.LikeCount)
	assert.True(t, s.Liked("a"))

	got, _ = s.Story("b")
	assert.Equal(t, 6, got.LikeCount)
	assert.False(t, s.Liked("b"))

	assert.Equal(t, []string{"a"}, s.LikedByViewer())
	assert.Equal(t, "c", s.Stories()[0].ID)

	s.Release("a")
	s.Replace(stories(map[string]int{"a": 1}, "a"), nil)
	got, _ = s.Story("a")
	assert.Equal(t, 1, got.LikeCount)
	assert.False(t, s.Liked("a"))
}

func TestStateAcquireIsExclusive(t *testing.T) {
	s := NewState()
	assert.True(t, s.Acquire("a"))
	assert.False(t, s.Acquire("a"))
	assert.True(t, s.InFlight("a"))
	s.Release("a")
	assert.False(t, s.InFlight("a"))
	assert.True(t, s.Acquire("a"))
}

func TestStatePatchLike(t *testing.T) {
	s := NewState()
	s.Replace(stories(map[string]int{"a": 0}, "a"), nil)

	n, applied := s.PatchLike("a", false, -1)
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, applied)

	n, applied = s.PatchLike("a", true, 1)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, applied)
	assert.True(t, s.Liked("a"))

	n, applied = s.PatchLike("missing", true, 1)
	assert.Equal(t, -1, n)
	assert.Equal(t, 0, applied)
	assert.True(t, s.Liked("missing"))
}

func TestStateRemoveAndClear(t *testing.T) {
	s := NewState()
	s.Replace(stories(nil, "a", "b", "c"), map[string]struct{}{"b": {}, "c": {}})

	s.Remove("b")
	assert.Len(t, s.Stories(), 2)
	assert.Equal(t, []string{"c"}, s.LikedByViewer())
	got, ok := s.Story("c")
	require.True(t, ok)
	assert.Equal(t, "c", got.ID)

	s.Clear()
	assert.Empty(t, s.Stories())
	assert.Empty(t, s.LikedByViewer())
}

func TestStateStoriesIsACopy(t *testing.T) {
	s := NewState()
	s.Replace(stories(map[string]int{"a": 3}, "a"), nil)

	list := s.Stories()
	list[0].LikeCount = 100

	got, _ := s.Story("a")
	assert.Equal(t, 3, got.LikeCount)
}
