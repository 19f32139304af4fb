package models

import "time"

// StoryLike is a row of the story_likes relation. At most one row exists per
// (UserID, StoryID) pair.
type StoryLike struct {
	UserID    string    `json:"user_id"`
	StoryID   string    `json:"story_id"`
	CreatedAt time.Time `json:"created_at"`
}

// LikeState is the viewer's local view of one story's like after a toggle.
// Ignored is set when the press was dropped because an earlier toggle for
// the same story was still in flight.
type LikeState struct {
	StoryID   string `json:"story_id"`
	Liked     bool   `json:"liked"`
	LikeCount int    `json:"like_count"`
	Ignored   bool   `json:"ignored"`
}
