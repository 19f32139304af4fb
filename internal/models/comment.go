package models

import "time"

// Comment is a row of the story_comments relation together with the
// commenter's display data.
type Comment struct {
	ID        string    `json:"id"`
	StoryID   string    `json:"story_id"`
	UserID    string    `json:"user_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	Author    Commenter `json:"author"`
}

// Commenter is the display projection of a comment's author.
type Commenter struct {
	DisplayName string  `json:"display_name"`
	AvatarURL   *string `json:"avatar_url"`
}

// CreateCommentRequest defines the request body for adding a comment
type CreateCommentRequest struct {
	Text string `json:"text" validate:"required,notblank,max=1000"`
}
