package models

import "time"

// Category is one of the fixed story categories.
type Category string

const (
	CategoryFiction Category = "fiction"
	CategoryPoetry  Category = "poetry"
	CategoryMemoir  Category = "memoir"
	CategoryHumor   Category = "humor"
	CategoryOther   Category = "other"
)

// Categories lists every valid category in display order.
var Categories = []Category{CategoryFiction, CategoryPoetry, CategoryMemoir, CategoryHumor, CategoryOther}

// Normalize maps unknown or empty values to CategoryOther.
func (c Category) Normalize() Category {
	for _, known := range Categories {
		if c == known {
			return c
		}
	}
	return CategoryOther
}

// Story is a feed entry as held by the client. LikeCount and CommentCount
// mirror the store's counters; the only local change ever applied to them is
// a pending optimistic like delta.
type Story struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	Body         string        `json:"body"`
	CoverURL     *string       `json:"cover_url"`
	LikeCount    int           `json:"like_count"`
	CommentCount int           `json:"comment_count"`
	CreatedAt    time.Time     `json:"created_at"`
	AuthorID     string        `json:"author_id"`
	AuthorName   string        `json:"author_name"`
	Category     Category      `json:"category"`
	Profiles     AuthorProfile `json:"profiles"`
}

// StorySummary is the part of a story shown next to a notification.
type StorySummary struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	CoverURL *string `json:"cover_url"`
}

// FeedQuery narrows the cached feed to one category.
type FeedQuery struct {
	Category string `query:"category" validate:"omitempty,oneof=fiction poetry memoir humor other"`
}
