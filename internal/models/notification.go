package models

import "time"

// NotificationType is the kind of interaction that produced a notification.
type NotificationType string

const (
	NotificationLike    NotificationType = "like"
	NotificationComment NotificationType = "comment"
)

// Notification is a row of the notifications relation.
type Notification struct {
	ID          string           `json:"id"`
	RecipientID string           `json:"recipient_id"`
	ActorID     string           `json:"actor_id"`
	Type        NotificationType `json:"type"`
	StoryID     string           `json:"story_id"`
	Read        bool             `json:"read"`
	CreatedAt   time.Time        `json:"created_at"`
}

// NotificationView is a notification enriched with the actor and story it
// refers to. Story is nil when the story no longer exists.
type NotificationView struct {
	Notification
	Actor Commenter     `json:"actor"`
	Story *StorySummary `json:"story"`
}
