package models

// Relation names in the remote store.
const (
	RelStories       = "stories"
	RelProfiles      = "profiles"
	RelStoryLikes    = "story_likes"
	RelComments      = "story_comments"
	RelNotifications = "notifications"
)
