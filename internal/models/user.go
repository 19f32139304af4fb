package models

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// EarlyAdopterCutoff is the account-creation instant before which a profile
// earns the early adopter badge.
var EarlyAdopterCutoff = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

// Profile is a row of the profiles relation. Its id is the user id.
type Profile struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	AvatarURL   *string   `json:"avatar_url"`
	IsAdmin     bool      `json:"is_admin"`
	LikesPublic bool      `json:"likes_public"`
	CreatedAt   time.Time `json:"created_at"`
}

// AuthorProfile is the slice of a profile embedded into a story for display.
// AvatarURL and CreatedAt are nil when nothing could be resolved.
type AuthorProfile struct {
	AvatarURL *string    `json:"avatar_url"`
	IsAdmin   bool       `json:"is_admin"`
	CreatedAt *time.Time `json:"created_at"`
}

// IsEarlyAdopter reports whether the account predates EarlyAdopterCutoff.
func (p AuthorProfile) IsEarlyAdopter() bool {
	return p.CreatedAt != nil && p.CreatedAt.Before(EarlyAdopterCutoff)
}

// ToAuthorProfile projects the fields a story row embeds.
func (p Profile) ToAuthorProfile() AuthorProfile {
	out := AuthorProfile{AvatarURL: p.AvatarURL, IsAdmin: p.IsAdmin}
	if !p.CreatedAt.IsZero() {
		created := p.CreatedAt
		out.CreatedAt = &created
	}
	return out
}

// Viewer is the authenticated user the client acts for.
type Viewer struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// JwtCustomClaims are custom claims extending standard jwt.RegisteredClaims
type JwtCustomClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}
