package middleware

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/auth"
	"github.com/anonto42/storyshare/backend/internal/models"
)

// idTokenVerifier is the part of *auth.Client the verifier uses.
type idTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// FirebaseVerifier accepts Firebase ID tokens. The Firebase UID is the
// viewer's user id.
type FirebaseVerifier struct {
	client idTokenVerifier
}

// NewFirebaseVerifier creates a FirebaseVerifier over authClient.
func NewFirebaseVerifier(authClient *auth.Client) *FirebaseVerifier {
	return &FirebaseVerifier{client: authClient}
}

func (v *FirebaseVerifier) Verify(ctx context.Context, idToken string) (*models.Viewer, error) {
	token, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("verify id token: %w", err)
	}
	email, _ := token.Claims["email"].(string)
	return &models.Viewer{ID: token.UID, Email: email}, nil
}
