package middleware

import (
	"context"
	"errors"
	"fmt"

	"github.com/anonto42/storyshare/backend/internal/models"
	"github.com/golang-jwt/jwt/v4"
)

// JWTVerifier accepts HMAC-signed tokens carrying JwtCustomClaims.
type JWTVerifier struct {
	secret []byte
}

// NewJWTVerifier creates a JWTVerifier for secret.
func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

func (v *JWTVerifier) Verify(_ context.Context, tokenString string) (*models.Viewer, error) {
	claims := &models.JwtCustomClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	userID := claims.UserID
	if userID == "" {
		userID = claims.Subject
	}
	if userID == "" {
		return nil, errors.New("token has no user id")
	}
	return &models.Viewer{ID: userID, Email: claims.Email}, nil
}
