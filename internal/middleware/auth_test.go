package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/anonto42/storyshare/backend/internal/models"
	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func sign(t *testing.T, key string, claims *models.JwtCustomClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	require.NoError(t, err)
	return s
}

func validClaims() *models.JwtCustomClaims {
	return &models.JwtCustomClaims{
		UserID: "u1",
		Email:  "ada@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func serve(mw echo.MiddlewareFunc, header string) *httptest.ResponseRecorder {
	e := echo.New()
	e.GET("/", func(c echo.Context) error {
		v := ViewerFrom(c)
		if v == nil {
			return c.String(http.StatusOK, "anonymous")
		}
		return c.String(http.StatusOK, v.ID+" "+v.Email)
	}, mw)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, header)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRequireAuth(t *testing.T) {
	v := NewJWTVerifier(secret)
	expired := validClaims()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
	subjectOnly := validClaims()
	subjectOnly.UserID = ""
	subjectOnly.Subject = "u9"

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{"valid", "Bearer " + sign(t, secret, validClaims()), http.StatusOK, "u1 ada@example.com"},
		{"subject fallback", "Bearer " + sign(t, secret, subjectOnly), http.StatusOK, "u9 ada@example.com"},
		{"missing header", "", http.StatusUnauthorized, ""},
		{"not bearer", "Token abc", http.StatusUnauthorized, ""},
		{"wrong secret", "Bearer " + sign(t, "other", validClaims()), http.StatusUnauthorized, ""},
		{"expired", "Bearer " + sign(t, secret, expired), http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(RequireAuth(v), tt.header)
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	v := NewJWTVerifier(secret)

	rec := serve(OptionalAuth(v), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "anonymous", rec.Body.String())

	rec = serve(OptionalAuth(v), "Bearer "+sign(t, secret, validClaims()))
	assert.Equal(t, "u1 ada@example.com", rec.Body.String())

	rec = serve(OptionalAuth(v), "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

type fakeIDTokens map[string]*auth.Token

func (f fakeIDTokens) VerifyIDToken(_ context.Context, idToken string) (*auth.Token, error) {
	if tok, ok := f[idToken]; ok {
		return tok, nil
	}
	return nil, errors.New("id token has expired")
}

func TestFirebaseVerifier(t *testing.T) {
	v := &FirebaseVerifier{client: fakeIDTokens{
		"good": {UID: "fb-1", Claims: map[string]interface{}{"email": "bo@example.com"}},
	}}

	rec := serve(RequireAuth(v), "Bearer good")
	assert.Equal(t, "fb-1 bo@example.com", rec.Body.String())

	rec = serve(RequireAuth(v), "Bearer bad")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
