// Package firebase builds the Firebase admin client that verifies ID tokens
// when the server runs with AUTH_MODE=firebase.
package firebase

import (
	"context"
	"errors"
	"fmt"
	"os"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// ErrNoCredentials is returned when no service account file is configured.
var ErrNoCredentials = errors.New("firebase credentials path not provided")

// App holds the Firebase app and the auth client token verification uses.
type App struct {
	FirebaseApp *firebase.App
	AuthClient  *auth.Client
}

// InitFirebase loads the service account at credentialsPath and opens the
// auth client.
func InitFirebase(ctx context.Context, credentialsPath string, logger *zap.Logger) (*App, error) {
	opt, err := credentials(credentialsPath)
	if err != nil {
		return nil, err
	}

	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open Firebase auth client: %w", err)
	}

	logger.Info("Firebase auth client ready", zap.String("credentials", credentialsPath))
	return &App{FirebaseApp: app, AuthClient: authClient}, nil
}

func credentials(path string) (option.ClientOption, error) {
	if path == "" {
		return nil, ErrNoCredentials
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to read Firebase credentials %s: %w", path, err)
	}
	return option.WithCredentialsFile(path), nil
}
