// ABOUTME: Authenticator verifies a bearer credential and resolves the user record
// ABOUTME: A nil user result is the single "authentication failed" signal for callers

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/chambee/comm-relay/internal/store"
)

// UserStore defines what the authenticator needs from storage
type UserStore interface {
	GetUser(ctx context.Context, id int64) (*store.User, error)
}

// Authenticator verifies credentials and loads the matching user record.
type Authenticator struct {
	verifier TokenVerifier
	users    UserStore
	logger   *slog.Logger
}

// NewAuthenticator creates an Authenticator. Pass nil logger for default.
func NewAuthenticator(verifier TokenVerifier, users UserStore, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{
		verifier: verifier,
		users:    users,
		logger:   logger.With("component", "auth"),
	}
}

// Authenticate verifies the credential and returns the user record it names.
// Any failure — bad signature, expiry, unknown user — returns a nil user;
// callers treat that uniformly as authentication failure.
func (a *Authenticator) Authenticate(ctx context.Context, credential string) (*store.User, error) {
	if credential == "" {
		return nil, ErrInvalidToken
	}

	userID, err := a.verifier.Verify(credential)
	if err != nil {
		a.logger.Debug("credential rejected", "error", err)
		return nil, err
	}

	user, err := a.users.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			a.logger.Debug("credential names unknown user", "user_id", userID)
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	return user, nil
}
