// ABOUTME: Request-context helpers for carrying the authenticated user
// ABOUTME: WithUser/FromContext pattern shared by HTTP middleware and handlers

package auth

import (
	"context"

	"github.com/chambee/comm-relay/internal/store"
)

type contextKey struct{}

// WithUser returns a context carrying the authenticated user.
func WithUser(ctx context.Context, user *store.User) context.Context {
	return context.WithValue(ctx, contextKey{}, user)
}

// FromContext returns the authenticated user, or nil if the request was not
// authenticated.
func FromContext(ctx context.Context) *store.User {
	user, _ := ctx.Value(contextKey{}).(*store.User)
	return user
}
