package utils

import (
	"context"
	"errors"

	"tradejournal/internal/models"
)

// Key type for context values
type contextKey string

const currentUserKey contextKey = "currentUser"

// ErrNoUser is returned when no authenticated user is attached to a context.
var ErrNoUser = errors.New("no authenticated user in context")

// CurrentUser extracts the authenticated user from the context.
func CurrentUser(ctx context.Context) (models.User, error) {
	user, ok := ctx.Value(currentUserKey).(models.User)
	if !ok {
		return models.User{}, ErrNoUser
	}
	return user, nil
}

// WithCurrentUser attaches the authenticated user to the context.
func WithCurrentUser(ctx context.Context, user models.User) context.Context {
	return context.WithValue(ctx, currentUserKey, user)
}
