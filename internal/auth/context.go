package auth

import (
	"context"

	"github.com/starford/resummarize/internal/apperr"
	"github.com/starford/resummarize/internal/models"
)

type ctxKey struct{}

// WithUser returns a context carrying the authenticated user.
func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// UserFromContext returns the authenticated user, if any.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(ctxKey{}).(*models.User)
	return u, ok && u != nil
}

// UserID returns the authenticated user's id or apperr.ErrNotAuthenticated.
func UserID(ctx context.Context) (string, error) {
	u, ok := UserFromContext(ctx)
	if !ok || u.ID == "" {
		return "", apperr.ErrNotAuthenticated
	}
	return u.ID, nil
}
