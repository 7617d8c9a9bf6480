package handlers

import (
	"context"
	"net/http"

	"github.com/parlo-ai/parlo/internal/models"
)

// SessionCookieName is the cookie carrying the session token for browser
// clients. API clients use the Authorization header instead.
const SessionCookieName = "parlo_session"

type contextKey string

const userContextKey contextKey = "authenticated_user"

// WithUser attaches the authenticated user to the request context
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFrom returns the authenticated user, or nil when unauthenticated
func UserFrom(ctx context.Context) *models.User {
	user, _ := ctx.Value(userContextKey).(*models.User)
	return user
}

// RequireUser returns the authenticated user, writing a 401 when absent
func RequireUser(w http.ResponseWriter, r *http.Request) *models.User {
	user := UserFrom(r.Context())
	if user == nil {
		WriteError(w, http.StatusUnauthorized, "Authentication required")
		return nil
	}
	return user
}
