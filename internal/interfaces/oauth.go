package interfaces

import (
	"context"

	"github.com/parlo-ai/parlo/internal/models"
)

// TokenInfo is the cached token view returned without forcing a refresh
type TokenInfo struct {
	AccessToken string   `json:"access_token"`
	TokenType   string   `json:"token_type"`
	ExpiresAt   int64    `json:"expires_at"` // unix milliseconds UTC
	Scopes      []string `json:"scopes"`
	UserEmail   string   `json:"user_email"`
}

// TokenManager manages the OAuth token lifecycle for user integrations.
// All failures are returned as errors, never panics; absence of an
// integration is reported distinctly from a failed refresh.
type TokenManager interface {
	// AuthCodeURL builds the provider authorization URL with a signed,
	// time-boxed state carrying the user id.
	AuthCodeURL(userID string) (string, error)

	// HandleCallback exchanges the authorization code and upserts the
	// user's integration row.
	HandleCallback(ctx context.Context, code, state string) (*models.Integration, error)

	// GetValidAccessToken returns a usable access token for the user,
	// refreshing synchronously only when the cached token is inside the
	// expiry margin.
	GetValidAccessToken(ctx context.Context, userID string) (string, error)

	// Refresh performs a synchronous token refresh for the integration
	// and persists the updated credential and metadata together.
	Refresh(ctx context.Context, integrationID string) (*models.Integration, error)

	// TokenInfo returns the cached token metadata without network calls.
	TokenInfo(ctx context.Context, userID string) (*TokenInfo, error)
}
