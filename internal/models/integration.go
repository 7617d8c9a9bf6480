package models

import "time"

// IntegrationStatus describes the lifecycle state of an integration
type IntegrationStatus string

const (
	IntegrationStatusActive   IntegrationStatus = "active"
	IntegrationStatusInactive IntegrationStatus = "inactive"
	IntegrationStatusError    IntegrationStatus = "error"
	IntegrationStatusPending  IntegrationStatus = "pending"
)

// Well-known service names. One integration row exists per (user, service).
const (
	ServiceGoogleOAuth   = "google_oauth"
	ServiceGoogleMaps    = "google_maps"
	ServiceVoicePlatform = "voice_platform"
)

// Metadata keys duplicated from the sealed credential after each token
// refresh so reads can be served without opening the vault.
const (
	MetaAccessToken     = "access_token"
	MetaTokenType       = "token_type"
	MetaExpiresAt       = "expires_at"
	MetaLastRefreshedAt = "last_refreshed_at"
)

// Integration represents a connection between a user and an external service.
// Credential holds the sealed token blob; Metadata carries the denormalized
// token cache (access_token, token_type, expires_at, last_refreshed_at).
type Integration struct {
	ID          string                 `json:"id" badgerhold:"key"`
	UserID      string                 `json:"user_id" badgerhold:"index"`
	ServiceName string                 `json:"service_name" badgerhold:"index"`
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Status      IntegrationStatus      `json:"status"`
	Credential  string                 `json:"-"` // Sealed blob, never serialized to clients
	Config      map[string]interface{} `json:"config,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	LastUsedAt  *time.Time             `json:"last_used_at,omitempty"`
}

// MetaString returns a string metadata value, or "" when absent
func (i *Integration) MetaString(key string) string {
	if i.Metadata == nil {
		return ""
	}
	if v, ok := i.Metadata[key].(string); ok {
		return v
	}
	return ""
}

// MetaInt64 returns an integer metadata value tolerating the numeric types
// produced by JSON decoding and gob round-trips. Returns 0 when absent.
func (i *Integration) MetaInt64(key string) int64 {
	if i.Metadata == nil {
		return 0
	}
	switch v := i.Metadata[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

// SetMeta assigns a metadata value, allocating the map on first use
func (i *Integration) SetMeta(key string, value interface{}) {
	if i.Metadata == nil {
		i.Metadata = make(map[string]interface{})
	}
	i.Metadata[key] = value
}

// TokenPayload is the decoded credential blob for an OAuth integration.
// ExpiresIn is the provider-reported lifetime in seconds; the absolute
// expiry lives in Metadata[MetaExpiresAt] as unix milliseconds.
type TokenPayload struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
}
