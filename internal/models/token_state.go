package models

import "time"

// TokenState classifies a stored OAuth token at a point in time
type TokenState string

const (
	// TokenStateUnconnected means no integration row exists for the user
	TokenStateUnconnected TokenState = "unconnected"
	// TokenStateValid means the cached access token is usable without a refresh
	TokenStateValid TokenState = "valid"
	// TokenStateExpiring means the token is inside the safety margin or past
	// expiry and a refresh token is available
	TokenStateExpiring TokenState = "expiring"
	// TokenStateInvalid means the token is expired or expiring and no refresh
	// token exists to recover it
	TokenStateInvalid TokenState = "invalid"
)

// TokenExpiryMargin is the safety window before expiry within which a token
// is treated as expiring. Fixed at five minutes; not configurable.
const TokenExpiryMargin = 5 * time.Minute

// EvaluateTokenState derives the token state from the cached expiry.
// expiresAtMillis is unix milliseconds UTC; zero means no expiry recorded,
// which is treated as expiring so a refresh establishes a real expiry.
func EvaluateTokenState(now time.Time, expiresAtMillis int64, hasRefreshToken bool) TokenState {
	threshold := now.UnixMilli() + TokenExpiryMargin.Milliseconds()
	if expiresAtMillis > threshold {
		return TokenStateValid
	}
	if hasRefreshToken {
		return TokenStateExpiring
	}
	return TokenStateInvalid
}
