package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEvaluateTokenState(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	margin := TokenExpiryMargin.Milliseconds()

	tests := []struct {
		name            string
		expiresAtMillis int64
		hasRefreshToken bool
		want            TokenState
	}{
		{"fresh token", now.UnixMilli() + 2*margin, true, TokenStateValid},
		{"fresh token without refresh token", now.UnixMilli() + 2*margin, false, TokenStateValid},
		{"one millisecond outside the margin", now.UnixMilli() + margin + 1, true, TokenStateValid},
		{"exactly on the margin", now.UnixMilli() + margin, true, TokenStateExpiring},
		{"inside the margin", now.UnixMilli() + margin/2, true, TokenStateExpiring},
		{"already expired", now.UnixMilli() - 1000, true, TokenStateExpiring},
		{"no recorded expiry", 0, true, TokenStateExpiring},
		{"expired without refresh token", now.UnixMilli() - 1000, false, TokenStateInvalid},
		{"no recorded expiry without refresh token", 0, false, TokenStateInvalid},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, EvaluateTokenState(now, tc.expiresAtMillis, tc.hasRefreshToken))
		})
	}
}
