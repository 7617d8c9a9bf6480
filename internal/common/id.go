package common

import (
	"github.com/google/uuid"
)

// NewUserID generates a unique user ID with the "usr_" prefix
func NewUserID() string {
	return "usr_" + uuid.New().String()
}

// NewSessionID generates a unique session ID with the "ses_" prefix
func NewSessionID() string {
	return "ses_" + uuid.New().String()
}

// NewIntegrationID generates a unique integration ID with the "itg_" prefix
func NewIntegrationID() string {
	return "itg_" + uuid.New().String()
}

// NewAgentID generates a unique agent ID with the "agt_" prefix
func NewAgentID() string {
	return "agt_" + uuid.New().String()
}

// NewCallID generates a unique call ID with the "cal_" prefix
func NewCallID() string {
	return "cal_" + uuid.New().String()
}
