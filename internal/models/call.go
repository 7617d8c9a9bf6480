package models

import "time"

// CallStatus tracks the lifecycle of an outbound or inbound call
type CallStatus string

const (
	CallStatusQueued     CallStatus = "queued"
	CallStatusInProgress CallStatus = "in_progress"
	CallStatusEnded      CallStatus = "ended"
	CallStatusFailed     CallStatus = "failed"
)

// Call represents a call placed through the voice platform
type Call struct {
	ID             string     `json:"id" badgerhold:"key"`
	UserID         string     `json:"user_id" badgerhold:"index"`
	AgentID        string     `json:"agent_id" badgerhold:"index"`
	PlatformCallID string     `json:"platform_call_id" badgerhold:"index"`
	CustomerNumber string     `json:"customer_number"`
	Status         CallStatus `json:"status"`
	Summary        string     `json:"summary,omitempty"`
	Transcript     string     `json:"transcript,omitempty"`
	EndedReason    string     `json:"ended_reason,omitempty"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	EndedAt        *time.Time `json:"ended_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}
