package models

import "time"

// Agent represents a configured voice assistant owned by a user.
// AssistantID is the remote identifier on the voice platform.
type Agent struct {
	ID           string                 `json:"id" badgerhold:"key"`
	UserID       string                 `json:"user_id" badgerhold:"index"`
	AssistantID  string                 `json:"assistant_id" badgerhold:"index"`
	Name         string                 `json:"name"`
	FirstMessage string                 `json:"first_message,omitempty"`
	SystemPrompt string                 `json:"system_prompt,omitempty"`
	// PhoneNumber is the human transfer target offered to callers
	PhoneNumber string                 `json:"phone_number,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}
