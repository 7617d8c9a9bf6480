package interfaces

import (
	"context"
	"errors"
	"time"

	"github.com/parlo-ai/parlo/internal/models"
)

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = errors.New("not found")

// ErrKeyNotFound is returned when a key/value pair does not exist
var ErrKeyNotFound = errors.New("key not found")

// KeyValuePair represents a stored key/value entry
type KeyValuePair struct {
	Key         string    `json:"key" badgerhold:"key"`
	Value       string    `json:"value"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// UserStorage defines persistence operations for users
type UserStorage interface {
	SaveUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	DeleteUser(ctx context.Context, id string) error
}

// SessionStorage defines persistence operations for login sessions
type SessionStorage interface {
	SaveSession(ctx context.Context, session *models.Session) error
	GetSessionByTokenHash(ctx context.Context, tokenHash string) (*models.Session, error)
	DeleteSession(ctx context.Context, id string) error
	DeleteSessionsForUser(ctx context.Context, userID string) error
	// DeleteExpiredSessions removes sessions expired before now, returning the count
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error)
}

// IntegrationStorage defines persistence operations for integrations.
// At most one integration exists per (user, service) pair; SaveIntegration
// upserts on that pair.
type IntegrationStorage interface {
	SaveIntegration(ctx context.Context, integration *models.Integration) error
	GetIntegration(ctx context.Context, id string) (*models.Integration, error)
	GetIntegrationByService(ctx context.Context, userID, serviceName string) (*models.Integration, error)
	ListIntegrations(ctx context.Context, userID string) ([]*models.Integration, error)
	DeleteIntegration(ctx context.Context, id string) error
}

// AgentStorage defines persistence operations for voice agents
type AgentStorage interface {
	SaveAgent(ctx context.Context, agent *models.Agent) error
	GetAgent(ctx context.Context, id string) (*models.Agent, error)
	GetAgentByAssistantID(ctx context.Context, assistantID string) (*models.Agent, error)
	ListAgents(ctx context.Context, userID string) ([]*models.Agent, error)
	DeleteAgent(ctx context.Context, id string) error
}

// CallStorage defines persistence operations for call records
type CallStorage interface {
	SaveCall(ctx context.Context, call *models.Call) error
	GetCall(ctx context.Context, id string) (*models.Call, error)
	GetCallByPlatformID(ctx context.Context, platformCallID string) (*models.Call, error)
	ListCalls(ctx context.Context, userID string) ([]*models.Call, error)
	DeleteCall(ctx context.Context, id string) error
}

// KeyValueStorage defines operations for generic key/value settings
type KeyValueStorage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, description string) error
	Delete(ctx context.Context, key string) error
	GetAll(ctx context.Context) (map[string]string, error)
}

// StorageManager aggregates all storage interfaces
type StorageManager interface {
	UserStorage() UserStorage
	SessionStorage() SessionStorage
	IntegrationStorage() IntegrationStorage
	AgentStorage() AgentStorage
	CallStorage() CallStorage
	KeyValueStorage() KeyValueStorage
	Close() error
}
