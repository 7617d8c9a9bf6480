package badger

import (
	"context"
	"fmt"

	"github.com/parlo-ai/parlo/internal/interfaces"
	"github.com/parlo-ai/parlo/internal/models"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"
)

// AgentStorage implements the AgentStorage interface for Badger
type AgentStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewAgentStorage creates a new AgentStorage instance
func NewAgentStorage(db *BadgerDB, logger arbor.ILogger) interfaces.AgentStorage {
	return &AgentStorage{
		db:     db,
		logger: logger,
	}
}

func (s *AgentStorage) SaveAgent(ctx context.Context, agent *models.Agent) error {
	if agent.ID == "" {
		return fmt.Errorf("agent ID is required")
	}
	if err := s.db.Store().Upsert(agent.ID, agent); err != nil {
		return fmt.Errorf("failed to save agent: %w", err)
	}
	return nil
}

func (s *AgentStorage) GetAgent(ctx context.Context, id string) (*models.Agent, error) {
	var agent models.Agent
	if err := s.db.Store().Get(id, &agent); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get agent: %w", err)
	}
	return &agent, nil
}

func (s *AgentStorage) GetAgentByAssistantID(ctx context.Context, assistantID string) (*models.Agent, error) {
	var agents []models.Agent
	if err := s.db.Store().Find(&agents, badgerhold.Where("AssistantID").Eq(assistantID)); err != nil {
		return nil, fmt.Errorf("failed to query agent by assistant ID: %w", err)
	}
	if len(agents) == 0 {
		return nil, interfaces.ErrNotFound
	}
	return &agents[0], nil
}

func (s *AgentStorage) ListAgents(ctx context.Context, userID string) ([]*models.Agent, error) {
	var agents []models.Agent
	query := badgerhold.Where("UserID").Eq(userID).SortBy("CreatedAt").Reverse()
	if err := s.db.Store().Find(&agents, query); err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}

	result := make([]*models.Agent, len(agents))
	for i := range agents {
		result[i] = &agents[i]
	}
	return result, nil
}

func (s *AgentStorage) DeleteAgent(ctx context.Context, id string) error {
	if err := s.db.Store().Delete(id, &models.Agent{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return fmt.Errorf("failed to delete agent: %w", err)
	}
	return nil
}
