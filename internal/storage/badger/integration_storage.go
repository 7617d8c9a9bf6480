package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/parlo-ai/parlo/internal/interfaces"
	"github.com/parlo-ai/parlo/internal/models"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"
)

// IntegrationStorage implements the IntegrationStorage interface for Badger
type IntegrationStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewIntegrationStorage creates a new IntegrationStorage instance
func NewIntegrationStorage(db *BadgerDB, logger arbor.ILogger) interfaces.IntegrationStorage {
	return &IntegrationStorage{
		db:     db,
		logger: logger,
	}
}

// SaveIntegration upserts an integration. The (user, service) pair is unique:
// when a row already exists for the pair, the save reuses its ID and
// CreatedAt so callers can treat this as the single upsert path.
func (s *IntegrationStorage) SaveIntegration(ctx context.Context, integration *models.Integration) error {
	if integration.UserID == "" || integration.ServiceName == "" {
		return fmt.Errorf("integration user ID and service name are required")
	}

	existing, err := s.GetIntegrationByService(ctx, integration.UserID, integration.ServiceName)
	if err != nil && err != interfaces.ErrNotFound {
		return fmt.Errorf("failed to check existing integration: %w", err)
	}
	if existing != nil {
		integration.ID = existing.ID
		integration.CreatedAt = existing.CreatedAt
	}
	if integration.ID == "" {
		return fmt.Errorf("integration ID is required")
	}

	integration.UpdatedAt = time.Now().UTC()
	if integration.CreatedAt.IsZero() {
		integration.CreatedAt = integration.UpdatedAt
	}

	if err := s.db.Store().Upsert(integration.ID, integration); err != nil {
		return fmt.Errorf("failed to save integration: %w", err)
	}
	return nil
}

func (s *IntegrationStorage) GetIntegration(ctx context.Context, id string) (*models.Integration, error) {
	var integration models.Integration
	if err := s.db.Store().Get(id, &integration); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get integration: %w", err)
	}
	return &integration, nil
}

func (s *IntegrationStorage) GetIntegrationByService(ctx context.Context, userID, serviceName string) (*models.Integration, error) {
	var integrations []models.Integration
	query := badgerhold.Where("UserID").Eq(userID).And("ServiceName").Eq(serviceName)
	if err := s.db.Store().Find(&integrations, query); err != nil {
		return nil, fmt.Errorf("failed to query integration: %w", err)
	}
	if len(integrations) == 0 {
		return nil, interfaces.ErrNotFound
	}
	return &integrations[0], nil
}

func (s *IntegrationStorage) ListIntegrations(ctx context.Context, userID string) ([]*models.Integration, error) {
	var integrations []models.Integration
	query := badgerhold.Where("UserID").Eq(userID).SortBy("CreatedAt").Reverse()
	if err := s.db.Store().Find(&integrations, query); err != nil {
		return nil, fmt.Errorf("failed to list integrations: %w", err)
	}

	result := make([]*models.Integration, len(integrations))
	for i := range integrations {
		result[i] = &integrations[i]
	}
	return result, nil
}

func (s *IntegrationStorage) DeleteIntegration(ctx context.Context, id string) error {
	if err := s.db.Store().Delete(id, &models.Integration{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return fmt.Errorf("failed to delete integration: %w", err)
	}
	return nil
}
