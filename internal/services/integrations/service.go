// -----------------------------------------------------------------------
// Integrations Service - manual integration rows with sealed secrets
// OAuth-backed rows are owned by the oauth service; this covers the rest
// -----------------------------------------------------------------------

package integrations

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/parlo-ai/parlo/internal/common"
	"github.com/parlo-ai/parlo/internal/interfaces"
	"github.com/parlo-ai/parlo/internal/models"
	"github.com/parlo-ai/parlo/internal/services/vault"
	"github.com/ternarybob/arbor"
)

// CreateIntegrationRequest is the payload for creating an integration
type CreateIntegrationRequest struct {
	ServiceName string                 `json:"service_name"`
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Secret      string                 `json:"secret"`
	Config      map[string]interface{} `json:"config"`
}

// UpdateIntegrationRequest is the payload for patching an integration.
// A non-empty Secret replaces the sealed credential and activates the row.
type UpdateIntegrationRequest struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Secret      string                 `json:"secret"`
	Status      string                 `json:"status"`
	Config      map[string]interface{} `json:"config"`
}

// Service manages manually configured integrations
type Service struct {
	storage interfaces.IntegrationStorage
	vault   *vault.Service
	logger  arbor.ILogger
}

// NewService creates a new integrations service
func NewService(storage interfaces.IntegrationStorage, vlt *vault.Service, logger arbor.ILogger) *Service {
	return &Service{
		storage: storage,
		vault:   vlt,
		logger:  logger,
	}
}

// Create stores a new integration row. The secret is sealed before it
// touches disk; the row starts active only when a secret was supplied.
func (s *Service) Create(ctx context.Context, userID string, req *CreateIntegrationRequest) (*models.Integration, error) {
	serviceName := strings.TrimSpace(req.ServiceName)
	if serviceName == "" {
		return nil, fmt.Errorf("service_name is required")
	}

	status := models.IntegrationStatusInactive
	credential := ""
	if req.Secret != "" {
		sealed, err := s.vault.Seal([]byte(req.Secret))
		if err != nil {
			return nil, fmt.Errorf("failed to seal secret: %w", err)
		}
		credential = sealed
		status = models.IntegrationStatusActive
	}

	name := req.Name
	if name == "" {
		name = serviceName
	}

	now := time.Now().UTC()
	integration := &models.Integration{
		ID:          common.NewIntegrationID(),
		UserID:      userID,
		ServiceName: serviceName,
		Name:        name,
		Description: req.Description,
		Status:      status,
		Credential:  credential,
		Config:      req.Config,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.storage.SaveIntegration(ctx, integration); err != nil {
		return nil, fmt.Errorf("failed to save integration: %w", err)
	}

	s.logger.Info().
		Str("integration_id", integration.ID).
		Str("service", serviceName).
		Str("status", string(status)).
		Msg("Integration created")

	return integration, nil
}

// Get returns an integration owned by the user
func (s *Service) Get(ctx context.Context, userID, integrationID string) (*models.Integration, error) {
	integration, err := s.storage.GetIntegration(ctx, integrationID)
	if err != nil {
		return nil, err
	}
	if integration.UserID != userID {
		return nil, interfaces.ErrNotFound
	}
	return integration, nil
}

// List returns all of the user's integrations
func (s *Service) List(ctx context.Context, userID string) ([]*models.Integration, error) {
	return s.storage.ListIntegrations(ctx, userID)
}

// Update patches an integration. Empty fields are left unchanged; a new
// secret reseals the credential and reactivates the row.
func (s *Service) Update(ctx context.Context, userID, integrationID string, req *UpdateIntegrationRequest) (*models.Integration, error) {
	integration, err := s.Get(ctx, userID, integrationID)
	if err != nil {
		return nil, err
	}

	if req.Name != "" {
		integration.Name = req.Name
	}
	if req.Description != "" {
		integration.Description = req.Description
	}
	if req.Config != nil {
		integration.Config = req.Config
	}
	if req.Secret != "" {
		sealed, err := s.vault.Seal([]byte(req.Secret))
		if err != nil {
			return nil, fmt.Errorf("failed to seal secret: %w", err)
		}
		integration.Credential = sealed
		integration.Status = models.IntegrationStatusActive
	}
	if req.Status != "" {
		switch models.IntegrationStatus(req.Status) {
		case models.IntegrationStatusActive, models.IntegrationStatusInactive,
			models.IntegrationStatusError, models.IntegrationStatusPending:
			integration.Status = models.IntegrationStatus(req.Status)
		default:
			return nil, fmt.Errorf("invalid status: %s", req.Status)
		}
	}
	integration.UpdatedAt = time.Now().UTC()

	if err := s.storage.SaveIntegration(ctx, integration); err != nil {
		return nil, fmt.Errorf("failed to save integration: %w", err)
	}
	return integration, nil
}

// Delete removes an integration immediately
func (s *Service) Delete(ctx context.Context, userID, integrationID string) error {
	integration, err := s.Get(ctx, userID, integrationID)
	if err != nil {
		return err
	}
	return s.storage.DeleteIntegration(ctx, integration.ID)
}
