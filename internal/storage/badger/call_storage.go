package badger

import (
	"context"
	"fmt"

	"github.com/parlo-ai/parlo/internal/interfaces"
	"github.com/parlo-ai/parlo/internal/models"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"
)

// CallStorage implements the CallStorage interface for Badger
type CallStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewCallStorage creates a new CallStorage instance
func NewCallStorage(db *BadgerDB, logger arbor.ILogger) interfaces.CallStorage {
	return &CallStorage{
		db:     db,
		logger: logger,
	}
}

func (s *CallStorage) SaveCall(ctx context.Context, call *models.Call) error {
	if call.ID == "" {
		return fmt.Errorf("call ID is required")
	}
	if err := s.db.Store().Upsert(call.ID, call); err != nil {
		return fmt.Errorf("failed to save call: %w", err)
	}
	return nil
}

func (s *CallStorage) GetCall(ctx context.Context, id string) (*models.Call, error) {
	var call models.Call
	if err := s.db.Store().Get(id, &call); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get call: %w", err)
	}
	return &call, nil
}

func (s *CallStorage) GetCallByPlatformID(ctx context.Context, platformCallID string) (*models.Call, error) {
	var calls []models.Call
	if err := s.db.Store().Find(&calls, badgerhold.Where("PlatformCallID").Eq(platformCallID)); err != nil {
		return nil, fmt.Errorf("failed to query call by platform ID: %w", err)
	}
	if len(calls) == 0 {
		return nil, interfaces.ErrNotFound
	}
	return &calls[0], nil
}

func (s *CallStorage) ListCalls(ctx context.Context, userID string) ([]*models.Call, error) {
	var calls []models.Call
	query := badgerhold.Where("UserID").Eq(userID).SortBy("CreatedAt").Reverse()
	if err := s.db.Store().Find(&calls, query); err != nil {
		return nil, fmt.Errorf("failed to list calls: %w", err)
	}

	result := make([]*models.Call, len(calls))
	for i := range calls {
		result[i] = &calls[i]
	}
	return result, nil
}

func (s *CallStorage) DeleteCall(ctx context.Context, id string) error {
	if err := s.db.Store().Delete(id, &models.Call{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return fmt.Errorf("failed to delete call: %w", err)
	}
	return nil
}
