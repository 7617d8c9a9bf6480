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

// SessionStorage implements the SessionStorage interface for Badger
type SessionStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewSessionStorage creates a new SessionStorage instance
func NewSessionStorage(db *BadgerDB, logger arbor.ILogger) interfaces.SessionStorage {
	return &SessionStorage{
		db:     db,
		logger: logger,
	}
}

func (s *SessionStorage) SaveSession(ctx context.Context, session *models.Session) error {
	if session.ID == "" {
		return fmt.Errorf("session ID is required")
	}
	if err := s.db.Store().Upsert(session.ID, session); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (s *SessionStorage) GetSessionByTokenHash(ctx context.Context, tokenHash string) (*models.Session, error) {
	var sessions []models.Session
	if err := s.db.Store().Find(&sessions, badgerhold.Where("TokenHash").Eq(tokenHash)); err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}
	if len(sessions) == 0 {
		return nil, interfaces.ErrNotFound
	}
	return &sessions[0], nil
}

func (s *SessionStorage) DeleteSession(ctx context.Context, id string) error {
	if err := s.db.Store().Delete(id, &models.Session{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (s *SessionStorage) DeleteSessionsForUser(ctx context.Context, userID string) error {
	if err := s.db.Store().DeleteMatching(&models.Session{}, badgerhold.Where("UserID").Eq(userID)); err != nil {
		return fmt.Errorf("failed to delete sessions for user: %w", err)
	}
	return nil
}

func (s *SessionStorage) DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error) {
	var expired []models.Session
	if err := s.db.Store().Find(&expired, badgerhold.Where("ExpiresAt").Lt(now)); err != nil {
		return 0, fmt.Errorf("failed to list expired sessions: %w", err)
	}

	for _, session := range expired {
		if err := s.db.Store().Delete(session.ID, &models.Session{}); err != nil {
			s.logger.Warn().Str("id", session.ID).Err(err).Msg("Failed to delete expired session")
		}
	}

	return len(expired), nil
}
