package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/parlo-ai/parlo/internal/common"
	"github.com/parlo-ai/parlo/internal/interfaces"
	"github.com/parlo-ai/parlo/internal/models"
	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
)

var (
	// ErrInvalidCredentials is returned for a wrong email/password pair.
	// The same error covers unknown emails so callers cannot probe accounts.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrEmailTaken is returned when registering an email that already exists
	ErrEmailTaken = errors.New("email is already registered")

	// ErrSessionInvalid is returned for missing, unknown, or expired sessions
	ErrSessionInvalid = errors.New("session is invalid or expired")
)

// Service manages user registration, login, and session verification
type Service struct {
	users    interfaces.UserStorage
	sessions interfaces.SessionStorage
	config   *common.SessionsConfig
	logger   arbor.ILogger
	cron     *cron.Cron
}

// NewService creates a new accounts service
func NewService(
	users interfaces.UserStorage,
	sessions interfaces.SessionStorage,
	config *common.SessionsConfig,
	logger arbor.ILogger,
) *Service {
	return &Service{
		users:    users,
		sessions: sessions,
		config:   config,
		logger:   logger,
	}
}

// Register creates a new user account
func (s *Service) Register(ctx context.Context, email, password, name string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, fmt.Errorf("email and password are required")
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("password must be at least 8 characters")
	}

	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if err != interfaces.ErrNotFound {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:           common.NewUserID(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.SaveUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to save user: %w", err)
	}

	s.logger.Info().Str("user_id", user.ID).Msg("User registered")
	return user, nil
}

// Login verifies credentials and issues a new session.
// Returns the raw bearer token, which is never persisted.
func (s *Service) Login(ctx context.Context, email, password, ip, userAgent string) (*models.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.GetUserByEmail(ctx, email)
	if err == interfaces.ErrNotFound {
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to look up user: %w", err)
	}

	ok, err := VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, "", fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		return nil, "", ErrInvalidCredentials
	}

	pair, err := generateSessionToken()
	if err != nil {
		return nil, "", err
	}

	now := time.Now().UTC()
	session := &models.Session{
		ID:        common.NewSessionID(),
		UserID:    user.ID,
		TokenHash: pair.Hash,
		IP:        ip,
		UserAgent: userAgent,
		ExpiresAt: now.Add(s.config.TTL),
		CreatedAt: now,
	}

	if err := s.sessions.SaveSession(ctx, session); err != nil {
		return nil, "", fmt.Errorf("failed to save session: %w", err)
	}

	s.logger.Debug().Str("user_id", user.ID).Msg("Session issued")
	return user, pair.Token, nil
}

// Verify resolves a bearer token to its user, rejecting expired sessions
func (s *Service) Verify(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrSessionInvalid
	}

	session, err := s.sessions.GetSessionByTokenHash(ctx, hashToken(token))
	if err == interfaces.ErrNotFound {
		return nil, ErrSessionInvalid
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up session: %w", err)
	}

	if session.Expired(time.Now().UTC()) {
		// Best-effort cleanup; the sweeper catches anything missed
		_ = s.sessions.DeleteSession(ctx, session.ID)
		return nil, ErrSessionInvalid
	}

	user, err := s.users.GetUser(ctx, session.UserID)
	if err == interfaces.ErrNotFound {
		return nil, ErrSessionInvalid
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up session user: %w", err)
	}

	return user, nil
}

// Logout destroys the session for a bearer token
func (s *Service) Logout(ctx context.Context, token string) error {
	session, err := s.sessions.GetSessionByTokenHash(ctx, hashToken(token))
	if err == interfaces.ErrNotFound {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up session: %w", err)
	}
	return s.sessions.DeleteSession(ctx, session.ID)
}

// StartSweeper schedules periodic removal of expired sessions
func (s *Service) StartSweeper() error {
	if s.config.SweepSchedule == "" {
		return nil
	}

	c := cron.New()
	_, err := c.AddFunc(s.config.SweepSchedule, func() {
		count, err := s.sessions.DeleteExpiredSessions(context.Background(), time.Now().UTC())
		if err != nil {
			s.logger.Warn().Err(err).Msg("Session sweep failed")
			return
		}
		if count > 0 {
			s.logger.Debug().Int("count", count).Msg("Purged expired sessions")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule session sweeper: %w", err)
	}

	c.Start()
	s.cron = c
	s.logger.Debug().Str("schedule", s.config.SweepSchedule).Msg("Session sweeper started")
	return nil
}

// Stop halts the session sweeper
func (s *Service) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}
