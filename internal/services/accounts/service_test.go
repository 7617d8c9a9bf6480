package accounts

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/parlo-ai/parlo/internal/common"
	"github.com/parlo-ai/parlo/internal/interfaces"
	"github.com/parlo-ai/parlo/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]*models.User)}
}

func (f *fakeUserStore) SaveUser(_ context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *user
	f.users[user.ID] = &copied
	return nil
}

func (f *fakeUserStore) GetUser(_ context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, interfaces.ErrNotFound
}

func (f *fakeUserStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, interfaces.ErrNotFound
}

func (f *fakeUserStore) DeleteUser(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.users, id)
	return nil
}

type fakeSessionStore struct {
	mu       sync.Mutex
	sessions map[string]*models.Session
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[string]*models.Session)}
}

func (f *fakeSessionStore) SaveSession(_ context.Context, session *models.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *session
	f.sessions[session.ID] = &copied
	return nil
}

func (f *fakeSessionStore) GetSessionByTokenHash(_ context.Context, tokenHash string) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.TokenHash == tokenHash {
			copied := *s
			return &copied, nil
		}
	}
	return nil, interfaces.ErrNotFound
}

func (f *fakeSessionStore) DeleteSession(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, id)
	return nil
}

func (f *fakeSessionStore) DeleteSessionsForUser(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, s := range f.sessions {
		if s.UserID == userID {
			delete(f.sessions, id)
		}
	}
	return nil
}

func (f *fakeSessionStore) DeleteExpiredSessions(_ context.Context, now time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for id, s := range f.sessions {
		if s.Expired(now) {
			delete(f.sessions, id)
			count++
		}
	}
	return count, nil
}

func newTestAccounts(t *testing.T) (*Service, *fakeUserStore, *fakeSessionStore) {
	t.Helper()
	users := newFakeUserStore()
	sessions := newFakeSessionStore()
	config := &common.SessionsConfig{TTL: time.Hour}
	return NewService(users, sessions, config, arbor.NewLogger()), users, sessions
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _, _ := newTestAccounts(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "Alice@Example.com", "password123", "Alice")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.NotEmpty(t, user.PasswordHash)

	loggedIn, token, err := svc.Login(ctx, "alice@example.com", "password123", "127.0.0.1", "test-agent")
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)
	assert.NotEmpty(t, token)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	svc, _, _ := newTestAccounts(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice@example.com", "password123", "Alice")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "ALICE@example.com", "otherpassword", "Alice Again")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	svc, _, _ := newTestAccounts(t)

	_, err := svc.Register(context.Background(), "bob@example.com", "short", "Bob")
	assert.Error(t, err)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	svc, _, _ := newTestAccounts(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice@example.com", "password123", "Alice")
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "alice@example.com", "wrongpassword", "", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, "nobody@example.com", "password123", "", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestVerifySession(t *testing.T) {
	svc, _, _ := newTestAccounts(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "alice@example.com", "password123", "Alice")
	require.NoError(t, err)
	_, token, err := svc.Login(ctx, "alice@example.com", "password123", "", "")
	require.NoError(t, err)

	verified, err := svc.Verify(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, verified.ID)

	_, err = svc.Verify(ctx, "bogus-token")
	assert.ErrorIs(t, err, ErrSessionInvalid)

	_, err = svc.Verify(ctx, "")
	assert.ErrorIs(t, err, ErrSessionInvalid)
}

func TestVerifyRejectsExpiredSession(t *testing.T) {
	users := newFakeUserStore()
	sessions := newFakeSessionStore()
	// Negative TTL makes every issued session already expired
	svc := NewService(users, sessions, &common.SessionsConfig{TTL: -time.Minute}, arbor.NewLogger())
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice@example.com", "password123", "Alice")
	require.NoError(t, err)
	_, token, err := svc.Login(ctx, "alice@example.com", "password123", "", "")
	require.NoError(t, err)

	_, err = svc.Verify(ctx, token)
	assert.ErrorIs(t, err, ErrSessionInvalid)
}

func TestLogoutDestroysSession(t *testing.T) {
	svc, _, _ := newTestAccounts(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice@example.com", "password123", "Alice")
	require.NoError(t, err)
	_, token, err := svc.Login(ctx, "alice@example.com", "password123", "", "")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, token))

	_, err = svc.Verify(ctx, token)
	assert.ErrorIs(t, err, ErrSessionInvalid)

	// Logging out an unknown token is a no-op
	assert.NoError(t, svc.Logout(ctx, "already-gone"))
}
