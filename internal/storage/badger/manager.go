package badger

import (
	"github.com/parlo-ai/parlo/internal/common"
	"github.com/parlo-ai/parlo/internal/interfaces"
	"github.com/ternarybob/arbor"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db          *BadgerDB
	user        interfaces.UserStorage
	session     interfaces.SessionStorage
	integration interfaces.IntegrationStorage
	agent       interfaces.AgentStorage
	call        interfaces.CallStorage
	kv          interfaces.KeyValueStorage
	logger      arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:          db,
		user:        NewUserStorage(db, logger),
		session:     NewSessionStorage(db, logger),
		integration: NewIntegrationStorage(db, logger),
		agent:       NewAgentStorage(db, logger),
		call:        NewCallStorage(db, logger),
		kv:          NewKVStorage(db, logger),
		logger:      logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// UserStorage returns the User storage interface
func (m *Manager) UserStorage() interfaces.UserStorage {
	return m.user
}

// SessionStorage returns the Session storage interface
func (m *Manager) SessionStorage() interfaces.SessionStorage {
	return m.session
}

// IntegrationStorage returns the Integration storage interface
func (m *Manager) IntegrationStorage() interfaces.IntegrationStorage {
	return m.integration
}

// AgentStorage returns the Agent storage interface
func (m *Manager) AgentStorage() interfaces.AgentStorage {
	return m.agent
}

// CallStorage returns the Call storage interface
func (m *Manager) CallStorage() interfaces.CallStorage {
	return m.call
}

// KeyValueStorage returns the KeyValue storage interface
func (m *Manager) KeyValueStorage() interfaces.KeyValueStorage {
	return m.kv
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
