package telegram

import (
	"sync"

	"github.com/blockedby/reactdl/internal/config"
	"github.com/blockedby/reactdl/internal/logger"
	"github.com/celestix/gotgproto"
)

// Status represents the Telegram client status.
type Status string

// Status constants define the possible states of the Telegram client.
const (
	StatusInitializing Status = "INITIALIZING"
	StatusReady        Status = "READY"
	StatusUnauthorized Status = "UNAUTHORIZED"
)

// ClientFactory is a function that creates a telegram client.
type ClientFactory func(cfg *config.Config) (*gotgproto.Client, error)

// Manager handles the Telegram client lifecycle.
type Manager struct {
	client *gotgproto.Client
	cfg    *config.Config
	log    *logger.Logger

	status Status
	mu     sync.RWMutex

	clientFactory ClientFactory
}

// NewManager creates a new Telegram Manager.
func NewManager(cfg *config.Config) *Manager {
	return &Manager{
		cfg:           cfg,
		log:           logger.Get(),
		status:        StatusInitializing,
		clientFactory: NewSessionClient,
	}
}

// SetClientFactory allows overriding the client creation logic (e.g. for testing).
func (m *Manager) SetClientFactory(f ClientFactory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clientFactory = f
}

// GetStatus returns the current Telegram client status.
func (m *Manager) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// GetClient returns the underlying Telegram client.
func (m *Manager) GetClient() *gotgproto.Client {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.client
}

// Init connects using the stored session.
func (m *Manager) Init() error {
	m.mu.Lock()
	m.status = StatusInitializing
	m.mu.Unlock()

	client, err := m.clientFactory(m.cfg)
	if err != nil {
		m.log.Warn().Err(err).Msg("telegram: failed to initialize session client")
		m.mu.Lock()
		m.status = StatusUnauthorized
		m.mu.Unlock()
		return err
	}

	m.mu.Lock()
	m.client = client
	m.status = StatusReady
	m.mu.Unlock()

	m.log.Info().Msg("telegram: client is ready")
	return nil
}

// Stop stops the Telegram client.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client != nil {
		m.client.Stop()
	}
}
