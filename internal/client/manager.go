// Package client manages the HTTP clients used to reach remote stores.
package client

import (
	"net/http"
	"sync"
	"time"

	"evalgo.org/rdfendpoint/internal/helpers"
)

// Manager handles HTTP client creation and caching
type Manager struct {
	timeout time.Duration
	debug   bool
	cache   map[string]*http.Client
	mu      sync.RWMutex
}

// NewManager creates a new client manager. A zero timeout means no limit.
func NewManager(timeout time.Duration, debug bool) *Manager {
	return &Manager{
		timeout: timeout,
		debug:   debug,
		cache:   make(map[string]*http.Client),
	}
}

// GetClient returns the HTTP client for a server URL.
// Clients are cached per normalized URL so connections are reused.
func (m *Manager) GetClient(serverURL string) *http.Client {
	key := helpers.NormalizeURL(serverURL)

	m.mu.RLock()
	if cachedClient, exists := m.cache[key]; exists {
		m.mu.RUnlock()
		return cachedClient
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if cachedClient, exists := m.cache[key]; exists {
		return cachedClient
	}

	client := &http.Client{Timeout: m.timeout}
	if m.debug || helpers.DebugMode {
		client = helpers.EnableHTTPDebugLogging(client)
	}
	m.cache[key] = client
	return client
}

// ClearCache drops the cached clients after closing their idle connections
func (m *Manager) ClearCache() {
	m.mu.Lock()
	for _, c := range m.cache {
		c.CloseIdleConnections()
	}
	m.cache = make(map[string]*http.Client)
	m.mu.Unlock()
}
