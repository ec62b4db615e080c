package websocket

import (
	"sync"

	"github.com/vkviyu/wsbridge/transport/server/handler"
)

// Manager groups the endpoints of one server.
type Manager struct {
	mu        sync.RWMutex
	endpoints map[EndpointPath]*Endpoint
}

func NewManager() *Manager {
	return &Manager{
		endpoints: make(map[EndpointPath]*Endpoint),
	}
}

func (m *Manager) AddEndpoint(endpoint *Endpoint) {
	m.mu.Lock()
	m.endpoints[endpoint.EndpointPath] = endpoint
	m.mu.Unlock()
}

func (m *Manager) GetEndpoint(endpointPath EndpointPath) *Endpoint {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.endpoints[endpointPath]
}

// SendMessage delivers msg through the endpoint at endpointPath.
func (m *Manager) SendMessage(endpointPath EndpointPath, msg *EndpointMessage) error {
	endpoint := m.GetEndpoint(endpointPath)
	if endpoint == nil {
		return &EndpointNotFoundError{EndpointPath: endpointPath}
	}
	return endpoint.SendMessage(msg)
}

// GetConnCount returns the number of open connections on endpointPath.
func (m *Manager) GetConnCount(endpointPath EndpointPath) int {
	endpoint := m.GetEndpoint(endpointPath)
	if endpoint == nil {
		return 0
	}
	return endpoint.GetConnCount()
}

// Mount registers every endpoint on h under its path.
func (m *Manager) Mount(h handler.HandlerMap) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for path, endpoint := range m.endpoints {
		h.Add(path, endpoint)
	}
}

// Close closes every endpoint.
func (m *Manager) Close() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, endpoint := range m.endpoints {
		endpoint.Close()
	}
}
