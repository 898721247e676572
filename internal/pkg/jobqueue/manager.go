package jobqueue

import (
	"sync"

	"github.com/gofiber/fiber/v2/log"
)

// Manager owns the process-wide queue instance
type Manager struct {
	queue   *Queue
	mu      sync.Mutex
	running bool
}

var (
	managerInstance *Manager
	managerOnce     sync.Once
)

// GetManager returns the singleton job queue manager
func GetManager() *Manager {
	managerOnce.Do(func() {
		managerInstance = &Manager{
			queue: NewQueue(2),
		}
	})
	return managerInstance
}

// GetQueue returns the managed queue
func (m *Manager) GetQueue() *Queue {
	return m.queue
}

// Start starts the queue workers
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}
	m.running = true

	log.Info("[JobQueue] Manager starting")
	m.queue.Start()
}

// Stop stops the queue workers
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}
	m.running = false

	m.queue.Stop()
	log.Info("[JobQueue] Manager stopped")
}

// IsRunning reports whether the workers are active
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}
