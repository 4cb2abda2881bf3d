// v1
// internal/http/health.go
package httpserver

import "sync"

// HealthState tracks readiness. Liveness is implied by the process running;
// readiness is raised once the listener is up and dropped on shutdown.
type HealthState struct {
	mu    sync.RWMutex
	ready bool
}

// NewHealthState starts not ready.
func NewHealthState() *HealthState {
	return &HealthState{}
}

func (h *HealthState) SetReady(value bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ready = value
}

func (h *HealthState) Ready() bool {
	if h == nil {
		return false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.ready
}
