// Package state tracks which patients have a recommendation stream in
// flight so a second concurrent request can be rejected immediately.
package state

import (
	"context"
	"sync"
)

// Guard marks a patient as having a live recommendation stream. Acquire
// returns false when another stream already holds the patient.
type Guard interface {
	Acquire(ctx context.Context, patientID uint) (bool, error)
	Release(ctx context.Context, patientID uint)
}

// Manager is the in-memory Guard used when no Redis is configured. Good for
// a single process; multi-instance deployments should use RedisManager.
type Manager struct {
	inFlight map[uint]bool
	mu       sync.Mutex
}

// NewManager creates a new in-memory guard
func NewManager() *Manager {
	return &Manager{
		inFlight: make(map[uint]bool),
	}
}

// Acquire marks the patient as having a live stream
func (m *Manager) Acquire(_ context.Context, patientID uint) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inFlight[patientID] {
		return false, nil
	}
	m.inFlight[patientID] = true
	return true, nil
}

// Release clears the in-flight mark for the patient
func (m *Manager) Release(_ context.Context, patientID uint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.inFlight, patientID)
}
