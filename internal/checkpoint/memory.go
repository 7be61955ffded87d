package checkpoint

import (
	"context"
	"sync"

	"github.com/tangerg-labs/autoscholar/internal/apperr"
	"github.com/tangerg-labs/autoscholar/internal/model"
)

// MemoryStore is an in-process Store backed by a guarded map. It durably
// survives across requests within one running process but not a restart;
// swapping in a database-backed Store means implementing the same
// interface, nothing in the workflow engine changes.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*model.SessionState
}

// NewMemoryStore returns an empty MemoryStore ready for use.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*model.SessionState),
	}
}

// Save stores a clone of state, so later mutation by the caller cannot
// corrupt what was checkpointed.
func (m *MemoryStore) Save(_ context.Context, state *model.SessionState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[state.ThreadID] = state.Clone()
	return nil
}

// Load returns a clone of the checkpointed state for threadID, or
// apperr.ErrNotFound if none exists.
func (m *MemoryStore) Load(_ context.Context, threadID string) (*model.SessionState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.sessions[threadID]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return state.Clone(), nil
}

// Delete removes the checkpoint for threadID. It is not an error to delete
// a thread_id that was never saved.
func (m *MemoryStore) Delete(_ context.Context, threadID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, threadID)
	return nil
}
