package session

import (
	"context"
	"sync"
	"time"

	"github.com/wanel/kyxgate/internal/metrics"
)

// MemoryStore is the in-memory session store. Sessions are process-local
// and do not survive a restart, matching the reference service's behavior.
type MemoryStore struct {
	sessions map[string]*Session
	mu       sync.RWMutex
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*Session)}
}

func (m *MemoryStore) Create(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.sessions[s.ExternalID] = &cp
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
	return nil
}

func (m *MemoryStore) Get(_ context.Context, externalID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[externalID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MemoryStore) CheckReady(_ context.Context, externalID string, now time.Time) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[externalID]
	if !ok {
		return nil, ErrNotFound
	}
	// Set-once: a ready session keeps its original timestamp forever.
	if !s.Ready() && s.CompletesAt > 0 && now.Unix() >= s.CompletesAt {
		s.UpdatedAt = Timestamp(now)
	}
	cp := *s
	return &cp, nil
}

func (m *MemoryStore) List(_ context.Context) ([]*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		cp := *s
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MemoryStore) Delete(_ context.Context, externalID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[externalID]; !ok {
		return ErrNotFound
	}
	delete(m.sessions, externalID)
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
	return nil
}

func (m *MemoryStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, s := range m.sessions {
		if s.Expired(now) {
			delete(m.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		metrics.ActiveSessions.Set(float64(len(m.sessions)))
	}
	return removed, nil
}
