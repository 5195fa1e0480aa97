package session

import (
	"context"
	"sync"
	"time"

	"github.com/brightstay/stayflow/internal/clock"
	"github.com/brightstay/stayflow/internal/domain"
)

type memoryEntry struct {
	session   domain.Session
	expiresAt time.Time
}

// MemoryStore is the single-process fallback used in development and tests.
type MemoryStore struct {
	mu        sync.RWMutex
	clock     clock.Clock
	namespace string
	ttl       time.Duration
	entries   map[string]memoryEntry
}

func NewMemoryStore(clk clock.Clock, namespace string, ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		clock:     clk,
		namespace: namespace,
		ttl:       ttl,
		entries:   make(map[string]memoryEntry),
	}
}

func (s *MemoryStore) key(clientID string) string {
	return s.namespace + ":" + clientID
}

func (s *MemoryStore) Load(ctx context.Context, clientID string) (*domain.Session, error) {
	s.mu.RLock()
	entry, ok := s.entries[s.key(clientID)]
	s.mu.RUnlock()

	if !ok || s.clock.Now().After(entry.expiresAt) {
		return nil, nil
	}

	sess := entry.session
	return &sess, nil
}

func (s *MemoryStore) Save(ctx context.Context, clientID string, sess *domain.Session) error {
	s.mu.Lock()
	s.entries[s.key(clientID)] = memoryEntry{
		session:   *sess,
		expiresAt: s.clock.Now().Add(s.ttl),
	}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context, clientID string) error {
	s.mu.Lock()
	delete(s.entries, s.key(clientID))
	s.mu.Unlock()
	return nil
}
