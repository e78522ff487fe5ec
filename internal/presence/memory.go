package presence

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the single-instance backend: a mutex-guarded
// scope -> user -> last_seen map.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]map[string]time.Time
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]map[string]time.Time),
		now:     time.Now,
	}
}

func (s *MemoryStore) Mark(_ context.Context, scope, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entries[scope] == nil {
		s.entries[scope] = make(map[string]time.Time)
	}
	s.entries[scope][userID] = s.now()
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, scope, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if users := s.entries[scope]; users != nil {
		delete(users, userID)
		if len(users) == 0 {
			delete(s.entries, scope)
		}
	}
	return nil
}

func (s *MemoryStore) Online(_ context.Context, scope string, maxAge time.Duration) ([]string, error) {
	deadline := s.now().Add(-maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()

	users := s.entries[scope]
	online := make([]string, 0, len(users))
	for userID, lastSeen := range users {
		if lastSeen.Before(deadline) {
			delete(users, userID)
			continue
		}
		online = append(online, userID)
	}
	if len(users) == 0 {
		delete(s.entries, scope)
	}
	return online, nil
}

// Prune drops stale entries in every scope, using the global TTL for the
// global scope and the conversation TTL for the rest. Called by the
// janitor; Online already prunes the scope it reads.
func (s *MemoryStore) Prune(conversationTTL, globalTTL time.Duration) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	for scope, users := range s.entries {
		ttl := conversationTTL
		if scope == GlobalScope {
			ttl = globalTTL
		}
		deadline := now.Add(-ttl)
		for userID, lastSeen := range users {
			if lastSeen.Before(deadline) {
				delete(users, userID)
			}
		}
		if len(users) == 0 {
			delete(s.entries, scope)
		}
	}
}
