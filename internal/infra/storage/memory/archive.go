package memory

import (
	"context"
	"sync"

	"eventbook/internal/app/policies"
)

// ArchiveStore keeps objects in memory; used when no bucket is configured.
type ArchiveStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func NewArchiveStore() *ArchiveStore {
	return &ArchiveStore{objects: make(map[string][]byte)}
}

func (s *ArchiveStore) Put(ctx context.Context, key string, contentType string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = append([]byte(nil), data...)
	return nil
}

func (s *ArchiveStore) Get(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[key]
	return data, ok
}

func (s *ArchiveStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

var (
	_ policies.ArchiveStore = (*ArchiveStore)(nil)
	_ policies.Inbox        = (*Inbox)(nil)
)
