package joblock

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	holder    string
	expiresAt time.Time
}

// MemoryStore is a process-local Store for tests and single-instance setups.
type MemoryStore struct {
	mu    sync.Mutex
	locks map[string]memoryEntry
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		locks: make(map[string]memoryEntry),
		now:   time.Now,
	}
}

// NewMemoryStoreWithClock lets tests move time forward without sleeping.
func NewMemoryStoreWithClock(now func() time.Time) *MemoryStore {
	s := NewMemoryStore()
	s.now = now
	return s
}

func (s *MemoryStore) AcquireLock(_ context.Context, jobName string, ttl time.Duration, holder string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if existing, ok := s.locks[jobName]; ok && now.Before(existing.expiresAt) {
		return false, nil
	}
	s.locks[jobName] = memoryEntry{holder: holder, expiresAt: now.Add(ttl)}
	return true, nil
}

func (s *MemoryStore) ReleaseLock(_ context.Context, jobName string, holder string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.locks[jobName]
	if !ok || existing.holder != holder {
		return false, nil
	}
	delete(s.locks, jobName)
	return true, nil
}
