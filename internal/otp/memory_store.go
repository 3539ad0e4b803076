package otp

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryStore 是进程内的验证码存储，重启后丢失，多实例之间不共享。
// 同一邮箱的并发 Put 以最后一次写入为准。
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

func memoryKey(purpose Purpose, email string) string {
	return string(purpose) + "|" + email
}

func (s *MemoryStore) Put(_ context.Context, purpose Purpose, email string, entry Entry, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[memoryKey(purpose, email)] = entry
	return nil
}

func (s *MemoryStore) Get(_ context.Context, purpose Purpose, email string) (Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[memoryKey(purpose, email)]
	return entry, ok, nil
}

func (s *MemoryStore) Delete(_ context.Context, purpose Purpose, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, memoryKey(purpose, email))
	return nil
}

func (s *MemoryStore) PurgeExpired(_ context.Context, purpose Purpose, now time.Time) (int, error) {
	prefix := string(purpose) + "|"

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, entry := range s.entries {
		if strings.HasPrefix(key, prefix) && entry.Expired(now) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored entries across purposes.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
