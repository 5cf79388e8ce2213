package numbering

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore keeps issued numbers in process memory. It backs unit tests
// and single-node development; production uses the postgres store.
type MemoryStore struct {
	mu     sync.RWMutex
	issued map[string]map[int64]struct{}
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{issued: make(map[string]map[int64]struct{})}
}

func (s *MemoryStore) MaxIssued(_ context.Context, prefix string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var max int64
	for seq := range s.issued[prefix] {
		if seq > max {
			max = seq
		}
	}
	return max, nil
}

func (s *MemoryStore) Taken(_ context.Context, prefix string, seq int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.issued[prefix][seq]
	return ok, nil
}

func (s *MemoryStore) Reserve(_ context.Context, prefix string, seq int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.issued[prefix]
	if !ok {
		set = make(map[int64]struct{})
		s.issued[prefix] = set
	}
	if _, dup := set[seq]; dup {
		return fmt.Errorf("numbering: %s-%d already reserved: %w", prefix, seq, ErrContention)
	}
	set[seq] = struct{}{}
	return nil
}

// Seed marks a number as issued, mimicking manual insertion into storage.
func (s *MemoryStore) Seed(prefix string, seq int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.issued[prefix] == nil {
		s.issued[prefix] = make(map[int64]struct{})
	}
	s.issued[prefix][seq] = struct{}{}
}

// MemoryLocker serialises prefixes with one mutex per key.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

// NewMemoryLocker constructs a MemoryLocker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: make(map[string]chan struct{})}
}

func (l *MemoryLocker) Acquire(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	ch, ok := l.locks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.locks[key] = ch
	}
	l.mu.Unlock()

	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return func() {}, fmt.Errorf("numbering: acquire %s: %w", key, ErrTimeout)
	}
}
