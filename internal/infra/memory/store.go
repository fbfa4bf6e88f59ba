package memory

import (
	"context"
	"sync"
)

// Store is an in-memory implementation of app.KVStore. Values are copied on the
// way in and out so callers cannot mutate the stored snapshot.
type Store struct {
	mu     sync.RWMutex
	values map[string][]byte
	writes int
}

func NewStore() *Store {
	return &Store{
		values: make(map[string][]byte),
	}
}

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.values[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), value...), true, nil
}

func (s *Store) Put(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = append([]byte(nil), value...)
	s.writes++
	return nil
}

// Writes reports how many Put calls succeeded.
func (s *Store) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}
