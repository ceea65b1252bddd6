package memory

import (
	"context"
	"sync"

	"expensetracker/internal/kv"
)

var _ kv.Medium = (*Store)(nil)

type Store struct {
	mu      sync.Mutex
	items   map[string][]byte
	failErr error
	writes  int
}

func New() *Store {
	return &Store{items: make(map[string][]byte)}
}

// Get returns a copy of the value stored under key.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return nil, s.failErr
	}
	v, ok := s.items[key]
	if !ok {
		return nil, kv.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

// Set stores a copy of value under key.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return s.failErr
	}
	s.items[key] = append([]byte(nil), value...)
	s.writes++
	return nil
}

// FailWith makes every subsequent call return err, simulating an unavailable
// or full medium. A nil err restores normal behaviour.
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failErr = err
}

// Writes reports how many successful Set calls the store has served.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
