package service

import "sync"

// inflightSet tracks keys with an operation in progress.
type inflightSet struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func newInflightSet() *inflightSet {
	return &inflightSet{keys: make(map[string]struct{})}
}

// acquire marks key busy and reports false when it already was.
func (s *inflightSet) acquire(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.keys[key]; busy {
		return false
	}
	s.keys[key] = struct{}{}
	return true
}

func (s *inflightSet) release(key string) {
	s.mu.Lock()
	delete(s.keys, key)
	s.mu.Unlock()
}
