package storage

import "sync"

// Sequence hands out increasing ids for one table. It is seeded once from
// the largest id on disk, so ids are not reused after the row holding the
// maximum is deleted.
type Sequence struct {
	mu   sync.Mutex
	last int64
}

// Seed raises the last issued id to max if it is lower.
func (s *Sequence) Seed(max int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if max > s.last {
		s.last = max
	}
}

// Next returns the next id, starting at 1.
func (s *Sequence) Next() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last++
	return s.last
}

