package testutil

import "sync"

// Sequence is a resettable counter for deterministic generated keys.
//
// The first call to Next returns start. Safe for concurrent use.
type Sequence struct {
	mu    sync.Mutex
	start int64
	next  int64
}

// NewSequence creates a sequence whose first value is start.
func NewSequence(start int64) *Sequence {
	return &Sequence{start: start, next: start}
}

// Next returns the current value and advances the sequence.
func (s *Sequence) Next() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.next
	s.next++
	return n
}

// Peek returns the value the next call to Next will return.
func (s *Sequence) Peek() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}

// Reset rewinds the sequence to its start value.
func (s *Sequence) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next = s.start
}
