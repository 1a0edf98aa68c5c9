package challenge

import (
	"context"
	"errors"
	"sync"
	"time"
)

const (
	// maxPending caps memory held by unanswered challenges.
	maxPending = 100_000
	// maxPendingPerUser bounds what one identifier can hold; the oldest
	// challenge is dropped when a new one is issued past the bound.
	maxPendingPerUser = 4
)

var ErrStoreFull = errors.New("too many pending challenges")

// MemoryStore keeps pending challenges in process memory and sweeps expired
// entries every sweepEvery puts.
type MemoryStore struct {
	mu      sync.Mutex
	pending map[string]Challenge
	byUser  map[string][]string
	puts    uint64
	now     func() time.Time
}

const sweepEvery = 256

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		pending: map[string]Challenge{},
		byUser:  map[string][]string{},
		now:     time.Now,
	}
}

func (s *MemoryStore) Put(_ context.Context, c Challenge) error {
	if c.ID == "" {
		return errors.New("challenge id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts++
	if s.puts%sweepEvery == 0 || len(s.pending) >= maxPending {
		s.sweepLocked()
	}
	if ids := s.byUser[c.User]; len(ids) >= maxPendingPerUser {
		s.removeLocked(ids[0])
	}
	if len(s.pending) >= maxPending {
		return ErrStoreFull
	}
	s.pending[c.ID] = c
	s.byUser[c.User] = append(s.byUser[c.User], c.ID)
	return nil
}

func (s *MemoryStore) Take(_ context.Context, id string) (Challenge, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.pending[id]
	if ok {
		s.removeLocked(id)
	}
	return c, ok, nil
}

// Len reports the number of pending challenges.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (s *MemoryStore) sweepLocked() {
	now := s.now()
	for id, c := range s.pending {
		if c.Expired(now) {
			s.removeLocked(id)
		}
	}
}

func (s *MemoryStore) removeLocked(id string) {
	c, ok := s.pending[id]
	if !ok {
		return
	}
	delete(s.pending, id)
	ids := s.byUser[c.User]
	for i, pendingID := range ids {
		if pendingID == id {
			ids = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	if len(ids) == 0 {
		delete(s.byUser, c.User)
		return
	}
	s.byUser[c.User] = ids
}
