package inmemory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dvloznov/farm-ledger/internal/pending"
)

// Store is an in-memory implementation of pending.Store.
// It is safe for concurrent use. Data is lost on service restart.
type Store struct {
	mu      sync.Mutex
	entries map[int64]pending.Entry
	ttl     time.Duration
	now     func() time.Time
}

// NewStore creates a new in-memory pending store. A non-positive ttl uses
// pending.DefaultTTL.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = pending.DefaultTTL
	}
	return &Store{
		entries: make(map[int64]pending.Entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *Store) expired(e pending.Entry) bool {
	return s.now().Sub(e.CreatedAt) >= s.ttl
}

// Put implements the pending.Store interface.
func (s *Store) Put(ctx context.Context, e pending.Entry) error {
	if e.UserID == 0 {
		return fmt.Errorf("user ID is required")
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[e.UserID] = e
	return nil
}

// Get implements the pending.Store interface.
func (s *Store) Get(ctx context.Context, userID int64) (pending.Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[userID]
	if !ok {
		return pending.Entry{}, false, nil
	}
	if s.expired(e) {
		delete(s.entries, userID)
		return pending.Entry{}, false, nil
	}
	return e, true, nil
}

// Take implements the pending.Store interface.
func (s *Store) Take(ctx context.Context, userID int64) (pending.Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[userID]
	if !ok {
		return pending.Entry{}, false, nil
	}
	delete(s.entries, userID)
	if s.expired(e) {
		return pending.Entry{}, false, nil
	}
	return e, true, nil
}

// Delete implements the pending.Store interface.
func (s *Store) Delete(ctx context.Context, userID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[userID]
	if !ok {
		return false, nil
	}
	delete(s.entries, userID)
	return !s.expired(e), nil
}

// Sweep implements the pending.Store interface.
func (s *Store) Sweep(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.entries {
		if s.expired(e) {
			delete(s.entries, id)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored entries, expired ones included.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Ensure Store implements pending.Store interface.
var _ pending.Store = (*Store)(nil)
