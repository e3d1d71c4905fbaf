package summary

import (
	"context"
	"sync"
	"time"

	"callsummary/internal/calls"
)

// MemoryStore is an in-memory Store for local runs and tests.
type MemoryStore struct {
	mu    sync.Mutex
	users map[string]string
	rows  map[string]Record
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: map[string]string{},
		rows:  map[string]Record{},
		now:   time.Now,
	}
}

// SetUser maps phone to userID, as a user_configurations row would.
func (s *MemoryStore) SetUser(phone, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[calls.NormalizePhone(phone)] = userID
}

func (s *MemoryStore) LookupUserID(_ context.Context, phone string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.users[calls.NormalizePhone(phone)]
	return id, ok, nil
}

func (s *MemoryStore) Upsert(_ context.Context, r Record) (Record, error) {
	if r.CallSID == "" {
		return Record{}, ErrInvalidRecord
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	if prev, ok := s.rows[r.CallSID]; ok {
		r.ID = prev.ID
		r.CreatedAt = prev.CreatedAt
		if r.UserID == nil {
			r.UserID = prev.UserID
		}
		if !now.After(prev.UpdatedAt) {
			now = prev.UpdatedAt.Add(time.Microsecond)
		}
	} else if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
	s.rows[r.CallSID] = r
	return r, nil
}

func (s *MemoryStore) Get(_ context.Context, callSID string) (Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[callSID]
	return r, ok, nil
}

// Len is the number of stored summaries.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}
