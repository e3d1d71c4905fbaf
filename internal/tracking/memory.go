package tracking

import (
	"context"
	"sync"
)

// MemorySender records events in order. Useful for tests.
type MemorySender struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func NewMemorySender() *MemorySender { return &MemorySender{} }

// Fail makes later sends return err after recording the event.
func (s *MemorySender) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *MemorySender) Send(_ context.Context, e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return s.err
}

func (s *MemorySender) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}
