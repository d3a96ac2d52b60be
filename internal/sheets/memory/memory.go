// Package memory holds an in-process audit trail, used in tests and when no
// spreadsheet is configured.
package memory

import (
	"context"
	"fmt"
	"sync"

	"messbook/internal/events"
)

type Store struct {
	mu    sync.Mutex
	items []events.LedgerEvent
}

func New() *Store {
	return &Store{}
}

// Append records the event and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, event *events.LedgerEvent) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, *event)
	return fmt.Sprintf("mem:%d", len(s.items)), nil
}

// Entries returns a copy of the recorded events.
func (s *Store) Entries() []events.LedgerEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]events.LedgerEvent(nil), s.items...)
}
