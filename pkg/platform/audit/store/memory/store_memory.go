package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	id "govportal/pkg/domain"
	audit "govportal/pkg/platform/audit"
)

type outboxRow struct {
	entry     audit.OutboxEntry
	published bool
}

// InMemoryStore keeps events per user plus an outbox so the publisher worker
// can run without Postgres.
type InMemoryStore struct {
	mu     sync.RWMutex
	events map[id.UserID][]audit.Event
	outbox []outboxRow
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[id.UserID][]audit.Event)}
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[id.UserID][]audit.Event)
	s.outbox = nil
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	entry, err := audit.NewOutboxEntry(event)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.UserID] = append(s.events[event.UserID], event)
	s.outbox = append(s.outbox, outboxRow{entry: entry})
	return nil
}

func (s *InMemoryStore) ListByUser(_ context.Context, userID id.UserID) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.events[userID]...), nil
}

// ListAll returns all audit events across all users.
func (s *InMemoryStore) ListAll(_ context.Context) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var allEvents []audit.Event
	for _, userEvents := range s.events {
		allEvents = append(allEvents, userEvents...)
	}
	return allEvents, nil
}

// FetchUnpublished returns up to limit pending entries in append order.
func (s *InMemoryStore) FetchUnpublished(_ context.Context, limit int) ([]audit.OutboxEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []audit.OutboxEntry
	for _, row := range s.outbox {
		if row.published {
			continue
		}
		out = append(out, row.entry)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *InMemoryStore) MarkPublished(_ context.Context, ids []uuid.UUID, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	want := make(map[uuid.UUID]struct{}, len(ids))
	for _, entryID := range ids {
		want[entryID] = struct{}{}
	}
	for i := range s.outbox {
		if _, ok := want[s.outbox[i].entry.ID]; ok {
			s.outbox[i].published = true
		}
	}
	return nil
}

// Pending reports how many outbox entries await publishing.
func (s *InMemoryStore) Pending() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, row := range s.outbox {
		if !row.published {
			n++
		}
	}
	return n
}
