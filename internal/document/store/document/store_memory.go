package document

import (
	"context"
	"sort"
	"sync"
	"time"

	"govportal/internal/document/models"
	id "govportal/pkg/domain"
	"govportal/pkg/platform/sentinel"
)

// InMemoryStore keeps documents in a map guarded by a mutex.
type InMemoryStore struct {
	mu   sync.RWMutex
	docs map[id.DocumentID]*models.Document
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{docs: make(map[id.DocumentID]*models.Document)}
}

func (s *InMemoryStore) Create(_ context.Context, doc *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.docs[doc.ID]; exists {
		return sentinel.ErrAlreadyUsed
	}
	c := *doc
	s.docs[doc.ID] = &c
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, userID id.UserID, docID id.DocumentID) (*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[docID]
	if !ok || doc.UserID != userID {
		return nil, sentinel.ErrNotFound
	}
	c := *doc
	return &c, nil
}

func (s *InMemoryStore) MarkUploaded(_ context.Context, docID id.DocumentID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[docID]
	if !ok {
		return sentinel.ErrNotFound
	}
	doc.Status = models.StatusUploaded
	doc.UpdatedAt = now
	return nil
}

// ListByUser returns the user's documents, newest first.
func (s *InMemoryStore) ListByUser(_ context.Context, userID id.UserID) ([]*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Document
	for _, doc := range s.docs {
		if doc.UserID == userID {
			c := *doc
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
