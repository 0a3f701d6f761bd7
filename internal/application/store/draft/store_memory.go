package draft

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"govportal/internal/application/models"
	id "govportal/pkg/domain"
	"govportal/pkg/platform/sentinel"
)

// InMemoryStore keeps applications and step rows in maps. It enforces the
// same one-draft-per-user rule as the Postgres partial unique index.
type InMemoryStore struct {
	mu    sync.RWMutex
	apps  map[id.ApplicationID]*models.Application
	steps map[id.ApplicationID][]models.Step
	seq   int64
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		apps:  make(map[id.ApplicationID]*models.Application),
		steps: make(map[id.ApplicationID][]models.Step),
	}
}

func (s *InMemoryStore) FindLatestDraft(_ context.Context, userID id.UserID) (*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if app := s.latestDraftLocked(userID); app != nil {
		return cloneApp(app), nil
	}
	return nil, sentinel.ErrNotFound
}

// CreateDraft stores app unless the user already has a draft, in which case
// the existing draft is returned.
func (s *InMemoryStore) CreateDraft(_ context.Context, app *models.Application) (*models.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing := s.latestDraftLocked(app.UserID); existing != nil {
		return cloneApp(existing), nil
	}
	s.apps[app.ID] = cloneApp(app)
	return cloneApp(app), nil
}

func (s *InMemoryStore) FindByID(_ context.Context, userID id.UserID, appID id.ApplicationID) (*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	app, ok := s.apps[appID]
	if !ok || app.UserID != userID {
		return nil, sentinel.ErrNotFound
	}
	return cloneApp(app), nil
}

// LockByID reads like FindByID. Callers serialize through tx.Local.
func (s *InMemoryStore) LockByID(ctx context.Context, userID id.UserID, appID id.ApplicationID) (*models.Application, error) {
	return s.FindByID(ctx, userID, appID)
}

func (s *InMemoryStore) ListSteps(_ context.Context, appID id.ApplicationID) ([]models.Step, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := s.steps[appID]
	out := make([]models.Step, len(rows))
	for i, r := range rows {
		out[i] = cloneStep(r)
	}
	return out, nil
}

// UpsertStep replaces the payload of an existing key and keeps its Seq.
func (s *InMemoryStore) UpsertStep(_ context.Context, appID id.ApplicationID, key string, payload json.RawMessage, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.apps[appID]; !ok {
		return sentinel.ErrNotFound
	}
	rows := s.steps[appID]
	for i := range rows {
		if rows[i].Key == key {
			rows[i].Payload = append(json.RawMessage(nil), payload...)
			rows[i].UpdatedAt = now
			return nil
		}
	}
	s.seq++
	s.steps[appID] = append(rows, models.Step{
		ApplicationID: appID,
		Key:           key,
		Payload:       append(json.RawMessage(nil), payload...),
		Seq:           s.seq,
		UpdatedAt:     now,
	})
	return nil
}

func (s *InMemoryStore) Touch(_ context.Context, appID id.ApplicationID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.apps[appID]
	if !ok {
		return sentinel.ErrNotFound
	}
	app.UpdatedAt = now
	return nil
}

// MarkSubmitted flips a draft to SUBMITTED. It returns ErrInvalidState when
// the application is no longer a draft.
func (s *InMemoryStore) MarkSubmitted(_ context.Context, appID id.ApplicationID, formData map[string]any, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.apps[appID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if !app.IsDraft() {
		return sentinel.ErrInvalidState
	}
	app.Status = models.StatusSubmitted
	app.FormData = cloneMap(formData)
	submittedAt := now
	app.SubmittedAt = &submittedAt
	app.UpdatedAt = now
	return nil
}

// ListByUser returns the user's applications, most recently updated first.
func (s *InMemoryStore) ListByUser(_ context.Context, userID id.UserID) ([]*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Application
	for _, app := range s.apps {
		if app.UserID == userID {
			out = append(out, cloneApp(app))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (s *InMemoryStore) latestDraftLocked(userID id.UserID) *models.Application {
	var latest *models.Application
	for _, app := range s.apps {
		if app.UserID != userID || !app.IsDraft() {
			continue
		}
		if latest == nil || app.UpdatedAt.After(latest.UpdatedAt) {
			latest = app
		}
	}
	return latest
}

func cloneApp(a *models.Application) *models.Application {
	c := *a
	c.FormData = cloneMap(a.FormData)
	if a.SubmittedAt != nil {
		t := *a.SubmittedAt
		c.SubmittedAt = &t
	}
	return &c
}

func cloneStep(s models.Step) models.Step {
	s.Payload = append(json.RawMessage(nil), s.Payload...)
	return s
}

// cloneMap copies the top level only; values are treated as immutable.
func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
