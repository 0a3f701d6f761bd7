package draft

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"govportal/internal/application/models"
	id "govportal/pkg/domain"
	"govportal/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	ctx   context.Context
	store *InMemoryStore
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewInMemory()
}

func (s *InMemoryStoreSuite) TestCreateDraftReturnsExistingDraft() {
	userID := id.NewUserID()
	first, err := s.store.CreateDraft(s.ctx, models.NewDraft(userID, time.Now()))
	s.Require().NoError(err)

	second, err := s.store.CreateDraft(s.ctx, models.NewDraft(userID, time.Now()))
	s.Require().NoError(err)
	s.Equal(first.ID, second.ID)

	apps, err := s.store.ListByUser(s.ctx, userID)
	s.Require().NoError(err)
	s.Len(apps, 1)
}

func (s *InMemoryStoreSuite) TestConcurrentCreateDraftConverges() {
	userID := id.NewUserID()
	var wg sync.WaitGroup
	ids := make([]id.ApplicationID, 10)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			app, err := s.store.CreateDraft(s.ctx, models.NewDraft(userID, time.Now()))
			s.NoError(err)
			ids[i] = app.ID
		}(i)
	}
	wg.Wait()
	for _, got := range ids {
		s.Equal(ids[0], got)
	}
}

func (s *InMemoryStoreSuite) TestUpsertStepKeepsSeq() {
	app, err := s.store.CreateDraft(s.ctx, models.NewDraft(id.NewUserID(), time.Now()))
	s.Require().NoError(err)

	s.Require().NoError(s.store.UpsertStep(s.ctx, app.ID, "STEP_0", json.RawMessage(`{"data":{"a":1}}`), time.Now()))
	s.Require().NoError(s.store.UpsertStep(s.ctx, app.ID, "STEP_1", json.RawMessage(`{"data":{"a":2}}`), time.Now()))
	s.Require().NoError(s.store.UpsertStep(s.ctx, app.ID, "STEP_0", json.RawMessage(`{"data":{"a":3}}`), time.Now()))

	steps, err := s.store.ListSteps(s.ctx, app.ID)
	s.Require().NoError(err)
	s.Require().Len(steps, 2)
	s.Equal("STEP_0", steps[0].Key)
	s.JSONEq(`{"data":{"a":3}}`, string(steps[0].Payload))
	s.Less(steps[0].Seq, steps[1].Seq)
}

func (s *InMemoryStoreSuite) TestUpsertStepUnknownApplication() {
	err := s.store.UpsertStep(s.ctx, id.NewApplicationID(), "STEP_0", json.RawMessage(`{}`), time.Now())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestFindByIDIsScopedToOwner() {
	owner := id.NewUserID()
	app, err := s.store.CreateDraft(s.ctx, models.NewDraft(owner, time.Now()))
	s.Require().NoError(err)

	_, err = s.store.FindByID(s.ctx, id.NewUserID(), app.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)

	got, err := s.store.LockByID(s.ctx, owner, app.ID)
	s.Require().NoError(err)
	s.Equal(app.ID, got.ID)
}

func (s *InMemoryStoreSuite) TestMarkSubmittedOnlyOnce() {
	userID := id.NewUserID()
	app, err := s.store.CreateDraft(s.ctx, models.NewDraft(userID, time.Now()))
	s.Require().NoError(err)

	s.Require().NoError(s.store.MarkSubmitted(s.ctx, app.ID, map[string]any{"a": "b"}, time.Now()))
	s.ErrorIs(s.store.MarkSubmitted(s.ctx, app.ID, nil, time.Now()), sentinel.ErrInvalidState)

	got, err := s.store.FindByID(s.ctx, userID, app.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusSubmitted, got.Status)
	s.Equal(map[string]any{"a": "b"}, got.FormData)
	s.NotNil(got.SubmittedAt)

	_, err = s.store.FindLatestDraft(s.ctx, userID)
	s.ErrorIs(err, sentinel.ErrNotFound)

	next, err := s.store.CreateDraft(s.ctx, models.NewDraft(userID, time.Now()))
	s.Require().NoError(err)
	s.NotEqual(app.ID, next.ID)
}

func (s *InMemoryStoreSuite) TestListByUserNewestFirst() {
	userID := id.NewUserID()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	older, err := s.store.CreateDraft(s.ctx, models.NewDraft(userID, base))
	s.Require().NoError(err)
	s.Require().NoError(s.store.MarkSubmitted(s.ctx, older.ID, nil, base))
	newer, err := s.store.CreateDraft(s.ctx, models.NewDraft(userID, base.Add(time.Hour)))
	s.Require().NoError(err)

	apps, err := s.store.ListByUser(s.ctx, userID)
	s.Require().NoError(err)
	s.Require().Len(apps, 2)
	s.Equal(newer.ID, apps[0].ID)
	s.Equal(older.ID, apps[1].ID)
}

func (s *InMemoryStoreSuite) TestReturnedValuesAreCopies() {
	userID := id.NewUserID()
	app, err := s.store.CreateDraft(s.ctx, models.NewDraft(userID, time.Now()))
	s.Require().NoError(err)
	app.Status = models.StatusSubmitted

	got, err := s.store.FindByID(s.ctx, userID, app.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusDraft, got.Status)
}
