package document

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"govportal/internal/document/models"
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

func newDoc(userID id.UserID, at time.Time) *models.Document {
	return models.NewDocument(userID, id.NewApplicationID(), models.Upload{
		Kind: models.KindLease, FileName: "lease.pdf", ContentType: "application/pdf", SizeBytes: 100,
	}, at)
}

func (s *InMemoryStoreSuite) TestCreateAndFind() {
	userID := id.NewUserID()
	doc := newDoc(userID, time.Now())
	s.Require().NoError(s.store.Create(s.ctx, doc))
	s.ErrorIs(s.store.Create(s.ctx, doc), sentinel.ErrAlreadyUsed)

	got, err := s.store.FindByID(s.ctx, userID, doc.ID)
	s.Require().NoError(err)
	s.Equal(doc.StorageKey, got.StorageKey)

	_, err = s.store.FindByID(s.ctx, id.NewUserID(), doc.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestMarkUploaded() {
	userID := id.NewUserID()
	doc := newDoc(userID, time.Now())
	s.Require().NoError(s.store.Create(s.ctx, doc))
	s.Require().NoError(s.store.MarkUploaded(s.ctx, doc.ID, time.Now()))

	got, err := s.store.FindByID(s.ctx, userID, doc.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusUploaded, got.Status)

	s.ErrorIs(s.store.MarkUploaded(s.ctx, id.NewDocumentID(), time.Now()), sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestListByUserNewestFirst() {
	userID := id.NewUserID()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	older := newDoc(userID, base)
	newer := newDoc(userID, base.Add(time.Minute))
	s.Require().NoError(s.store.Create(s.ctx, older))
	s.Require().NoError(s.store.Create(s.ctx, newer))
	s.Require().NoError(s.store.Create(s.ctx, newDoc(id.NewUserID(), base)))

	docs, err := s.store.ListByUser(s.ctx, userID)
	s.Require().NoError(err)
	s.Require().Len(docs, 2)
	s.Equal(newer.ID, docs[0].ID)
}
