//go:build integration

package document_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	accountmodels "govportal/internal/account/models"
	"govportal/internal/account/store/user"
	appmodels "govportal/internal/application/models"
	"govportal/internal/application/store/draft"
	"govportal/internal/document/models"
	"govportal/internal/document/store/document"
	id "govportal/pkg/domain"
	"govportal/pkg/platform/sentinel"
	"govportal/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *document.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = document.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "documents", "application_steps", "applications", "users"))
}

// seed creates a user with one draft application to attach documents to.
func (s *PostgresStoreSuite) seed() (id.UserID, id.ApplicationID) {
	ctx := context.Background()
	u := &accountmodels.User{
		ID: id.NewUserID(), Email: id.NewUserID().String() + "@example.gov", PasswordHash: "h",
		FirstName: "J", LastName: "D", Phone: "1", CreatedAt: time.Now().UTC(),
	}
	s.Require().NoError(user.NewPostgres(s.postgres.DB).CreateIfEmailAvailable(ctx, u))
	app, err := draft.NewPostgres(s.postgres.DB).CreateDraft(ctx, appmodels.NewDraft(u.ID, time.Now().UTC()))
	s.Require().NoError(err)
	return u.ID, app.ID
}

func (s *PostgresStoreSuite) TestLifecycle() {
	ctx := context.Background()
	userID, appID := s.seed()
	now := time.Now().UTC().Truncate(time.Microsecond)
	doc := models.NewDocument(userID, appID, models.Upload{
		Kind: models.KindProofOfResidency, FileName: "bill.pdf", ContentType: "application/pdf", SizeBytes: 2048,
	}, now)

	s.Require().NoError(s.store.Create(ctx, doc))
	s.ErrorIs(s.store.Create(ctx, doc), sentinel.ErrAlreadyUsed)

	got, err := s.store.FindByID(ctx, userID, doc.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusPendingUpload, got.Status)
	s.Equal(int64(2048), got.SizeBytes)

	s.Require().NoError(s.store.MarkUploaded(ctx, doc.ID, now.Add(time.Second)))
	docs, err := s.store.ListByUser(ctx, userID)
	s.Require().NoError(err)
	s.Require().Len(docs, 1)
	s.Equal(models.StatusUploaded, docs[0].Status)

	_, err = s.store.FindByID(ctx, id.NewUserID(), doc.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}
