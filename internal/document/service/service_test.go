package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	appmodels "govportal/internal/application/models"
	"govportal/internal/document/models"
	"govportal/internal/document/service/mocks"
	"govportal/internal/document/storage"
	docstore "govportal/internal/document/store/document"
	id "govportal/pkg/domain"
	dErrors "govportal/pkg/domain-errors"
	"govportal/pkg/platform/audit/publisher"
	auditmemory "govportal/pkg/platform/audit/store/memory"
	txcontext "govportal/pkg/platform/tx"
)

//go:generate mockgen -source=service.go -destination=mocks/document-mocks.go -package=mocks Applications,ObjectStore

type DocumentServiceSuite struct {
	suite.Suite
	ctx        context.Context
	ctrl       *gomock.Controller
	apps       *mocks.MockApplications
	objects    *mocks.MockObjectStore
	docs       *docstore.InMemoryStore
	auditStore *auditmemory.InMemoryStore
	service    *Service
	user       id.UserID
	submitted  *appmodels.Application
}

func TestDocumentServiceSuite(t *testing.T) {
	suite.Run(t, new(DocumentServiceSuite))
}

func (s *DocumentServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.ctrl = gomock.NewController(s.T())
	s.apps = mocks.NewMockApplications(s.ctrl)
	s.objects = mocks.NewMockObjectStore(s.ctrl)
	s.docs = docstore.NewInMemory()
	s.auditStore = auditmemory.NewInMemoryStore()
	s.service = New(s.docs, s.apps, s.objects, txcontext.NewLocal(),
		WithAuditPublisher(publisher.NewPublisher(s.auditStore)),
	)
	s.user = id.NewUserID()

	now := time.Now()
	s.submitted = appmodels.NewDraft(s.user, now)
	s.submitted.Status = appmodels.StatusSubmitted
	s.submitted.SubmittedAt = &now
}

func (s *DocumentServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *DocumentServiceSuite) upload(appID *id.ApplicationID) models.Upload {
	return models.Upload{
		ApplicationID: appID,
		Kind:          models.KindLease,
		FileName:      "lease.pdf",
		ContentType:   "application/pdf",
		SizeBytes:     2048,
	}
}

func (s *DocumentServiceSuite) expectPresign() {
	s.objects.EXPECT().
		PresignPut(gomock.Any(), gomock.Any(), "application/pdf", int64(2048)).
		DoAndReturn(func(_ context.Context, key, _ string, _ int64) (*storage.PresignedUpload, error) {
			return &storage.PresignedUpload{
				URL:       "https://uploads.example/" + key,
				Method:    "PUT",
				ExpiresAt: time.Now().Add(15 * time.Minute),
			}, nil
		})
}

func (s *DocumentServiceSuite) TestRequestUploadForExplicitApplication() {
	appID := s.submitted.ID
	s.apps.EXPECT().GetApplication(gomock.Any(), s.user, appID).Return(s.submitted, nil)
	s.expectPresign()

	ticket, err := s.service.RequestUpload(s.ctx, s.user, s.upload(&appID))
	s.Require().NoError(err)

	s.Equal(appID, ticket.Document.ApplicationID)
	s.Equal(models.StatusPendingUpload, ticket.Document.Status)
	s.True(strings.HasSuffix(ticket.Upload.URL, ticket.Document.StorageKey))

	stored, err := s.docs.FindByID(s.ctx, s.user, ticket.Document.ID)
	s.Require().NoError(err)
	s.Equal(ticket.Document.StorageKey, stored.StorageKey)
	s.Equal(1, s.auditStore.Pending())
}

func (s *DocumentServiceSuite) TestRequestUploadDefaultsToLatestSubmitted() {
	draft := appmodels.NewDraft(s.user, time.Now())
	s.apps.EXPECT().ListApplications(gomock.Any(), s.user).
		Return([]*appmodels.Application{draft, s.submitted}, nil)
	s.expectPresign()

	ticket, err := s.service.RequestUpload(s.ctx, s.user, s.upload(nil))
	s.Require().NoError(err)
	s.Equal(s.submitted.ID, ticket.Document.ApplicationID)
}

func (s *DocumentServiceSuite) TestRequestUploadRejectsDraftApplication() {
	draft := appmodels.NewDraft(s.user, time.Now())
	s.apps.EXPECT().GetApplication(gomock.Any(), s.user, draft.ID).Return(draft, nil)

	_, err := s.service.RequestUpload(s.ctx, s.user, s.upload(&draft.ID))
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *DocumentServiceSuite) TestRequestUploadWithoutSubmittedApplication() {
	s.apps.EXPECT().ListApplications(gomock.Any(), s.user).Return(nil, nil)

	_, err := s.service.RequestUpload(s.ctx, s.user, s.upload(nil))
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *DocumentServiceSuite) TestRequestUploadValidatesBeforeLookup() {
	u := s.upload(nil)
	u.ContentType = "text/plain"

	_, err := s.service.RequestUpload(s.ctx, s.user, u)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *DocumentServiceSuite) TestRequestUploadPresignFailureIsInternal() {
	s.apps.EXPECT().ListApplications(gomock.Any(), s.user).
		Return([]*appmodels.Application{s.submitted}, nil)
	s.objects.EXPECT().PresignPut(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.New("no credentials"))

	_, err := s.service.RequestUpload(s.ctx, s.user, s.upload(nil))
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))

	docs, listErr := s.service.List(s.ctx, s.user)
	s.Require().NoError(listErr)
	s.Empty(docs)
}

func (s *DocumentServiceSuite) TestCompleteMarksUploadedOnce() {
	s.apps.EXPECT().ListApplications(gomock.Any(), s.user).
		Return([]*appmodels.Application{s.submitted}, nil)
	s.expectPresign()
	ticket, err := s.service.RequestUpload(s.ctx, s.user, s.upload(nil))
	s.Require().NoError(err)

	s.objects.EXPECT().StatObject(gomock.Any(), ticket.Document.StorageKey).
		Return(&storage.ObjectInfo{Size: 2048, ContentType: "application/pdf"}, nil)

	doc, err := s.service.Complete(s.ctx, s.user, ticket.Document.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusUploaded, doc.Status)

	again, err := s.service.Complete(s.ctx, s.user, ticket.Document.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusUploaded, again.Status)
	s.Equal(2, s.auditStore.Pending(), "one request event and one upload event")
}

func (s *DocumentServiceSuite) TestCompleteRequiresStoredObject() {
	s.apps.EXPECT().ListApplications(gomock.Any(), s.user).
		Return([]*appmodels.Application{s.submitted}, nil).AnyTimes()
	s.expectPresign()
	ticket, err := s.service.RequestUpload(s.ctx, s.user, s.upload(nil))
	s.Require().NoError(err)
	key := ticket.Document.StorageKey

	s.Run("nothing uploaded yet", func() {
		s.objects.EXPECT().StatObject(gomock.Any(), key).Return(nil, storage.ErrObjectNotFound)
		_, err := s.service.Complete(s.ctx, s.user, ticket.Document.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("size differs from the declared size", func() {
		s.objects.EXPECT().StatObject(gomock.Any(), key).Return(&storage.ObjectInfo{Size: 99}, nil)
		_, err := s.service.Complete(s.ctx, s.user, ticket.Document.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("storage unavailable", func() {
		s.objects.EXPECT().StatObject(gomock.Any(), key).Return(nil, errors.New("timeout"))
		_, err := s.service.Complete(s.ctx, s.user, ticket.Document.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})

	stored, err := s.docs.FindByID(s.ctx, s.user, ticket.Document.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusPendingUpload, stored.Status)
	s.Equal(1, s.auditStore.Pending(), "only the request event")
}

func (s *DocumentServiceSuite) TestCompleteIsOwnerScoped() {
	s.apps.EXPECT().ListApplications(gomock.Any(), s.user).
		Return([]*appmodels.Application{s.submitted}, nil)
	s.expectPresign()
	ticket, err := s.service.RequestUpload(s.ctx, s.user, s.upload(nil))
	s.Require().NoError(err)

	_, err = s.service.Complete(s.ctx, id.NewUserID(), ticket.Document.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *DocumentServiceSuite) TestAnonymousCallerIsUnauthorized() {
	_, err := s.service.List(s.ctx, id.UserID{})
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}
