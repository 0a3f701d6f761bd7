package handler

//go:generate mockgen -source=handler.go -destination=mocks/document-mocks.go -package=mocks Service

import (
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"govportal/internal/document/handler/mocks"
	"govportal/internal/document/models"
	"govportal/internal/document/service"
	"govportal/internal/document/storage"
	"govportal/internal/session"
	id "govportal/pkg/domain"
	dErrors "govportal/pkg/domain-errors"
	"govportal/pkg/testutil"
)

type DocumentHandlerSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	service *mocks.MockService
	tokens  *session.JWTService
	router  chi.Router
	user    id.UserID
}

func TestDocumentHandlerSuite(t *testing.T) {
	suite.Run(t, new(DocumentHandlerSuite))
}

func (s *DocumentHandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.service = mocks.NewMockService(s.ctrl)
	s.tokens = session.NewJWTService("test-secret", "govportal", time.Hour)
	s.user = id.NewUserID()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := New(s.service, logger, session.NewJWTServiceAdapter(s.tokens), nil)
	s.router = chi.NewRouter()
	h.Register(s.router)
}

func (s *DocumentHandlerSuite) authed(req *http.Request) *http.Request {
	issued, err := s.tokens.Issue(s.user, "user@example.gov")
	s.Require().NoError(err)
	req.Header.Set("Authorization", "Bearer "+issued.Token)
	return req
}

func (s *DocumentHandlerSuite) document() *models.Document {
	appID := id.NewApplicationID()
	return models.NewDocument(s.user, appID, models.Upload{
		ApplicationID: &appID,
		Kind:          models.KindProofOfIdentity,
		FileName:      "passport.png",
		ContentType:   "image/png",
		SizeBytes:     512,
	}, time.Now())
}

func (s *DocumentHandlerSuite) TestRequestUpload() {
	s.Run("requires a session", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/documents", map[string]any{"kind": "lease"})
		rr := testutil.DoRequest(s.router, req)
		s.Equal(http.StatusUnauthorized, rr.Code)
	})

	s.Run("returns the presigned url", func() {
		doc := s.document()
		expires := time.Now().Add(15 * time.Minute).UTC().Truncate(time.Second)
		s.service.EXPECT().
			RequestUpload(gomock.Any(), s.user, models.Upload{
				ApplicationID: &doc.ApplicationID,
				Kind:          models.KindProofOfIdentity,
				FileName:      "passport.png",
				ContentType:   "image/png",
				SizeBytes:     512,
			}).
			Return(&service.Ticket{
				Document: doc,
				Upload:   &storage.PresignedUpload{URL: "https://uploads.example/x", Method: http.MethodPut, ExpiresAt: expires},
			}, nil)

		req := s.authed(testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/documents", map[string]any{
			"applicationId": doc.ApplicationID.String(),
			"kind":          " Proof_Of_Identity ",
			"fileName":      "passport.png",
			"contentType":   "IMAGE/PNG",
			"sizeBytes":     512,
		}))
		rr := testutil.DoRequest(s.router, req)
		s.Require().Equal(http.StatusCreated, rr.Code)
		body := testutil.UnmarshalResponse[UploadResponse](s.T(), rr)
		s.Equal("https://uploads.example/x", body.UploadURL)
		s.Equal(http.MethodPut, body.Method)
		s.True(expires.Equal(body.ExpiresAt))
		s.Equal(models.StatusPendingUpload, body.Document.Status)
	})

	for name, body := range map[string]map[string]any{
		"unknown kind":   {"kind": "selfie", "fileName": "a.png", "contentType": "image/png", "sizeBytes": 1},
		"bad type":       {"kind": "lease", "fileName": "a.gif", "contentType": "image/gif", "sizeBytes": 1},
		"too large":      {"kind": "lease", "fileName": "a.pdf", "contentType": "application/pdf", "sizeBytes": models.MaxSizeBytes + 1},
		"bad app id":     {"applicationId": "nope", "kind": "lease", "fileName": "a.pdf", "contentType": "application/pdf", "sizeBytes": 1},
		"missing a name": {"kind": "lease", "contentType": "application/pdf", "sizeBytes": 1},
	} {
		s.Run(name+" is rejected before the service", func() {
			req := s.authed(testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/documents", body))
			rr := testutil.DoRequest(s.router, req)
			testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeValidation))
		})
	}

	s.Run("no submitted application is not found", func() {
		s.service.EXPECT().RequestUpload(gomock.Any(), s.user, gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeNotFound, "No submitted application found"))

		req := s.authed(testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/documents", map[string]any{
			"kind": "lease", "fileName": "a.pdf", "contentType": "application/pdf", "sizeBytes": 10,
		}))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, string(dErrors.CodeNotFound))
	})
}

func (s *DocumentHandlerSuite) TestComplete() {
	s.Run("invalid id is not found", func() {
		rr := testutil.DoRequest(s.router, s.authed(testutil.NewRequest(s.T(), http.MethodPost, "/api/documents/zzz/complete")))
		s.Equal(http.StatusNotFound, rr.Code)
	})

	s.Run("marks the document uploaded", func() {
		doc := s.document()
		doc.Status = models.StatusUploaded
		s.service.EXPECT().Complete(gomock.Any(), s.user, doc.ID).Return(doc, nil)

		rr := testutil.DoRequest(s.router, s.authed(testutil.NewRequest(s.T(), http.MethodPost, "/api/documents/"+doc.ID.String()+"/complete")))
		testutil.AssertStatusOK(s.T(), rr)
		body := testutil.UnmarshalResponse[DocumentResponse](s.T(), rr)
		s.Equal(models.StatusUploaded, body.Document.Status)
	})
}

func (s *DocumentHandlerSuite) TestList() {
	doc := s.document()
	s.service.EXPECT().List(gomock.Any(), s.user).Return([]*models.Document{doc}, nil)

	rr := testutil.DoRequest(s.router, s.authed(testutil.NewRequest(s.T(), http.MethodGet, "/api/documents")))
	testutil.AssertStatusOK(s.T(), rr)
	body := testutil.UnmarshalResponse[DocumentsResponse](s.T(), rr)
	s.Require().Len(body.Documents, 1)
	s.Equal(doc.ID.String(), body.Documents[0].ID)
	s.Equal(doc.ApplicationID.String(), body.Documents[0].ApplicationID)
}
