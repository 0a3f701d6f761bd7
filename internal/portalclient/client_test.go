package portalclient

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	accounthandler "govportal/internal/account/handler"
	"govportal/internal/account/password"
	accountservice "govportal/internal/account/service"
	userstore "govportal/internal/account/store/user"
	apphandler "govportal/internal/application/handler"
	appservice "govportal/internal/application/service"
	"govportal/internal/application/store/draft"
	"govportal/internal/autosave"
	dochandler "govportal/internal/document/handler"
	docservice "govportal/internal/document/service"
	"govportal/internal/document/storage"
	docstore "govportal/internal/document/store/document"
	"govportal/internal/session"
	"govportal/internal/session/revocation"
	httptransport "govportal/internal/transport/http"
	txcontext "govportal/pkg/platform/tx"
)

// blobStore stands in for the object store behind presigned URLs.
type blobStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
	base  string
}

func (b *blobStore) PresignPut(_ context.Context, key, _ string, _ int64) (*storage.PresignedUpload, error) {
	return &storage.PresignedUpload{
		URL:       b.base + "/blob/" + key,
		Method:    http.MethodPut,
		ExpiresAt: time.Now().Add(15 * time.Minute),
	}, nil
}

func (b *blobStore) StatObject(_ context.Context, key string) (*storage.ObjectInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	body, ok := b.blobs[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return &storage.ObjectInfo{Size: int64(len(body))}, nil
}

func (b *blobStore) Register(r chi.Router) {
	r.Put("/blob/*", func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		b.mu.Lock()
		b.blobs[chi.URLParam(r, "*")] = body
		b.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})
}

type ClientSuite struct {
	suite.Suite
	ctx    context.Context
	server *httptest.Server
	blobs  *blobStore
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientSuite))
}

func (s *ClientSuite) SetupTest() {
	s.ctx = context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens := session.NewJWTService("test-secret", "govportal", time.Hour)
	validator := session.NewJWTServiceAdapter(tokens)
	trl := revocation.NewInMemoryTRL()
	runner := txcontext.NewLocal()

	accounts := accountservice.New(userstore.NewInMemory(), password.NewHasher(bcrypt.MinCost), tokens,
		accountservice.WithRevocationList(trl),
	)
	apps := appservice.New(draft.NewInMemory(), runner)
	s.blobs = &blobStore{blobs: make(map[string][]byte)}
	docs := docservice.New(docstore.NewInMemory(), apps, s.blobs, runner)

	router := httptransport.NewRouter(httptransport.Config{Logger: logger},
		accounthandler.New(accounts, logger, session.Cookies{}, time.Hour, validator, trl),
		apphandler.New(apps, logger, validator, trl),
		dochandler.New(docs, logger, validator, trl),
		s.blobs,
	)
	s.server = httptest.NewServer(router)
	s.blobs.base = s.server.URL
}

func (s *ClientSuite) TearDownTest() {
	s.server.Close()
}

func (s *ClientSuite) newClient() *Client {
	c, err := New(s.server.URL)
	s.Require().NoError(err)
	return c
}

func (s *ClientSuite) signup(c *Client, email string) *User {
	u, err := c.Signup(s.ctx, SignupInput{
		Email:     email,
		Password:  "correct horse",
		FirstName: "Jane",
		LastName:  "Doe",
		Phone:     "555-0100",
	})
	s.Require().NoError(err)
	return u
}

func (s *ClientSuite) TestSessionRoundTrip() {
	c := s.newClient()

	me, err := c.Me(s.ctx)
	s.Require().NoError(err)
	s.Nil(me)

	u := s.signup(c, " Jane@Example.gov ")
	s.Equal("jane@example.gov", u.Email)
	s.Equal("Jane Doe", u.Name)

	me, err = c.Me(s.ctx)
	s.Require().NoError(err)
	s.Require().NotNil(me)
	s.Equal(u.ID, me.ID)

	s.Require().NoError(c.Logout(s.ctx))
	me, err = c.Me(s.ctx)
	s.Require().NoError(err)
	s.Nil(me)

	_, err = c.Login(s.ctx, "jane@example.gov", "correct horse")
	s.Require().NoError(err)
	me, err = c.Me(s.ctx)
	s.Require().NoError(err)
	s.NotNil(me)
}

func (s *ClientSuite) TestSessionTokenResumes() {
	c := s.newClient()
	s.Empty(c.SessionToken())
	s.signup(c, "resume@example.gov")
	token := c.SessionToken()
	s.Require().NotEmpty(token)

	resumed, err := New(s.server.URL, WithSessionToken(token))
	s.Require().NoError(err)
	me, err := resumed.Me(s.ctx)
	s.Require().NoError(err)
	s.Require().NotNil(me)
	s.Equal("resume@example.gov", me.Email)
}

func (s *ClientSuite) TestAPIErrors() {
	c := s.newClient()
	s.signup(c, "dup@example.gov")

	_, err := s.newClient().Signup(s.ctx, SignupInput{
		Email: "dup@example.gov", Password: "x", FirstName: "A", LastName: "B", Phone: "1",
	})
	var apiErr *APIError
	s.Require().ErrorAs(err, &apiErr)
	s.Equal(http.StatusConflict, apiErr.Status)
	s.Equal("conflict", apiErr.Code)

	err = s.newClient().SaveDraft(s.ctx, 0, map[string]any{})
	s.Require().ErrorAs(err, &apiErr)
	s.Equal(http.StatusUnauthorized, apiErr.Status)
}

func (s *ClientSuite) TestAutosaveThenSubmit() {
	c := s.newClient()
	s.signup(c, "flow@example.gov")

	form := autosave.New(c, c, autosave.WithDelay(time.Hour))
	offer, err := form.Restore(s.ctx)
	s.Require().NoError(err)
	s.Nil(offer)

	form.SetFields(map[string]any{"email": "  FLOW@Example.gov ", "firstName": " Jane "})
	s.Require().NoError(form.Next(s.ctx))
	form.SetField("lastName", "Doe")
	s.Require().NoError(form.Flush(s.ctx))

	_, err = c.Submit(s.ctx, "")
	var apiErr *APIError
	s.Require().ErrorAs(err, &apiErr)
	s.Equal(http.StatusBadRequest, apiErr.Status)
	s.Equal([]string{"phone"}, apiErr.Missing)

	form.SetField("phone", "555-0100")
	s.Require().NoError(form.Close(s.ctx))

	resumed := autosave.New(c, c)
	offer, err = resumed.Restore(s.ctx)
	s.Require().NoError(err)
	s.Require().NotNil(offer)
	s.Equal(1, offer.Draft.CurrentStep)
	s.Equal("555-0100", offer.Draft.Data["phone"])

	appID, err := c.Submit(s.ctx, "")
	s.Require().NoError(err)
	s.Equal(offer.Draft.ApplicationID, appID)

	_, err = c.Submit(s.ctx, appID)
	s.Require().ErrorAs(err, &apiErr)
	s.Equal(http.StatusConflict, apiErr.Status)

	draft, err := c.LoadDraft(s.ctx)
	s.Require().NoError(err)
	s.Nil(draft)
}

func (s *ClientSuite) TestUploadFile() {
	c := s.newClient()
	s.signup(c, "docs@example.gov")

	s.Require().NoError(c.SaveDraft(s.ctx, 0, map[string]any{
		"email": "docs@example.gov", "firstName": "Jane", "lastName": "Doe", "phone": "555",
	}))
	appID, err := c.Submit(s.ctx, "")
	s.Require().NoError(err)

	path := filepath.Join(s.T().TempDir(), "lease.pdf")
	s.Require().NoError(os.WriteFile(path, []byte("%PDF-1.7 lease"), 0o600))

	doc, err := c.UploadFile(s.ctx, appID, "lease", path, "application/pdf")
	s.Require().NoError(err)
	s.Equal("UPLOADED", doc.Status)
	s.Equal(appID, doc.ApplicationID)

	s.blobs.mu.Lock()
	defer s.blobs.mu.Unlock()
	s.Require().Len(s.blobs.blobs, 1)
	for _, body := range s.blobs.blobs {
		s.Equal("%PDF-1.7 lease", string(body))
	}
}

func (s *ClientSuite) TestCompleteBeforeUploadConflicts() {
	c := s.newClient()
	s.signup(c, "early@example.gov")
	s.Require().NoError(c.SaveDraft(s.ctx, 0, map[string]any{
		"email": "early@example.gov", "firstName": "Jane", "lastName": "Doe", "phone": "555",
	}))
	appID, err := c.Submit(s.ctx, "")
	s.Require().NoError(err)

	ticket, err := c.RequestUpload(s.ctx, UploadInput{
		ApplicationID: appID,
		Kind:          "lease",
		FileName:      "lease.pdf",
		ContentType:   "application/pdf",
		SizeBytes:     14,
	})
	s.Require().NoError(err)

	_, err = c.CompleteUpload(s.ctx, ticket.Document.ID)
	var apiErr *APIError
	s.Require().ErrorAs(err, &apiErr)
	s.Equal(http.StatusConflict, apiErr.Status)
}

func TestNewRejectsRelativeURL(t *testing.T) {
	_, err := New("localhost:8080")
	if err == nil {
		t.Fatal("expected an error for a relative base url")
	}
}
