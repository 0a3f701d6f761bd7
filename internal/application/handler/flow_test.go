package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"govportal/internal/application/models"
	"govportal/internal/application/service"
	"govportal/internal/application/store/draft"
	"govportal/internal/session"
	id "govportal/pkg/domain"
	txcontext "govportal/pkg/platform/tx"
	"govportal/pkg/testutil"
)

// TestDraftToSubmissionFlow drives the real service and in-memory store
// through the HTTP surface.
func TestDraftToSubmissionFlow(t *testing.T) {
	tokens := session.NewJWTService("test-secret", "govportal", time.Hour)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.New(draft.NewInMemory(), txcontext.NewLocal(), service.WithLogger(logger))
	router := chi.NewRouter()
	New(svc, logger, session.NewJWTServiceAdapter(tokens), nil).Register(router)

	issued, err := tokens.Issue(id.NewUserID(), "j@x.com")
	require.NoError(t, err)
	do := func(req *http.Request) *http.Response {
		req.Header.Set("Authorization", "Bearer "+issued.Token)
		return testutil.DoRequest(router, req).Result()
	}
	decode := func(resp *http.Response, dst any) {
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.NoError(t, jsonDecode(resp.Body, dst))
	}

	var saved SavedResponse
	decode(do(testutil.NewJSONRequest(t, http.MethodPost, "/api/application/draft", map[string]any{
		"currentStep": 0,
		"data":        map[string]any{"first_name": "J"},
	})), &saved)
	decode(do(testutil.NewJSONRequest(t, http.MethodPost, "/api/application/draft", map[string]any{
		"currentStep": 1,
		"data":        map[string]any{"email": "j@x.com", "last_name": "D", "phone": "202-555-0100"},
	})), &saved)

	var restored DraftResponse
	decode(do(testutil.NewRequest(t, http.MethodGet, "/api/application/draft")), &restored)
	require.NotNil(t, restored.Draft)
	assert.Equal(t, 1, restored.Draft.CurrentStep)
	assert.Equal(t, saved.ApplicationID, restored.Draft.ApplicationID)

	var submitted SavedResponse
	decode(do(testutil.NewRequest(t, http.MethodPost, "/api/application/submit")), &submitted)
	assert.True(t, submitted.OK)
	assert.Equal(t, saved.ApplicationID, submitted.ApplicationID)

	var got ApplicationResponse
	decode(do(testutil.NewRequest(t, http.MethodGet, "/api/applications/"+submitted.ApplicationID)), &got)
	assert.Equal(t, models.StatusSubmitted, got.Application.Status)
	assert.Equal(t, map[string]any{
		"first_name": "J",
		"email":      "j@x.com",
		"last_name":  "D",
		"phone":      "202-555-0100",
	}, got.Application.FormData)

	var none DraftResponse
	decode(do(testutil.NewRequest(t, http.MethodGet, "/api/application/draft")), &none)
	assert.Nil(t, none.Draft)

	again := do(testutil.NewJSONRequest(t, http.MethodPost, "/api/application/submit", map[string]any{"applicationId": submitted.ApplicationID}))
	defer again.Body.Close()
	assert.Equal(t, http.StatusConflict, again.StatusCode)
}

func jsonDecode(r io.Reader, dst any) error {
	return json.NewDecoder(r).Decode(dst)
}
