package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"govportal/internal/application/models"
	id "govportal/pkg/domain"
	dErrors "govportal/pkg/domain-errors"
	"govportal/pkg/platform/httputil"
	authmw "govportal/pkg/platform/middleware/auth"
	"govportal/pkg/platform/middleware/request"
	"govportal/pkg/requestcontext"
)

// Service defines the draft and submission operations used by the handler.
type Service interface {
	GetDraft(ctx context.Context, userID id.UserID) (*models.Draft, error)
	SaveStep(ctx context.Context, userID id.UserID, stepIndex int, data map[string]any) (id.ApplicationID, error)
	Submit(ctx context.Context, userID id.UserID, appID *id.ApplicationID) (id.ApplicationID, error)
	GetApplication(ctx context.Context, userID id.UserID, appID id.ApplicationID) (*models.Application, error)
	ListApplications(ctx context.Context, userID id.UserID) ([]*models.Application, error)
}

// Handler serves the draft, submit and application endpoints.
type Handler struct {
	service     Service
	logger      *slog.Logger
	validator   authmw.SessionValidator
	revocations authmw.TokenRevocationChecker
}

func New(service Service, logger *slog.Logger, validator authmw.SessionValidator, revocations authmw.TokenRevocationChecker) *Handler {
	return &Handler{
		service:     service,
		logger:      logger,
		validator:   validator,
		revocations: revocations,
	}
}

// Register registers the application routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	requireAuth := authmw.RequireAuth(h.validator, h.revocations, h.logger)

	r.Route("/api/application", func(r chi.Router) {
		r.With(authmw.OptionalAuth(h.validator, h.revocations)).Get("/draft", h.handleGetDraft)
		r.Group(func(r chi.Router) {
			r.Use(request.ContentTypeJSON)
			r.Use(requireAuth)
			r.Post("/draft", h.handleSaveDraft)
			r.Post("/submit", h.handleSubmit)
		})
	})
	r.Route("/api/applications", func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/", h.handleList)
		r.Get("/{id}", h.handleGet)
	})
}

// handleGetDraft always answers 200. No session, no draft and lookup
// failures all read as {"draft":null}.
func (h *Handler) handleGetDraft(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		httputil.WriteJSON(w, http.StatusOK, DraftResponse{})
		return
	}

	d, err := h.service.GetDraft(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to load draft",
			"request_id", request.GetRequestID(ctx),
			"user_id", userID.String(),
			"error", err,
		)
		httputil.WriteJSON(w, http.StatusOK, DraftResponse{})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, DraftResponse{Draft: toDraftView(d)})
}

func (h *Handler) handleSaveDraft(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[SaveDraftRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	appID, err := h.service.SaveStep(ctx, userID, req.step, req.data)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, SavedResponse{OK: true, ApplicationID: appID.String()})
}

// handleSubmit tolerates an empty or malformed body and then submits the
// latest draft.
func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	var req SubmitRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.logger.WarnContext(ctx, "ignoring malformed submit body",
			"request_id", requestID,
			"error", err,
		)
	}
	target, valid := req.Target()
	if !valid {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "No draft found"))
		return
	}

	appID, err := h.service.Submit(ctx, userID, target)
	if err != nil {
		h.logger.WarnContext(ctx, "submission rejected",
			"request_id", requestID,
			"user_id", userID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, SavedResponse{OK: true, ApplicationID: appID.String()})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	apps, err := h.service.ListApplications(ctx, userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	views := make([]*ApplicationView, 0, len(apps))
	for _, a := range apps {
		views = append(views, toApplicationView(a))
	}
	httputil.WriteJSON(w, http.StatusOK, ApplicationsResponse{Applications: views})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	appID, err := id.ParseApplicationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "Application not found"))
		return
	}
	app, err := h.service.GetApplication(ctx, userID, appID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ApplicationResponse{Application: toApplicationView(app)})
}

func (h *Handler) requireUser(w http.ResponseWriter, r *http.Request) (id.UserID, bool) {
	ctx := r.Context()
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		h.logger.ErrorContext(ctx, "userID missing from context despite auth middleware",
			"request_id", request.GetRequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Unauthorized"))
		return id.UserID{}, false
	}
	return userID, true
}
