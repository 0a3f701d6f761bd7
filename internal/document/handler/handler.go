package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"govportal/internal/document/models"
	"govportal/internal/document/service"
	id "govportal/pkg/domain"
	dErrors "govportal/pkg/domain-errors"
	"govportal/pkg/platform/httputil"
	authmw "govportal/pkg/platform/middleware/auth"
	"govportal/pkg/platform/middleware/request"
	"govportal/pkg/requestcontext"
)

// Service defines the document intake operations used by the handler.
type Service interface {
	RequestUpload(ctx context.Context, userID id.UserID, upload models.Upload) (*service.Ticket, error)
	Complete(ctx context.Context, userID id.UserID, docID id.DocumentID) (*models.Document, error)
	List(ctx context.Context, userID id.UserID) ([]*models.Document, error)
}

// Handler serves the document endpoints. All of them require a session.
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

func (h *Handler) Register(r chi.Router) {
	r.Route("/api/documents", func(r chi.Router) {
		r.Use(request.ContentTypeJSON)
		r.Use(authmw.RequireAuth(h.validator, h.revocations, h.logger))
		r.Get("/", h.handleList)
		r.Post("/", h.handleRequestUpload)
		r.Post("/{id}/complete", h.handleComplete)
	})
}

func (h *Handler) handleRequestUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[UploadRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	ticket, err := h.service.RequestUpload(ctx, userID, req.Upload())
	if err != nil {
		h.logger.WarnContext(ctx, "upload request rejected",
			"request_id", requestID,
			"user_id", userID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, UploadResponse{
		Document:  toDocumentView(ticket.Document),
		UploadURL: ticket.Upload.URL,
		Method:    ticket.Upload.Method,
		ExpiresAt: ticket.Upload.ExpiresAt,
	})
}

func (h *Handler) handleComplete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	docID, err := id.ParseDocumentID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "Document not found"))
		return
	}
	doc, err := h.service.Complete(ctx, userID, docID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, DocumentResponse{Document: toDocumentView(doc)})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	docs, err := h.service.List(ctx, userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	views := make([]*DocumentView, 0, len(docs))
	for _, d := range docs {
		views = append(views, toDocumentView(d))
	}
	httputil.WriteJSON(w, http.StatusOK, DocumentsResponse{Documents: views})
}

func (h *Handler) requireUser(w http.ResponseWriter, r *http.Request) (id.UserID, bool) {
	ctx := r.Context()
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Unauthorized"))
		return id.UserID{}, false
	}
	return userID, true
}
