package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"govportal/internal/account/models"
	"govportal/internal/session"
	id "govportal/pkg/domain"
	dErrors "govportal/pkg/domain-errors"
	"govportal/pkg/platform/httputil"
	authmw "govportal/pkg/platform/middleware/auth"
	"govportal/pkg/platform/middleware/request"
	"govportal/pkg/requestcontext"
)

// Service defines the account operations used by the handler.
type Service interface {
	Register(ctx context.Context, profile models.Profile, password string) (*models.Authenticated, error)
	Login(ctx context.Context, email, password string) (*models.Authenticated, error)
	Me(ctx context.Context, userID id.UserID) (*models.User, error)
	Logout(ctx context.Context, userID id.UserID, jti string) error
}

// Handler serves the /api/auth endpoints.
type Handler struct {
	service     Service
	logger      *slog.Logger
	cookies     session.Cookies
	sessionTTL  time.Duration
	validator   authmw.SessionValidator
	revocations authmw.TokenRevocationChecker
}

// New creates an account Handler. The validator and revocation checker resolve
// the optional session on /me and /logout.
func New(
	service Service,
	logger *slog.Logger,
	cookies session.Cookies,
	sessionTTL time.Duration,
	validator authmw.SessionValidator,
	revocations authmw.TokenRevocationChecker,
) *Handler {
	return &Handler{
		service:     service,
		logger:      logger,
		cookies:     cookies,
		sessionTTL:  sessionTTL,
		validator:   validator,
		revocations: revocations,
	}
}

// Register registers the account routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/api/auth", func(r chi.Router) {
		r.With(request.ContentTypeJSON).Post("/signup", h.handleSignup)
		r.With(request.ContentTypeJSON).Post("/login", h.handleLogin)
		r.Group(func(r chi.Router) {
			r.Use(authmw.OptionalAuth(h.validator, h.revocations))
			r.Get("/me", h.handleMe)
			r.Post("/logout", h.handleLogout)
		})
	})
}

func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[SignupRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	res, err := h.service.Register(ctx, req.Profile(), req.Password)
	if err != nil {
		h.logFailure(ctx, "signup failed", requestID, err)
		httputil.WriteError(w, err)
		return
	}

	h.cookies.Set(w, res.Session, h.sessionTTL)
	h.logger.InfoContext(ctx, "user signed up",
		"request_id", requestID,
		"user_id", res.User.ID.String(),
	)
	httputil.WriteJSON(w, http.StatusOK, AuthResponse{OK: true, User: toUserResponse(res.User)})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[LoginRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	res, err := h.service.Login(ctx, req.Email, req.Password)
	if err != nil {
		h.logFailure(ctx, "login failed", requestID, err)
		httputil.WriteError(w, err)
		return
	}

	h.cookies.Set(w, res.Session, h.sessionTTL)
	httputil.WriteJSON(w, http.StatusOK, AuthResponse{OK: true, User: toUserResponse(res.User)})
}

// handleMe never fails: a missing session, missing account or lookup error
// all answer {"user":null}.
func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		httputil.WriteJSON(w, http.StatusOK, MeResponse{})
		return
	}

	u, err := h.service.Me(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to load session user",
			"request_id", request.GetRequestID(ctx),
			"user_id", userID.String(),
			"error", err,
		)
		httputil.WriteJSON(w, http.StatusOK, MeResponse{})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, MeResponse{User: toUserResponse(u)})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := requestcontext.UserID(ctx)
	if !userID.IsNil() {
		if err := h.service.Logout(ctx, userID, requestcontext.TokenID(ctx)); err != nil {
			h.logger.ErrorContext(ctx, "failed to revoke session",
				"request_id", request.GetRequestID(ctx),
				"user_id", userID.String(),
				"error", err,
			)
		}
	}
	h.cookies.Clear(w)
	httputil.WriteJSON(w, http.StatusOK, OKResponse{OK: true})
}

func (h *Handler) logFailure(ctx context.Context, msg, requestID string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg, "request_id", requestID, "error", err)
		return
	}
	h.logger.WarnContext(ctx, msg, "request_id", requestID, "error", err)
}
