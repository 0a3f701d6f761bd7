package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"govportal/internal/account/metrics"
	"govportal/internal/account/models"
	"govportal/internal/session"
	id "govportal/pkg/domain"
	dErrors "govportal/pkg/domain-errors"
	audit "govportal/pkg/platform/audit"
	"govportal/pkg/platform/sentinel"
	"govportal/pkg/requestcontext"
)

type UserStore interface {
	CreateIfEmailAvailable(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) error
}

type TokenIssuer interface {
	Issue(userID id.UserID, email string) (session.Issued, error)
	TTL() time.Duration
}

type RevocationList interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
}

type LoginLimiter interface {
	Check(ctx context.Context, email, clientIP string) error
	Reset(ctx context.Context, email, clientIP string)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service manages portal accounts and their sessions.
type Service struct {
	users          UserStore
	hasher         PasswordHasher
	tokens         TokenIssuer
	revocations    RevocationList
	limiter        LoginLimiter
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics

	dummyOnce sync.Once
	dummyHash string
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithLoginLimiter(l LoginLimiter) Option {
	return func(s *Service) {
		s.limiter = l
	}
}

func WithRevocationList(r RevocationList) Option {
	return func(s *Service) {
		s.revocations = r
	}
}

// New constructs a Service.
func New(users UserStore, hasher PasswordHasher, tokens TokenIssuer, opts ...Option) *Service {
	s := &Service{users: users, hasher: hasher, tokens: tokens, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates an account and signs the new user in.
func (s *Service) Register(ctx context.Context, profile models.Profile, password string) (*models.Authenticated, error) {
	profile.Email = models.NormalizeEmail(profile.Email)
	hash, err := s.hasher.Hash(password)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeValidation) || dErrors.HasCode(err, dErrors.CodeInvalidInput) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}

	u, err := models.NewUser(id.NewUserID(), profile, hash, requestcontext.Now(ctx))
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, "Missing required fields")
		}
		return nil, err
	}

	if err := s.users.CreateIfEmailAvailable(ctx, u); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "Email already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user")
	}
	s.metrics.IncrementUsersCreated()
	s.emit(ctx, audit.Event{UserID: u.ID, Email: u.Email, Action: string(audit.EventUserCreated)})

	issued, err := s.tokens.Issue(u.ID, u.Email)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue session")
	}
	return &models.Authenticated{User: u, Session: issued}, nil
}

// Login verifies credentials and issues a session. Unknown emails and wrong
// passwords produce the same error.
func (s *Service) Login(ctx context.Context, email, password string) (*models.Authenticated, error) {
	start := time.Now()
	email = models.NormalizeEmail(email)
	clientIP := requestcontext.ClientIP(ctx)

	if s.limiter != nil {
		if err := s.limiter.Check(ctx, email, clientIP); err != nil {
			s.metrics.ObserveLogin("limited", start)
			s.emit(ctx, audit.Event{Email: email, Action: string(audit.EventRateLimitExceeded), Reason: "login"})
			return nil, err
		}
	}

	invalid := dErrors.New(dErrors.CodeUnauthorized, "Invalid credentials")

	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.verifyDummy(password)
			s.metrics.ObserveLogin("invalid", start)
			s.emit(ctx, audit.Event{Email: email, Action: string(audit.EventLoginFailed), Reason: "unknown_email"})
			return nil, invalid
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}

	if err := s.hasher.Verify(password, u.PasswordHash); err != nil {
		if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			s.metrics.ObserveLogin("invalid", start)
			s.emit(ctx, audit.Event{UserID: u.ID, Email: email, Action: string(audit.EventLoginFailed), Reason: "bad_password"})
			return nil, invalid
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify password")
	}

	issued, err := s.tokens.Issue(u.ID, u.Email)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue session")
	}
	if s.limiter != nil {
		s.limiter.Reset(ctx, email, clientIP)
	}
	s.metrics.ObserveLogin("success", start)
	s.emit(ctx, audit.Event{UserID: u.ID, Email: u.Email, Action: string(audit.EventLoginSucceeded)})
	return &models.Authenticated{User: u, Session: issued}, nil
}

// Me returns the session user, or nil when the account no longer exists.
func (s *Service) Me(ctx context.Context, userID id.UserID) (*models.User, error) {
	if userID.IsNil() {
		return nil, nil
	}
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	return u, nil
}

// Logout revokes the session token until it would have expired anyway.
func (s *Service) Logout(ctx context.Context, userID id.UserID, jti string) error {
	if jti == "" || s.revocations == nil {
		return nil
	}
	if err := s.revocations.RevokeToken(ctx, jti, s.tokens.TTL()); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke session")
	}
	s.emit(ctx, audit.Event{UserID: userID, Action: string(audit.EventSessionRevoked), Subject: jti})
	return nil
}

// emit records best-effort account events. Failures are logged, not returned.
func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"request_id", requestcontext.RequestID(ctx),
			"action", event.Action,
			"error", err,
		)
	}
}

// verifyDummy spends one hash comparison so unknown emails take as long as
// wrong passwords.
func (s *Service) verifyDummy(password string) {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash("govportal-unknown-account")
		if err != nil {
			s.logger.Warn("failed to prepare dummy password hash", "error", err)
			return
		}
		s.dummyHash = hash
	})
	if s.dummyHash != "" {
		_ = s.hasher.Verify(password, s.dummyHash)
	}
}
