// Package service implements draft persistence and the DRAFT to SUBMITTED
// transition.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"govportal/internal/application/metrics"
	"govportal/internal/application/models"
	id "govportal/pkg/domain"
	dErrors "govportal/pkg/domain-errors"
	audit "govportal/pkg/platform/audit"
	"govportal/pkg/platform/sentinel"
	txcontext "govportal/pkg/platform/tx"
	"govportal/pkg/requestcontext"
)

// DefaultMaxSteps is the number of form steps.
const DefaultMaxSteps = 4

var tracer = otel.Tracer("govportal/application")

type Store interface {
	FindLatestDraft(ctx context.Context, userID id.UserID) (*models.Application, error)
	CreateDraft(ctx context.Context, app *models.Application) (*models.Application, error)
	FindByID(ctx context.Context, userID id.UserID, appID id.ApplicationID) (*models.Application, error)
	LockByID(ctx context.Context, userID id.UserID, appID id.ApplicationID) (*models.Application, error)
	ListSteps(ctx context.Context, appID id.ApplicationID) ([]models.Step, error)
	UpsertStep(ctx context.Context, appID id.ApplicationID, key string, payload json.RawMessage, now time.Time) error
	Touch(ctx context.Context, appID id.ApplicationID, now time.Time) error
	MarkSubmitted(ctx context.Context, appID id.ApplicationID, formData map[string]any, now time.Time) error
	ListByUser(ctx context.Context, userID id.UserID) ([]*models.Application, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service owns the application lifecycle. Every query is scoped to the
// calling user.
type Service struct {
	store          Store
	tx             txcontext.Runner
	maxSteps       int
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
}

type Option func(*Service)

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

// WithMaxSteps bounds accepted step indexes to [0, n).
func WithMaxSteps(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxSteps = n
		}
	}
}

func New(store Store, runner txcontext.Runner, opts ...Option) *Service {
	s := &Service{
		store:    store,
		tx:       runner,
		maxSteps: DefaultMaxSteps,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetOrCreateDraft returns the user's draft, creating an empty one when there
// is none. Concurrent first calls converge on a single draft.
func (s *Service) GetOrCreateDraft(ctx context.Context, userID id.UserID) (*models.Application, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "Unauthorized")
	}
	var app *models.Application
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		app, err = s.getOrCreateDraft(ctx, userID)
		return err
	})
	if err != nil {
		return nil, wrapInternal(err, "failed to load draft")
	}
	return app, nil
}

func (s *Service) getOrCreateDraft(ctx context.Context, userID id.UserID) (*models.Application, error) {
	app, err := s.store.FindLatestDraft(ctx, userID)
	if err == nil {
		return app, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, err
	}

	candidate := models.NewDraft(userID, requestcontext.Now(ctx))
	app, err = s.store.CreateDraft(ctx, candidate)
	if err != nil {
		return nil, err
	}
	if app.ID == candidate.ID {
		s.metrics.IncrementDraftsCreated()
		if err := s.emit(ctx, audit.Event{
			UserID:  userID,
			Action:  string(audit.EventDraftCreated),
			Subject: app.ID.String(),
		}); err != nil {
			return nil, err
		}
	}
	return app, nil
}

// lockDraft resolves the user's draft and locks its row. A draft submitted
// between the lookup and the lock is skipped and the next draft is used.
func (s *Service) lockDraft(ctx context.Context, userID id.UserID) (*models.Application, error) {
	for attempt := 0; attempt < 2; attempt++ {
		app, err := s.getOrCreateDraft(ctx, userID)
		if err != nil {
			return nil, err
		}
		locked, err := s.store.LockByID(ctx, userID, app.ID)
		if err != nil {
			return nil, err
		}
		if locked.IsDraft() {
			return locked, nil
		}
	}
	return nil, dErrors.New(dErrors.CodeConflict, "Application is not a draft")
}

// SaveStep stores data as the snapshot of stepIndex and records stepIndex as
// the current step. The step row, metadata row and timestamp commit together.
func (s *Service) SaveStep(ctx context.Context, userID id.UserID, stepIndex int, data map[string]any) (id.ApplicationID, error) {
	ctx, span := tracer.Start(ctx, "application.SaveStep", trace.WithAttributes(attribute.Int("step", stepIndex)))
	defer span.End()

	if userID.IsNil() {
		return id.ApplicationID{}, dErrors.New(dErrors.CodeUnauthorized, "Unauthorized")
	}
	if err := models.ValidateStepIndex(stepIndex, s.maxSteps); err != nil {
		return id.ApplicationID{}, err
	}
	stepPayload, err := models.StepPayload(data)
	if err != nil {
		return id.ApplicationID{}, dErrors.Wrap(err, dErrors.CodeValidation, "data must be JSON encodable")
	}
	progress, err := models.ProgressPayload(stepIndex)
	if err != nil {
		return id.ApplicationID{}, wrapInternal(err, "failed to encode draft metadata")
	}
	key := models.StepKey(stepIndex)

	var appID id.ApplicationID
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		app, err := s.lockDraft(ctx, userID)
		if err != nil {
			return err
		}
		appID = app.ID
		now := requestcontext.Now(ctx)
		if err := s.store.UpsertStep(ctx, app.ID, key, stepPayload, now); err != nil {
			return err
		}
		if err := s.store.UpsertStep(ctx, app.ID, models.MetaKey, progress, now); err != nil {
			return err
		}
		return s.store.Touch(ctx, app.ID, now)
	})
	if err != nil {
		recordSpanError(span, err)
		s.logger.ErrorContext(ctx, "failed to save draft step",
			"request_id", requestcontext.RequestID(ctx),
			"user_id", userID.String(),
			"step", key,
			"error", err,
		)
		return id.ApplicationID{}, wrapInternal(err, "failed to save draft")
	}

	s.metrics.IncrementDraftSaves(key)
	span.SetAttributes(attribute.String("application_id", appID.String()))
	return appID, nil
}

// GetDraft returns the resumable view of the user's draft, or nil when the
// user has none.
func (s *Service) GetDraft(ctx context.Context, userID id.UserID) (*models.Draft, error) {
	if userID.IsNil() {
		return nil, nil
	}
	app, err := s.store.FindLatestDraft(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, wrapInternal(err, "failed to load draft")
	}
	steps, err := s.store.ListSteps(ctx, app.ID)
	if err != nil {
		return nil, wrapInternal(err, "failed to load draft steps")
	}
	return models.DraftFrom(app, steps), nil
}

// Submit validates the merged draft and flips it to SUBMITTED. Without an
// explicit id the user's latest draft is submitted. Nothing is written unless
// every check passes.
func (s *Service) Submit(ctx context.Context, userID id.UserID, appID *id.ApplicationID) (id.ApplicationID, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "application.Submit")
	defer span.End()

	if userID.IsNil() {
		return id.ApplicationID{}, dErrors.New(dErrors.CodeUnauthorized, "Unauthorized")
	}

	var submitted id.ApplicationID
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		app, err := s.resolveForSubmit(ctx, userID, appID)
		if err != nil {
			return err
		}
		if !app.IsDraft() {
			return dErrors.New(dErrors.CodeConflict, "Application is not a draft")
		}

		steps, err := s.store.ListSteps(ctx, app.ID)
		if err != nil {
			return err
		}
		if models.CountDataSteps(steps) == 0 {
			return dErrors.New(dErrors.CodeInvalidState, "Draft has no saved data")
		}

		formData := models.Normalize(models.Merge(steps))
		if missing := models.RequiredMissing(formData); len(missing) > 0 {
			return dErrors.WithFields(dErrors.CodeValidation, "Missing required fields", missing)
		}

		now := requestcontext.Now(ctx)
		if err := s.store.MarkSubmitted(ctx, app.ID, formData, now); err != nil {
			if errors.Is(err, sentinel.ErrInvalidState) {
				return dErrors.New(dErrors.CodeConflict, "Application is not a draft")
			}
			return err
		}
		meta, err := models.SubmissionPayload(now, userID)
		if err != nil {
			return err
		}
		if err := s.store.UpsertStep(ctx, app.ID, models.MetaKey, meta, now); err != nil {
			return err
		}
		if err := s.emit(ctx, audit.Event{
			UserID:  userID,
			Action:  string(audit.EventApplicationSubmitted),
			Subject: app.ID.String(),
			Details: traceDetails(ctx),
		}); err != nil {
			return err
		}
		submitted = app.ID
		return nil
	})
	if err != nil {
		recordSpanError(span, err)
		s.metrics.ObserveSubmission(string(dErrors.CodeOf(err)), start)
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			s.logger.ErrorContext(ctx, "failed to submit application",
				"request_id", requestcontext.RequestID(ctx),
				"user_id", userID.String(),
				"error", err,
			)
		}
		return id.ApplicationID{}, wrapInternal(err, "failed to submit application")
	}

	s.metrics.ObserveSubmission("submitted", start)
	span.SetAttributes(attribute.String("application_id", submitted.String()))
	s.logger.InfoContext(ctx, "application submitted",
		"request_id", requestcontext.RequestID(ctx),
		"user_id", userID.String(),
		"application_id", submitted.String(),
	)
	return submitted, nil
}

// resolveForSubmit returns the target application with its row locked.
func (s *Service) resolveForSubmit(ctx context.Context, userID id.UserID, appID *id.ApplicationID) (*models.Application, error) {
	notFound := dErrors.New(dErrors.CodeNotFound, "No draft found")
	target := appID
	if target == nil {
		latest, err := s.store.FindLatestDraft(ctx, userID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil, notFound
			}
			return nil, err
		}
		target = &latest.ID
	}
	app, err := s.store.LockByID(ctx, userID, *target)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, notFound
		}
		return nil, err
	}
	return app, nil
}

// GetApplication returns one of the user's applications.
func (s *Service) GetApplication(ctx context.Context, userID id.UserID, appID id.ApplicationID) (*models.Application, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "Unauthorized")
	}
	app, err := s.store.FindByID(ctx, userID, appID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "Application not found")
		}
		return nil, wrapInternal(err, "failed to load application")
	}
	return app, nil
}

// ListApplications returns the user's applications, most recently updated first.
func (s *Service) ListApplications(ctx context.Context, userID id.UserID) ([]*models.Application, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "Unauthorized")
	}
	apps, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, wrapInternal(err, "failed to list applications")
	}
	return apps, nil
}

// emit appends an audit event inside the caller's transaction.
func (s *Service) emit(ctx context.Context, event audit.Event) error {
	if s.auditPublisher == nil {
		return nil
	}
	return s.auditPublisher.Emit(ctx, event)
}

func traceDetails(ctx context.Context) map[string]string {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return nil
	}
	return map[string]string{
		"trace_id": sc.TraceID().String(),
		"span_id":  sc.SpanID().String(),
	}
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
}

// wrapInternal passes domain errors through and wraps everything else.
func wrapInternal(err error, msg string) error {
	if _, ok := dErrors.As(err); ok {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
