// Package service issues upload URLs for supporting documents and records
// their completion.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	appmodels "govportal/internal/application/models"
	"govportal/internal/document/models"
	"govportal/internal/document/storage"
	id "govportal/pkg/domain"
	dErrors "govportal/pkg/domain-errors"
	audit "govportal/pkg/platform/audit"
	"govportal/pkg/platform/sentinel"
	txcontext "govportal/pkg/platform/tx"
	"govportal/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, doc *models.Document) error
	FindByID(ctx context.Context, userID id.UserID, docID id.DocumentID) (*models.Document, error)
	MarkUploaded(ctx context.Context, docID id.DocumentID, now time.Time) error
	ListByUser(ctx context.Context, userID id.UserID) ([]*models.Document, error)
}

// Applications resolves the user's applications. Errors carry domain codes.
type Applications interface {
	GetApplication(ctx context.Context, userID id.UserID, appID id.ApplicationID) (*appmodels.Application, error)
	ListApplications(ctx context.Context, userID id.UserID) ([]*appmodels.Application, error)
}

// ObjectStore signs uploads and confirms they landed.
type ObjectStore interface {
	PresignPut(ctx context.Context, key, contentType string, size int64) (*storage.PresignedUpload, error)
	StatObject(ctx context.Context, key string) (*storage.ObjectInfo, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Ticket is an accepted upload request.
type Ticket struct {
	Document *models.Document
	Upload   *storage.PresignedUpload
}

type Service struct {
	docs           Store
	apps           Applications
	objects        ObjectStore
	tx             txcontext.Runner
	logger         *slog.Logger
	auditPublisher AuditPublisher
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

func New(docs Store, apps Applications, objects ObjectStore, runner txcontext.Runner, opts ...Option) *Service {
	s := &Service{docs: docs, apps: apps, objects: objects, tx: runner, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RequestUpload validates the declared file, ties it to a submitted
// application and returns a presigned PUT URL.
func (s *Service) RequestUpload(ctx context.Context, userID id.UserID, upload models.Upload) (*Ticket, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "Unauthorized")
	}
	if err := upload.Validate(); err != nil {
		return nil, err
	}
	app, err := s.resolveApplication(ctx, userID, upload.ApplicationID)
	if err != nil {
		return nil, err
	}

	doc := models.NewDocument(userID, app.ID, upload, requestcontext.Now(ctx))
	presigned, err := s.objects.PresignPut(ctx, doc.StorageKey, doc.ContentType, doc.SizeBytes)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to presign upload",
			"request_id", requestcontext.RequestID(ctx),
			"user_id", userID.String(),
			"error", err,
		)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to prepare upload")
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.docs.Create(ctx, doc); err != nil {
			return err
		}
		return s.emit(ctx, audit.Event{
			UserID:  userID,
			Action:  string(audit.EventDocumentRequested),
			Subject: doc.ID.String(),
			Details: map[string]string{"kind": string(doc.Kind), "application_id": app.ID.String()},
		})
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record document")
	}
	return &Ticket{Document: doc, Upload: presigned}, nil
}

func (s *Service) resolveApplication(ctx context.Context, userID id.UserID, appID *id.ApplicationID) (*appmodels.Application, error) {
	if appID != nil {
		app, err := s.apps.GetApplication(ctx, userID, *appID)
		if err != nil {
			return nil, err
		}
		if app.Status != appmodels.StatusSubmitted {
			return nil, dErrors.New(dErrors.CodeConflict, "Application is not submitted")
		}
		return app, nil
	}
	apps, err := s.apps.ListApplications(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, app := range apps {
		if app.Status == appmodels.StatusSubmitted {
			return app, nil
		}
	}
	return nil, dErrors.New(dErrors.CodeNotFound, "No submitted application found")
}

// Complete marks the document uploaded once the object exists in storage with
// the declared size. Completing twice is a no-op.
func (s *Service) Complete(ctx context.Context, userID id.UserID, docID id.DocumentID) (*models.Document, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "Unauthorized")
	}
	var doc *models.Document
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		doc, err = s.docs.FindByID(ctx, userID, docID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "Document not found")
			}
			return err
		}
		if doc.Status == models.StatusUploaded {
			return nil
		}
		if err := s.confirmStored(ctx, doc); err != nil {
			return err
		}
		now := requestcontext.Now(ctx)
		if err := s.docs.MarkUploaded(ctx, doc.ID, now); err != nil {
			return err
		}
		doc.Status = models.StatusUploaded
		doc.UpdatedAt = now
		return s.emit(ctx, audit.Event{
			UserID:  userID,
			Action:  string(audit.EventDocumentUploaded),
			Subject: doc.ID.String(),
		})
	})
	if err != nil {
		if _, ok := dErrors.As(err); ok {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to complete upload")
	}
	return doc, nil
}

func (s *Service) confirmStored(ctx context.Context, doc *models.Document) error {
	info, err := s.objects.StatObject(ctx, doc.StorageKey)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return dErrors.New(dErrors.CodeConflict, "File has not been uploaded")
		}
		return err
	}
	if info.Size != doc.SizeBytes {
		s.logger.WarnContext(ctx, "uploaded object size mismatch",
			"request_id", requestcontext.RequestID(ctx),
			"document_id", doc.ID.String(),
			"declared", doc.SizeBytes,
			"stored", info.Size,
		)
		return dErrors.New(dErrors.CodeConflict, "Uploaded file does not match the declared size")
	}
	return nil
}

func (s *Service) List(ctx context.Context, userID id.UserID) ([]*models.Document, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "Unauthorized")
	}
	docs, err := s.docs.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list documents")
	}
	return docs, nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) error {
	if s.auditPublisher == nil {
		return nil
	}
	return s.auditPublisher.Emit(ctx, event)
}
