package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	id "govportal/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
type EventCategory string

const (
	// CategoryCompliance covers events with legal or regulatory significance,
	// such as account creation and application submission.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers authentication failures, revocations and throttling.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine activity.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	UserID    id.UserID
	Subject   string // aggregate the action applies to, e.g. an application id
	Action    string
	Reason    string
	Email     string
	RequestID string
	ClientIP  string
	Device    string
	Details   map[string]string
}

type AuditEvent string

const (
	// Account events
	EventUserCreated    AuditEvent = "user_created"
	EventLoginSucceeded AuditEvent = "login_succeeded"
	EventLoginFailed    AuditEvent = "login_failed"
	EventSessionRevoked AuditEvent = "session_revoked"

	// Application events
	EventDraftCreated         AuditEvent = "application_draft_created"
	EventApplicationSubmitted AuditEvent = "application_submitted"

	// Document events
	EventDocumentRequested AuditEvent = "document_upload_requested"
	EventDocumentUploaded  AuditEvent = "document_uploaded"

	// Rate limit events
	EventRateLimitExceeded AuditEvent = "rate_limit_exceeded"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventUserCreated:          CategoryCompliance,
	EventApplicationSubmitted: CategoryCompliance,
	EventDocumentUploaded:     CategoryCompliance,

	EventLoginFailed:       CategorySecurity,
	EventSessionRevoked:    CategorySecurity,
	EventRateLimitExceeded: CategorySecurity,

	EventLoginSucceeded:    CategoryOperations,
	EventDraftCreated:      CategoryOperations,
	EventDocumentRequested: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// OutboxEntry is a serialized event waiting to be published.
type OutboxEntry struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByUser(ctx context.Context, userID id.UserID) ([]Event, error)
}

// OutboxSource is read by the outbox worker.
type OutboxSource interface {
	FetchUnpublished(ctx context.Context, limit int) ([]OutboxEntry, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error
}
