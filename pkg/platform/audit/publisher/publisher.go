// Package publisher enriches audit events with request metadata and appends
// them to the configured store.
package publisher

import (
	"context"

	id "govportal/pkg/domain"
	audit "govportal/pkg/platform/audit"
	"govportal/pkg/platform/middleware/metadata"
	"govportal/pkg/requestcontext"
)

// Publisher captures structured audit events. It is append-only and uses the
// storage layer for persistence so tests can swap sinks easily.
type Publisher struct {
	store audit.Store
}

func NewPublisher(store audit.Store) *Publisher {
	return &Publisher{store: store}
}

// Emit appends the event. When ctx carries a transaction the event commits
// or rolls back with it.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.ClientIP == "" {
		event.ClientIP = requestcontext.ClientIP(ctx)
	}
	if event.Device == "" {
		if ua := requestcontext.UserAgent(ctx); ua != "" {
			event.Device = metadata.DeviceLabel(ua)
		}
	}
	event.Category = audit.AuditEvent(event.Action).Category()
	return p.store.Append(ctx, event)
}

func (p *Publisher) List(ctx context.Context, userID id.UserID) ([]audit.Event, error) {
	return p.store.ListByUser(ctx, userID)
}
