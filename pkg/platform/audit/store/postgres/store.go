package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	id "govportal/pkg/domain"
	audit "govportal/pkg/platform/audit"
	txcontext "govportal/pkg/platform/tx"
)

// Store implements audit.Store using the transactional outbox pattern.
// Events are written to the outbox table and published to Kafka by the outbox worker.
type Store struct {
	db *sql.DB
}

// New creates a new PostgreSQL audit store that writes to the outbox.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Append writes an audit event to the outbox table for Kafka publishing.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	entry, err := audit.NewOutboxEntry(event)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO audit_outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = txcontext.Exec(ctx, s.db).ExecContext(ctx, query,
		entry.ID,
		entry.AggregateType,
		entry.AggregateID,
		entry.EventType,
		string(entry.Payload),
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

// ListByUser returns a user's events, newest first, decoded from the outbox.
func (s *Store) ListByUser(ctx context.Context, userID id.UserID) ([]audit.Event, error) {
	query := `
		SELECT payload
		FROM audit_outbox
		WHERE aggregate_type = 'user' AND aggregate_id = $1
		ORDER BY created_at DESC
	`
	rows, err := txcontext.Exec(ctx, s.db).QueryContext(ctx, query, userID.String())
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event, err := decodePayload(raw)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}

// FetchUnpublished locks up to limit pending entries. Call inside a
// transaction so concurrent workers skip each other's rows.
func (s *Store) FetchUnpublished(ctx context.Context, limit int) ([]audit.OutboxEntry, error) {
	query := `
		SELECT id, aggregate_type, aggregate_id, event_type, payload, created_at
		FROM audit_outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`
	rows, err := txcontext.Exec(ctx, s.db).QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	var entries []audit.OutboxEntry
	for rows.Next() {
		var e audit.OutboxEntry
		if err := rows.Scan(&e.ID, &e.AggregateType, &e.AggregateID, &e.EventType, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox: %w", err)
	}
	return entries, nil
}

func (s *Store) MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	raw := make([]string, len(ids))
	for i, entryID := range ids {
		raw[i] = entryID.String()
	}
	query := `UPDATE audit_outbox SET published_at = $2 WHERE id = ANY($1::uuid[])`
	if _, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, query, pq.Array(raw), at); err != nil {
		return fmt.Errorf("mark outbox published: %w", err)
	}
	return nil
}

func decodePayload(raw []byte) (audit.Event, error) {
	var p audit.Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return audit.Event{}, fmt.Errorf("decode audit payload: %w", err)
	}
	event := audit.Event{
		Category:  audit.EventCategory(p.Category),
		Subject:   p.Subject,
		Action:    p.Action,
		Reason:    p.Reason,
		Email:     p.Email,
		RequestID: p.RequestID,
		ClientIP:  p.ClientIP,
		Device:    p.Device,
		Details:   p.Details,
	}
	if ts, err := time.Parse(time.RFC3339Nano, p.Timestamp); err == nil {
		event.Timestamp = ts
	}
	if p.UserID != "" {
		if userID, err := id.ParseUserID(p.UserID); err == nil {
			event.UserID = userID
		}
	}
	return event, nil
}
