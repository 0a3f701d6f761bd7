package audit

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Payload is the JSON document written to the outbox and published to Kafka.
type Payload struct {
	ID        string            `json:"id"`
	Category  string            `json:"category"`
	Timestamp string            `json:"timestamp"`
	UserID    string            `json:"user_id,omitempty"`
	Subject   string            `json:"subject,omitempty"`
	Action    string            `json:"action"`
	Reason    string            `json:"reason,omitempty"`
	Email     string            `json:"email,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
	ClientIP  string            `json:"client_ip,omitempty"`
	Device    string            `json:"device,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
}

// NewOutboxEntry serializes event into an outbox entry. The category is always
// derived from the action.
func NewOutboxEntry(event Event) (OutboxEntry, error) {
	eventID := uuid.New()
	payload := Payload{
		ID:        eventID.String(),
		Category:  string(AuditEvent(event.Action).Category()),
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339Nano),
		Subject:   event.Subject,
		Action:    event.Action,
		Reason:    event.Reason,
		Email:     event.Email,
		RequestID: event.RequestID,
		ClientIP:  event.ClientIP,
		Device:    event.Device,
		Details:   event.Details,
	}
	if !event.UserID.IsNil() {
		payload.UserID = event.UserID.String()
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return OutboxEntry{}, fmt.Errorf("marshal audit payload: %w", err)
	}

	entry := OutboxEntry{
		ID:            eventID,
		AggregateType: "audit",
		AggregateID:   eventID.String(),
		EventType:     event.Action,
		Payload:       body,
		CreatedAt:     event.Timestamp,
	}
	if !event.UserID.IsNil() {
		entry.AggregateType = "user"
		entry.AggregateID = event.UserID.String()
	}
	return entry, nil
}
