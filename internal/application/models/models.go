// Package models holds the application draft domain: step snapshots, the
// metadata row, merging and submission rules.
package models

import (
	"encoding/json"
	"strconv"
	"time"

	id "govportal/pkg/domain"
)

type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusSubmitted Status = "SUBMITTED"
)

// MetaKey is the reserved step key of the metadata row.
const MetaKey = "__META__"

// StepKey returns the step key for a zero-based form step.
func StepKey(index int) string {
	return "STEP_" + strconv.Itoa(index)
}

// Application is one in-progress or submitted application. FormData is set
// only at submission.
type Application struct {
	ID          id.ApplicationID
	UserID      id.UserID
	Status      Status
	FormData    map[string]any
	CreatedAt   time.Time
	UpdatedAt   time.Time
	SubmittedAt *time.Time
}

func (a *Application) IsDraft() bool {
	return a.Status == StatusDraft
}

// NewDraft returns an empty draft owned by userID.
func NewDraft(userID id.UserID, now time.Time) *Application {
	return &Application{
		ID:        id.NewApplicationID(),
		UserID:    userID,
		Status:    StatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Step is one stored step row. Seq orders rows by first insertion.
type Step struct {
	ApplicationID id.ApplicationID
	Key           string
	Payload       json.RawMessage
	Seq           int64
	UpdatedAt     time.Time
}

func (s Step) IsMeta() bool {
	return s.Key == MetaKey
}

// Draft is the resumable view of a draft application.
type Draft struct {
	ApplicationID id.ApplicationID
	CurrentStep   int
	Data          map[string]any
}
