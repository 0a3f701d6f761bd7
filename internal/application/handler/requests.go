package handler

import (
	"encoding/json"
	"strings"

	"govportal/internal/application/models"
	id "govportal/pkg/domain"
)

// SaveDraftRequest is the body of POST /api/application/draft.
type SaveDraftRequest struct {
	CurrentStep json.RawMessage `json:"currentStep"`
	Data        json.RawMessage `json:"data"`

	step int
	data map[string]any
}

func (r *SaveDraftRequest) Validate() error {
	step, err := models.ParseStepIndex(r.CurrentStep)
	if err != nil {
		return err
	}
	data, err := models.ParseStepData(r.Data)
	if err != nil {
		return err
	}
	r.step = step
	r.data = data
	return nil
}

// SubmitRequest is the optional body of POST /api/application/submit.
type SubmitRequest struct {
	ApplicationID any `json:"applicationId"`
}

// Target returns the requested application id. ok is false for an id that
// cannot name any application; a missing or blank id targets the latest draft.
func (r *SubmitRequest) Target() (target *id.ApplicationID, ok bool) {
	raw, isString := r.ApplicationID.(string)
	if !isString || strings.TrimSpace(raw) == "" {
		return nil, true
	}
	appID, err := id.ParseApplicationID(strings.TrimSpace(raw))
	if err != nil {
		return nil, false
	}
	return &appID, true
}
