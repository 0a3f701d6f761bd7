package models

import (
	"bytes"
	"encoding/json"
	"math"
	"time"

	id "govportal/pkg/domain"
)

type stepPayload struct {
	Data map[string]any `json:"data"`
}

type progressMeta struct {
	CurrentStep int `json:"currentStep"`
}

type submissionMeta struct {
	SubmittedAt string `json:"submittedAt"`
	SubmittedBy string `json:"submittedBy"`
}

// StepPayload encodes {"data": data}. A nil map is stored as an empty object.
func StepPayload(data map[string]any) (json.RawMessage, error) {
	if data == nil {
		data = map[string]any{}
	}
	return json.Marshal(stepPayload{Data: data})
}

// ProgressPayload encodes the metadata row written on every draft save.
func ProgressPayload(currentStep int) (json.RawMessage, error) {
	return json.Marshal(progressMeta{CurrentStep: currentStep})
}

// SubmissionPayload encodes the metadata row written at submission.
func SubmissionPayload(at time.Time, userID id.UserID) (json.RawMessage, error) {
	return json.Marshal(submissionMeta{
		SubmittedAt: at.UTC().Format(time.RFC3339),
		SubmittedBy: userID.String(),
	})
}

// CurrentStep reads currentStep from a metadata payload. Absent, malformed,
// negative and fractional values read as 0.
func CurrentStep(payload json.RawMessage) int {
	var meta struct {
		CurrentStep json.Number `json:"currentStep"`
	}
	if err := decode(payload, &meta); err != nil {
		return 0
	}
	f, err := meta.CurrentStep.Float64()
	if err != nil || f < 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0
	}
	return int(f)
}

// StepData returns the data object of a step payload, or nil when the
// payload has no object under "data".
func StepData(payload json.RawMessage) map[string]any {
	var p struct {
		Data json.RawMessage `json:"data"`
	}
	if err := decode(payload, &p); err != nil {
		return nil
	}
	var data map[string]any
	if err := decode(p.Data, &data); err != nil {
		return nil
	}
	return data
}

// decode keeps numbers as json.Number so merged values re-encode unchanged.
func decode(raw json.RawMessage, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(dst)
}

// DecodeFormData decodes a stored canonical snapshot.
func DecodeFormData(raw []byte) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var data map[string]any
	if err := decode(raw, &data); err != nil {
		return nil, err
	}
	return data, nil
}
