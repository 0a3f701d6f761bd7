package models

import (
	"encoding/json"
	"math"

	dErrors "govportal/pkg/domain-errors"
)

// ParseStepIndex reads a client supplied step index. Missing or null reads as
// 0. Numeric strings are accepted; anything other than a non-negative
// integer is a validation error.
func ParseStepIndex(raw json.RawMessage) (int, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, nil
	}
	var n json.Number
	if err := decode(raw, &n); err != nil {
		return 0, invalidStep()
	}
	f, err := n.Float64()
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, invalidStep()
	}
	return int(f), nil
}

// ValidateStepIndex checks index against the number of form steps.
func ValidateStepIndex(index, maxSteps int) error {
	if index < 0 || (maxSteps > 0 && index >= maxSteps) {
		return invalidStep()
	}
	return nil
}

func invalidStep() error {
	return dErrors.New(dErrors.CodeValidation, "Invalid currentStep")
}

// ParseStepData reads the data object of a draft save. Missing or null reads
// as an empty object; any other non-object is a validation error.
func ParseStepData(raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return map[string]any{}, nil
	}
	var data map[string]any
	if err := decode(raw, &data); err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, "data must be an object")
	}
	return data, nil
}
