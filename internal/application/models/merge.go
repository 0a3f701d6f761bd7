package models

import (
	"encoding/json"
	"sort"
	"strings"
)

// Merge flattens step rows into one field map. Rows are applied in Seq order,
// so a later step overwrites an earlier one field by field. The metadata row
// and payloads without a data object are skipped.
func Merge(steps []Step) map[string]any {
	ordered := make([]Step, len(steps))
	copy(ordered, steps)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Seq < ordered[j].Seq })

	merged := map[string]any{}
	for _, s := range ordered {
		if s.IsMeta() {
			continue
		}
		for k, v := range StepData(s.Payload) {
			merged[k] = v
		}
	}
	return merged
}

// CountDataSteps returns the number of non-metadata rows.
func CountDataSteps(steps []Step) int {
	n := 0
	for _, s := range steps {
		if !s.IsMeta() {
			n++
		}
	}
	return n
}

// DraftFrom builds the resumable view of an application from its rows.
func DraftFrom(app *Application, steps []Step) *Draft {
	current := 0
	for _, s := range steps {
		if s.IsMeta() {
			current = CurrentStep(s.Payload)
			break
		}
	}
	return &Draft{ApplicationID: app.ID, CurrentStep: current, Data: Merge(steps)}
}

var trimmedFields = []string{"firstName", "lastName", "first_name", "last_name"}

// Normalize returns a copy of data with email trimmed and lowercased and the
// name fields trimmed. Non-string values are left as they are.
func Normalize(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = v
	}
	if s, ok := out["email"].(string); ok {
		out["email"] = strings.ToLower(strings.TrimSpace(s))
	}
	for _, k := range trimmedFields {
		if s, ok := out[k].(string); ok {
			out[k] = strings.TrimSpace(s)
		}
	}
	return out
}

type requiredField struct {
	name    string
	aliases []string
}

var requiredFields = []requiredField{
	{name: "email"},
	{name: "firstName", aliases: []string{"first_name"}},
	{name: "lastName", aliases: []string{"last_name"}},
	{name: "phone"},
}

// RequiredMissing lists the required fields absent from normalized data, in
// canonical order. A field is satisfied by its name or any alias.
func RequiredMissing(data map[string]any) []string {
	var missing []string
	for _, f := range requiredFields {
		if present(data[f.name]) {
			continue
		}
		found := false
		for _, alias := range f.aliases {
			if present(data[alias]) {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// present treats null, blank strings, false and zero as empty.
func present(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(t) != ""
	case bool:
		return t
	case json.Number:
		f, err := t.Float64()
		return err != nil || f != 0
	case float64:
		return t != 0
	case int:
		return t != 0
	default:
		return true
	}
}
