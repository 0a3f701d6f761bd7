package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
)

// OutputFormatter writes results as text or JSON.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

func (o *RootOptions) formatter(w io.Writer) *OutputFormatter {
	return &OutputFormatter{Format: o.Format, Writer: w}
}

// Print writes v as indented JSON, or as the text lines when the format is text.
func (f *OutputFormatter) Print(v any, lines ...string) error {
	if f.Format == "json" {
		enc := json.NewEncoder(f.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(f.Writer, line); err != nil {
			return err
		}
	}
	return nil
}

// fieldLines renders a form map one sorted key per line.
func fieldLines(data map[string]any) []string {
	keys := slices.Sorted(maps.Keys(data))
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("  %s: %v", k, data[k]))
	}
	return lines
}
