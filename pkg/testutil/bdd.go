package testutil

import (
	"strings"
	"testing"
)

// Given, When and Then label nested subtests so a scenario reads as a
// sentence in test output.
func Given(t *testing.T, desc string, fn func(t *testing.T)) bool {
	t.Helper()
	return t.Run(step("Given", desc), fn)
}

func When(t *testing.T, desc string, fn func(t *testing.T)) bool {
	t.Helper()
	return t.Run(step("When", desc), fn)
}

func Then(t *testing.T, desc string, fn func(t *testing.T)) bool {
	t.Helper()
	return t.Run(step("Then", desc), fn)
}

func step(keyword, desc string) string {
	return keyword + " " + strings.TrimSpace(desc)
}
