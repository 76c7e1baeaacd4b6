// Package diff renders readable differences for test failures.
package diff

import (
	"strings"
	"testing"

	"github.com/k0kubun/pp/v3"
	"github.com/kylelemons/godebug/diff"
)

const header = "\n\nto turn ACTUAL into EXPECTED:\n\nadd:    +\nremove: -\n\n"

// Text diffs two strings line by line. It is empty when they are equal.
func Text(want, got string) string {
	if want == got {
		return ""
	}
	return header + diff.Diff(got, want)
}

// DiffExportedOnly pretty prints the exported fields of want and got and diffs the two renderings.
func DiffExportedOnly[T any](want, got T) string {
	printer := pp.New()
	printer.SetExportedOnly(true)
	printer.SetColoringEnabled(false)
	return Text(printer.Sprint(want), printer.Sprint(got))
}

// RequireEqual stops the test with a diff when want and got differ. Strings are compared as text, other
// values by their exported fields.
func RequireEqual[T any](t testing.TB, want, got T) {
	t.Helper()
	var d string
	if ws, ok := any(want).(string); ok {
		d = Text(ws, any(got).(string))
	} else {
		d = DiffExportedOnly(want, got)
	}
	if d != "" {
		t.Fatal(strings.TrimRight(d, "\n"))
	}
}
