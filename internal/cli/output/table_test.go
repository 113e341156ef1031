package output

import (
	"bytes"
	"strings"
	"testing"
)

func TestPrintTable(t *testing.T) {
	var buf bytes.Buffer

	err := PrintTable(&buf, []string{"Key", "Value"}, [][]string{
		{"step-2/module", "loaded"},
		{"step-3/styles", "skipped"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"KEY", "VALUE", "step-2/module", "skipped"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestSimpleTable(t *testing.T) {
	var buf bytes.Buffer

	err := SimpleTable(&buf, [][2]string{
		{"Phase", "burst"},
		{"In flight", "2"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "Phase") || !strings.Contains(out, "burst") {
		t.Errorf("output missing expected rows:\n%s", out)
	}
}
