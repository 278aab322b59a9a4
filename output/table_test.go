package output

import (
	"bytes"
	"strings"
	"testing"
)

func TestTableFormatter(t *testing.T) {
	var buf bytes.Buffer
	if err := NewTableFormatter(&buf).Format(sampleRows()); err != nil {
		t.Fatalf("Format error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"active", "name", "Alice", "Bob", "9.5", "(2 rows)"} {
		if !strings.Contains(out, want) {
			t.Errorf("table output missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "Alice") > strings.Index(out, "Bob") {
		t.Error("rows should keep their input order")
	}
}

func TestRowCountLine(t *testing.T) {
	if got := rowCountLine(1); got != "(1 row)\n" {
		t.Errorf("rowCountLine(1) = %q", got)
	}
	if got := rowCountLine(0); got != "(0 rows)\n" {
		t.Errorf("rowCountLine(0) = %q", got)
	}
}
