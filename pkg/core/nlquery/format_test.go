package nlquery

import (
	"fmt"
	"strings"
	"testing"
)

func TestFormatResultsEmpty(t *testing.T) {
	if got := FormatResults(nil, DefaultMaxRows); got != "No results found." {
		t.Errorf("Expected no-results message, got %q", got)
	}
}

func TestFormatResultsTable(t *testing.T) {
	rows := []map[string]any{
		{"name": "Alpha Corp", "cik": "0000000001"},
		{"name": "Beta", "cik": "2"},
	}

	out := FormatResults(rows, DefaultMaxRows)

	if !strings.Contains(out, "Results: 2 row(s) found") {
		t.Error("Expected row count banner")
	}
	if strings.Contains(out, "Showing first") {
		t.Error("Did not expect a cap notice under the limit")
	}

	lines := strings.Split(out, "\n")
	var header string
	for i, line := range lines {
		if strings.Contains(line, " | ") && i+1 < len(lines) && strings.HasPrefix(lines[i+1], "-") {
			header = line
			break
		}
	}
	if header == "" {
		t.Fatalf("No header line in output:\n%s", out)
	}
	if !strings.HasPrefix(header, "cik") {
		t.Errorf("Expected columns in sorted order, got header %q", header)
	}
	if !strings.Contains(header, "name") {
		t.Errorf("Expected name column, got header %q", header)
	}
	if !strings.Contains(out, "Alpha Corp") || !strings.Contains(out, "0000000001") {
		t.Errorf("Expected cell values in output:\n%s", out)
	}
}

func TestFormatResultsRendersNilAsEmpty(t *testing.T) {
	rows := []map[string]any{{"name": "Alpha", "phone": nil}}

	out := FormatResults(rows, DefaultMaxRows)

	if strings.Contains(out, "<nil>") {
		t.Errorf("Expected nil cells rendered empty:\n%s", out)
	}
}

func TestFormatResultsTruncatesWideCells(t *testing.T) {
	wide := strings.Repeat("x", 60)
	rows := []map[string]any{{"description": wide}}

	out := FormatResults(rows, DefaultMaxRows)

	if strings.Contains(out, wide) {
		t.Error("Expected wide cell to be truncated")
	}
	if !strings.Contains(out, strings.Repeat("x", 40)) {
		t.Error("Expected 40-character prefix to survive")
	}
}

func TestFormatResultsCapsRows(t *testing.T) {
	rows := make([]map[string]any, 60)
	for i := range rows {
		rows[i] = map[string]any{"name": fmt.Sprintf("Company %02d", i)}
	}

	out := FormatResults(rows, 50)

	if !strings.Contains(out, "Results: 60 row(s) found") {
		t.Error("Expected total row count")
	}
	if !strings.Contains(out, "Showing first 50 rows") {
		t.Error("Expected cap notice")
	}
	if !strings.Contains(out, "... and 10 more rows") {
		t.Error("Expected overflow trailer")
	}
	if strings.Contains(out, "Company 55") {
		t.Error("Expected rows past the cap to be omitted")
	}
}
