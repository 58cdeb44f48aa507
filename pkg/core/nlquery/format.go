package nlquery

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultMaxRows caps how many result rows the formatter prints.
const DefaultMaxRows = 50

const maxCellWidth = 40

// FormatResults renders query rows as an aligned text table, capped at
// maxRows. Columns are ordered alphabetically; cells wider than 40
// characters are truncated.
func FormatResults(results []map[string]any, maxRows int) string {
	if len(results) == 0 {
		return "No results found."
	}
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}

	display := results
	if len(display) > maxRows {
		display = display[:maxRows]
	}

	keys := make([]string, 0, len(display[0]))
	for key := range display[0] {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	widths := make([]int, len(keys))
	for i, key := range keys {
		widths[i] = len(key)
	}
	cells := make([][]string, len(display))
	for r, row := range display {
		cells[r] = make([]string, len(keys))
		for i, key := range keys {
			cell := renderCell(row[key])
			if len(cell) > maxCellWidth {
				cell = cell[:maxCellWidth]
			}
			cells[r][i] = cell
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var b strings.Builder
	banner := strings.Repeat("=", 80)
	fmt.Fprintf(&b, "\n%s\n", banner)
	fmt.Fprintf(&b, "Results: %d row(s) found\n", len(results))
	if len(results) > maxRows {
		fmt.Fprintf(&b, "Showing first %d rows\n", maxRows)
	}
	fmt.Fprintf(&b, "%s\n\n", banner)

	headerCols := make([]string, len(keys))
	for i, key := range keys {
		headerCols[i] = pad(key, widths[i])
	}
	header := strings.Join(headerCols, " | ")
	b.WriteString(header + "\n")
	b.WriteString(strings.Repeat("-", len(header)) + "\n")

	for _, row := range cells {
		cols := make([]string, len(row))
		for i, cell := range row {
			cols[i] = pad(cell, widths[i])
		}
		b.WriteString(strings.Join(cols, " | ") + "\n")
	}

	if len(results) > maxRows {
		fmt.Fprintf(&b, "\n... and %d more rows\n", len(results)-maxRows)
	}
	return b.String()
}

func renderCell(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
