package google

import (
	"fmt"
	"strings"

	"tracker/internal/core"
)

// sheetRange quotes a worksheet title for A1 notation. Table names never
// contain quotes.
func sheetRange(title string) string {
	return "'" + title + "'"
}

// parseValues converts a values matrix, header first, into a table. Cells
// beyond the header, blank or duplicate header names are errors; blank
// rows are skipped.
func parseValues(name string, values [][]any) (core.Table, error) {
	if len(values) == 0 {
		return core.Table{Name: name}, nil
	}
	header := toStrings(values[0])
	for len(header) > 0 && header[len(header)-1] == "" {
		header = header[:len(header)-1]
	}
	seen := make(map[string]struct{}, len(header))
	for i, h := range header {
		if h == "" {
			return core.Table{}, fmt.Errorf("header: column %d has no name", i+1)
		}
		if _, dup := seen[h]; dup {
			return core.Table{}, fmt.Errorf("header: duplicate column %q", h)
		}
		seen[h] = struct{}{}
	}

	var rows []core.Row
	for i := 1; i < len(values); i++ {
		raw := values[i]
		fields := make([]core.Field, 0, len(header))
		for j, cell := range raw {
			v := core.FromAny(cell)
			if v.IsAbsent() {
				continue
			}
			if j >= len(header) {
				return core.Table{}, fmt.Errorf("row %d: value %q outside the header", i+1, v.String())
			}
			fields = append(fields, core.Cell(header[j], v))
		}
		if len(fields) == 0 {
			continue
		}
		rows = append(rows, core.NewRow(fields...))
	}
	return core.NewTableWithColumns(name, header, rows...), nil
}

// toGrid renders a table as the values matrix written back to the sheet.
// Absent cells are written as empty strings so shorter rows clear nothing.
func toGrid(t core.Table) [][]any {
	grid := make([][]any, 0, len(t.Rows)+1)
	header := make([]any, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c
	}
	grid = append(grid, header)
	for _, r := range t.Rows {
		line := make([]any, len(t.Columns))
		for i, c := range t.Columns {
			v, ok := r.Lookup(c)
			if !ok {
				line[i] = ""
				continue
			}
			line[i] = core.ToAny(v)
		}
		grid = append(grid, line)
	}
	return grid
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		if v == nil {
			continue
		}
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
