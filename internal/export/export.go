// Package export writes tables into an xlsx workbook, one worksheet per
// table.
package export

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"tracker/internal/core"
	"tracker/internal/tables"

	"github.com/xuri/excelize/v2"
)

const maxSheetName = 31

// Workbook loads every named table and writes it as a worksheet, header row
// first. Missing tables become empty worksheets; any other failure aborts.
// The caller closes the returned file.
func Workbook(ctx context.Context, store tables.Loader, names []string) (*excelize.File, error) {
	if len(names) == 0 {
		return nil, errors.New("no tables to export")
	}

	f := excelize.NewFile()
	used := make(map[string]struct{}, len(names))
	first := true
	for _, name := range names {
		out := store.Load(ctx, name)
		if !out.OK() {
			f.Close()
			return nil, fmt.Errorf("load %s: %w", name, out.Err)
		}

		sheet := sheetName(name, used)
		if first {
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				f.Close()
				return nil, fmt.Errorf("name sheet %s: %w", sheet, err)
			}
			first = false
		} else if _, err := f.NewSheet(sheet); err != nil {
			f.Close()
			return nil, fmt.Errorf("create sheet %s: %w", sheet, err)
		}

		if err := writeTable(f, sheet, out.TableOrEmpty()); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

// WriteFile exports names into an xlsx file at path.
func WriteFile(ctx context.Context, store tables.Loader, names []string, path string) error {
	f, err := Workbook(ctx, store, names)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

func writeTable(f *excelize.File, sheet string, t core.Table) error {
	if len(t.Columns) == 0 {
		return nil
	}
	head := make([]any, len(t.Columns))
	for i, c := range t.Columns {
		head[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &head); err != nil {
		return fmt.Errorf("write header of %s: %w", sheet, err)
	}

	for i, r := range t.Rows {
		row := make([]any, len(t.Columns))
		for j, c := range t.Columns {
			if v, ok := r.Lookup(c); ok {
				row[j] = core.ToAny(v)
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d of %s: %w", i+1, sheet, err)
		}
	}
	return nil
}

// sheetName truncates name to the worksheet limit and, when that collides
// with a title already in used, replaces the tail with a "~N" suffix.
// Worksheet titles compare case-insensitively.
func sheetName(name string, used map[string]struct{}) string {
	candidate := truncate(name, maxSheetName)
	for n := 2; ; n++ {
		key := strings.ToLower(candidate)
		if _, taken := used[key]; !taken {
			used[key] = struct{}{}
			return candidate
		}
		suffix := "~" + strconv.Itoa(n)
		candidate = truncate(name, maxSheetName-len(suffix)) + suffix
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		r = r[:n]
	}
	return string(r)
}
