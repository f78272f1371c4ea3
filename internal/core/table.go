package core

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Field is one named cell of a row.
type Field struct {
	Name  string
	Value Value
}

// Cell builds a Field.
func Cell(name string, v Value) Field { return Field{Name: name, Value: v} }

// Row is an immutable record keyed by column name. Field order is kept so
// backends can write columns in the order they were first supplied.
type Row struct {
	fields []Field
	index  map[string]int
}

// NewRow builds a row from fields. A repeated name overwrites the earlier
// value in place.
func NewRow(fields ...Field) Row {
	r := Row{index: make(map[string]int, len(fields))}
	for _, f := range fields {
		if i, ok := r.index[f.Name]; ok {
			r.fields[i].Value = f.Value
			continue
		}
		r.index[f.Name] = len(r.fields)
		r.fields = append(r.fields, f)
	}
	return r
}

// Lookup returns the value stored under col. Absent values report false.
func (r Row) Lookup(col string) (Value, bool) {
	i, ok := r.index[col]
	if !ok || r.fields[i].Value.IsAbsent() {
		return Value{}, false
	}
	return r.fields[i].Value, true
}

// Number returns the numeric value of col, or 0 when absent or not numeric.
func (r Row) Number(col string) float64 {
	v, ok := r.Lookup(col)
	if !ok {
		return 0
	}
	f, _ := v.AsNumber()
	return f
}

// Text returns the string form of col, or "" when absent.
func (r Row) Text(col string) string {
	v, _ := r.Lookup(col)
	return v.String()
}

// Columns lists the row's column names in insertion order.
func (r Row) Columns() []string {
	out := make([]string, len(r.fields))
	for i, f := range r.fields {
		out[i] = f.Name
	}
	return out
}

// Fields returns a copy of the row's fields.
func (r Row) Fields() []Field {
	return append([]Field(nil), r.fields...)
}

// Len is the number of fields, absent ones included.
func (r Row) Len() int { return len(r.fields) }

// With returns a copy of r with col set to v.
func (r Row) With(col string, v Value) Row {
	return NewRow(append(r.Fields(), Cell(col, v))...)
}

// Equal reports whether both rows hold the same non-absent cells.
func (r Row) Equal(o Row) bool {
	count := 0
	for _, f := range r.fields {
		if f.Value.IsAbsent() {
			continue
		}
		count++
		ov, ok := o.Lookup(f.Name)
		if !ok || !ov.Equal(f.Value) {
			return false
		}
	}
	other := 0
	for _, f := range o.fields {
		if !f.Value.IsAbsent() {
			other++
		}
	}
	return count == other
}

// MarshalJSON writes the row as an object with keys in column order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(ToAny(f.Value))
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object of scalars, keeping key order.
func (r *Row) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("row: expected object, got %v", tok)
	}
	var fields []Field
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("row: expected key, got %v", keyTok)
		}
		var raw any
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("row: field %q: %w", key, err)
		}
		v, err := fromJSONScalar(raw)
		if err != nil {
			return fmt.Errorf("row: field %q: %w", key, err)
		}
		fields = append(fields, Cell(key, v))
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*r = NewRow(fields...)
	return nil
}

func fromJSONScalar(raw any) (Value, error) {
	switch x := raw.(type) {
	case nil:
		return Value{}, nil
	case bool:
		return Bool(x), nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return Value{}, err
		}
		return Number(f), nil
	case string:
		if v := ParseCell(x); v.Kind() == KindDate {
			return v, nil
		}
		return String(x), nil
	default:
		return Value{}, fmt.Errorf("unsupported value %T", raw)
	}
}

// Table is a named, ordered collection of rows. Columns is the first-seen
// union of every row's columns and may list columns no row carries.
type Table struct {
	Name    string
	Columns []string
	Rows    []Row
}

// NewTable builds a table whose header is derived from the rows.
func NewTable(name string, rows ...Row) Table {
	return NewTableWithColumns(name, nil, rows...)
}

// NewTableWithColumns builds a table with an explicit leading header; row
// columns not listed are appended in first-seen order.
func NewTableWithColumns(name string, columns []string, rows ...Row) Table {
	t := Table{
		Name:    name,
		Columns: MergeColumns(columns, rows),
		Rows:    append([]Row(nil), rows...),
	}
	return t
}

// MergeColumns returns base followed by any column in rows not already in it.
func MergeColumns(base []string, rows []Row) []string {
	seen := make(map[string]struct{}, len(base))
	out := make([]string, 0, len(base))
	for _, c := range base {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	for _, r := range rows {
		for _, f := range r.fields {
			if _, ok := seen[f.Name]; ok {
				continue
			}
			seen[f.Name] = struct{}{}
			out = append(out, f.Name)
		}
	}
	return out
}

// Len returns the number of rows.
func (t Table) Len() int { return len(t.Rows) }

// IsEmpty reports whether the table has no rows.
func (t Table) IsEmpty() bool { return len(t.Rows) == 0 }

// HasColumn reports whether col is part of the header.
func (t Table) HasColumn(col string) bool {
	for _, c := range t.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// Concat returns a new table holding t's rows followed by rows.
func (t Table) Concat(rows ...Row) Table {
	all := make([]Row, 0, len(t.Rows)+len(rows))
	all = append(all, t.Rows...)
	all = append(all, rows...)
	return NewTableWithColumns(t.Name, t.Columns, all...)
}

// Filter returns the rows for which keep reports true, order preserved.
func (t Table) Filter(keep func(Row) bool) Table {
	var rows []Row
	for _, r := range t.Rows {
		if keep(r) {
			rows = append(rows, r)
		}
	}
	return NewTableWithColumns(t.Name, t.Columns, rows...)
}

// Map returns a table whose rows are fn applied to each row.
func (t Table) Map(fn func(Row) Row) Table {
	rows := make([]Row, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = fn(r)
	}
	return NewTableWithColumns(t.Name, t.Columns, rows...)
}
