package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tracker/internal/core"
	"tracker/internal/tables"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func habitRow(day int, cepillo bool) core.Row {
	return core.NewRow(
		core.Cell(core.ColFecha, core.NewDate(2024, 3, day)),
		core.Cell(core.ColCepillo, core.Bool(cepillo)),
		core.Cell(core.ColPasos, core.Number(8000)),
	)
}

func TestLoadMissingFile(t *testing.T) {
	s := newStore(t)
	out := s.Load(context.Background(), "habitos")
	if out.Status != tables.Missing {
		t.Fatalf("status = %s, want missing", out.Status)
	}
	if !out.Table.IsEmpty() {
		t.Fatalf("missing table has %d rows", out.Table.Len())
	}
}

func TestNewRequiresDir(t *testing.T) {
	if _, err := New("  "); err == nil {
		t.Fatal("expected error for blank dir")
	}
}

func TestAppendThenLoad(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	rows := []core.Row{habitRow(1, true), habitRow(2, false)}
	if err := s.Append(ctx, "habitos", rows); err != nil {
		t.Fatalf("Append: %v", err)
	}
	out := s.Load(ctx, "habitos")
	if out.Status != tables.Loaded {
		t.Fatalf("status = %s (%v)", out.Status, out.Err)
	}
	if out.Table.Len() != 2 {
		t.Fatalf("rows = %d, want 2", out.Table.Len())
	}
	for i, r := range rows {
		if !out.Table.Rows[i].Equal(r) {
			t.Fatalf("row %d = %v, want %v", i, out.Table.Rows[i].Fields(), r.Fields())
		}
	}
	want := []string{core.ColFecha, core.ColCepillo, core.ColPasos}
	if strings.Join(out.Table.Columns, ",") != strings.Join(want, ",") {
		t.Fatalf("columns = %v, want %v", out.Table.Columns, want)
	}
}

func TestAppendKeepsExistingRows(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	if err := s.Append(ctx, "gastos", []core.Row{core.NewRow(core.Cell("Concepto", core.String("pan")))}); err != nil {
		t.Fatal(err)
	}
	extra := core.NewRow(core.Cell("Concepto", core.String("cine")), core.Cell("Cantidad", core.Number(7.5)))
	if err := s.Append(ctx, "gastos", []core.Row{extra}); err != nil {
		t.Fatal(err)
	}
	out := s.Load(ctx, "gastos")
	if out.Table.Len() != 2 {
		t.Fatalf("rows = %d, want 2", out.Table.Len())
	}
	if got := out.Table.Rows[0].Text("Concepto"); got != "pan" {
		t.Fatalf("first row = %q", got)
	}
	if _, ok := out.Table.Rows[0].Lookup("Cantidad"); ok {
		t.Fatal("first row gained a Cantidad cell")
	}
	if got := out.Table.Rows[1].Number("Cantidad"); got != 7.5 {
		t.Fatalf("Cantidad = %v", got)
	}
}

func TestAppendTwiceDuplicates(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	row := habitRow(5, true)
	for i := 0; i < 2; i++ {
		if err := s.Append(ctx, "habitos", []core.Row{row}); err != nil {
			t.Fatal(err)
		}
	}
	out := s.Load(ctx, "habitos")
	if out.Table.Len() != 2 {
		t.Fatalf("rows = %d, want 2", out.Table.Len())
	}
	if !out.Table.Rows[0].Equal(out.Table.Rows[1]) {
		t.Fatal("duplicated rows differ")
	}
}

func TestAppendEmptyCreatesHeaderlessFile(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	if err := s.Append(ctx, "gym", nil); err != nil {
		t.Fatal(err)
	}
	out := s.Load(ctx, "gym")
	if out.Status != tables.Loaded || !out.Table.IsEmpty() {
		t.Fatalf("status = %s rows = %d", out.Status, out.Table.Len())
	}
}

func TestLoadMalformed(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"field count", "Fecha,Pasos\n2024-01-01,1,2\n"},
		{"bare quote", "Fecha,Pasos\n2024-01-01,1\"0\n"},
		{"duplicate header", "Fecha,Fecha\n2024-01-01,2024-01-02\n"},
		{"blank header", "Fecha,\n2024-01-01,1\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newStore(t)
			if err := os.WriteFile(s.Path("habitos"), []byte(tc.content), 0o644); err != nil {
				t.Fatal(err)
			}
			out := s.Load(context.Background(), "habitos")
			if out.Status != tables.Malformed {
				t.Fatalf("status = %s, want malformed", out.Status)
			}
			if !errors.Is(out.Err, tables.ErrMalformed) {
				t.Fatalf("err = %v, want ErrMalformed", out.Err)
			}
			if _, err := os.Stat(s.Path("habitos")); err != nil {
				t.Fatalf("load must not move the file: %v", err)
			}
		})
	}
}

func TestLoadParsesCells(t *testing.T) {
	s := newStore(t)
	content := "\ufeffFecha,Cepillo,Prote,Concepto\n2024-02-10,True,95,\n2024-02-11,false,\"1,5\",pan\n"
	if err := os.WriteFile(s.Path("habitos"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	out := s.Load(context.Background(), "habitos")
	if out.Status != tables.Loaded {
		t.Fatalf("status = %s (%v)", out.Status, out.Err)
	}
	first := out.Table.Rows[0]
	if d, ok := first.Lookup("Fecha"); !ok || d.Kind() != core.KindDate {
		t.Fatalf("Fecha = %v", d)
	}
	if b, ok := first.Lookup("Cepillo"); !ok || b.Kind() != core.KindBool {
		t.Fatalf("Cepillo = %v", b)
	}
	if _, ok := first.Lookup("Concepto"); ok {
		t.Fatal("blank cell must be absent")
	}
	if got := out.Table.Rows[1].Number("Prote"); got != 1.5 {
		t.Fatalf("Prote = %v, want 1.5", got)
	}
	if out.Table.Columns[0] != "Fecha" {
		t.Fatalf("BOM not stripped: %q", out.Table.Columns[0])
	}
}

func TestQuarantine(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	s.now = func() time.Time { return time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC) }
	path := s.Path("habitos")

	if err := os.WriteFile(path, []byte("a,b\n1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	artifact, err := s.Quarantine(ctx, "habitos")
	if err != nil {
		t.Fatalf("Quarantine: %v", err)
	}
	if filepath.Base(artifact) != "corrupto_habitos.csv" {
		t.Fatalf("artifact = %s", artifact)
	}
	if out := s.Load(ctx, "habitos"); out.Status != tables.Missing {
		t.Fatalf("after quarantine status = %s", out.Status)
	}

	if err := os.WriteFile(path, []byte("a,b\n1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	second, err := s.Quarantine(ctx, "habitos")
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(second) != "corrupto_20240506T070809Z_habitos.csv" {
		t.Fatalf("second artifact = %s", second)
	}
	if _, err := os.Stat(artifact); err != nil {
		t.Fatalf("first artifact lost: %v", err)
	}
}

func TestQuarantineMissingFile(t *testing.T) {
	s := newStore(t)
	if _, err := s.Quarantine(context.Background(), "habitos"); !errors.Is(err, tables.ErrNotMalformed) {
		t.Fatalf("err = %v, want ErrNotMalformed", err)
	}
}

func TestQuarantineAfterRecoveringAppendKeepsTable(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	if err := os.WriteFile(s.Path("gym"), []byte("x,y\n1,2,3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if out := s.Load(ctx, "gym"); out.Status != tables.Malformed {
		t.Fatalf("status = %s, want malformed", out.Status)
	}

	// An append lands between the reader's load and its quarantine.
	row := core.NewRow(core.Cell("Ejercicio", core.String("Sentadilla")))
	if err := s.Append(ctx, "gym", []core.Row{row}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	artifact, err := s.Quarantine(ctx, "gym")
	if !errors.Is(err, tables.ErrNotMalformed) {
		t.Fatalf("Quarantine = %q, %v; want ErrNotMalformed", artifact, err)
	}
	out := s.Load(ctx, "gym")
	if out.Status != tables.Loaded || out.Table.Len() != 1 {
		t.Fatalf("status = %s rows = %d, want the appended row", out.Status, out.Table.Len())
	}
	if got := out.Table.Rows[0].Text("Ejercicio"); got != "Sentadilla" {
		t.Fatalf("Ejercicio = %q", got)
	}
}

func TestAppendOverMalformedQuarantines(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	if err := os.WriteFile(s.Path("gym"), []byte("x,y\n1,2,3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	row := core.NewRow(core.Cell("Ejercicio", core.String("Press banca")))
	if err := s.Append(ctx, "gym", []core.Row{row}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	out := s.Load(ctx, "gym")
	if out.Status != tables.Loaded || out.Table.Len() != 1 {
		t.Fatalf("status = %s rows = %d", out.Status, out.Table.Len())
	}
	if !out.Table.Rows[0].Equal(row) {
		t.Fatalf("row = %v", out.Table.Rows[0].Fields())
	}
	if _, err := os.Stat(filepath.Join(s.Dir(), "corrupto_gym.csv")); err != nil {
		t.Fatalf("artifact missing: %v", err)
	}
}

func TestInvalidNames(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	for _, name := range []string{"", "../x", "a/b", " habitos"} {
		if err := s.Append(ctx, name, nil); !errors.Is(err, tables.ErrInvalidName) {
			t.Fatalf("Append(%q) err = %v", name, err)
		}
		if out := s.Load(ctx, name); out.Status != tables.Unreachable {
			t.Fatalf("Load(%q) status = %s", name, out.Status)
		}
	}
}

func TestNoTempFilesLeft(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	if err := s.Append(ctx, "habitos", []core.Row{habitRow(1, true)}); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(s.Dir())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "habitos.csv" {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Fatalf("dir entries = %v", names)
	}
}
