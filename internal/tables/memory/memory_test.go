package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"tracker/internal/core"
	"tracker/internal/tables"
)

func TestMemoryStoreAppendAndLoad(t *testing.T) {
	ctx := context.Background()
	s := New()
	if out := s.Load(ctx, "gastos"); out.Status != tables.Missing {
		t.Fatalf("status = %s, want missing", out.Status)
	}
	r1 := core.NewRow(core.Cell("Concepto", core.String("pan")), core.Cell("Cantidad", core.Number(2)))
	r2 := core.NewRow(core.Cell("Concepto", core.String("sueldo")), core.Cell("Naturalesa", core.String("Ingreso")))
	if err := s.Append(ctx, "gastos", []core.Row{r1}); err != nil {
		t.Fatal(err)
	}
	if err := s.Append(ctx, "gastos", []core.Row{r2}); err != nil {
		t.Fatal(err)
	}
	out := s.Load(ctx, "gastos")
	if out.Status != tables.Loaded || out.Table.Len() != 2 {
		t.Fatalf("status = %s rows = %d", out.Status, out.Table.Len())
	}
	if !out.Table.Rows[0].Equal(r1) || !out.Table.Rows[1].Equal(r2) {
		t.Fatal("rows out of order")
	}
	if len(out.Table.Columns) != 3 {
		t.Fatalf("columns = %v", out.Table.Columns)
	}
}

func TestLoadIsSnapshot(t *testing.T) {
	ctx := context.Background()
	s := New()
	_ = s.Append(ctx, "gym", []core.Row{core.NewRow(core.Cell("Reps", core.Number(8)))})
	before := s.Load(ctx, "gym")
	_ = s.Append(ctx, "gym", []core.Row{core.NewRow(core.Cell("Reps", core.Number(10)))})
	if before.Table.Len() != 1 {
		t.Fatalf("earlier snapshot changed: %d rows", before.Table.Len())
	}
}

func TestNewFromFilesSeedsConfig(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	if out := NewFromFiles(dir, "config").Load(ctx, "config"); out.Status != tables.Missing {
		t.Fatalf("no seed file: status = %s", out.Status)
	}

	content := "# catalogo\nSentadilla\n\nHip thrust\nSentadilla\n"
	if err := os.WriteFile(filepath.Join(dir, "seed_exercises.txt"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	out := NewFromFiles(dir, "config").Load(ctx, "config")
	got := core.ExerciseCatalog(out.Table)
	if len(got) != 2 || got[0] != "Sentadilla" || got[1] != "Hip thrust" {
		t.Fatalf("catalog = %v", got)
	}
}

func TestInvalidName(t *testing.T) {
	s := New()
	if err := s.Append(context.Background(), "a/b", nil); err == nil {
		t.Fatal("expected invalid name error")
	}
}
