package core

import (
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

func TestHabitEntryRow(t *testing.T) {
	e := HabitEntry{Fecha: time.Date(2025, 3, 4, 15, 0, 0, 0, time.UTC), CCCCM: true, Prote: 130, Pasos: 8000}
	if err := e.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	r := e.Row()
	if got := r.Text(ColFecha); got != "2025-03-04" {
		t.Fatalf("fecha: got %q", got)
	}
	if got := r.Columns(); got[0] != ColFecha || len(got) != 10 {
		t.Fatalf("unexpected columns: %v", got)
	}
	if v, _ := r.Lookup(ColCCCCM); !IsTruthy(v) {
		t.Fatalf("CCCCM should be truthy, got %v", v)
	}
	if r.Number(ColPasos) != 8000 {
		t.Fatalf("pasos: got %v", r.Number(ColPasos))
	}
}

func TestHabitEntryDefaultsToToday(t *testing.T) {
	old := today
	today = func() time.Time { return time.Date(2025, 1, 2, 23, 59, 0, 0, time.UTC) }
	defer func() { today = old }()

	if got := (HabitEntry{}).Row().Text(ColFecha); got != "2025-01-02" {
		t.Fatalf("expected today's date, got %q", got)
	}
}

func TestExpenseEntryValidate(t *testing.T) {
	good := ExpenseEntry{Concepto: "cafe", Cantidad: 2.5, Naturalesa: "gasto"}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if got := good.Row().Text(ColNaturalesa); got != NatureGasto {
		t.Fatalf("nature should be normalised, got %q", got)
	}

	cases := []struct {
		e    ExpenseEntry
		want error
	}{
		{ExpenseEntry{Concepto: strings.Repeat("x", 201), Cantidad: 1, Naturalesa: NatureGasto}, ErrConceptTooLong},
		{ExpenseEntry{Concepto: strings.Repeat("ñ", 201), Cantidad: 1, Naturalesa: NatureGasto}, ErrConceptTooLong},
		{ExpenseEntry{Concepto: "a", Cantidad: -1, Naturalesa: NatureGasto}, ErrNegativeAmount},
		{ExpenseEntry{Concepto: "a", Cantidad: 1, Naturalesa: "regalo"}, ErrInvalidNature},
	}
	for i, tc := range cases {
		if err := tc.e.Validate(); !errors.Is(err, tc.want) {
			t.Fatalf("case %d: expected %v, got %v", i, tc.want, err)
		}
	}
}

func TestExpenseConceptLimitCountsCharacters(t *testing.T) {
	for _, concept := range []string{"", "  ", strings.Repeat("ñ", 150), strings.Repeat("€", MaxConceptLength)} {
		e := ExpenseEntry{Concepto: concept, Cantidad: 1, Naturalesa: NatureGasto}
		if err := e.Validate(); err != nil {
			t.Errorf("concept of %d runes (%d bytes): %v", utf8.RuneCountInString(concept), len(concept), err)
		}
	}
}

func TestGymSetValidate(t *testing.T) {
	good := GymSet{Ejercicio: "Sentadilla", Peso: 80, Reps: 10, Esfuerzo: DefaultEffort}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	bads := []struct {
		g    GymSet
		want error
	}{
		{GymSet{Ejercicio: "", Esfuerzo: 5}, ErrEmptyExercise},
		{GymSet{Ejercicio: "a", Peso: -1, Esfuerzo: 5}, ErrNegativeWeight},
		{GymSet{Ejercicio: "a", Reps: -1, Esfuerzo: 5}, ErrNegativeReps},
		{GymSet{Ejercicio: "a", Esfuerzo: 0}, ErrInvalidEffort},
		{GymSet{Ejercicio: "a", Esfuerzo: 11}, ErrInvalidEffort},
	}
	for i, tc := range bads {
		if err := tc.g.Validate(); !errors.Is(err, tc.want) {
			t.Fatalf("case %d: expected %v, got %v", i, tc.want, err)
		}
	}
}
