package core

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

var (
	ErrConceptTooLong  = errors.New("concept too long (max 200 characters)")
	ErrNegativeAmount  = errors.New("amount must not be negative")
	ErrInvalidNature   = errors.New("nature must be Gasto or Ingreso")
	ErrEmptyExercise   = errors.New("empty exercise")
	ErrNegativeWeight  = errors.New("weight must not be negative")
	ErrNegativeReps    = errors.New("reps must not be negative")
	ErrInvalidEffort   = errors.New("effort must be between 1 and 10")
	ErrNegativeProtein = errors.New("protein must not be negative")
	ErrNegativeSteps   = errors.New("steps must not be negative")
)

// MaxConceptLength bounds an expense concept, counted in characters.
const MaxConceptLength = 200

// DefaultEffort is the effort preselected by the gym form.
const DefaultEffort = 7

type (
	// HabitEntry is one day of the habit form.
	HabitEntry struct {
		Fecha      time.Time
		CCCCM      bool
		Hielo      bool
		Esport     bool
		Cepillo    bool
		Exfoliante bool
		Lectura    bool
		ModoAvion  bool
		Prote      int
		Pasos      int
	}

	// ExpenseEntry is one movement of the expense form.
	ExpenseEntry struct {
		Fecha      time.Time
		Concepto   string
		Cantidad   float64
		Naturalesa string
	}

	// GymSet is one set of the gym form.
	GymSet struct {
		Fecha     time.Time
		Ejercicio string
		Peso      float64
		Reps      int
		Esfuerzo  int
	}
)

// today is replaceable in tests.
var today = func() time.Time { return time.Now() }

func dateOrToday(t time.Time) Value {
	if t.IsZero() {
		return Date(today())
	}
	return Date(t)
}

func (h HabitEntry) Validate() error {
	if h.Prote < 0 {
		return ErrNegativeProtein
	}
	if h.Pasos < 0 {
		return ErrNegativeSteps
	}
	return nil
}

// Row converts the entry into a habits row with the stored column names.
func (h HabitEntry) Row() Row {
	return NewRow(
		Cell(ColFecha, dateOrToday(h.Fecha)),
		Cell(ColCCCCM, Bool(h.CCCCM)),
		Cell(ColHielo, Bool(h.Hielo)),
		Cell(ColProte, Number(float64(h.Prote))),
		Cell(ColPasos, Number(float64(h.Pasos))),
		Cell(ColEsport, Bool(h.Esport)),
		Cell(ColCepillo, Bool(h.Cepillo)),
		Cell(ColExfoliante, Bool(h.Exfoliante)),
		Cell(ColLectura, Bool(h.Lectura)),
		Cell(ColModoAvion, Bool(h.ModoAvion)),
	)
}

func (e ExpenseEntry) Validate() error {
	if utf8.RuneCountInString(e.Concepto) > MaxConceptLength {
		return ErrConceptTooLong
	}
	if e.Cantidad < 0 {
		return ErrNegativeAmount
	}
	if !strings.EqualFold(e.Naturalesa, NatureGasto) && !strings.EqualFold(e.Naturalesa, NatureIngreso) {
		return ErrInvalidNature
	}
	return nil
}

// Row converts the entry into an expenses row.
func (e ExpenseEntry) Row() Row {
	nature := NatureGasto
	if IsIncome(e.Naturalesa) {
		nature = NatureIngreso
	}
	return NewRow(
		Cell(ColFecha, dateOrToday(e.Fecha)),
		Cell(ColConcepto, String(strings.TrimSpace(e.Concepto))),
		Cell(ColCantidad, Number(e.Cantidad)),
		Cell(ColNaturalesa, String(nature)),
	)
}

func (g GymSet) Validate() error {
	if strings.TrimSpace(g.Ejercicio) == "" {
		return ErrEmptyExercise
	}
	if g.Peso < 0 {
		return ErrNegativeWeight
	}
	if g.Reps < 0 {
		return ErrNegativeReps
	}
	if g.Esfuerzo < 1 || g.Esfuerzo > 10 {
		return ErrInvalidEffort
	}
	return nil
}

// Row converts the set into a gym row.
func (g GymSet) Row() Row {
	return NewRow(
		Cell(ColFecha, dateOrToday(g.Fecha)),
		Cell(ColEjercicio, String(strings.TrimSpace(g.Ejercicio))),
		Cell(ColPeso, Number(g.Peso)),
		Cell(ColReps, Number(float64(g.Reps))),
		Cell(ColEsfuerzo, Number(float64(g.Esfuerzo))),
	)
}
