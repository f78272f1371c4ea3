package core

import (
	"sort"
	"strings"
	"time"
)

// Gym column names as stored in the gym table.
const (
	ColEjercicio = "Ejercicio"
	ColPeso      = "Peso"
	ColReps      = "Reps"
	ColEsfuerzo  = "Esfuerzo"
	ColVolumen   = "Volumen"
)

// EffortThreshold is the highest effort rating that still calls for more load.
const EffortThreshold = 7

// Recommendation is the readiness signal derived from the latest set.
type Recommendation string

const (
	RecommendNone     Recommendation = "none"
	RecommendIncrease Recommendation = "increase_load"
	RecommendMaintain Recommendation = "maintain_intensity"
)

// Message returns the user-facing text for the recommendation.
func (r Recommendation) Message() string {
	switch r {
	case RecommendIncrease:
		return "¡Nivel subiendo! Dale más peso."
	case RecommendMaintain:
		return "Mantén la intensidad."
	default:
		return ""
	}
}

// FilterExercise keeps the rows whose Ejercicio equals name.
func FilterExercise(t Table, name string) Table {
	name = strings.TrimSpace(name)
	return t.Filter(func(r Row) bool {
		return strings.TrimSpace(r.Text(ColEjercicio)) == name
	})
}

// DeriveVolume adds Volumen = Peso × Reps to every row and orders rows by
// Fecha ascending. The sort is stable; rows without a date go last.
func DeriveVolume(t Table) Table {
	derived := t.Map(func(r Row) Row {
		return r.With(ColVolumen, Number(r.Number(ColPeso)*r.Number(ColReps)))
	})
	sort.SliceStable(derived.Rows, func(i, j int) bool {
		di, iok := rowDate(derived.Rows[i])
		dj, jok := rowDate(derived.Rows[j])
		switch {
		case iok && jok:
			return di.Before(dj)
		case iok:
			return true
		default:
			return false
		}
	})
	return derived
}

func rowDate(r Row) (time.Time, bool) {
	v, ok := r.Lookup(ColFecha)
	if !ok {
		return time.Time{}, false
	}
	return v.AsDate()
}

// Readiness inspects the most recent entry of a date-ordered series. An
// effort at or below EffortThreshold recommends more load.
func Readiness(series Table) Recommendation {
	if series.IsEmpty() {
		return RecommendNone
	}
	last := series.Rows[len(series.Rows)-1]
	v, ok := last.Lookup(ColEsfuerzo)
	if !ok {
		return RecommendNone
	}
	effort, ok := v.AsNumber()
	if !ok {
		return RecommendNone
	}
	if effort <= EffortThreshold {
		return RecommendIncrease
	}
	return RecommendMaintain
}

// VolumePoint is one (date, volume) sample of an exercise series.
type VolumePoint struct {
	Fecha   string  `json:"fecha"`
	Volumen float64 `json:"volumen"`
}

// VolumeSeries extracts the volume series of a derived gym table.
func VolumeSeries(derived Table) []VolumePoint {
	out := make([]VolumePoint, 0, derived.Len())
	for _, r := range derived.Rows {
		out = append(out, VolumePoint{Fecha: r.Text(ColFecha), Volumen: r.Number(ColVolumen)})
	}
	return out
}

// DefaultExercises is the catalogue used when the config table has none.
var DefaultExercises = []string{
	"Prensa de piernas",
	"Extension cuadriceps",
	"Hip thrust",
	"Abductor fuera",
	"Sentadilla",
	"Bulgaras",
}

// ExerciseCatalog reads the Ejercicio column of the config table, trimmed and
// de-duplicated in first-seen order. An empty result falls back to
// DefaultExercises.
func ExerciseCatalog(config Table) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, r := range config.Rows {
		v := strings.TrimSpace(r.Text(ColEjercicio))
		if v == "" || strings.HasPrefix(v, "#") {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	if len(out) == 0 {
		return append([]string(nil), DefaultExercises...)
	}
	return out
}
