package core

import "strings"

// TargetHabitCount is the number of tracked habits the daily percentage is
// measured against.
const TargetHabitCount = 9

// Habit column names as stored in the habits table.
const (
	ColFecha      = "Fecha"
	ColCCCCM      = "CCCCM"
	ColHielo      = "Hielo+hipo AM"
	ColEsport     = "Esport"
	ColCepillo    = "Cepillo"
	ColExfoliante = "Exfoliante"
	ColModoAvion  = "Modo_avion"
	ColLectura    = "Lectura"
	ColProte      = "Prote"
	ColProteG     = "Prote(g)"
	ColPasos      = "Pasos"

	ColPercentage = "%"
	PointPrefix   = "p_"
)

// BooleanHabits lists the habit columns scored by truthiness.
var BooleanHabits = []string{ColCCCCM, ColHielo, ColEsport, ColCepillo, ColExfoliante, ColModoAvion, ColLectura}

var truthyTokens = map[string]struct{}{
	"true": {}, "1": {}, "si": {}, "sí": {}, "t": {},
}

// HabitRules parameterises the habit derivation.
type HabitRules struct {
	// TargetCount is the percentage divisor. Zero or less means "divide by
	// the number of point columns actually derived".
	TargetCount   int
	ProteinTarget float64
	StepsTarget   float64
}

// DefaultHabitRules returns the fixed thresholds used by the dashboard.
func DefaultHabitRules() HabitRules {
	return HabitRules{
		TargetCount:   TargetHabitCount,
		ProteinTarget: 120,
		StepsTarget:   10000,
	}
}

// IsTruthy reports whether a raw habit value counts as done.
func IsTruthy(v Value) bool {
	_, ok := truthyTokens[strings.ToLower(strings.TrimSpace(v.String()))]
	return ok
}

// PointColumn returns the derived point column name for a habit column.
func PointColumn(col string) string { return PointPrefix + col }

// DeriveHabits adds p_<habit> point columns and the "%" percentage column.
//
// Boolean habits only contribute when their column is present in the table.
// p_Prote and p_Pasos are always emitted and are 0 when the source column is
// missing, so a missing column lowers the reachable percentage.
func DeriveHabits(t Table, rules HabitRules) Table {
	if t.IsEmpty() {
		return t
	}
	var boolCols []string
	for _, h := range BooleanHabits {
		if t.HasColumn(h) {
			boolCols = append(boolCols, h)
		}
	}
	proteCol := ""
	switch {
	case t.HasColumn(ColProte):
		proteCol = ColProte
	case t.HasColumn(ColProteG):
		proteCol = ColProteG
	}
	hasPasos := t.HasColumn(ColPasos)

	divisor := float64(rules.TargetCount)
	if rules.TargetCount <= 0 {
		present := len(boolCols)
		if proteCol != "" {
			present++
		}
		if hasPasos {
			present++
		}
		divisor = float64(present)
	}

	return t.Map(func(r Row) Row {
		fields := r.Fields()
		sum := 0
		for _, h := range boolCols {
			p := 0
			if v, ok := r.Lookup(h); ok && IsTruthy(v) {
				p = 1
			}
			sum += p
			fields = append(fields, Cell(PointColumn(h), Number(float64(p))))
		}
		prote := 0
		if proteCol != "" && atLeast(r, proteCol, rules.ProteinTarget) {
			prote = 1
		}
		pasos := 0
		if hasPasos && atLeast(r, ColPasos, rules.StepsTarget) {
			pasos = 1
		}
		sum += prote + pasos
		fields = append(fields,
			Cell(PointColumn(ColProte), Number(float64(prote))),
			Cell(PointColumn(ColPasos), Number(float64(pasos))),
			Cell(ColPercentage, Number(percentage(sum, divisor))),
		)
		return NewRow(fields...)
	})
}

func percentage(points int, divisor float64) float64 {
	if divisor <= 0 {
		return 0
	}
	return float64(points) / divisor * 100
}

func atLeast(r Row, col string, threshold float64) bool {
	v, ok := r.Lookup(col)
	if !ok {
		return false
	}
	f, ok := v.AsNumber()
	return ok && f >= threshold
}

// HabitPoint is one (date, percentage) sample of the habit series.
type HabitPoint struct {
	Fecha      string  `json:"fecha"`
	Percentage float64 `json:"percentage"`
}

// HabitSeries extracts the percentage series from a derived habits table in
// row order.
func HabitSeries(derived Table) []HabitPoint {
	out := make([]HabitPoint, 0, derived.Len())
	for _, r := range derived.Rows {
		out = append(out, HabitPoint{Fecha: r.Text(ColFecha), Percentage: r.Number(ColPercentage)})
	}
	return out
}
