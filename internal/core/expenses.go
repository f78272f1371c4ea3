package core

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Expense column names as stored in the expenses table.
const (
	ColConcepto   = "Concepto"
	ColCantidad   = "Cantidad"
	ColNaturalesa = "Naturalesa"
	ColMonto      = "Monto"
	ColMes        = "Mes"
)

// Expense natures accepted by the form.
const (
	NatureGasto   = "Gasto"
	NatureIngreso = "Ingreso"
)

// IsIncome reports whether the nature field marks the row as income.
func IsIncome(nature string) bool {
	return strings.EqualFold(strings.TrimSpace(nature), NatureIngreso)
}

// SignedAmount returns Cantidad for income rows and -Cantidad otherwise.
// A missing or non-numeric Cantidad counts as zero.
func SignedAmount(r Row) decimal.Decimal {
	amount := decimal.NewFromFloat(r.Number(ColCantidad))
	if IsIncome(r.Text(ColNaturalesa)) {
		return amount
	}
	return amount.Neg()
}

// MonthKey truncates a row's Fecha to YYYY-MM. Rows without a parseable date
// report false.
func MonthKey(r Row) (string, bool) {
	v, ok := r.Lookup(ColFecha)
	if !ok {
		return "", false
	}
	t, ok := v.AsDate()
	if !ok {
		return "", false
	}
	return t.Format("2006-01"), true
}

// DeriveExpenses adds the signed Monto column and, where the date parses,
// the Mes month bucket.
func DeriveExpenses(t Table) Table {
	return t.Map(func(r Row) Row {
		fields := append(r.Fields(), Cell(ColMonto, Number(SignedAmount(r).InexactFloat64())))
		if m, ok := MonthKey(r); ok {
			fields = append(fields, Cell(ColMes, String(m)))
		}
		return NewRow(fields...)
	})
}

// MonthTotal is the signed sum of one month.
type MonthTotal struct {
	Month string          `json:"month"`
	Total decimal.Decimal `json:"total"`
}

// MonthlyTotals sums signed amounts per month, ascending by month. Rows
// without a date are left out.
func MonthlyTotals(t Table) []MonthTotal {
	sums := map[string]decimal.Decimal{}
	for _, r := range t.Rows {
		m, ok := MonthKey(r)
		if !ok {
			continue
		}
		sums[m] = sums[m].Add(SignedAmount(r))
	}
	out := make([]MonthTotal, 0, len(sums))
	for m, total := range sums {
		out = append(out, MonthTotal{Month: m, Total: total})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

// Balance is the signed sum of every row.
func Balance(t Table) decimal.Decimal {
	total := decimal.Zero
	for _, r := range t.Rows {
		total = total.Add(SignedAmount(r))
	}
	return total
}
