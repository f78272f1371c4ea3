package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"tracker/internal/services"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printWarnings(w io.Writer, warns []services.Warning) {
	for _, warn := range warns {
		if warn.Artifact != "" {
			fmt.Fprintf(w, "warning: %s (%s): %s, moved to %s\n", warn.Table, warn.Status, warn.Message, warn.Artifact)
			continue
		}
		fmt.Fprintf(w, "warning: %s (%s): %s\n", warn.Table, warn.Status, warn.Message)
	}
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func printHabits(w io.Writer, view services.HabitsView) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "FECHA\t%")
	for _, p := range view.Series {
		fmt.Fprintf(tw, "%s\t%.1f\n", p.Fecha, p.Percentage)
	}
	return tw.Flush()
}

func printExpenses(w io.Writer, view services.ExpensesView) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "MES\tTOTAL")
	for _, m := range view.Monthly {
		fmt.Fprintf(tw, "%s\t%s\n", m.Month, m.Total.StringFixed(2))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Balance: %s\n", view.Balance.StringFixed(2))
	return err
}

func printGym(w io.Writer, view services.GymView) error {
	fmt.Fprintf(w, "Ejercicio: %s\n", view.Exercise)
	tw := newTable(w)
	fmt.Fprintln(tw, "FECHA\tVOLUMEN")
	for _, p := range view.Series {
		fmt.Fprintf(tw, "%s\t%s\n", p.Fecha, formatFloat(p.Volumen))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if view.Advice != "" {
		fmt.Fprintln(w, view.Advice)
	}
	return nil
}
