package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"tracker/internal/core"
	"tracker/internal/services"

	"github.com/spf13/cobra"
)

// parseDate accepts YYYY-MM-DD. Blank means today.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, userError("invalid --date %q: want YYYY-MM-DD", s)
	}
	return t, nil
}

// recordError turns validation failures into user errors.
func recordError(err error) error {
	if errors.Is(err, services.ErrInvalidEntry) {
		return userError("%v", err)
	}
	return err
}

func newHabitsCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "habits",
		Short: "Daily habit completion",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "Show the completion percentage per day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			view, err := opts.app.Tracker.Habits(cmd.Context())
			if err != nil {
				return err
			}
			if opts.json {
				return printJSON(cmd.OutOrStdout(), view)
			}
			printWarnings(cmd.ErrOrStderr(), view.Warnings)
			return printHabits(cmd.OutOrStdout(), view)
		},
	}

	var (
		date  string
		entry core.HabitEntry
	)
	add := publishing(&cobra.Command{
		Use:   "add",
		Short: "Record one day of habits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fecha, err := parseDate(date)
			if err != nil {
				return err
			}
			entry.Fecha = fecha
			view, err := opts.app.Tracker.RecordHabit(cmd.Context(), entry)
			if err != nil {
				return recordError(err)
			}
			if opts.json {
				return printJSON(cmd.OutOrStdout(), view)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Habits recorded")
			return printHabits(cmd.OutOrStdout(), view)
		},
	})
	f := add.Flags()
	f.StringVar(&date, "date", "", "day as YYYY-MM-DD (default today)")
	f.BoolVar(&entry.CCCCM, "ccccm", false, "CCCCM done")
	f.BoolVar(&entry.Hielo, "hielo", false, "Hielo+hipo AM done")
	f.BoolVar(&entry.Esport, "esport", false, "Esport done")
	f.BoolVar(&entry.Cepillo, "cepillo", false, "Cepillo done")
	f.BoolVar(&entry.Exfoliante, "exfoliante", false, "Exfoliante done")
	f.BoolVar(&entry.Lectura, "lectura", false, "Lectura done")
	f.BoolVar(&entry.ModoAvion, "modo-avion", false, "Modo avion done")
	f.IntVar(&entry.Prote, "prote", 0, "protein grams")
	f.IntVar(&entry.Pasos, "pasos", 0, "steps")

	cmd.AddCommand(list, add)
	return cmd
}

func newExpensesCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "expenses",
		Short: "Income and expense movements",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "Show monthly totals and the balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			view, err := opts.app.Tracker.Expenses(cmd.Context())
			if err != nil {
				return err
			}
			if opts.json {
				return printJSON(cmd.OutOrStdout(), view)
			}
			printWarnings(cmd.ErrOrStderr(), view.Warnings)
			return printExpenses(cmd.OutOrStdout(), view)
		},
	}

	var (
		date  string
		entry core.ExpenseEntry
	)
	add := publishing(&cobra.Command{
		Use:   "add",
		Short: "Record an income or expense",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fecha, err := parseDate(date)
			if err != nil {
				return err
			}
			entry.Fecha = fecha
			view, err := opts.app.Tracker.RecordExpense(cmd.Context(), entry)
			if err != nil {
				return recordError(err)
			}
			if opts.json {
				return printJSON(cmd.OutOrStdout(), view)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Movement recorded")
			return printExpenses(cmd.OutOrStdout(), view)
		},
	})
	f := add.Flags()
	f.StringVar(&date, "date", "", "day as YYYY-MM-DD (default today)")
	f.StringVar(&entry.Concepto, "concept", "", "what the movement is for")
	f.Float64Var(&entry.Cantidad, "amount", 0, "amount, always positive")
	f.StringVar(&entry.Naturalesa, "nature", core.NatureGasto, "Gasto or Ingreso")

	cmd.AddCommand(list, add)
	return cmd
}

func newGymCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gym",
		Short: "Training volume per exercise",
	}

	var exercise string
	list := &cobra.Command{
		Use:   "list",
		Short: "Show the volume series of one exercise",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			view, err := opts.app.Tracker.Gym(cmd.Context(), exercise)
			if err != nil {
				return err
			}
			if opts.json {
				return printJSON(cmd.OutOrStdout(), view)
			}
			printWarnings(cmd.ErrOrStderr(), view.Warnings)
			return printGym(cmd.OutOrStdout(), view)
		},
	}
	list.Flags().StringVar(&exercise, "exercise", "", "exercise name (default the first in the catalogue)")

	var (
		date string
		set  core.GymSet
	)
	add := publishing(&cobra.Command{
		Use:   "add",
		Short: "Record one set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fecha, err := parseDate(date)
			if err != nil {
				return err
			}
			set.Fecha = fecha
			view, err := opts.app.Tracker.RecordGymSet(cmd.Context(), set)
			if err != nil {
				return recordError(err)
			}
			if opts.json {
				return printJSON(cmd.OutOrStdout(), view)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Set recorded")
			return printGym(cmd.OutOrStdout(), view)
		},
	})
	f := add.Flags()
	f.StringVar(&date, "date", "", "day as YYYY-MM-DD (default today)")
	f.StringVar(&set.Ejercicio, "exercise", "", "exercise name")
	f.Float64Var(&set.Peso, "weight", 0, "weight in kg")
	f.IntVar(&set.Reps, "reps", 0, "repetitions")
	f.IntVar(&set.Esfuerzo, "effort", core.DefaultEffort, "effort from 1 to 10")

	cmd.AddCommand(list, add)
	return cmd
}

func newExercisesCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "exercises",
		Short: "List the exercise catalogue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			names, warns, err := opts.app.Tracker.Exercises(cmd.Context())
			if err != nil {
				return err
			}
			if opts.json {
				return printJSON(cmd.OutOrStdout(), names)
			}
			printWarnings(cmd.ErrOrStderr(), warns)
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	}
}
