// Package services holds the tracker use cases: loading tables under the
// configured load policy, deriving the per-domain views and recording new
// entries.
package services

import (
	"context"
	"errors"
	"fmt"

	"tracker/internal/core"
	"tracker/internal/log"
	"tracker/internal/tables"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrUnavailable is returned in strict mode when a backend cannot be
	// reached.
	ErrUnavailable = errors.New("table backend unavailable")
	// ErrInvalidEntry wraps every validation failure of a submitted entry.
	ErrInvalidEntry = errors.New("invalid entry")
)

// Publisher announces rows that were appended to a table.
type Publisher interface {
	PublishTableAppended(ctx context.Context, table string, rows []core.Row) error
}

// TableNames maps each tracker to the table that backs it.
type TableNames struct {
	Habits   string
	Expenses string
	Gym      string
	Config   string
}

func DefaultTableNames() TableNames {
	return TableNames{Habits: "habitos", Expenses: "gastos", Gym: "gym", Config: "config"}
}

// All returns the names in display order.
func (n TableNames) All() []string {
	return []string{n.Habits, n.Expenses, n.Gym, n.Config}
}

type Options struct {
	Tables     TableNames
	HabitRules core.HabitRules
	// Strict turns an unreachable backend into ErrUnavailable instead of an
	// empty table with a warning.
	Strict    bool
	Publisher Publisher
	Logger    *log.Logger
}

// Warning tells the caller a table could not be used as stored.
type Warning struct {
	Table    string `json:"table"`
	Status   string `json:"status"`
	Message  string `json:"message"`
	Artifact string `json:"artifact,omitempty"`
}

type Tracker struct {
	store     tables.Store
	names     TableNames
	rules     core.HabitRules
	strict    bool
	publisher Publisher
	logger    *log.Logger
}

func NewTracker(store tables.Store, opts Options) *Tracker {
	names := opts.Tables
	def := DefaultTableNames()
	if names.Habits == "" {
		names.Habits = def.Habits
	}
	if names.Expenses == "" {
		names.Expenses = def.Expenses
	}
	if names.Gym == "" {
		names.Gym = def.Gym
	}
	if names.Config == "" {
		names.Config = def.Config
	}
	rules := opts.HabitRules
	if rules == (core.HabitRules{}) {
		rules = core.DefaultHabitRules()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.FromSlog(nil, log.ComponentTracker)
	}
	return &Tracker{
		store:     store,
		names:     names,
		rules:     rules,
		strict:    opts.Strict,
		publisher: opts.Publisher,
		logger:    logger.WithComponent(log.ComponentTracker),
	}
}

// Tables returns the configured table names.
func (t *Tracker) Tables() TableNames { return t.names }

// load resolves a store outcome into a usable table according to the load
// policy.
func (t *Tracker) load(ctx context.Context, name string) (core.Table, []Warning, error) {
	return t.resolve(ctx, name, true)
}

func (t *Tracker) resolve(ctx context.Context, name string, reload bool) (core.Table, []Warning, error) {
	out := t.store.Load(ctx, name)
	switch out.Status {
	case tables.Loaded:
		return out.Table, nil, nil
	case tables.Missing:
		return core.Table{Name: name}, nil, nil
	case tables.Malformed:
		w := Warning{Table: name, Status: out.Status.String(), Message: fmt.Sprintf("table %s could not be read and was started over", name)}
		if q, ok := t.store.(tables.Quarantiner); ok {
			artifact, err := q.Quarantine(ctx, name)
			if errors.Is(err, tables.ErrNotMalformed) && reload {
				// Recovered by a concurrent append.
				t.logger.DebugContext(ctx, "Table recovered before quarantine",
					log.FieldTable, name,
					log.FieldOperation, log.OpQuarantine)
				return t.resolve(ctx, name, false)
			}
			if err != nil {
				t.logger.ErrorContext(ctx, "Quarantine failed",
					log.FieldTable, name,
					log.FieldOperation, log.OpQuarantine,
					log.FieldError, err)
				w.Message = fmt.Sprintf("table %s could not be read", name)
			} else {
				w.Artifact = artifact
				w.Message = fmt.Sprintf("table %s could not be read; the damaged copy was kept as %s", name, artifact)
			}
		}
		t.logger.WarnContext(ctx, "Malformed table",
			log.FieldTable, name,
			log.FieldOperation, log.OpLoad,
			log.FieldArtifact, w.Artifact,
			log.FieldError, out.Err)
		return core.Table{Name: name}, []Warning{w}, nil
	default:
		t.logger.WarnContext(ctx, "Table backend unreachable",
			log.FieldTable, name,
			log.FieldOperation, log.OpLoad,
			log.FieldError, out.Err)
		if t.strict {
			return core.Table{}, nil, fmt.Errorf("%w: %s: %w", ErrUnavailable, name, out.Err)
		}
		return core.Table{Name: name}, []Warning{{
			Table:   name,
			Status:  out.Status.String(),
			Message: fmt.Sprintf("table %s is temporarily unavailable; showing no data", name),
		}}, nil
	}
}

type HabitsView struct {
	Columns  []string          `json:"columns"`
	Rows     []core.Row        `json:"rows"`
	Series   []core.HabitPoint `json:"series"`
	Warnings []Warning         `json:"warnings,omitempty"`
}

func (t *Tracker) Habits(ctx context.Context) (HabitsView, error) {
	tbl, warns, err := t.load(ctx, t.names.Habits)
	if err != nil {
		return HabitsView{}, err
	}
	return t.habitsView(tbl, warns), nil
}

func (t *Tracker) habitsView(tbl core.Table, warns []Warning) HabitsView {
	derived := core.DeriveHabits(tbl, t.rules)
	return HabitsView{
		Columns:  derived.Columns,
		Rows:     nonNilRows(derived.Rows),
		Series:   core.HabitSeries(derived),
		Warnings: warns,
	}
}

type ExpensesView struct {
	Columns  []string          `json:"columns"`
	Rows     []core.Row        `json:"rows"`
	Monthly  []core.MonthTotal `json:"monthly"`
	Balance  decimal.Decimal   `json:"balance"`
	Warnings []Warning         `json:"warnings,omitempty"`
}

func (t *Tracker) Expenses(ctx context.Context) (ExpensesView, error) {
	tbl, warns, err := t.load(ctx, t.names.Expenses)
	if err != nil {
		return ExpensesView{}, err
	}
	return expensesView(tbl, warns), nil
}

func expensesView(tbl core.Table, warns []Warning) ExpensesView {
	derived := core.DeriveExpenses(tbl)
	return ExpensesView{
		Columns:  derived.Columns,
		Rows:     nonNilRows(derived.Rows),
		Monthly:  core.MonthlyTotals(derived),
		Balance:  core.Balance(derived),
		Warnings: warns,
	}
}

type GymView struct {
	Exercise       string              `json:"exercise"`
	Exercises      []string            `json:"exercises"`
	Columns        []string            `json:"columns"`
	Rows           []core.Row          `json:"rows"`
	Series         []core.VolumePoint  `json:"series"`
	Recommendation core.Recommendation `json:"recommendation"`
	Advice         string              `json:"advice,omitempty"`
	Warnings       []Warning           `json:"warnings,omitempty"`
}

// Gym returns the volume series of one exercise. An empty exercise selects
// the first entry of the catalogue.
func (t *Tracker) Gym(ctx context.Context, exercise string) (GymView, error) {
	var (
		gymTbl, cfgTbl     core.Table
		gymWarns, cfgWarns []Warning
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		gymTbl, gymWarns, err = t.load(gctx, t.names.Gym)
		return err
	})
	g.Go(func() error {
		var err error
		cfgTbl, cfgWarns, err = t.load(gctx, t.names.Config)
		return err
	})
	if err := g.Wait(); err != nil {
		return GymView{}, err
	}
	return gymView(gymTbl, core.ExerciseCatalog(cfgTbl), exercise, append(gymWarns, cfgWarns...)), nil
}

func gymView(tbl core.Table, catalog []string, exercise string, warns []Warning) GymView {
	if exercise == "" && len(catalog) > 0 {
		exercise = catalog[0]
	}
	derived := core.DeriveVolume(core.FilterExercise(tbl, exercise))
	rec := core.Readiness(derived)
	return GymView{
		Exercise:       exercise,
		Exercises:      catalog,
		Columns:        derived.Columns,
		Rows:           nonNilRows(derived.Rows),
		Series:         core.VolumeSeries(derived),
		Recommendation: rec,
		Advice:         rec.Message(),
		Warnings:       warns,
	}
}

// Exercises returns the exercise catalogue from the config table.
func (t *Tracker) Exercises(ctx context.Context) ([]string, []Warning, error) {
	tbl, warns, err := t.load(ctx, t.names.Config)
	if err != nil {
		return nil, nil, err
	}
	return core.ExerciseCatalog(tbl), warns, nil
}

type Overview struct {
	Habits   HabitsView   `json:"habits"`
	Expenses ExpensesView `json:"expenses"`
	Gym      GymView      `json:"gym"`
}

// Overview loads every table concurrently and builds all three views.
func (t *Tracker) Overview(ctx context.Context) (Overview, error) {
	names := t.names.All()
	loaded := make([]core.Table, len(names))
	warns := make([][]Warning, len(names))

	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		g.Go(func() error {
			tbl, w, err := t.load(gctx, name)
			loaded[i], warns[i] = tbl, w
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return Overview{}, err
	}
	return Overview{
		Habits:   t.habitsView(loaded[0], warns[0]),
		Expenses: expensesView(loaded[1], warns[1]),
		Gym:      gymView(loaded[2], core.ExerciseCatalog(loaded[3]), "", append(warns[2], warns[3]...)),
	}, nil
}

// Ready reports whether the backend answers for the config table.
func (t *Tracker) Ready(ctx context.Context) error {
	if out := t.store.Load(ctx, t.names.Config); out.Status == tables.Unreachable {
		return fmt.Errorf("%w: %w", ErrUnavailable, out.Err)
	}
	return nil
}

func nonNilRows(rows []core.Row) []core.Row {
	if rows == nil {
		return []core.Row{}
	}
	return rows
}
