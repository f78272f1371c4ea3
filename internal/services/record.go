package services

import (
	"context"
	"fmt"
	"strings"

	"tracker/internal/core"
	"tracker/internal/log"
)

// RecordHabit validates and appends one habit day, then returns the
// reloaded habits view.
func (t *Tracker) RecordHabit(ctx context.Context, e core.HabitEntry) (HabitsView, error) {
	if err := e.Validate(); err != nil {
		return HabitsView{}, fmt.Errorf("%w: %w", ErrInvalidEntry, err)
	}
	if err := t.record(ctx, t.names.Habits, e.Row()); err != nil {
		return HabitsView{}, err
	}
	return t.Habits(ctx)
}

// RecordExpense validates and appends one movement, then returns the
// reloaded expenses view.
func (t *Tracker) RecordExpense(ctx context.Context, e core.ExpenseEntry) (ExpensesView, error) {
	if err := e.Validate(); err != nil {
		return ExpensesView{}, fmt.Errorf("%w: %w", ErrInvalidEntry, err)
	}
	if err := t.record(ctx, t.names.Expenses, e.Row()); err != nil {
		return ExpensesView{}, err
	}
	return t.Expenses(ctx)
}

// RecordGymSet validates and appends one set, then returns the reloaded
// view of that exercise.
func (t *Tracker) RecordGymSet(ctx context.Context, s core.GymSet) (GymView, error) {
	if err := s.Validate(); err != nil {
		return GymView{}, fmt.Errorf("%w: %w", ErrInvalidEntry, err)
	}
	if err := t.record(ctx, t.names.Gym, s.Row()); err != nil {
		return GymView{}, err
	}
	return t.Gym(ctx, strings.TrimSpace(s.Ejercicio))
}

// record appends the row and announces it. A failed announcement is logged
// and never fails the write.
func (t *Tracker) record(ctx context.Context, table string, row core.Row) error {
	rows := []core.Row{row}
	if err := t.store.Append(ctx, table, rows); err != nil {
		t.logger.ErrorContext(ctx, "Append failed",
			log.FieldTable, table,
			log.FieldOperation, log.OpAppend,
			log.FieldError, err)
		return fmt.Errorf("append to %s: %w", table, err)
	}
	t.logger.InfoContext(ctx, "Row appended",
		log.FieldTable, table,
		log.FieldOperation, log.OpAppend,
		log.FieldRows, len(rows))

	if t.publisher == nil {
		return nil
	}
	if err := t.publisher.PublishTableAppended(ctx, table, rows); err != nil {
		t.logger.ErrorContext(ctx, "Failed to publish append event",
			log.FieldTable, table,
			log.FieldOperation, log.OpPublish,
			log.FieldError, err)
	}
	return nil
}
