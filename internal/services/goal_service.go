package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
)

type (
	GoalInput struct {
		Name   string
		Type   core.Kind
		Target decimal.Decimal
		Month  time.Time // zero means the current month
	}

	// GoalStatus is a stored goal with its progress in that goal's month.
	GoalStatus struct {
		Goal     core.Goal
		Progress core.GoalProgress
	}
)

// UpsertGoal creates a goal or updates the target of an existing one with
// the same name, type and month.
func (s *LedgerService) UpsertGoal(ctx context.Context, userID int64, in GoalInput) (core.Goal, bool, error) {
	g := core.Goal{
		UserID: userID,
		Name:   strings.TrimSpace(in.Name),
		Type:   in.Type,
		Target: in.Target,
		Month:  core.OrCurrentMonth(in.Month, s.now()),
	}
	if err := g.Validate(); err != nil {
		return core.Goal{}, false, err
	}
	return s.store.UpsertGoal(ctx, g)
}

// GoalProgress evaluates the newest goal matching name and the optional
// type and month.
func (s *LedgerService) GoalProgress(ctx context.Context, userID int64, name string, kind *core.Kind, month *time.Time) (GoalStatus, error) {
	if kind != nil {
		if err := kind.Validate(); err != nil {
			return GoalStatus{}, core.ErrInvalidGoalType
		}
	}
	goals, err := s.store.FindGoalsByName(ctx, userID, name, kind, month)
	if err != nil {
		return GoalStatus{}, err
	}
	if len(goals) == 0 {
		return GoalStatus{}, fmt.Errorf("goal %q: %w", name, core.ErrNotFound)
	}
	g := goals[0]

	summary, err := s.agg.Summarize(ctx, userID, g.Month)
	if err != nil {
		return GoalStatus{}, err
	}
	for _, p := range summary.Goals {
		if p.Name == g.Name && p.Type == g.Type {
			return GoalStatus{Goal: g, Progress: p}, nil
		}
	}
	// The goal vanished between the two reads; evaluate it directly.
	single := BuildSummary(g.Month, core.MonthLedger{
		Income:  summary.IncomeByCategory,
		Expense: summary.ExpenseByCategory,
		Goals:   []core.Goal{g},
	})
	return GoalStatus{Goal: g, Progress: single.Goals[0]}, nil
}
