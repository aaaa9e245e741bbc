package services

import (
	"context"
	"fmt"

	"fintrack/internal/core"
	"fintrack/internal/ports"
)

// OverspendGuard warns when an expense write would push the month past the
// latest expense goal. It never blocks the write.
type OverspendGuard struct {
	ledger ports.LedgerReader
	loc    *Localizer
}

func NewOverspendGuard(ledger ports.LedgerReader, loc *Localizer) *OverspendGuard {
	if loc == nil {
		loc = NewLocalizer("")
	}
	return &OverspendGuard{ledger: ledger, loc: loc}
}

// Check evaluates candidate before it is written. A persisted candidate
// (ID != 0) is excluded from the existing total so its amount counts once.
func (g *OverspendGuard) Check(ctx context.Context, userID int64, candidate core.Entry) (string, error) {
	if candidate.Kind != core.KindExpense {
		return "", nil
	}

	rng := core.MonthRange(candidate.EntryDate)
	kind := core.KindExpense
	goals, err := g.ledger.FindGoals(ctx, userID, rng.From, &kind)
	if err != nil {
		return "", fmt.Errorf("find expense goals: %w", err)
	}
	if len(goals) == 0 {
		return "", nil
	}
	goal := goals[0]

	existing, err := g.ledger.SumEntries(ctx, userID, core.KindExpense, rng, candidate.ID)
	if err != nil {
		return "", fmt.Errorf("sum month expenses: %w", err)
	}

	projected := existing.Add(candidate.Amount)
	if !projected.GreaterThan(goal.Target) {
		return "", nil
	}
	return g.loc.sprintf(msgOverspend, projected.RoundBank(0).String(), goal.Target.RoundBank(0).String()), nil
}
