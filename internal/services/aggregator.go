package services

import (
	"context"
	"fmt"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ports"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Aggregator computes month summaries from the ledger.
type Aggregator struct {
	store ports.MonthReader
	now   func() time.Time
}

func NewAggregator(store ports.MonthReader) *Aggregator {
	return &Aggregator{store: store, now: time.Now}
}

// Summarize aggregates one user's month. A zero month means the current one.
func (a *Aggregator) Summarize(ctx context.Context, userID int64, month time.Time) (core.Summary, error) {
	first := core.OrCurrentMonth(month, a.now())
	ledger, err := a.store.ReadMonth(ctx, userID, first)
	if err != nil {
		return core.Summary{}, fmt.Errorf("read month %s: %w", first.Format(core.MonthLayout), err)
	}
	return BuildSummary(first, ledger), nil
}

// BuildSummary turns a month's raw ledger into totals and goal progress.
func BuildSummary(month time.Time, ledger core.MonthLedger) core.Summary {
	s := core.Summary{
		Month:             core.MonthStart(month),
		IncomeByCategory:  nonZero(ledger.Income),
		ExpenseByCategory: nonZero(ledger.Expense),
	}
	s.TotalIncome = total(s.IncomeByCategory)
	s.TotalExpense = total(s.ExpenseByCategory)
	s.Net = s.TotalIncome.Sub(s.TotalExpense)

	s.Goals = make([]core.GoalProgress, 0, len(ledger.Goals))
	for _, g := range ledger.Goals {
		progress := s.TotalExpense
		if g.Type == core.KindIncome {
			progress = s.TotalIncome
		}
		s.Goals = append(s.Goals, core.GoalProgress{
			Name:       g.Name,
			Type:       g.Type,
			Target:     g.Target,
			Progress:   progress,
			Percentage: percentage(progress, g.Target),
		})
	}
	return s
}

// percentage is progress/target*100 rounded half-even to 2 places, 0 when
// target is zero.
func percentage(progress, target decimal.Decimal) decimal.Decimal {
	if target.IsZero() {
		return decimal.Zero
	}
	return progress.Mul(hundred).DivRound(target, 16).RoundBank(2)
}

func total(items []core.CategoryAmount) decimal.Decimal {
	sum := decimal.Zero
	for _, c := range items {
		sum = sum.Add(c.Amount)
	}
	return sum
}

func nonZero(items []core.CategoryAmount) []core.CategoryAmount {
	out := make([]core.CategoryAmount, 0, len(items))
	for _, c := range items {
		if !c.Amount.IsZero() {
			out = append(out, c)
		}
	}
	return out
}
