package core

import (
	"time"

	"github.com/shopspring/decimal"
)

type (
	CategoryAmount struct {
		Name   string
		Amount decimal.Decimal
	}

	// GoalProgress is one goal evaluated against the month's totals.
	GoalProgress struct {
		Name       string
		Type       Kind
		Target     decimal.Decimal
		Progress   decimal.Decimal
		Percentage decimal.Decimal
	}

	// Summary is the aggregated picture of one user's month. Category slices
	// are sorted by name and never contain zero-entry categories.
	Summary struct {
		Month             time.Time
		TotalIncome       decimal.Decimal
		TotalExpense      decimal.Decimal
		Net               decimal.Decimal
		IncomeByCategory  []CategoryAmount
		ExpenseByCategory []CategoryAmount
		Goals             []GoalProgress
	}

	// MonthLedger is the raw read of one month taken in a single transaction.
	MonthLedger struct {
		Income  []CategoryAmount
		Expense []CategoryAmount
		Goals   []Goal
	}
)

type (
	GoalProgressView struct {
		Name       string  `json:"name"`
		Type       Kind    `json:"type"`
		Target     float64 `json:"target"`
		Progress   float64 `json:"progress"`
		Percentage float64 `json:"percentage"`
	}

	SummaryView struct {
		Month        string             `json:"month"`
		Income       map[string]float64 `json:"income"`
		Expense      map[string]float64 `json:"expense"`
		TotalIncome  float64            `json:"total_income"`
		TotalExpense float64            `json:"total_expense"`
		Net          float64            `json:"net"`
		Goals        []GoalProgressView `json:"goals"`
	}

	// ReportSnapshot is the JSON document stored with a MonthlyReport.
	ReportSnapshot struct {
		TotalIncome  float64            `json:"total_income"`
		TotalExpense float64            `json:"total_expense"`
		Net          float64            `json:"net"`
		GoalProgress []GoalProgressView `json:"goal_progress"`
	}
)

// TopExpense returns the largest expense category. Ties go to the name that
// sorts first.
func (s Summary) TopExpense() (CategoryAmount, bool) {
	var top CategoryAmount
	found := false
	for _, c := range s.ExpenseByCategory {
		if !found || c.Amount.GreaterThan(top.Amount) {
			top = c
			found = true
		}
	}
	return top, found
}

func (s Summary) View() SummaryView {
	return SummaryView{
		Month:        s.Month.Format(DateLayout),
		Income:       amountMap(s.IncomeByCategory),
		Expense:      amountMap(s.ExpenseByCategory),
		TotalIncome:  s.TotalIncome.InexactFloat64(),
		TotalExpense: s.TotalExpense.InexactFloat64(),
		Net:          s.Net.InexactFloat64(),
		Goals:        goalViews(s.Goals),
	}
}

func (s Summary) Snapshot() ReportSnapshot {
	return ReportSnapshot{
		TotalIncome:  s.TotalIncome.InexactFloat64(),
		TotalExpense: s.TotalExpense.InexactFloat64(),
		Net:          s.Net.InexactFloat64(),
		GoalProgress: goalViews(s.Goals),
	}
}

func amountMap(items []CategoryAmount) map[string]float64 {
	m := make(map[string]float64, len(items))
	for _, c := range items {
		m[c.Name] = c.Amount.InexactFloat64()
	}
	return m
}

func goalViews(goals []GoalProgress) []GoalProgressView {
	out := make([]GoalProgressView, 0, len(goals))
	for _, g := range goals {
		out = append(out, GoalProgressView{
			Name:       g.Name,
			Type:       g.Type,
			Target:     g.Target.InexactFloat64(),
			Progress:   g.Progress.InexactFloat64(),
			Percentage: g.Percentage.InexactFloat64(),
		})
	}
	return out
}
