package services

import (
	"context"
	"testing"
	"time"

	"fintrack/internal/core"
)

func TestSummarizeEmptyMonth(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "empty")

	s, err := f.agg.Summarize(context.Background(), u.ID, d(2025, 2, 1))
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if len(s.IncomeByCategory) != 0 || len(s.ExpenseByCategory) != 0 || len(s.Goals) != 0 {
		t.Fatalf("expected empty collections, got %+v", s)
	}
	if !s.TotalIncome.IsZero() || !s.TotalExpense.IsZero() || !s.Net.IsZero() {
		t.Fatalf("expected zero totals, got %+v", s)
	}
}

func TestSummarizeDefaultsToCurrentMonth(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "now")
	f.entry(t, u.ID, core.KindExpense, "食", "12", d(2025, 3, 2))

	s, err := f.agg.Summarize(context.Background(), u.ID, time.Time{})
	if err != nil || !s.Month.Equal(d(2025, 3, 1)) {
		t.Fatalf("month=%v err=%v", s.Month, err)
	}
	if !s.TotalExpense.Equal(dec("12")) {
		t.Fatalf("expected current month total 12, got %s", s.TotalExpense)
	}
}

func TestSummarizeTotalsAreExactAndOrderIndependent(t *testing.T) {
	amounts := []string{"0.10", "0.20", "100.00", "33.33", "0.07"}
	want := dec("133.70")

	for _, order := range [][]int{{0, 1, 2, 3, 4}, {4, 3, 2, 1, 0}, {2, 0, 4, 1, 3}} {
		f := newFixture(t)
		u := f.user(t, "order")
		for _, i := range order {
			f.entry(t, u.ID, core.KindExpense, "食", amounts[i], d(2025, 1, 10))
		}
		s, err := f.agg.Summarize(context.Background(), u.ID, d(2025, 1, 1))
		if err != nil {
			t.Fatalf("summarize: %v", err)
		}
		if !s.TotalExpense.Equal(want) || !s.ExpenseByCategory[0].Amount.Equal(want) {
			t.Fatalf("order %v: total %s, want %s", order, s.TotalExpense, want)
		}
	}
}

func TestSummarizeRoundTripAmount(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "rt")
	f.entry(t, u.ID, core.KindExpense, "行", "100.00", d(2025, 1, 5))

	s, _ := f.agg.Summarize(context.Background(), u.ID, d(2025, 1, 1))
	if len(s.ExpenseByCategory) != 1 || s.ExpenseByCategory[0].Amount.String() != "100" {
		t.Fatalf("unexpected breakdown %+v", s.ExpenseByCategory)
	}
	if got := s.View().Expense["行"]; got != 100.00 {
		t.Fatalf("view amount = %v", got)
	}
}

func TestSummarizeMonthBoundaries(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "leap")
	f.entry(t, u.ID, core.KindIncome, "薪資", "10", d(2024, 1, 31))
	f.entry(t, u.ID, core.KindIncome, "薪資", "20", d(2024, 2, 1))
	f.entry(t, u.ID, core.KindIncome, "薪資", "30", d(2024, 2, 29))
	f.entry(t, u.ID, core.KindIncome, "薪資", "40", d(2024, 3, 1))

	s, _ := f.agg.Summarize(context.Background(), u.ID, d(2024, 2, 14))
	if !s.TotalIncome.Equal(dec("50")) {
		t.Fatalf("expected february income 50, got %s", s.TotalIncome)
	}
}

func TestBuildSummaryGoalPercentages(t *testing.T) {
	month := d(2025, 4, 1)
	ledger := core.MonthLedger{
		Income:  []core.CategoryAmount{{Name: "薪資", Amount: dec("1000")}},
		Expense: []core.CategoryAmount{{Name: "食", Amount: dec("1")}, {Name: "行", Amount: dec("0")}},
		Goals: []core.Goal{
			{Name: "save", Type: core.KindIncome, Target: dec("3000"), Month: month},
			{Name: "spend", Type: core.KindExpense, Target: dec("8"), Month: month},
			{Name: "zero", Type: core.KindExpense, Target: dec("0"), Month: month},
		},
	}
	s := BuildSummary(month, ledger)

	if len(s.ExpenseByCategory) != 1 {
		t.Fatalf("zero-amount categories must be omitted: %+v", s.ExpenseByCategory)
	}
	if !s.Net.Equal(dec("999")) {
		t.Fatalf("net = %s", s.Net)
	}
	cases := []struct {
		name string
		want string
	}{
		{"save", "33.33"},
		{"spend", "12.5"},
		{"zero", "0"},
	}
	for i, tc := range cases {
		g := s.Goals[i]
		if g.Name != tc.name || !g.Percentage.Equal(dec(tc.want)) {
			t.Fatalf("goal %s: percentage %s, want %s", g.Name, g.Percentage, tc.want)
		}
	}
}

func TestPercentageBankersRounding(t *testing.T) {
	cases := []struct {
		progress, target, want string
	}{
		{"1", "8", "12.5"},
		{"0.00125", "1", "0.12"},
		{"0.00135", "1", "0.14"},
		{"2", "3", "66.67"},
	}
	for _, tc := range cases {
		if got := percentage(dec(tc.progress), dec(tc.target)); !got.Equal(dec(tc.want)) {
			t.Fatalf("%s/%s = %s, want %s", tc.progress, tc.target, got, tc.want)
		}
	}
}
