package services

import (
	"context"
	"testing"

	"fintrack/internal/core"
)

func TestOverspendGuardThreshold(t *testing.T) {
	cases := []struct {
		name     string
		amount   string
		wantWarn bool
	}{
		{"over goal", "150", true},
		{"under goal", "50", false},
		{"exactly at goal", "100", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			u := f.user(t, "guard")
			ctx := context.Background()
			f.ledger.UpsertGoal(ctx, u.ID, GoalInput{Name: "budget", Type: core.KindExpense, Target: dec("1000"), Month: d(2025, 3, 1)})
			f.entry(t, u.ID, core.KindExpense, "食", "900", d(2025, 3, 3))

			_, warning, err := f.ledger.CreateEntry(ctx, u.ID, core.KindExpense,
				EntryInput{Category: "食", Amount: dec(tc.amount), EntryDate: d(2025, 3, 20)})
			if err != nil {
				t.Fatalf("create: %v", err)
			}
			if tc.wantWarn && warning != "本月支出 1050 已超過目標 1000" {
				t.Fatalf("expected warning, got %q", warning)
			}
			if !tc.wantWarn && warning != "" {
				t.Fatalf("expected no warning, got %q", warning)
			}
		})
	}
}

func TestOverspendGuardUsesLatestExpenseGoal(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "latest")
	ctx := context.Background()
	f.ledger.UpsertGoal(ctx, u.ID, GoalInput{Name: "loose", Type: core.KindExpense, Target: dec("5000"), Month: d(2025, 3, 1)})
	f.ledger.UpsertGoal(ctx, u.ID, GoalInput{Name: "tight", Type: core.KindExpense, Target: dec("100"), Month: d(2025, 3, 1)})
	f.ledger.UpsertGoal(ctx, u.ID, GoalInput{Name: "earn", Type: core.KindIncome, Target: dec("1"), Month: d(2025, 3, 1)})

	warning, err := f.guard.Check(ctx, u.ID, core.Entry{Kind: core.KindExpense, Amount: dec("200"), EntryDate: d(2025, 3, 9)})
	if err != nil || warning == "" {
		t.Fatalf("expected warning against the latest goal, got %q err=%v", warning, err)
	}
}

func TestOverspendGuardIgnoresIncomeAndMissingGoal(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "quiet")
	ctx := context.Background()

	if w, _ := f.guard.Check(ctx, u.ID, core.Entry{Kind: core.KindExpense, Amount: dec("1000000"), EntryDate: d(2025, 3, 1)}); w != "" {
		t.Fatalf("no goal must mean no warning, got %q", w)
	}
	f.ledger.UpsertGoal(ctx, u.ID, GoalInput{Name: "g", Type: core.KindExpense, Target: dec("1"), Month: d(2025, 3, 1)})
	if w, _ := f.guard.Check(ctx, u.ID, core.Entry{Kind: core.KindIncome, Amount: dec("1000"), EntryDate: d(2025, 3, 1)}); w != "" {
		t.Fatalf("income must not be checked, got %q", w)
	}
}

func TestOverspendGuardUpdateCountsEntryOnce(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "update")
	ctx := context.Background()
	f.ledger.UpsertGoal(ctx, u.ID, GoalInput{Name: "g", Type: core.KindExpense, Target: dec("1000"), Month: d(2025, 3, 1)})
	e := f.entry(t, u.ID, core.KindExpense, "食", "600", d(2025, 3, 5))

	// 600 -> 700: projected total is 700, not 1300.
	amount := dec("700")
	_, warning, err := f.ledger.UpdateEntry(ctx, u.ID, core.KindExpense, e.ID, EntryPatch{Amount: &amount})
	if err != nil || warning != "" {
		t.Fatalf("update to 700 should not warn, got %q err=%v", warning, err)
	}

	amount = dec("1000.50")
	_, warning, err = f.ledger.UpdateEntry(ctx, u.ID, core.KindExpense, e.ID, EntryPatch{Amount: &amount})
	if err != nil || warning != "本月支出 1000 已超過目標 1000" {
		t.Fatalf("update to 1000.50 should warn with rounded figures, got %q err=%v", warning, err)
	}
}

func TestOverspendGuardPreAndPostWriteAgree(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "agree")
	ctx := context.Background()
	f.ledger.UpsertGoal(ctx, u.ID, GoalInput{Name: "g", Type: core.KindExpense, Target: dec("100"), Month: d(2025, 3, 1)})

	candidate := core.Entry{Kind: core.KindExpense, Amount: dec("150"), EntryDate: d(2025, 3, 5)}
	before, _ := f.guard.Check(ctx, u.ID, candidate)
	saved := f.entry(t, u.ID, core.KindExpense, "食", "150", d(2025, 3, 5))
	after, _ := f.guard.Check(ctx, u.ID, saved)
	if before == "" || before != after {
		t.Fatalf("pre-write %q and post-write %q must match", before, after)
	}
}
