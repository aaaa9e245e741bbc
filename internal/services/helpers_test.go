package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/storage/memory"

	"github.com/shopspring/decimal"
)

var testNow = time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)

func clock() time.Time { return testNow }

func d(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fixture struct {
	store  *memory.Store
	agg    *Aggregator
	guard  *OverspendGuard
	ledger *LedgerService
	loc    *Localizer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewWithClock(clock)
	loc := NewLocalizer("zh-TW")
	agg := NewAggregator(store)
	agg.now = clock
	guard := NewOverspendGuard(store, loc)
	ledger := NewLedgerService(store, guard, agg)
	ledger.now = clock
	return &fixture{store: store, agg: agg, guard: guard, ledger: ledger, loc: loc}
}

func (f *fixture) user(t *testing.T, name string) core.User {
	t.Helper()
	u, err := f.store.CreateUser(context.Background(), name, "")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := f.ledger.EnsureDefaultCategories(context.Background(), u.ID); err != nil {
		t.Fatalf("seed categories: %v", err)
	}
	return u
}

func (f *fixture) entry(t *testing.T, userID int64, kind core.Kind, cat, amount string, day time.Time) core.Entry {
	t.Helper()
	ctx := context.Background()
	if _, _, err := f.ledger.EnsureCategory(ctx, userID, kind, cat, ""); err != nil {
		t.Fatalf("ensure category: %v", err)
	}
	e, _, err := f.ledger.CreateEntry(ctx, userID, kind, EntryInput{Category: cat, Amount: dec(amount), EntryDate: day})
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}
	return e
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []core.MailMessage
	fail map[string]bool
}

func (m *fakeMailer) Send(_ context.Context, msg core.MailMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail[msg.To] {
		return errors.New("smtp: connection refused")
	}
	m.sent = append(m.sent, msg)
	return nil
}

type fakeArchiver struct {
	mu       sync.Mutex
	archived []core.MonthlyReport
	err      error
}

func (a *fakeArchiver) ArchiveReport(_ context.Context, _ core.User, r core.MonthlyReport) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.archived = append(a.archived, r)
	return nil
}

type fakePublisher struct {
	jobs []int64
	fail map[int64]bool
}

func (p *fakePublisher) PublishReportJob(_ context.Context, userID int64, _ time.Time, _ bool) error {
	if p.fail[userID] {
		return errors.New("channel closed")
	}
	p.jobs = append(p.jobs, userID)
	return nil
}
