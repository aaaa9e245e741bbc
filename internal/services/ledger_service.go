package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ports"

	"github.com/shopspring/decimal"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

type (
	EntryInput struct {
		Category  string
		Amount    decimal.Decimal
		EntryDate time.Time // zero means today
		Note      string
	}

	// EntryPatch carries the fields of a partial update; nil fields are kept.
	EntryPatch struct {
		Category  *string
		Amount    *decimal.Decimal
		EntryDate *time.Time
		Note      *string
	}

	LedgerFilter struct {
		Kind     *core.Kind
		Category string
		Month    *time.Time
		Page     int
		PageSize int
	}

	LedgerPage struct {
		Items    []core.Entry
		Total    int
		Page     int
		PageSize int
	}

	ClearResult struct {
		Income  int64
		Expense int64
	}
)

// LedgerService owns every write path into the ledger.
type LedgerService struct {
	store   ports.LedgerStore
	reader  ports.LedgerReader
	reports ports.ReportStore
	guard   *OverspendGuard
	agg     *Aggregator
	now     func() time.Time
}

func NewLedgerService(store ports.Store, guard *OverspendGuard, agg *Aggregator) *LedgerService {
	return &LedgerService{
		store:   store,
		reader:  store,
		reports: store,
		guard:   guard,
		agg:     agg,
		now:     time.Now,
	}
}

// EnsureCategory gets or creates a category, enforcing the per-kind cap on
// creation only.
func (s *LedgerService) EnsureCategory(ctx context.Context, userID int64, kind core.Kind, name, description string) (core.Category, bool, error) {
	c := core.Category{UserID: userID, Kind: kind, Name: strings.TrimSpace(name), Description: strings.TrimSpace(description)}
	if err := c.Validate(); err != nil {
		return core.Category{}, false, err
	}

	existing, err := s.store.GetCategoryByName(ctx, userID, kind, c.Name)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return core.Category{}, false, err
	}

	n, err := s.store.CountCategories(ctx, userID, kind)
	if err != nil {
		return core.Category{}, false, err
	}
	if n >= core.MaxCategoriesPerKind {
		return core.Category{}, false, &core.LimitError{What: string(kind) + " category", Limit: core.MaxCategoriesPerKind}
	}
	return s.store.EnsureCategory(ctx, c)
}

// EnsureDefaultCategories seeds the standard categories of both kinds.
func (s *LedgerService) EnsureDefaultCategories(ctx context.Context, userID int64) error {
	for _, set := range []struct {
		kind  core.Kind
		names []string
	}{
		{core.KindExpense, core.DefaultExpenseCategories},
		{core.KindIncome, core.DefaultIncomeCategories},
	} {
		for _, name := range set.names {
			if _, _, err := s.EnsureCategory(ctx, userID, set.kind, name, ""); err != nil {
				return fmt.Errorf("seed %s category %q: %w", set.kind, name, err)
			}
		}
	}
	return nil
}

func (s *LedgerService) ListCategories(ctx context.Context, userID int64, kind core.Kind) ([]core.Category, error) {
	if err := kind.Validate(); err != nil {
		return nil, err
	}
	return s.store.ListCategories(ctx, userID, kind)
}

// CategoryTotal returns the all-time total of one category.
func (s *LedgerService) CategoryTotal(ctx context.Context, userID int64, kind core.Kind, name string) (decimal.Decimal, error) {
	c, err := s.store.GetCategoryByName(ctx, userID, kind, name)
	if err != nil {
		return decimal.Zero, err
	}
	sums, err := s.reader.SumAmountsByCategory(ctx, userID, kind, nil)
	if err != nil {
		return decimal.Zero, err
	}
	for _, sum := range sums {
		if sum.Name == c.Name {
			return sum.Amount, nil
		}
	}
	return decimal.Zero, nil
}

// KindTotal returns the all-time total of one kind.
func (s *LedgerService) KindTotal(ctx context.Context, userID int64, kind core.Kind) (decimal.Decimal, error) {
	if err := kind.Validate(); err != nil {
		return decimal.Zero, err
	}
	sums, err := s.reader.SumAmountsByCategory(ctx, userID, kind, nil)
	if err != nil {
		return decimal.Zero, err
	}
	return total(sums), nil
}

// CreateEntry validates and stores a new entry. The returned warning is
// non-empty when an expense pushes the month past its goal.
func (s *LedgerService) CreateEntry(ctx context.Context, userID int64, kind core.Kind, in EntryInput) (core.Entry, string, error) {
	e := core.Entry{
		UserID:    userID,
		Kind:      kind,
		Category:  strings.TrimSpace(in.Category),
		Amount:    in.Amount,
		EntryDate: in.EntryDate,
		Note:      strings.TrimSpace(in.Note),
	}
	if e.EntryDate.IsZero() {
		e.EntryDate = core.DateOf(s.now())
	}
	if err := e.Validate(); err != nil {
		return core.Entry{}, "", err
	}

	cat, err := s.resolveCategory(ctx, userID, kind, e.Category)
	if err != nil {
		return core.Entry{}, "", err
	}
	e.CategoryID = cat.ID
	e.Category = cat.Name

	n, err := s.store.CountEntries(ctx, userID, kind)
	if err != nil {
		return core.Entry{}, "", err
	}
	if n >= core.MaxEntriesPerKind {
		return core.Entry{}, "", &core.LimitError{What: string(kind) + " entry", Limit: core.MaxEntriesPerKind}
	}

	warning := s.checkOverspend(ctx, userID, e)

	created, err := s.store.CreateEntry(ctx, e)
	if err != nil {
		return core.Entry{}, "", fmt.Errorf("save entry: %w", err)
	}
	return created, warning, nil
}

// UpdateEntry applies a partial update. The guard runs before the write with
// the stored row excluded from the month total.
func (s *LedgerService) UpdateEntry(ctx context.Context, userID int64, kind core.Kind, id int64, patch EntryPatch) (core.Entry, string, error) {
	e, err := s.store.GetEntry(ctx, userID, kind, id)
	if err != nil {
		return core.Entry{}, "", err
	}

	if patch.Category != nil {
		cat, err := s.resolveCategory(ctx, userID, kind, *patch.Category)
		if err != nil {
			return core.Entry{}, "", err
		}
		e.CategoryID = cat.ID
		e.Category = cat.Name
	}
	if patch.Amount != nil {
		e.Amount = *patch.Amount
	}
	if patch.EntryDate != nil {
		e.EntryDate = core.DateOf(*patch.EntryDate)
	}
	if patch.Note != nil {
		e.Note = strings.TrimSpace(*patch.Note)
	}
	if err := e.Validate(); err != nil {
		return core.Entry{}, "", err
	}

	warning := s.checkOverspend(ctx, userID, e)

	updated, err := s.store.UpdateEntry(ctx, e)
	if err != nil {
		return core.Entry{}, "", fmt.Errorf("update entry: %w", err)
	}
	return updated, warning, nil
}

func (s *LedgerService) DeleteEntry(ctx context.Context, userID int64, kind core.Kind, id int64) error {
	return s.store.DeleteEntry(ctx, userID, kind, id)
}

// ListEntries pages the ledger newest first.
func (s *LedgerService) ListEntries(ctx context.Context, userID int64, f LedgerFilter) (LedgerPage, error) {
	if f.Page == 0 {
		f.Page = 1
	}
	if f.Page < 0 {
		return LedgerPage{}, &core.ValidationError{Field: "page", Reason: "must be a positive integer"}
	}
	switch {
	case f.PageSize < 0:
		return LedgerPage{}, &core.ValidationError{Field: "page_size", Reason: "must be a positive integer"}
	case f.PageSize == 0:
		f.PageSize = DefaultPageSize
	case f.PageSize > MaxPageSize:
		f.PageSize = MaxPageSize
	}

	filter := core.EntryFilter{
		Kind:     f.Kind,
		Category: f.Category,
		Limit:    f.PageSize,
		Offset:   (f.Page - 1) * f.PageSize,
	}
	if f.Month != nil {
		rng := core.MonthRange(*f.Month)
		filter.Range = &rng
	}

	items, totalCount, err := s.store.ListEntries(ctx, userID, filter)
	if err != nil {
		return LedgerPage{}, err
	}
	return LedgerPage{Items: items, Total: totalCount, Page: f.Page, PageSize: f.PageSize}, nil
}

// ClearMonth deletes every entry of both kinds dated in month.
func (s *LedgerService) ClearMonth(ctx context.Context, userID int64, month time.Time) (ClearResult, error) {
	rng := core.MonthRange(core.OrCurrentMonth(month, s.now()))
	var res ClearResult
	var err error
	if res.Income, err = s.store.DeleteEntriesInRange(ctx, userID, core.KindIncome, rng); err != nil {
		return res, err
	}
	if res.Expense, err = s.store.DeleteEntriesInRange(ctx, userID, core.KindExpense, rng); err != nil {
		return res, err
	}
	return res, nil
}

func (s *LedgerService) LatestReport(ctx context.Context, userID int64) (core.MonthlyReport, error) {
	return s.reports.LatestReport(ctx, userID)
}

func (s *LedgerService) DeleteReport(ctx context.Context, userID int64, month time.Time) error {
	return s.reports.DeleteReport(ctx, userID, core.OrCurrentMonth(month, s.now()))
}

func (s *LedgerService) resolveCategory(ctx context.Context, userID int64, kind core.Kind, name string) (core.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.Category{}, core.ErrEmptyCategory
	}
	cat, err := s.store.GetCategoryByName(ctx, userID, kind, name)
	if errors.Is(err, core.ErrNotFound) {
		return core.Category{}, core.ErrUnknownCategory
	}
	return cat, err
}

func (s *LedgerService) checkOverspend(ctx context.Context, userID int64, e core.Entry) string {
	if s.guard == nil {
		return ""
	}
	warning, err := s.guard.Check(ctx, userID, e)
	if err != nil {
		slog.WarnContext(ctx, "Overspend check failed", "user_id", userID, "entry_id", e.ID, "error", err)
		return ""
	}
	if warning != "" {
		slog.InfoContext(ctx, "Overspend warning", "user_id", userID, "entry_date", e.EntryDate.Format(core.DateLayout))
	}
	return warning
}
