package ports

import (
	"context"
	"time"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
)

// Ports for storage and outbound adapters.
type (
	// LedgerReader answers the aggregation queries of a month.
	LedgerReader interface {
		// SumAmountsByCategory returns per-category sums of one kind within rng
		// (all time when rng is nil), ordered by category name. Categories
		// without entries are omitted.
		SumAmountsByCategory(ctx context.Context, userID int64, kind core.Kind, rng *core.DateRange) ([]core.CategoryAmount, error)
		// FindGoals returns goals of one month. Without a kind the result is
		// ordered by name then type; with a kind it is most recent first.
		FindGoals(ctx context.Context, userID int64, month time.Time, kind *core.Kind) ([]core.Goal, error)
		// SumEntries totals one kind within rng, skipping the entry excludeID (0 skips nothing).
		SumEntries(ctx context.Context, userID int64, kind core.Kind, rng core.DateRange, excludeID int64) (decimal.Decimal, error)
	}

	// MonthReader reads income, expense and goals of a month in one snapshot.
	MonthReader interface {
		ReadMonth(ctx context.Context, userID int64, month time.Time) (core.MonthLedger, error)
	}

	UserStore interface {
		// ListUsers returns up to limit users with id > afterID in id order.
		ListUsers(ctx context.Context, afterID int64, limit int) ([]core.User, error)
		GetUser(ctx context.Context, id int64) (core.User, error)
		CreateUser(ctx context.Context, username, email string) (core.User, error)
	}

	ReportStore interface {
		GetReport(ctx context.Context, userID int64, month time.Time) (core.MonthlyReport, error)
		// UpsertReport inserts or replaces the report of (user, month) in one statement.
		UpsertReport(ctx context.Context, r core.MonthlyReport) error
		LatestReport(ctx context.Context, userID int64) (core.MonthlyReport, error)
		DeleteReport(ctx context.Context, userID int64, month time.Time) error
	}

	LedgerStore interface {
		// EnsureCategory gets or creates a category; created reports an insert.
		EnsureCategory(ctx context.Context, c core.Category) (core.Category, bool, error)
		GetCategoryByName(ctx context.Context, userID int64, kind core.Kind, name string) (core.Category, error)
		ListCategories(ctx context.Context, userID int64, kind core.Kind) ([]core.Category, error)
		CountCategories(ctx context.Context, userID int64, kind core.Kind) (int, error)

		CreateEntry(ctx context.Context, e core.Entry) (core.Entry, error)
		GetEntry(ctx context.Context, userID int64, kind core.Kind, id int64) (core.Entry, error)
		UpdateEntry(ctx context.Context, e core.Entry) (core.Entry, error)
		DeleteEntry(ctx context.Context, userID int64, kind core.Kind, id int64) error
		CountEntries(ctx context.Context, userID int64, kind core.Kind) (int, error)
		// ListEntries pages entries newest date first and returns the unpaged total.
		ListEntries(ctx context.Context, userID int64, f core.EntryFilter) ([]core.Entry, int, error)
		// DeleteEntriesInRange removes one kind's entries within rng and returns the count.
		DeleteEntriesInRange(ctx context.Context, userID int64, kind core.Kind, rng core.DateRange) (int64, error)

		// UpsertGoal creates or updates the target of a goal identity.
		UpsertGoal(ctx context.Context, g core.Goal) (core.Goal, bool, error)
		// FindGoalsByName returns goals with the given name, newest month first.
		FindGoalsByName(ctx context.Context, userID int64, name string, kind *core.Kind, month *time.Time) ([]core.Goal, error)
	}

	// Store is everything a backend provides.
	Store interface {
		LedgerReader
		MonthReader
		UserStore
		ReportStore
		LedgerStore
		Ping(ctx context.Context) error
		Close() error
	}

	Mailer interface {
		Send(ctx context.Context, msg core.MailMessage) error
	}

	// ReportArchiver keeps an external copy of delivered report snapshots.
	ReportArchiver interface {
		ArchiveReport(ctx context.Context, user core.User, r core.MonthlyReport) error
	}

	ReportJobPublisher interface {
		PublishReportJob(ctx context.Context, userID int64, month time.Time, force bool) error
	}
)
