package core

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	KindExpense Kind = "expense"
	KindIncome  Kind = "income"
)

// Per-user limits and field lengths.
const (
	MaxCategoriesPerKind = 50
	MaxEntriesPerKind    = 10000
	MaxCategoryName      = 50
	MaxGoalName          = 60
	MaxTextLength        = 255
)

// Default categories seeded for every new user.
var (
	DefaultExpenseCategories = []string{"食", "衣", "住", "行", "育", "樂"}
	DefaultIncomeCategories  = []string{"薪資", "獎助金", "投資", "其他"}
)

type (
	// Kind separates income from expense for categories, entries and goals.
	Kind string

	User struct {
		ID        int64
		Username  string
		Email     string
		CreatedAt time.Time
	}

	Category struct {
		ID          int64
		UserID      int64
		Kind        Kind
		Name        string
		Description string
		CreatedAt   time.Time
	}

	// Entry is a single dated income or expense transaction.
	Entry struct {
		ID         int64
		UserID     int64
		Kind       Kind
		CategoryID int64
		Category   string // category name
		Amount     decimal.Decimal
		EntryDate  time.Time
		Note       string
		CreatedAt  time.Time
		UpdatedAt  time.Time
	}

	// Goal is a target amount for one month and kind. Month is always the
	// first day of the month, UTC.
	Goal struct {
		ID        int64
		UserID    int64
		Name      string
		Type      Kind
		Target    decimal.Decimal
		Month     time.Time
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	// MonthlyReport is the delivery ledger row for one user and month.
	MonthlyReport struct {
		UserID    int64
		Month     time.Time
		Summary   ReportSnapshot
		Delivered bool
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	MailMessage struct {
		To      string
		Subject string
		Body    string
	}

	// EntryFilter selects ledger rows. A nil Kind matches both kinds.
	EntryFilter struct {
		Kind     *Kind
		Category string
		Range    *DateRange
		Limit    int
		Offset   int
	}
)

// ParseKind accepts "expense" or "income" (case-insensitive).
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if err := k.Validate(); err != nil {
		return "", err
	}
	return k, nil
}

func (k Kind) Validate() error {
	switch k {
	case KindExpense, KindIncome:
		return nil
	default:
		return ErrInvalidKind
	}
}

func (k Kind) String() string {
	return string(k)
}

// MailAddress returns the registered email or a deterministic fallback
// derived from the username.
func (u User) MailAddress(fallbackDomain string) string {
	if email := strings.TrimSpace(u.Email); email != "" {
		return email
	}
	if fallbackDomain == "" {
		fallbackDomain = "example.com"
	}
	return u.Username + "@" + fallbackDomain
}

func (c Category) Validate() error {
	if err := c.Kind.Validate(); err != nil {
		return err
	}
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return ErrEmptyCategory
	}
	if utf8.RuneCountInString(name) > MaxCategoryName {
		return ErrCategoryTooLong
	}
	if utf8.RuneCountInString(c.Description) > MaxTextLength {
		return ErrDescriptionTooLong
	}
	return nil
}

func (e Entry) Validate() error {
	if err := e.Kind.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if err := ValidateAmount(e.Amount); err != nil {
		return err
	}
	if e.EntryDate.IsZero() {
		return ErrInvalidDate
	}
	if utf8.RuneCountInString(e.Note) > MaxTextLength {
		return ErrNoteTooLong
	}
	return nil
}

func (g Goal) Validate() error {
	name := strings.TrimSpace(g.Name)
	if name == "" {
		return ErrEmptyGoalName
	}
	if utf8.RuneCountInString(name) > MaxGoalName {
		return ErrGoalNameTooLong
	}
	if err := g.Type.Validate(); err != nil {
		return ErrInvalidGoalType
	}
	if err := ValidateAmount(g.Target); err != nil {
		return invalid("target_amount", "must be positive with at most 2 decimal places")
	}
	if g.Month.IsZero() || !g.Month.Equal(MonthStart(g.Month)) {
		return ErrInvalidMonth
	}
	return nil
}
