package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
)

type reportKey struct {
	userID int64
	month  string
}

// Store keeps every table in process memory. It implements the same ports as
// the SQLite repository.
type Store struct {
	mu         sync.Mutex
	now        func() time.Time
	seq        int64
	users      []core.User
	categories []core.Category
	entries    []core.Entry
	goals      []core.Goal
	reports    map[reportKey]core.MonthlyReport
}

func New() *Store {
	return &Store{now: time.Now, reports: map[reportKey]core.MonthlyReport{}}
}

// NewWithClock is New with a fixed time source, for tests.
func NewWithClock(now func() time.Time) *Store {
	s := New()
	s.now = now
	return s
}

// NewFromFiles seeds users from base/seed_users.txt, one "username[,email]"
// per line. Every seeded user gets the default categories.
func NewFromFiles(base string) *Store {
	s := New()
	ctx := context.Background()
	for _, line := range readLines(filepath.Join(base, "seed_users.txt")) {
		name, email, _ := strings.Cut(line, ",")
		u, err := s.CreateUser(ctx, name, email)
		if err != nil {
			continue
		}
		for kind, names := range map[core.Kind][]string{
			core.KindExpense: core.DefaultExpenseCategories,
			core.KindIncome:  core.DefaultIncomeCategories,
		} {
			for _, n := range names {
				_, _, _ = s.EnsureCategory(ctx, core.Category{UserID: u.ID, Kind: kind, Name: n})
			}
		}
	}
	return s
}

func (s *Store) Close() error { return nil }

func (s *Store) Ping(context.Context) error { return nil }

// nextID must be called with s.mu held.
func (s *Store) nextID() int64 {
	s.seq++
	return s.seq
}

// stamp returns a creation time that is strictly increasing so ordering by
// created_at is stable even when the clock is frozen.
func (s *Store) stamp() time.Time {
	return s.now().UTC().Add(time.Duration(s.seq) * time.Microsecond)
}

func (s *Store) CreateUser(_ context.Context, username, email string) (core.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return core.User{}, &core.ValidationError{Field: "username", Reason: "is required"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			return core.User{}, &core.ValidationError{Field: "username", Reason: "already exists"}
		}
	}
	u := core.User{ID: s.nextID(), Username: username, Email: strings.TrimSpace(email)}
	u.CreatedAt = s.stamp()
	s.users = append(s.users, u)
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id int64) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return core.User{}, fmt.Errorf("user %d: %w", id, core.ErrNotFound)
}

func (s *Store) ListUsers(_ context.Context, afterID int64, limit int) ([]core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.User
	for _, u := range s.users {
		if u.ID <= afterID {
			continue
		}
		if len(out) == limit {
			break
		}
		out = append(out, u)
	}
	return out, nil
}

func (s *Store) EnsureCategory(_ context.Context, c core.Category) (core.Category, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name := strings.TrimSpace(c.Name)
	for _, existing := range s.categories {
		if existing.UserID == c.UserID && existing.Kind == c.Kind && existing.Name == name {
			return existing, false, nil
		}
	}
	c.ID = s.nextID()
	c.Name = name
	c.CreatedAt = s.stamp()
	s.categories = append(s.categories, c)
	return c, true, nil
}

func (s *Store) GetCategoryByName(_ context.Context, userID int64, kind core.Kind, name string) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name = strings.TrimSpace(name)
	for _, c := range s.categories {
		if c.UserID == userID && c.Kind == kind && c.Name == name {
			return c, nil
		}
	}
	return core.Category{}, fmt.Errorf("%s category %q: %w", kind, name, core.ErrNotFound)
}

func (s *Store) ListCategories(_ context.Context, userID int64, kind core.Kind) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Category
	for _, c := range s.categories {
		if c.UserID == userID && c.Kind == kind {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) CountCategories(ctx context.Context, userID int64, kind core.Kind) (int, error) {
	cats, _ := s.ListCategories(ctx, userID, kind)
	return len(cats), nil
}

func (s *Store) categoryName(id int64) string {
	for _, c := range s.categories {
		if c.ID == id {
			return c.Name
		}
	}
	return ""
}

func (s *Store) CreateEntry(_ context.Context, e core.Entry) (core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = s.nextID()
	e.Category = s.categoryName(e.CategoryID)
	e.EntryDate = core.DateOf(e.EntryDate)
	e.CreatedAt = s.stamp()
	e.UpdatedAt = e.CreatedAt
	s.entries = append(s.entries, e)
	return e, nil
}

func (s *Store) GetEntry(_ context.Context, userID int64, kind core.Kind, id int64) (core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.entryIndex(userID, kind, id); i >= 0 {
		return s.entries[i], nil
	}
	return core.Entry{}, fmt.Errorf("%s entry %d: %w", kind, id, core.ErrNotFound)
}

func (s *Store) entryIndex(userID int64, kind core.Kind, id int64) int {
	for i, e := range s.entries {
		if e.ID == id && e.UserID == userID && e.Kind == kind {
			return i
		}
	}
	return -1
}

func (s *Store) UpdateEntry(_ context.Context, e core.Entry) (core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.entryIndex(e.UserID, e.Kind, e.ID)
	if i < 0 {
		return core.Entry{}, fmt.Errorf("%s entry %d: %w", e.Kind, e.ID, core.ErrNotFound)
	}
	cur := s.entries[i]
	cur.CategoryID = e.CategoryID
	cur.Category = s.categoryName(e.CategoryID)
	cur.Amount = e.Amount
	cur.EntryDate = core.DateOf(e.EntryDate)
	cur.Note = e.Note
	cur.UpdatedAt = s.now().UTC()
	s.entries[i] = cur
	return cur, nil
}

func (s *Store) DeleteEntry(_ context.Context, userID int64, kind core.Kind, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.entryIndex(userID, kind, id)
	if i < 0 {
		return fmt.Errorf("%s entry %d: %w", kind, id, core.ErrNotFound)
	}
	s.entries = append(s.entries[:i], s.entries[i+1:]...)
	return nil
}

func (s *Store) CountEntries(_ context.Context, userID int64, kind core.Kind) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.entries {
		if e.UserID == userID && e.Kind == kind {
			n++
		}
	}
	return n, nil
}

func (s *Store) ListEntries(_ context.Context, userID int64, f core.EntryFilter) ([]core.Entry, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []core.Entry
	for _, e := range s.entries {
		if e.UserID != userID {
			continue
		}
		if f.Kind != nil && e.Kind != *f.Kind {
			continue
		}
		if f.Category != "" && e.Category != strings.TrimSpace(f.Category) {
			continue
		}
		if f.Range != nil && !f.Range.Contains(e.EntryDate) {
			continue
		}
		matched = append(matched, e)
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.EntryDate.Equal(b.EntryDate) {
			return a.EntryDate.After(b.EntryDate)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})

	total := len(matched)
	start := min(f.Offset, total)
	end := total
	if f.Limit > 0 {
		end = min(start+f.Limit, total)
	}
	return append([]core.Entry(nil), matched[start:end]...), total, nil
}

func (s *Store) DeleteEntriesInRange(_ context.Context, userID int64, kind core.Kind, rng core.DateRange) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.entries[:0]
	var n int64
	for _, e := range s.entries {
		if e.UserID == userID && e.Kind == kind && rng.Contains(e.EntryDate) {
			n++
			continue
		}
		kept = append(kept, e)
	}
	s.entries = kept
	return n, nil
}

func (s *Store) SumAmountsByCategory(_ context.Context, userID int64, kind core.Kind, rng *core.DateRange) ([]core.CategoryAmount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sumByCategory(userID, kind, rng), nil
}

func (s *Store) sumByCategory(userID int64, kind core.Kind, rng *core.DateRange) []core.CategoryAmount {
	sums := map[string]decimal.Decimal{}
	for _, e := range s.entries {
		if e.UserID != userID || e.Kind != kind {
			continue
		}
		if rng != nil && !rng.Contains(e.EntryDate) {
			continue
		}
		sums[e.Category] = sums[e.Category].Add(e.Amount)
	}
	out := make([]core.CategoryAmount, 0, len(sums))
	for name, amount := range sums {
		out = append(out, core.CategoryAmount{Name: name, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Store) SumEntries(_ context.Context, userID int64, kind core.Kind, rng core.DateRange, excludeID int64) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := decimal.Zero
	for _, e := range s.entries {
		if e.UserID == userID && e.Kind == kind && e.ID != excludeID && rng.Contains(e.EntryDate) {
			total = total.Add(e.Amount)
		}
	}
	return total, nil
}

func (s *Store) ReadMonth(_ context.Context, userID int64, month time.Time) (core.MonthLedger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rng := core.MonthRange(month)
	return core.MonthLedger{
		Income:  s.sumByCategory(userID, core.KindIncome, &rng),
		Expense: s.sumByCategory(userID, core.KindExpense, &rng),
		Goals:   s.findGoals(userID, rng.From, nil),
	}, nil
}

func (s *Store) UpsertGoal(_ context.Context, g core.Goal) (core.Goal, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g.Name = strings.TrimSpace(g.Name)
	g.Month = core.MonthStart(g.Month)
	for i, existing := range s.goals {
		if existing.UserID == g.UserID && existing.Name == g.Name && existing.Type == g.Type && existing.Month.Equal(g.Month) {
			existing.Target = g.Target
			existing.UpdatedAt = s.now().UTC()
			s.goals[i] = existing
			return existing, false, nil
		}
	}
	g.ID = s.nextID()
	g.CreatedAt = s.stamp()
	g.UpdatedAt = g.CreatedAt
	s.goals = append(s.goals, g)
	return g, true, nil
}

func (s *Store) FindGoals(_ context.Context, userID int64, month time.Time, kind *core.Kind) ([]core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findGoals(userID, month, kind), nil
}

func (s *Store) findGoals(userID int64, month time.Time, kind *core.Kind) []core.Goal {
	month = core.MonthStart(month)
	var out []core.Goal
	for _, g := range s.goals {
		if g.UserID != userID || !g.Month.Equal(month) {
			continue
		}
		if kind != nil && g.Type != *kind {
			continue
		}
		out = append(out, g)
	}
	if kind != nil {
		sortNewestFirst(out)
		return out
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Type < out[j].Type
	})
	return out
}

func (s *Store) FindGoalsByName(_ context.Context, userID int64, name string, kind *core.Kind, month *time.Time) ([]core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name = strings.TrimSpace(name)
	var out []core.Goal
	for _, g := range s.goals {
		if g.UserID != userID || g.Name != name {
			continue
		}
		if kind != nil && g.Type != *kind {
			continue
		}
		if month != nil && !g.Month.Equal(core.MonthStart(*month)) {
			continue
		}
		out = append(out, g)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Month.Equal(out[j].Month) {
			return out[i].Month.After(out[j].Month)
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func sortNewestFirst(goals []core.Goal) {
	sort.Slice(goals, func(i, j int) bool {
		if !goals[i].CreatedAt.Equal(goals[j].CreatedAt) {
			return goals[i].CreatedAt.After(goals[j].CreatedAt)
		}
		return goals[i].ID > goals[j].ID
	})
}

func (s *Store) GetReport(_ context.Context, userID int64, month time.Time) (core.MonthlyReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[reportKey{userID, core.MonthStart(month).Format(core.DateLayout)}]
	if !ok {
		return core.MonthlyReport{}, fmt.Errorf("monthly report: %w", core.ErrNotFound)
	}
	return r, nil
}

func (s *Store) UpsertReport(_ context.Context, r core.MonthlyReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.Month = core.MonthStart(r.Month)
	key := reportKey{r.UserID, r.Month.Format(core.DateLayout)}
	now := s.now().UTC()
	if existing, ok := s.reports[key]; ok {
		r.CreatedAt = existing.CreatedAt
	} else {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
	s.reports[key] = r
	return nil
}

func (s *Store) LatestReport(_ context.Context, userID int64) (core.MonthlyReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest core.MonthlyReport
	found := false
	for _, r := range s.reports {
		if r.UserID != userID {
			continue
		}
		if !found || r.Month.After(latest.Month) {
			latest = r
			found = true
		}
	}
	if !found {
		return core.MonthlyReport{}, fmt.Errorf("monthly report: %w", core.ErrNotFound)
	}
	return latest, nil
}

func (s *Store) DeleteReport(_ context.Context, userID int64, month time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := reportKey{userID, core.MonthStart(month).Format(core.DateLayout)}
	if _, ok := s.reports[key]; !ok {
		return fmt.Errorf("monthly report: %w", core.ErrNotFound)
	}
	delete(s.reports, key)
	return nil
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	seen := map[string]struct{}{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}
