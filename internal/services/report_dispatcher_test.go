package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/mail"
	"fintrack/internal/ports"
)

func newDispatcher(f *fixture, mailer *fakeMailer, cfg ReportDispatcherConfig) *ReportDispatcher {
	disp := NewReportDispatcher(f.store, f.store, f.agg, mailer, f.loc, cfg)
	disp.now = clock
	return disp
}

func TestGenerateMonthlyReportsDefaultsToPreviousMonth(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "alice")
	f.entry(t, u.ID, core.KindIncome, "薪資", "1000", d(2025, 2, 1))
	f.entry(t, u.ID, core.KindExpense, "食", "250.5", d(2025, 2, 28))
	f.ledger.UpsertGoal(ctx, u.ID, GoalInput{Name: "存錢", Type: core.KindIncome, Target: dec("2000"), Month: d(2025, 2, 1)})

	mailer := &fakeMailer{}
	stats, err := newDispatcher(f, mailer, ReportDispatcherConfig{}).GenerateMonthlyReports(ctx, time.Time{}, DispatchOptions{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stats != (DispatchStats{Users: 1, Sent: 1}) {
		t.Fatalf("unexpected stats %+v", stats)
	}

	msg := mailer.sent[0]
	if msg.To != "alice@example.com" || msg.Subject != "2025-02 財務月報" {
		t.Fatalf("unexpected message header %+v", msg)
	}
	wantBody := strings.Join([]string{
		"總收入：1000.00",
		"總支出：250.50",
		"淨現金流：749.50",
		"",
		"目標進度:",
		"- 存錢 (income): 1000.00/2000.00 (50.00%)",
	}, "\n")
	if msg.Body != wantBody {
		t.Fatalf("body mismatch:\n%s\nwant:\n%s", msg.Body, wantBody)
	}

	rep, err := f.store.GetReport(ctx, u.ID, d(2025, 2, 1))
	if err != nil || !rep.Delivered || rep.Summary.Net != 749.5 {
		t.Fatalf("report = %+v err=%v", rep, err)
	}
	if len(rep.Summary.GoalProgress) != 1 || rep.Summary.GoalProgress[0].Percentage != 50 {
		t.Fatalf("goal progress = %+v", rep.Summary.GoalProgress)
	}
}

// A second run skips delivered reports. With Force it mails again, which is
// a visible side effect, and stores the same snapshot.
func TestGenerateMonthlyReportsRerun(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "bob")
	f.entry(t, u.ID, core.KindExpense, "行", "42", d(2025, 1, 9))

	mailer := &fakeMailer{}
	disp := newDispatcher(f, mailer, ReportDispatcherConfig{})
	jan := d(2025, 1, 1)

	if _, err := disp.GenerateMonthlyReports(ctx, jan, DispatchOptions{}); err != nil {
		t.Fatalf("first run: %v", err)
	}
	first, _ := f.store.GetReport(ctx, u.ID, jan)

	stats, _ := disp.GenerateMonthlyReports(ctx, jan, DispatchOptions{})
	if stats.Skipped != 1 || len(mailer.sent) != 1 {
		t.Fatalf("expected skip without force, stats=%+v sent=%d", stats, len(mailer.sent))
	}

	stats, _ = disp.GenerateMonthlyReports(ctx, jan, DispatchOptions{Force: true})
	if stats.Sent != 1 || len(mailer.sent) != 2 {
		t.Fatalf("expected resend with force, stats=%+v sent=%d", stats, len(mailer.sent))
	}
	second, _ := f.store.GetReport(ctx, u.ID, jan)
	if first.Summary.TotalExpense != second.Summary.TotalExpense || first.Summary.Net != second.Summary.Net {
		t.Fatalf("snapshot changed between runs: %+v vs %+v", first.Summary, second.Summary)
	}
}

func TestGenerateMonthlyReportsContinuesAfterMailFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bad := f.user(t, "bad")
	good := f.user(t, "good")

	mailer := &fakeMailer{fail: map[string]bool{"bad@example.com": true}}
	archiver := &fakeArchiver{}
	disp := newDispatcher(f, mailer, ReportDispatcherConfig{PageSize: 1, Concurrency: 2}).WithArchiver(archiver)

	stats, err := disp.GenerateMonthlyReports(ctx, d(2025, 1, 1), DispatchOptions{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stats != (DispatchStats{Users: 2, Sent: 1, Failed: 1}) {
		t.Fatalf("unexpected stats %+v", stats)
	}

	rep, err := f.store.GetReport(ctx, bad.ID, d(2025, 1, 1))
	if err != nil || rep.Delivered {
		t.Fatalf("failed user should be stored undelivered, got %+v err=%v", rep, err)
	}
	if len(archiver.archived) != 1 || archiver.archived[0].UserID != good.ID {
		t.Fatalf("only delivered reports are archived: %+v", archiver.archived)
	}

	// The undelivered report is retried on the next run.
	mailer.fail = nil
	stats, _ = disp.GenerateMonthlyReports(ctx, d(2025, 1, 1), DispatchOptions{})
	if stats.Sent != 1 || stats.Skipped != 1 {
		t.Fatalf("retry stats %+v", stats)
	}
}

// failingReader fails ReadMonth for one user and delegates the rest.
type failingReader struct {
	ports.MonthReader
	userID int64
}

func (r failingReader) ReadMonth(ctx context.Context, userID int64, month time.Time) (core.MonthLedger, error) {
	if userID == r.userID {
		return core.MonthLedger{}, errors.New("disk I/O error")
	}
	return r.MonthReader.ReadMonth(ctx, userID, month)
}

func TestGenerateMonthlyReportsContinuesAfterSummaryFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.user(t, "first")
	broken := f.user(t, "broken")
	last := f.user(t, "last")
	f.entry(t, last.ID, core.KindExpense, "食", "12", d(2025, 1, 3))

	mailer := &fakeMailer{}
	agg := NewAggregator(failingReader{MonthReader: f.store, userID: broken.ID})
	disp := NewReportDispatcher(f.store, f.store, agg, mailer, f.loc, ReportDispatcherConfig{PageSize: 2, Concurrency: 1})
	disp.now = clock

	stats, err := disp.GenerateMonthlyReports(ctx, d(2025, 1, 1), DispatchOptions{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stats != (DispatchStats{Users: 3, Sent: 2, Failed: 1}) {
		t.Fatalf("unexpected stats %+v", stats)
	}
	got := map[string]bool{}
	for _, msg := range mailer.sent {
		got[msg.To] = true
	}
	if !got["first@example.com"] || !got["last@example.com"] || got["broken@example.com"] {
		t.Fatalf("sent to %v", got)
	}
	if _, err := f.store.GetReport(ctx, broken.ID, d(2025, 1, 1)); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("no report should be stored for the failed summary, got err=%v", err)
	}
	if rep, err := f.store.GetReport(ctx, first.ID, d(2025, 1, 1)); err != nil || !rep.Delivered {
		t.Fatalf("first report = %+v err=%v", rep, err)
	}
}

// The log transport stores reports undelivered so a later run with a real
// transport still sends them.
func TestGenerateMonthlyReportsWithLogTransport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "carol")
	jan := d(2025, 1, 1)

	logOnly := mail.NewLogMailer(slog.New(slog.NewTextHandler(io.Discard, nil)))
	disp := NewReportDispatcher(f.store, f.store, f.agg, logOnly, f.loc, ReportDispatcherConfig{})
	disp.now = clock

	stats, err := disp.GenerateMonthlyReports(ctx, jan, DispatchOptions{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stats != (DispatchStats{Users: 1, Skipped: 1}) {
		t.Fatalf("unexpected stats %+v", stats)
	}
	rep, err := f.store.GetReport(ctx, u.ID, jan)
	if err != nil || rep.Delivered {
		t.Fatalf("report should be stored undelivered, got %+v err=%v", rep, err)
	}

	mailer := &fakeMailer{}
	stats, _ = newDispatcher(f, mailer, ReportDispatcherConfig{}).GenerateMonthlyReports(ctx, jan, DispatchOptions{})
	if stats.Sent != 1 || len(mailer.sent) != 1 {
		t.Fatalf("real transport should send the pending report, stats=%+v sent=%d", stats, len(mailer.sent))
	}
}

func TestArchiveFailureDoesNotFailDelivery(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "arch")
	disp := newDispatcher(f, &fakeMailer{}, ReportDispatcherConfig{}).WithArchiver(&fakeArchiver{err: errors.New("quota")})

	outcome, err := disp.DispatchUser(context.Background(), u.ID, d(2025, 1, 1), false)
	if err != nil || outcome != OutcomeSent {
		t.Fatalf("outcome=%v err=%v", outcome, err)
	}
}

func TestDispatchUserErrors(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "x")
	mailer := &fakeMailer{fail: map[string]bool{"x@example.com": true}}
	disp := newDispatcher(f, mailer, ReportDispatcherConfig{})

	if _, err := disp.DispatchUser(context.Background(), 999, time.Time{}, false); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	outcome, err := disp.DispatchUser(context.Background(), u.ID, time.Time{}, false)
	if outcome != OutcomeFailed || !errors.Is(err, ErrDeliveryFailed) {
		t.Fatalf("outcome=%v err=%v", outcome, err)
	}
}

func TestReportSchedulerEnqueuesEveryUser(t *testing.T) {
	f := newFixture(t)
	var ids []int64
	for _, name := range []string{"a", "b", "c"} {
		ids = append(ids, f.user(t, name).ID)
	}
	pub := &fakePublisher{fail: map[int64]bool{ids[1]: true}}
	sched := NewReportScheduler(f.store, pub, 2)
	sched.now = clock

	queued, err := sched.Enqueue(context.Background(), time.Time{}, false)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if queued != 2 || len(pub.jobs) != 2 || pub.jobs[1] != ids[2] {
		t.Fatalf("queued=%d jobs=%v", queued, pub.jobs)
	}
}
