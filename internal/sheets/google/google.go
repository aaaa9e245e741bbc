package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ports"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Config selects the spreadsheet and service account used for archiving.
type Config struct {
	SpreadsheetID   string
	SheetName       string // base name; the report year is prefixed
	CredentialsJSON string
	CredentialsFile string
}

// valuesAppender is the slice of the Sheets API the archive needs.
type valuesAppender interface {
	Append(ctx context.Context, spreadsheetID, rng string, values [][]any) error
}

type sheetsAppender struct {
	svc *gsheet.Service
}

func (a sheetsAppender) Append(ctx context.Context, spreadsheetID, rng string, values [][]any) error {
	_, err := a.svc.Spreadsheets.Values.Append(spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return err
}

// ReportArchive appends one row per delivered report to a yearly sheet.
type ReportArchive struct {
	values        valuesAppender
	spreadsheetID string
	sheetBase     string
}

var _ ports.ReportArchiver = (*ReportArchive)(nil)

func NewReportArchive(ctx context.Context, cfg Config) (*ReportArchive, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return newReportArchive(sheetsAppender{svc: svc}, cfg), nil
}

func newReportArchive(values valuesAppender, cfg Config) *ReportArchive {
	base := strings.TrimSpace(cfg.SheetName)
	if base == "" {
		base = "Reports"
	}
	return &ReportArchive{values: values, spreadsheetID: strings.TrimSpace(cfg.SpreadsheetID), sheetBase: base}
}

// ArchiveReport appends the report snapshot of user.
func (a *ReportArchive) ArchiveReport(ctx context.Context, user core.User, r core.MonthlyReport) error {
	sheet := yearPrefixedName(a.sheetBase, r.Month.Year())
	rng := fmt.Sprintf("%s!A:H", sheet)
	if err := a.values.Append(ctx, a.spreadsheetID, rng, [][]any{reportRow(user, r)}); err != nil {
		return fmt.Errorf("append report row to %s: %w", sheet, err)
	}
	slog.InfoContext(ctx, "Report archived", "user_id", user.ID, "month", r.Month.Format(core.MonthLayout), "sheet", sheet)
	return nil
}

// reportRow lays out: month, user id, username, income, expense, net, goals, archived at.
func reportRow(user core.User, r core.MonthlyReport) []any {
	goals := make([]string, 0, len(r.Summary.GoalProgress))
	for _, g := range r.Summary.GoalProgress {
		goals = append(goals, fmt.Sprintf("%s (%s) %.2f%%", g.Name, g.Type, g.Percentage))
	}
	return []any{
		r.Month.Format(core.MonthLayout),
		user.ID,
		user.Username,
		r.Summary.TotalIncome,
		r.Summary.TotalExpense,
		r.Summary.Net,
		strings.Join(goals, "; "),
		time.Now().UTC().Format(time.RFC3339),
	}
}

// newSheetsService builds a Sheets client from service account credentials:
// inline JSON, a file, or GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	credentialsJSON := []byte(strings.TrimSpace(cfg.CredentialsJSON))
	file := strings.TrimSpace(cfg.CredentialsFile)
	if len(credentialsJSON) == 0 && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	if len(credentialsJSON) == 0 {
		if file == "" {
			return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
		}
		var err error
		credentialsJSON, err = os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
