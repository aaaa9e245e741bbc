package google

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"fintrack/internal/core"
)

type fakeValues struct {
	spreadsheetID string
	rng           string
	rows          [][]any
	err           error
}

func (f *fakeValues) Append(_ context.Context, spreadsheetID, rng string, values [][]any) error {
	if f.err != nil {
		return f.err
	}
	f.spreadsheetID = spreadsheetID
	f.rng = rng
	f.rows = append(f.rows, values...)
	return nil
}

func TestNewReportArchive_MissingSpreadsheetID(t *testing.T) {
	_, err := NewReportArchive(context.Background(), Config{})
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewReportArchive_InvalidCredentials(t *testing.T) {
	_, err := NewReportArchive(context.Background(), Config{SpreadsheetID: "id", CredentialsJSON: "not-json"})
	if err == nil {
		t.Fatal("expected error with invalid credentials")
	}
}

func TestArchiveReport(t *testing.T) {
	values := &fakeValues{}
	a := newReportArchive(values, Config{SpreadsheetID: " sheet-1 "})

	rep := core.MonthlyReport{
		UserID: 7,
		Month:  time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC),
		Summary: core.ReportSnapshot{
			TotalIncome:  1000,
			TotalExpense: 250.5,
			Net:          749.5,
			GoalProgress: []core.GoalProgressView{{Name: "save", Type: core.KindIncome, Percentage: 50}},
		},
	}
	if err := a.ArchiveReport(context.Background(), core.User{ID: 7, Username: "alice"}, rep); err != nil {
		t.Fatalf("archive: %v", err)
	}
	if values.spreadsheetID != "sheet-1" || values.rng != "2024 Reports!A:H" {
		t.Fatalf("target = %q %q", values.spreadsheetID, values.rng)
	}
	row := values.rows[0]
	if row[0] != "2024-12" || row[2] != "alice" || row[5] != 749.5 {
		t.Fatalf("unexpected row %v", row)
	}
	if !strings.Contains(row[6].(string), "save (income) 50.00%") {
		t.Fatalf("goal column = %v", row[6])
	}
}

func TestArchiveReportWrapsError(t *testing.T) {
	a := newReportArchive(&fakeValues{err: errors.New("quota exceeded")}, Config{SpreadsheetID: "x", SheetName: "2023 Archive"})
	err := a.ArchiveReport(context.Background(), core.User{}, core.MonthlyReport{Month: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)})
	if err == nil || !strings.Contains(err.Error(), "2023 Archive") {
		t.Fatalf("expected wrapped error naming the sheet, got %v", err)
	}
}

func TestYearPrefixedName(t *testing.T) {
	cases := map[string]string{
		"Reports":      "2025 Reports",
		"2024 Reports": "2024 Reports",
		"":             "",
	}
	for in, want := range cases {
		if got := yearPrefixedName(in, 2025); got != want {
			t.Errorf("yearPrefixedName(%q) = %q, want %q", in, got, want)
		}
	}
}
