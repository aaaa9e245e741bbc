package core

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestMonthBounds(t *testing.T) {
	cases := []struct {
		in          time.Time
		first, last time.Time
	}{
		{date(2024, 2, 15), date(2024, 2, 1), date(2024, 2, 29)},
		{date(2023, 2, 1), date(2023, 2, 1), date(2023, 2, 28)},
		{date(2025, 12, 31), date(2025, 12, 1), date(2025, 12, 31)},
		{date(2025, 4, 30), date(2025, 4, 1), date(2025, 4, 30)},
		{time.Date(2025, 1, 31, 23, 59, 0, 0, time.UTC), date(2025, 1, 1), date(2025, 1, 31)},
	}
	for _, tc := range cases {
		first, last := MonthBounds(tc.in)
		if !first.Equal(tc.first) || !last.Equal(tc.last) {
			t.Fatalf("%s: got [%s, %s], want [%s, %s]", tc.in.Format(DateLayout),
				first.Format(DateLayout), last.Format(DateLayout),
				tc.first.Format(DateLayout), tc.last.Format(DateLayout))
		}
	}
}

func TestPreviousMonth(t *testing.T) {
	if got := PreviousMonth(date(2025, 1, 15)); !got.Equal(date(2024, 12, 1)) {
		t.Fatalf("january: got %s", got.Format(DateLayout))
	}
	if got := PreviousMonth(date(2025, 3, 31)); !got.Equal(date(2025, 2, 1)) {
		t.Fatalf("march: got %s", got.Format(DateLayout))
	}
}

func TestParseMonth(t *testing.T) {
	cases := []struct {
		in  string
		out time.Time
		ok  bool
	}{
		{"2025-03", date(2025, 3, 1), true},
		{"2025-03-17", date(2025, 3, 1), true},
		{" 2024-02 ", date(2024, 2, 1), true},
		{"2025-13", time.Time{}, false},
		{"03-2025", time.Time{}, false},
		{"", time.Time{}, false},
	}
	for _, tc := range cases {
		got, err := ParseMonth(tc.in)
		if tc.ok && (err != nil || !got.Equal(tc.out)) {
			t.Fatalf("%q: got %v (err=%v)", tc.in, got, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestDateRangeContains(t *testing.T) {
	r := MonthRange(date(2024, 2, 10))
	if !r.Contains(time.Date(2024, 2, 29, 18, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected last day to be inside")
	}
	if r.Contains(date(2024, 3, 1)) || r.Contains(date(2024, 1, 31)) {
		t.Fatalf("expected neighbours to be outside")
	}
}

func TestOrCurrentMonth(t *testing.T) {
	now := date(2025, 6, 18)
	if got := OrCurrentMonth(time.Time{}, now); !got.Equal(date(2025, 6, 1)) {
		t.Fatalf("zero month: got %s", got)
	}
	if got := OrCurrentMonth(date(2025, 2, 14), now); !got.Equal(date(2025, 2, 1)) {
		t.Fatalf("explicit month: got %s", got)
	}
}
