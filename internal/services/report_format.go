package services

import (
	"strings"

	"fintrack/internal/core"
)

// FormatReport renders the subject and plain-text body of a monthly report.
func FormatReport(s core.Summary, loc *Localizer) (subject, body string) {
	subject = loc.sprintf(msgReportSubject, s.Month.Format(core.MonthLayout))

	lines := []string{
		loc.sprintf(msgTotalIncome, core.FormatAmount(s.TotalIncome)),
		loc.sprintf(msgTotalExpense, core.FormatAmount(s.TotalExpense)),
		loc.sprintf(msgNet, core.FormatAmount(s.Net)),
		"",
		loc.sprintf(msgGoalHeader),
	}
	for _, g := range s.Goals {
		lines = append(lines, loc.sprintf(msgGoalLine,
			g.Name,
			g.Type.String(),
			core.FormatAmount(g.Progress),
			core.FormatAmount(g.Target),
			g.Percentage.StringFixed(2),
		))
	}
	return subject, strings.Join(lines, "\n")
}
