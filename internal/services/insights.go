package services

import (
	"context"
	"time"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
)

var concentrationRatio = decimal.NewFromInt(3).Div(decimal.NewFromInt(10))

// InsightGenerator turns month summaries into advisory messages.
type InsightGenerator struct {
	agg *Aggregator
	loc *Localizer
}

func NewInsightGenerator(agg *Aggregator, loc *Localizer) *InsightGenerator {
	if loc == nil {
		loc = NewLocalizer("")
	}
	return &InsightGenerator{agg: agg, loc: loc}
}

// Insights summarizes the month and returns both the summary and its messages.
func (g *InsightGenerator) Insights(ctx context.Context, userID int64, month time.Time) (core.Summary, []string, error) {
	s, err := g.agg.Summarize(ctx, userID, month)
	if err != nil {
		return core.Summary{}, nil, err
	}
	return s, g.Build(s), nil
}

func (g *InsightGenerator) Build(s core.Summary) []string {
	return BuildInsights(s, g.loc)
}

// BuildInsights applies the rules in a fixed order and never returns an
// empty list.
func BuildInsights(s core.Summary, loc *Localizer) []string {
	var out []string

	if s.TotalExpense.GreaterThan(s.TotalIncome) {
		out = append(out, loc.sprintf(msgDeficit, s.TotalExpense.Sub(s.TotalIncome).StringFixed(2)))
	}

	if top, ok := s.TopExpense(); ok && s.TotalExpense.IsPositive() {
		if top.Amount.GreaterThan(s.TotalExpense.Mul(concentrationRatio)) {
			share := top.Amount.Mul(hundred).DivRound(s.TotalExpense, 16).Truncate(1)
			out = append(out, loc.sprintf(msgConcentration, top.Name, share.StringFixed(1)))
		}
	}

	if s.Net.IsPositive() {
		out = append(out, loc.sprintf(msgSurplus))
	}

	if len(out) == 0 {
		out = append(out, loc.sprintf(msgBalanced))
	}
	return out
}
