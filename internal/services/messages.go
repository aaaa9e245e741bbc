package services

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys. Arguments are always pre-formatted strings so that decimal
// rendering never depends on the printer's number formatting.
const (
	msgDeficit       = "Spending exceeds income by %s; review non-essential expenses."
	msgConcentration = "%s accounts for %s%% of spending; consider setting a cap."
	msgSurplus       = "Cash flow is positive this month; move the surplus into savings or investments."
	msgBalanced      = "Income and spending are balanced; keep it up."
	msgOverspend     = "Spending this month %s exceeds the goal %s"
	msgReportSubject = "%s monthly finance report"
	msgTotalIncome   = "Total income: %s"
	msgTotalExpense  = "Total expense: %s"
	msgNet           = "Net cash flow: %s"
	msgGoalHeader    = "Goal progress:"
	msgGoalLine      = "- %s (%s): %s/%s (%s%%)"
)

var supportedLocales = []language.Tag{
	language.TraditionalChinese,
	language.English,
}

var (
	messageCatalog = buildCatalog()
	localeMatcher  = language.NewMatcher(supportedLocales)
)

func buildCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.TraditionalChinese))

	zh := map[string]string{
		msgDeficit:       "支出已超過收入 %s，建議檢視非必要支出。",
		msgConcentration: "%s 佔支出 %s%% ，可考慮設定上限。",
		msgSurplus:       "本月仍有正現金流，建議將盈餘轉入儲蓄或投資。",
		msgBalanced:      "維持平衡收支，繼續保持。",
		msgOverspend:     "本月支出 %s 已超過目標 %s",
		msgReportSubject: "%s 財務月報",
		msgTotalIncome:   "總收入：%s",
		msgTotalExpense:  "總支出：%s",
		msgNet:           "淨現金流：%s",
		msgGoalHeader:    "目標進度:",
		msgGoalLine:      "- %s (%s): %s/%s (%s%%)",
	}
	for key, msg := range zh {
		_ = b.SetString(language.TraditionalChinese, key, msg)
		_ = b.SetString(language.English, key, key)
	}
	return b
}

// Localizer renders user-facing text in one locale.
type Localizer struct {
	tag language.Tag
	p   *message.Printer
}

// NewLocalizer picks the closest supported locale; unknown or empty input
// falls back to Traditional Chinese.
func NewLocalizer(locale string) *Localizer {
	tag := language.TraditionalChinese
	if locale != "" {
		if parsed, err := language.Parse(locale); err == nil {
			_, idx, conf := localeMatcher.Match(parsed)
			if conf != language.No {
				tag = supportedLocales[idx]
			}
		}
	}
	return &Localizer{tag: tag, p: message.NewPrinter(tag, message.Catalog(messageCatalog))}
}

func (l *Localizer) Tag() language.Tag { return l.tag }

func (l *Localizer) sprintf(key string, args ...any) string {
	return l.p.Sprintf(key, args...)
}
