package synchronizer

import (
	"slices"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/telesalud/shift-sync/backend/internal/domain"
)

var (
	criticalHours = decimal.NewFromInt(12)
	highHours     = decimal.NewFromInt(8)
	mediumHours   = decimal.NewFromInt(4)
	hundred       = decimal.NewFromInt(100)
)

func severityFor(delta decimal.Decimal) Severity {
	delta = delta.Abs()
	switch {
	case delta.GreaterThanOrEqual(criticalHours):
		return SeverityCritical
	case delta.GreaterThanOrEqual(highHours):
		return SeverityHigh
	case delta.GreaterThanOrEqual(mediumHours):
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// percentOf 返回 part 占 whole 的百分比，whole 为 0 时返回 0
func percentOf(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred).Round(2)
}

func sortedShifts(shifts []domain.ShiftDetail) []domain.ShiftDetail {
	sorted := slices.Clone(shifts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})
	return sorted
}

func unionDates(declared map[domain.Date]domain.ShiftDetail, scheduled map[domain.Date]domain.ScheduleDayDetail) []domain.Date {
	dates := make([]domain.Date, 0, len(declared)+len(scheduled))
	for date := range declared {
		dates = append(dates, date)
	}
	for date := range scheduled {
		if _, ok := declared[date]; !ok {
			dates = append(dates, date)
		}
	}
	sort.Slice(dates, func(i, j int) bool {
		return dates[i].Before(dates[j])
	})
	return dates
}
