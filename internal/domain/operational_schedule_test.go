package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestOperationalSchedule_PutDayAndTotals(t *testing.T) {
	s := NewOperationalSchedule(ScheduleKey{Period: "202601", ProfessionalID: 1, AreaID: 2})
	code := "200"

	assert.True(t, s.PutDay(ScheduleDayDetail{Date: NewDate(2026, 1, 6), Kind: ShiftFull, Hours: decimal.NewFromInt(8), ScheduleCode: &code, Origin: OriginSynced}))
	assert.True(t, s.PutDay(ScheduleDayDetail{Date: NewDate(2026, 1, 5), Kind: ShiftMorning, Hours: decimal.NewFromInt(4), Origin: OriginManual}))

	// 相同内容再次写入不算变化
	sameCode := "200"
	assert.False(t, s.PutDay(ScheduleDayDetail{Date: NewDate(2026, 1, 6), Kind: ShiftFull, Hours: decimal.RequireFromString("8.00"), ScheduleCode: &sameCode, Origin: OriginSynced}))

	s.RecomputeTotals()
	assert.Equal(t, 2, s.TotalShifts)
	assert.Equal(t, 1, s.ValidShifts, "没有排班代码的明细不计入有效班次")
	assert.True(t, s.TotalHours.Equal(decimal.NewFromInt(12)))
	assert.Equal(t, NewDate(2026, 1, 5), s.Days[0].Date)

	// 只有来源不同也视为变化
	assert.True(t, s.PutDay(ScheduleDayDetail{Date: NewDate(2026, 1, 6), Kind: ShiftFull, Hours: decimal.NewFromInt(8), ScheduleCode: &code, Origin: OriginAdjusted}))
	assert.Len(t, s.Days, 2)
}
