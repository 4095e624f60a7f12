package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// ScheduleKey 是排班表的唯一键，同时也是同步时的并发保护
type ScheduleKey struct {
	Period         Period `json:"period"`
	ProfessionalID int64  `json:"professionalID"`
	AreaID         int64  `json:"areaID"`
}

type ScheduleDayDetail struct {
	Date         Date            `json:"date"`
	Kind         ShiftKind       `json:"kind"`
	Hours        decimal.Decimal `json:"hours"`
	ScheduleCode *string         `json:"scheduleCode"`
	Origin       OriginKind      `json:"origin"`
	DayNote      string          `json:"dayNote"`
}

func (d ScheduleDayDetail) Equal(o ScheduleDayDetail) bool {
	sameCode := (d.ScheduleCode == nil && o.ScheduleCode == nil) ||
		(d.ScheduleCode != nil && o.ScheduleCode != nil && *d.ScheduleCode == *o.ScheduleCode)
	return d.Date == o.Date &&
		d.Kind == o.Kind &&
		d.Hours.Equal(o.Hours) &&
		sameCode &&
		d.Origin == o.Origin &&
		d.DayNote == o.DayNote
}

// OperationalSchedule 只能由同步引擎写入
type OperationalSchedule struct {
	ID             int64               `json:"id"`
	Period         Period              `json:"period"`
	ProfessionalID int64               `json:"professionalID"`
	AreaID         int64               `json:"areaID"`
	TotalShifts    int                 `json:"totalShifts"`
	TotalHours     decimal.Decimal     `json:"totalHours"`
	ValidShifts    int                 `json:"validShifts"`
	Notes          string              `json:"notes"`
	Days           []ScheduleDayDetail `json:"days"`
	CreatedAt      time.Time           `json:"createdAt"`
	UpdatedAt      time.Time           `json:"updatedAt"`
}

func NewOperationalSchedule(key ScheduleKey) *OperationalSchedule {
	return &OperationalSchedule{
		Period:         key.Period,
		ProfessionalID: key.ProfessionalID,
		AreaID:         key.AreaID,
		TotalHours:     decimal.Zero,
		Days:           make([]ScheduleDayDetail, 0),
	}
}

func (s *OperationalSchedule) Key() ScheduleKey {
	return ScheduleKey{Period: s.Period, ProfessionalID: s.ProfessionalID, AreaID: s.AreaID}
}

func (s *OperationalSchedule) Day(date Date) (ScheduleDayDetail, bool) {
	for _, day := range s.Days {
		if day.Date == date {
			return day, true
		}
	}
	return ScheduleDayDetail{}, false
}

// PutDay 以日期为键插入或替换明细，返回是否有实际变化
func (s *OperationalSchedule) PutDay(detail ScheduleDayDetail) bool {
	for i := range s.Days {
		if s.Days[i].Date == detail.Date {
			if s.Days[i].Equal(detail) {
				return false
			}
			s.Days[i] = detail
			return true
		}
	}
	s.Days = append(s.Days, detail)
	sort.Slice(s.Days, func(i, j int) bool {
		return s.Days[i].Date.Before(s.Days[j].Date)
	})
	return true
}

func (s *OperationalSchedule) RecomputeTotals() {
	total := decimal.Zero
	valid := 0
	for _, day := range s.Days {
		total = total.Add(day.Hours)
		if day.ScheduleCode != nil && *day.ScheduleCode != "" {
			valid++
		}
	}
	s.TotalShifts = len(s.Days)
	s.TotalHours = total.Round(2)
	s.ValidShifts = valid
}
