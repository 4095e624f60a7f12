package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	RegimeStatutory  = "728/CAS"
	RegimeContractor = "LOCADOR"
)

type LaborRegime struct {
	ID    int64                         `json:"id"`
	Name  string                        `json:"name"`
	Hours map[ShiftKind]decimal.Decimal `json:"hours"`
	Codes map[ShiftKind]string          `json:"codes"` // 缺少代码的班次无法同步到排班表
}

// RegimeMapping 是同步日志中记录的某个班次类型的映射
type RegimeMapping struct {
	Kind  ShiftKind       `json:"kind"`
	Hours decimal.Decimal `json:"hours"`
	Code  string          `json:"code,omitempty"`
}

// DefaultLaborRegimes 返回系统内置的两种劳动制度
func DefaultLaborRegimes() []*LaborRegime {
	return []*LaborRegime{
		{
			Name: RegimeStatutory,
			Hours: map[ShiftKind]decimal.Decimal{
				ShiftMorning:   decimal.NewFromInt(4),
				ShiftAfternoon: decimal.NewFromInt(4),
				ShiftFull:      decimal.NewFromInt(8),
			},
			Codes: map[ShiftKind]string{
				ShiftMorning:   "158",
				ShiftAfternoon: "159",
				ShiftFull:      "200",
			},
		},
		{
			Name: RegimeContractor,
			Hours: map[ShiftKind]decimal.Decimal{
				ShiftMorning:   decimal.NewFromInt(6),
				ShiftAfternoon: decimal.NewFromInt(6),
				ShiftFull:      decimal.NewFromInt(12),
			},
			Codes: map[ShiftKind]string{
				ShiftMorning:   "158A",
				ShiftAfternoon: "159A",
				ShiftFull:      "200A",
			},
		},
	}
}

func (r *LaborRegime) HoursFor(kind ShiftKind) (decimal.Decimal, error) {
	if !kind.Valid() {
		return decimal.Zero, fmt.Errorf("%w: %d", ErrUnknownShiftKind, kind)
	}
	hours, ok := r.Hours[kind]
	if !ok || !hours.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s / %s", ErrMissingRegimeHours, r.Name, kind)
	}
	return hours.Round(2), nil
}

func (r *LaborRegime) ScheduleCode(kind ShiftKind) (string, error) {
	if !kind.Valid() {
		return "", fmt.Errorf("%w: %d", ErrUnknownShiftKind, kind)
	}
	code, ok := r.Codes[kind]
	if !ok || code == "" {
		return "", fmt.Errorf("%w: %s / %s", ErrMissingScheduleCode, r.Name, kind)
	}
	return code, nil
}

// Mapping 按班次类型顺序列出本制度的工时与代码，缺项照实留空
func (r *LaborRegime) Mapping() []RegimeMapping {
	mapping := make([]RegimeMapping, 0, 3)
	for _, kind := range []ShiftKind{ShiftMorning, ShiftAfternoon, ShiftFull} {
		mapping = append(mapping, RegimeMapping{
			Kind:  kind,
			Hours: r.Hours[kind],
			Code:  r.Codes[kind],
		})
	}
	return mapping
}
