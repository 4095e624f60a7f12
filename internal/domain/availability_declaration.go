package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultRequiredHours 是未显式配置时每月需要申报的最少工时
var DefaultRequiredHours = decimal.NewFromInt(150)

type ShiftDetail struct {
	Date           Date            `json:"date"`
	Kind           ShiftKind       `json:"kind"`
	Hours          decimal.Decimal `json:"hours"`
	AdjustedBy     *int64          `json:"adjustedBy"`
	AdjustmentNote string          `json:"adjustmentNote"`
}

type AvailabilityDeclaration struct {
	ID             int64            `json:"id"`
	ProfessionalID int64            `json:"professionalID"`
	SpecialtyID    int64            `json:"specialtyID"`
	Period         Period           `json:"period"`
	State          DeclarationState `json:"state"`
	TotalHours     decimal.Decimal  `json:"totalHours"`
	RequiredHours  decimal.Decimal  `json:"requiredHours"`
	SubmittedAt    *time.Time       `json:"submittedAt"`
	ReviewedAt     *time.Time       `json:"reviewedAt"`
	ReviewedBy     *int64           `json:"reviewedBy"`
	Notes          string           `json:"notes"`
	Shifts         []ShiftDetail    `json:"shifts"` // 始终按日期升序
	CreatedAt      time.Time        `json:"createdAt"`
	Version        int32            `json:"-"`
}

// DeclarationParams 列出创建申报时可以指定的全部字段
type DeclarationParams struct {
	ProfessionalID int64
	SpecialtyID    int64
	Period         string
	RequiredHours  decimal.Decimal // 为零时使用 DefaultRequiredHours
	Notes          string
}

func NewAvailabilityDeclaration(p DeclarationParams) (*AvailabilityDeclaration, error) {
	if p.ProfessionalID <= 0 {
		return nil, invalid("professionalID", "必须指定医务人员")
	}
	if p.SpecialtyID <= 0 {
		return nil, invalid("specialtyID", "必须指定专科")
	}
	period, err := ParsePeriod(p.Period)
	if err != nil {
		return nil, err
	}

	required := p.RequiredHours
	if required.IsZero() {
		required = DefaultRequiredHours
	}
	if required.IsNegative() {
		return nil, invalid("requiredHours", "最少工时不能为负数")
	}

	return &AvailabilityDeclaration{
		ProfessionalID: p.ProfessionalID,
		SpecialtyID:    p.SpecialtyID,
		Period:         period,
		State:          StateDraft,
		TotalHours:     decimal.Zero,
		RequiredHours:  required.Round(2),
		Notes:          p.Notes,
		Shifts:         make([]ShiftDetail, 0),
	}, nil
}

func (d *AvailabilityDeclaration) Shift(date Date) (ShiftDetail, bool) {
	if i := d.shiftIndex(date); i >= 0 {
		return d.Shifts[i], true
	}
	return ShiftDetail{}, false
}

func (d *AvailabilityDeclaration) shiftIndex(date Date) int {
	for i := range d.Shifts {
		if d.Shifts[i].Date == date {
			return i
		}
	}
	return -1
}

// recompute 在每次明细变更后重新排序并汇总工时
func (d *AvailabilityDeclaration) recompute() {
	sort.Slice(d.Shifts, func(i, j int) bool {
		return d.Shifts[i].Date.Before(d.Shifts[j].Date)
	})
	total := decimal.Zero
	for _, shift := range d.Shifts {
		total = total.Add(shift.Hours)
	}
	d.TotalHours = total.Round(2)
}

func (d *AvailabilityDeclaration) requireState(allowed ...DeclarationState) error {
	for _, s := range allowed {
		if d.State == s {
			return nil
		}
	}
	return fmt.Errorf("%w: 申报当前状态为 %s", ErrInvalidState, d.State)
}

func (d *AvailabilityDeclaration) checkDate(date Date) error {
	if date.IsZero() {
		return invalid("date", "必须指定日期")
	}
	if !d.Period.Contains(date) {
		return invalid("date", fmt.Sprintf("日期 %s 不在周期 %s 内", date, d.Period))
	}
	return nil
}

// AddOrUpdateShift 由医务人员在草稿或已提交状态下新增或修改某天的班次
func (d *AvailabilityDeclaration) AddOrUpdateShift(date Date, kind ShiftKind, regime *LaborRegime) error {
	if err := d.requireState(StateDraft, StateSubmitted); err != nil {
		return err
	}
	if err := d.checkDate(date); err != nil {
		return err
	}
	hours, err := regime.HoursFor(kind)
	if err != nil {
		return err
	}

	shift := ShiftDetail{Date: date, Kind: kind, Hours: hours}
	if i := d.shiftIndex(date); i >= 0 {
		// 医务人员重新申报会覆盖之前协调员的调整记录
		d.Shifts[i] = shift
	} else {
		d.Shifts = append(d.Shifts, shift)
	}
	d.recompute()
	return nil
}

func (d *AvailabilityDeclaration) RemoveShift(date Date) error {
	if err := d.requireState(StateDraft, StateSubmitted); err != nil {
		return err
	}
	i := d.shiftIndex(date)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrShiftNotFound, date)
	}
	d.Shifts = append(d.Shifts[:i], d.Shifts[i+1:]...)
	d.recompute()
	return nil
}

func (d *AvailabilityDeclaration) Submit(now time.Time) error {
	if err := d.requireState(StateDraft); err != nil {
		return err
	}
	if d.TotalHours.LessThan(d.RequiredHours) {
		return fmt.Errorf("%w: 已申报 %s 小时，至少需要 %s 小时", ErrInsufficientHours, d.TotalHours.StringFixed(2), d.RequiredHours.StringFixed(2))
	}
	d.State = StateSubmitted
	d.SubmittedAt = &now
	return nil
}

func (d *AvailabilityDeclaration) MarkReviewed(by int64, now time.Time) error {
	if err := d.requireState(StateSubmitted); err != nil {
		return err
	}
	d.State = StateReviewed
	d.ReviewedAt = &now
	d.ReviewedBy = &by
	return nil
}

// Adjustment 描述协调员对某天班次的调整
type Adjustment struct {
	Date  Date
	Kind  ShiftKind
	Note  string
	By    int64
	Hours *decimal.Decimal // 为空时按劳动制度计算
}

// AdjustShift 只修改已存在日期的班次类型，不能增删天数
func (d *AvailabilityDeclaration) AdjustShift(adj Adjustment, regime *LaborRegime) error {
	if err := d.requireState(StateSubmitted, StateReviewed); err != nil {
		return err
	}
	note := strings.TrimSpace(adj.Note)
	if note == "" {
		return invalid("note", "调整班次必须填写说明")
	}
	if adj.By <= 0 {
		return invalid("adjustedBy", "必须指定调整人")
	}
	i := d.shiftIndex(adj.Date)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrShiftNotFound, adj.Date)
	}

	hours, err := regime.HoursFor(adj.Kind)
	if err != nil {
		return err
	}
	if adj.Hours != nil {
		if !adj.Hours.IsPositive() {
			return invalid("hours", "工时必须大于 0")
		}
		hours = adj.Hours.Round(2)
	}

	by := adj.By
	d.Shifts[i] = ShiftDetail{
		Date:           adj.Date,
		Kind:           adj.Kind,
		Hours:          hours,
		AdjustedBy:     &by,
		AdjustmentNote: note,
	}
	d.recompute()
	return nil
}

// CheckInvariants 校验从数据库加载的聚合是否自洽
func (d *AvailabilityDeclaration) CheckInvariants() error {
	seen := make(map[Date]bool, len(d.Shifts))
	total := decimal.Zero
	for _, shift := range d.Shifts {
		if seen[shift.Date] {
			return fmt.Errorf("申报 %d 中日期 %s 重复", d.ID, shift.Date)
		}
		seen[shift.Date] = true
		if !shift.Kind.Valid() {
			return fmt.Errorf("申报 %d 中日期 %s 的班次类型无效", d.ID, shift.Date)
		}
		if !shift.Hours.IsPositive() {
			return fmt.Errorf("申报 %d 中日期 %s 的工时必须大于 0", d.ID, shift.Date)
		}
		if shift.AdjustedBy != nil && shift.AdjustmentNote == "" {
			return fmt.Errorf("申报 %d 中日期 %s 的调整缺少说明", d.ID, shift.Date)
		}
		total = total.Add(shift.Hours)
	}
	if !total.Equal(d.TotalHours) {
		return fmt.Errorf("申报 %d 的总工时 %s 与明细合计 %s 不一致", d.ID, d.TotalHours, total)
	}
	return nil
}
