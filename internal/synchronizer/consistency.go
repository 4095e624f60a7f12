package synchronizer

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/telesalud/shift-sync/backend/internal/domain"
)

// Validate 对比申报与已同步的排班表，只读
func (e *Engine) Validate(ctx context.Context, declarationID int64) (*ConsistencyReport, error) {
	var report *ConsistencyReport

	err := e.store.WithinTx(ctx, true, func(ctx context.Context) error {
		decl, err := e.store.GetDeclaration(ctx, declarationID)
		if err != nil {
			return fmt.Errorf("无法获取申报 %d: %w", declarationID, err)
		}

		areaID, err := e.refs.AreaForSpecialty(ctx, decl.SpecialtyID)
		if err != nil {
			return fmt.Errorf("无法获取专科 %d 所属区域: %w", decl.SpecialtyID, err)
		}

		key := domain.ScheduleKey{Period: decl.Period, ProfessionalID: decl.ProfessionalID, AreaID: areaID}
		schedule, err := e.store.GetScheduleByKey(ctx, key, false)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			report = Compare(decl, nil, e.threshold)
		case err != nil:
			return fmt.Errorf("无法获取排班表: %w", err)
		default:
			report = Compare(decl, schedule, e.threshold)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return report, nil
}

// Compare 计算一致性报告，schedule 为空表示尚未同步
func Compare(decl *domain.AvailabilityDeclaration, schedule *domain.OperationalSchedule, threshold decimal.Decimal) *ConsistencyReport {
	report := &ConsistencyReport{
		DeclarationID: decl.ID,
		DeclaredHours: decl.TotalHours,
		SyncedHours:   decimal.Zero,
		Discrepancies: make([]Discrepancy, 0),
	}

	if schedule == nil {
		report.Classification = NoScheduleLoaded
		report.DiffHours = decl.TotalHours
		report.DiffPercent = percentOf(decl.TotalHours, decl.TotalHours)
		report.RecommendsResync = true
		return report
	}

	report.ScheduleID = &schedule.ID
	report.SyncedHours = schedule.TotalHours
	report.DiffHours = decl.TotalHours.Sub(schedule.TotalHours).Abs().Round(2)
	report.DiffPercent = percentOf(report.DiffHours, decl.TotalHours)

	if report.DiffHours.GreaterThan(threshold) {
		report.Classification = SignificantDifference
	} else {
		report.Classification = Consistent
	}
	report.RecommendsResync = report.Classification != Consistent

	declared := make(map[domain.Date]domain.ShiftDetail, len(decl.Shifts))
	for _, shift := range decl.Shifts {
		declared[shift.Date] = shift
	}
	scheduled := make(map[domain.Date]domain.ScheduleDayDetail, len(schedule.Days))
	for _, day := range schedule.Days {
		scheduled[day.Date] = day
	}

	for _, date := range unionDates(declared, scheduled) {
		shift, inDecl := declared[date]
		day, inSched := scheduled[date]

		var d Discrepancy
		switch {
		case inDecl && !inSched:
			d = Discrepancy{
				Type:            MissingInSchedule,
				DeclaredHours:   shift.Hours,
				ScheduledHours:  decimal.Zero,
				DeltaHours:      shift.Hours,
				SuggestedAction: ActionResynchronize,
			}
		case !inDecl && inSched:
			d = Discrepancy{
				Type:            MissingInDeclaration,
				DeclaredHours:   decimal.Zero,
				ScheduledHours:  day.Hours,
				DeltaHours:      day.Hours,
				SuggestedAction: ActionManualReview,
			}
		case !shift.Hours.Equal(day.Hours):
			d = Discrepancy{
				Type:            HoursMismatch,
				DeclaredHours:   shift.Hours,
				ScheduledHours:  day.Hours,
				DeltaHours:      shift.Hours.Sub(day.Hours).Abs(),
				SuggestedAction: ActionResynchronize,
			}
		case shift.Kind != day.Kind:
			d = Discrepancy{
				Type:            KindMismatch,
				DeclaredHours:   shift.Hours,
				ScheduledHours:  day.Hours,
				DeltaHours:      decimal.Zero,
				SuggestedAction: ActionResynchronize,
			}
		default:
			continue
		}

		d.Date = date
		if inDecl {
			kind := shift.Kind
			d.DeclaredKind = &kind
		}
		if inSched {
			kind := day.Kind
			d.ScheduledKind = &kind
		}
		d.DeltaHours = d.DeltaHours.Round(2)
		d.Severity = severityFor(d.DeltaHours)
		report.Discrepancies = append(report.Discrepancies, d)
	}

	return report
}
