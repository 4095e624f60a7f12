package synchronizer

import (
	"context"
	"errors"
	"fmt"

	"github.com/telesalud/shift-sync/backend/internal/domain"
)

// syncRun 保存一次 Synchronize 调用过程中的中间状态
type syncRun struct {
	engine   *Engine
	req      SyncRequest
	result   *SyncResult
	regime   *domain.LaborRegime
	schedule *domain.OperationalSchedule
	created  bool // 排班表是否在本次事务中新建
}

func newSyncRun(e *Engine, req SyncRequest) *syncRun {
	return &syncRun{
		engine: e,
		req:    req,
		result: &SyncResult{
			RunID:         e.newRunID(),
			DeclarationID: req.DeclarationID,
			Operation:     req.Operation,
			UpdatedDates:  make([]domain.Date, 0),
			SkippedDates:  make([]domain.Date, 0),
			Errors:        make([]domain.DayError, 0),
			Warnings:      make([]string, 0),
		},
	}
}

func (r *syncRun) execute(ctx context.Context) error {
	store := r.engine.store

	decl, err := store.GetDeclaration(ctx, r.req.DeclarationID)
	if err != nil {
		return fmt.Errorf("无法获取申报 %d: %w", r.req.DeclarationID, err)
	}
	if decl.State != domain.StateReviewed {
		return fmt.Errorf("%w: 申报当前状态为 %s", domain.ErrNotReviewed, decl.State)
	}

	r.regime, err = r.engine.refs.LaborRegimeForProfessional(ctx, decl.ProfessionalID)
	if err != nil {
		return fmt.Errorf("无法获取医务人员 %d 的劳动制度: %w", decl.ProfessionalID, err)
	}
	areaID, err := r.engine.refs.AreaForSpecialty(ctx, decl.SpecialtyID)
	if err != nil {
		return fmt.Errorf("无法获取专科 %d 所属区域: %w", decl.SpecialtyID, err)
	}

	key := domain.ScheduleKey{Period: decl.Period, ProfessionalID: decl.ProfessionalID, AreaID: areaID}
	if err := r.resolveSchedule(ctx, key); err != nil {
		return err
	}

	changed := r.apply(decl)
	if len(changed) > 0 {
		if err := store.UpsertScheduleDays(ctx, r.schedule.ID, changed); err != nil {
			return fmt.Errorf("写入排班明细失败: %w", err)
		}
	}

	r.schedule.RecomputeTotals()
	if err := store.UpdateScheduleTotals(ctx, r.schedule); err != nil {
		return fmt.Errorf("更新排班表汇总失败: %w", err)
	}

	r.classify()
	return nil
}

// resolveSchedule 锁定已有排班表，不存在时新建
func (r *syncRun) resolveSchedule(ctx context.Context, key domain.ScheduleKey) error {
	store := r.engine.store

	schedule, err := store.GetScheduleByKey(ctx, key, true)
	switch {
	case err == nil:
		r.result.ScheduleID = &schedule.ID
		if r.req.Operation == domain.OperationCreate && !r.req.Overwrite {
			return fmt.Errorf("%w: 排班表 %d", domain.ErrScheduleAlreadyExists, schedule.ID)
		}
	case errors.Is(err, domain.ErrNotFound):
		schedule = domain.NewOperationalSchedule(key)
		if err := store.CreateSchedule(ctx, schedule); err != nil {
			return fmt.Errorf("创建排班表失败: %w", err)
		}
		r.created = true
		r.result.ScheduleID = &schedule.ID
		if r.req.Operation == domain.OperationUpdate {
			r.warn("排班表不存在，已新建后再更新")
		}
	default:
		return fmt.Errorf("无法获取排班表: %w", err)
	}

	r.schedule = schedule
	return nil
}

// apply 按日期升序处理选中的班次，返回需要落库的明细
func (r *syncRun) apply(decl *domain.AvailabilityDeclaration) []domain.ScheduleDayDetail {
	res := r.result
	changed := make([]domain.ScheduleDayDetail, 0)
	declared := make(map[domain.Date]bool, len(decl.Shifts))
	selected := 0

	for _, shift := range sortedShifts(decl.Shifts) {
		declared[shift.Date] = true
		if !r.req.Filter.Matches(shift) {
			continue
		}
		selected++

		target, err := r.target(shift)
		if err != nil {
			res.CountsFailed++
			res.Errors = append(res.Errors, domain.DayError{Date: shift.Date, Kind: shift.Kind, Message: err.Error()})
			continue
		}

		// 未开启覆盖时已有明细一律视为冲突，即使与目标一致
		if existing, ok := r.schedule.Day(shift.Date); ok && !r.req.Overwrite {
			res.CountsSkipped++
			res.SkippedDates = append(res.SkippedDates, shift.Date)
			r.warn("%s 已存在排班明细（%s，来源 %s），未开启覆盖，已跳过", shift.Date, existing.Kind, existing.Origin)
			continue
		}

		res.CountsSynced++
		if r.schedule.PutDay(target) {
			res.CountsWritten++
			res.UpdatedDates = append(res.UpdatedDates, shift.Date)
			changed = append(changed, target)
		}
	}

	if r.req.Filter != nil {
		for _, date := range r.req.Filter.Dates {
			if !declared[date] {
				r.warn("筛选日期 %s 没有申报班次", date)
			}
		}
	}
	if selected == 0 {
		r.warn("没有符合条件的班次需要同步")
	}
	for _, day := range r.schedule.Days {
		if !declared[day.Date] {
			r.warn("排班表中 %s 没有对应的申报班次，需要人工核对", day.Date)
		}
	}

	return changed
}

// target 计算某个申报班次对应的排班明细，重新同步时来源一律重置为 SYNCED
func (r *syncRun) target(shift domain.ShiftDetail) (domain.ScheduleDayDetail, error) {
	if _, err := r.regime.HoursFor(shift.Kind); err != nil {
		return domain.ScheduleDayDetail{}, err
	}
	code, err := r.regime.ScheduleCode(shift.Kind)
	if err != nil {
		return domain.ScheduleDayDetail{}, err
	}

	return domain.ScheduleDayDetail{
		Date:         shift.Date,
		Kind:         shift.Kind,
		Hours:        shift.Hours,
		ScheduleCode: &code,
		Origin:       domain.OriginSynced,
		DayNote:      shift.AdjustmentNote,
	}, nil
}

func (r *syncRun) classify() {
	res := r.result
	switch {
	case res.CountsSynced == 0:
		res.Result = domain.OutcomeFailed
	case res.CountsSkipped > 0 || res.CountsFailed > 0:
		res.Result = domain.OutcomePartial
	default:
		res.Result = domain.OutcomeSuccess
	}
	res.Summary = fmt.Sprintf("同步结果 %s：已同步 %d 天（其中改写 %d 天），跳过 %d 天，失败 %d 天",
		res.Result, res.CountsSynced, res.CountsWritten, res.CountsSkipped, res.CountsFailed)
}

// discardCreatedSchedule 在事务回滚后撤销本次新建的排班表引用
func (r *syncRun) discardCreatedSchedule() {
	if r.created {
		r.result.ScheduleID = nil
	}
}

func (r *syncRun) abort() {
	r.discardCreatedSchedule()
	res := r.result
	res.Result = domain.OutcomeFailed
	res.CountsSynced, res.CountsWritten = 0, 0
	res.UpdatedDates = res.UpdatedDates[:0]
	res.Summary = "同步中止，未写入任何数据"
}

func (r *syncRun) writeLog(ctx context.Context, systemError string) error {
	res := r.result
	detail := domain.SyncLogDetail{
		Overwrite:     r.req.Overwrite,
		CountsSynced:  res.CountsSynced,
		CountsWritten: res.CountsWritten,
		CountsSkipped: res.CountsSkipped,
		CountsFailed:  res.CountsFailed,
		Errors:        res.Errors,
		Warnings:      res.Warnings,
		SystemError:   systemError,
	}
	if !r.req.Filter.Empty() {
		detail.Filter = r.req.Filter
	}
	if r.regime != nil {
		detail.Regime = r.regime.Name
		detail.Mapping = r.regime.Mapping()
	}

	entry := &domain.SyncLogEntry{
		RunID:         res.RunID,
		DeclarationID: r.req.DeclarationID,
		ScheduleID:    res.ScheduleID,
		Operation:     r.req.Operation,
		Result:        res.Result,
		Detail:        detail,
		ExecutedBy:    r.req.ExecutedBy,
		CreatedAt:     r.engine.now(),
	}
	if err := r.engine.store.InsertSyncLog(ctx, entry); err != nil {
		return err
	}
	res.LogID = entry.ID
	return nil
}

func (r *syncRun) warn(format string, args ...any) {
	r.result.Warnings = append(r.result.Warnings, fmt.Sprintf(format, args...))
}

func (r *syncRun) logAttrs() []any {
	res := r.result
	return []any{
		"run", res.RunID.String(),
		"declaration", res.DeclarationID,
		"operation", res.Operation.String(),
		"result", res.Result.String(),
		"synced", res.CountsSynced,
		"written", res.CountsWritten,
		"skipped", res.CountsSkipped,
		"failed", res.CountsFailed,
	}
}
