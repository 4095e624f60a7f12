package repository

import (
	"context"

	"github.com/telesalud/shift-sync/backend/internal/domain"
)

// GetScheduleByKey 按 (周期, 医务人员, 区域) 查找排班表，forUpdate 时对表头加行锁
func (r *Repository) GetScheduleByKey(ctx context.Context, key domain.ScheduleKey, forUpdate bool) (*domain.OperationalSchedule, error) {
	query := `
		SELECT id, total_shifts, total_hours, valid_shifts, notes, created_at, updated_at
		FROM operational_schedules
		WHERE period = $1 AND professional_id = $2 AND area_id = $3
	`
	if forUpdate {
		query += " FOR UPDATE"
	}

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	s := domain.NewOperationalSchedule(key)
	dst := []any{&s.ID, &s.TotalShifts, &s.TotalHours, &s.ValidShifts, &s.Notes, &s.CreatedAt, &s.UpdatedAt}
	if err := r.conn(ctx).QueryRowContext(ctx, query, string(key.Period), key.ProfessionalID, key.AreaID).Scan(dst...); err != nil {
		return nil, mapError(err)
	}

	query = `
		SELECT date, shift_kind, hours, schedule_code, origin_kind, day_note
		FROM schedule_day_details
		WHERE schedule_id = $1
		ORDER BY date
	`

	rows, err := r.conn(ctx).QueryContext(ctx, query, s.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var day domain.ScheduleDayDetail
		if err := rows.Scan(&day.Date, &day.Kind, &day.Hours, &day.ScheduleCode, &day.Origin, &day.DayNote); err != nil {
			return nil, err
		}
		s.Days = append(s.Days, day)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return s, nil
}

// CreateSchedule 只插入表头，明细由 UpsertScheduleDays 写入
func (r *Repository) CreateSchedule(ctx context.Context, s *domain.OperationalSchedule) error {
	query := `
		INSERT INTO operational_schedules (
			period,
			professional_id,
			area_id,
			total_shifts,
			total_hours,
			valid_shifts,
			notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	params := []any{
		string(s.Period),
		s.ProfessionalID,
		s.AreaID,
		s.TotalShifts,
		s.TotalHours,
		s.ValidShifts,
		s.Notes,
	}
	if err := r.conn(ctx).QueryRowContext(ctx, query, params...).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return mapError(err)
	}

	return nil
}

func (r *Repository) UpsertScheduleDays(ctx context.Context, scheduleID int64, days []domain.ScheduleDayDetail) error {
	query := `
		INSERT INTO schedule_day_details (schedule_id, date, shift_kind, hours, schedule_code, origin_kind, day_note)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (schedule_id, date) DO UPDATE
		SET
			shift_kind = EXCLUDED.shift_kind,
			hours = EXCLUDED.hours,
			schedule_code = EXCLUDED.schedule_code,
			origin_kind = EXCLUDED.origin_kind,
			day_note = EXCLUDED.day_note
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	for _, day := range days {
		params := []any{scheduleID, day.Date, day.Kind, day.Hours, day.ScheduleCode, day.Origin, day.DayNote}
		if _, err := r.conn(ctx).ExecContext(ctx, query, params...); err != nil {
			return mapError(err)
		}
	}

	return nil
}

func (r *Repository) UpdateScheduleTotals(ctx context.Context, s *domain.OperationalSchedule) error {
	query := `
		UPDATE operational_schedules
		SET
			total_shifts = $1,
			total_hours = $2,
			valid_shifts = $3,
			updated_at = NOW()
		WHERE id = $4
		RETURNING updated_at
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	if err := r.conn(ctx).QueryRowContext(ctx, query, s.TotalShifts, s.TotalHours, s.ValidShifts, s.ID).Scan(&s.UpdatedAt); err != nil {
		return mapError(err)
	}

	return nil
}
