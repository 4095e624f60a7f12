package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/telesalud/shift-sync/backend/internal/domain"
)

// DeclarationFilter 为空的字段表示不限
type DeclarationFilter struct {
	ProfessionalID *int64
	Period         *domain.Period
}

func (r *Repository) CreateDeclaration(ctx context.Context, d *domain.AvailabilityDeclaration) error {
	query := `
		INSERT INTO availability_declarations (
			professional_id,
			specialty_id,
			period,
			state,
			total_hours,
			required_hours,
			notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, version
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	params := []any{
		d.ProfessionalID,
		d.SpecialtyID,
		string(d.Period),
		d.State,
		d.TotalHours,
		d.RequiredHours,
		d.Notes,
	}
	dst := []any{&d.ID, &d.CreatedAt, &d.Version}
	if err := r.conn(ctx).QueryRowContext(ctx, query, params...).Scan(dst...); err != nil {
		return mapError(err)
	}

	return nil
}

func (r *Repository) GetDeclaration(ctx context.Context, id int64) (*domain.AvailabilityDeclaration, error) {
	query := `
		SELECT
			professional_id,
			specialty_id,
			period,
			state,
			total_hours,
			required_hours,
			submitted_at,
			reviewed_at,
			reviewed_by,
			notes,
			created_at,
			version
		FROM availability_declarations
		WHERE id = $1
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	d := &domain.AvailabilityDeclaration{ID: id}
	var period string
	dst := []any{
		&d.ProfessionalID,
		&d.SpecialtyID,
		&period,
		&d.State,
		&d.TotalHours,
		&d.RequiredHours,
		&d.SubmittedAt,
		&d.ReviewedAt,
		&d.ReviewedBy,
		&d.Notes,
		&d.CreatedAt,
		&d.Version,
	}
	if err := r.conn(ctx).QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		return nil, mapError(err)
	}
	d.Period = domain.Period(period)

	query = `
		SELECT date, shift_kind, hours, adjusted_by, adjustment_note
		FROM declaration_shifts
		WHERE declaration_id = $1
		ORDER BY date
	`

	rows, err := r.conn(ctx).QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	d.Shifts = make([]domain.ShiftDetail, 0)
	for rows.Next() {
		var shift domain.ShiftDetail
		if err := rows.Scan(&shift.Date, &shift.Kind, &shift.Hours, &shift.AdjustedBy, &shift.AdjustmentNote); err != nil {
			return nil, err
		}
		d.Shifts = append(d.Shifts, shift)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := d.CheckInvariants(); err != nil {
		return nil, err
	}

	return d, nil
}

// ListDeclarations 只返回表头，不包含班次明细
func (r *Repository) ListDeclarations(ctx context.Context, filter DeclarationFilter) ([]*domain.AvailabilityDeclaration, error) {
	query := `
		SELECT
			id,
			professional_id,
			specialty_id,
			period,
			state,
			total_hours,
			required_hours,
			submitted_at,
			reviewed_at,
			reviewed_by,
			notes,
			created_at,
			version
		FROM availability_declarations
		WHERE ($1::BIGINT IS NULL OR professional_id = $1)
			AND ($2::TEXT IS NULL OR period = $2)
		ORDER BY period DESC, id
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	var period *string
	if filter.Period != nil {
		p := string(*filter.Period)
		period = &p
	}

	rows, err := r.conn(ctx).QueryContext(ctx, query, filter.ProfessionalID, period)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	declarations := []*domain.AvailabilityDeclaration{}
	for rows.Next() {
		d := &domain.AvailabilityDeclaration{Shifts: make([]domain.ShiftDetail, 0)}
		var p string
		dst := []any{
			&d.ID,
			&d.ProfessionalID,
			&d.SpecialtyID,
			&p,
			&d.State,
			&d.TotalHours,
			&d.RequiredHours,
			&d.SubmittedAt,
			&d.ReviewedAt,
			&d.ReviewedBy,
			&d.Notes,
			&d.CreatedAt,
			&d.Version,
		}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		d.Period = domain.Period(p)
		declarations = append(declarations, d)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return declarations, nil
}

// SaveDeclaration 在同一个事务中写入表头和全部班次，版本号不一致时返回 ErrVersionConflict
func (r *Repository) SaveDeclaration(ctx context.Context, d *domain.AvailabilityDeclaration) error {
	return r.WithinTx(ctx, false, func(ctx context.Context) error {
		query := `
			UPDATE availability_declarations
			SET
				state = $1,
				total_hours = $2,
				required_hours = $3,
				submitted_at = $4,
				reviewed_at = $5,
				reviewed_by = $6,
				notes = $7,
				version = version + 1
			WHERE id = $8 AND version = $9
			RETURNING version
		`

		params := []any{
			d.State,
			d.TotalHours,
			d.RequiredHours,
			d.SubmittedAt,
			d.ReviewedAt,
			d.ReviewedBy,
			d.Notes,
			d.ID,
			d.Version,
		}
		var version int32
		if err := r.conn(ctx).QueryRowContext(ctx, query, params...).Scan(&version); err != nil {
			if err := mapError(err); errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("%w: 申报 %d", domain.ErrVersionConflict, d.ID)
			}
			return err
		}

		// 先把原先的班次删除再插入
		query = `DELETE FROM declaration_shifts WHERE declaration_id = $1`
		if _, err := r.conn(ctx).ExecContext(ctx, query, d.ID); err != nil {
			return err
		}

		query = `
			INSERT INTO declaration_shifts (declaration_id, date, shift_kind, hours, adjusted_by, adjustment_note)
			VALUES ($1, $2, $3, $4, $5, $6)
		`
		for _, shift := range d.Shifts {
			params := []any{d.ID, shift.Date, shift.Kind, shift.Hours, shift.AdjustedBy, shift.AdjustmentNote}
			if _, err := r.conn(ctx).ExecContext(ctx, query, params...); err != nil {
				return mapError(err)
			}
		}

		d.Version = version
		return nil
	})
}
