package repository

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"
	"github.com/telesalud/shift-sync/backend/internal/domain"
)

// 参考数据由目录管理模块维护，这里只提供查询以及初始化数据时用到的插入

func (r *Repository) ListLaborRegimes(ctx context.Context) ([]*domain.LaborRegime, error) {
	query := `
		SELECT lr.id, lr.name, lrs.shift_kind, lrs.hours, lrs.schedule_code
		FROM labor_regimes lr
		LEFT JOIN labor_regime_shifts lrs ON lr.id = lrs.labor_regime_id
		ORDER BY lr.id
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	rows, err := r.conn(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	regimes := []*domain.LaborRegime{}
	regimesMap := make(map[int64]*domain.LaborRegime)
	for rows.Next() {
		var row struct {
			id    int64
			name  string
			kind  sql.NullString
			hours decimal.NullDecimal
			code  sql.NullString
		}
		if err := rows.Scan(&row.id, &row.name, &row.kind, &row.hours, &row.code); err != nil {
			return nil, err
		}

		regime, exists := regimesMap[row.id]
		if !exists {
			regime = &domain.LaborRegime{
				ID:    row.id,
				Name:  row.name,
				Hours: make(map[domain.ShiftKind]decimal.Decimal),
				Codes: make(map[domain.ShiftKind]string),
			}
			regimesMap[row.id] = regime
			regimes = append(regimes, regime)
		}

		// 没有配置任何班次的劳动制度
		if !row.kind.Valid {
			continue
		}

		var kind domain.ShiftKind
		if err := kind.Scan(row.kind.String); err != nil {
			return nil, err
		}
		if row.hours.Valid {
			regime.Hours[kind] = row.hours.Decimal
		}
		if row.code.Valid && row.code.String != "" {
			regime.Codes[kind] = row.code.String
		}
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return regimes, nil
}

func (r *Repository) GetLaborRegime(ctx context.Context, id int64) (*domain.LaborRegime, error) {
	query := `
		SELECT lr.name, lrs.shift_kind, lrs.hours, lrs.schedule_code
		FROM labor_regimes lr
		LEFT JOIN labor_regime_shifts lrs ON lr.id = lrs.labor_regime_id
		WHERE lr.id = $1
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	rows, err := r.conn(ctx).QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var regime *domain.LaborRegime
	for rows.Next() {
		var name string
		var kind, code sql.NullString
		var hours decimal.NullDecimal
		if err := rows.Scan(&name, &kind, &hours, &code); err != nil {
			return nil, err
		}

		if regime == nil {
			regime = &domain.LaborRegime{
				ID:    id,
				Name:  name,
				Hours: make(map[domain.ShiftKind]decimal.Decimal),
				Codes: make(map[domain.ShiftKind]string),
			}
		}
		if !kind.Valid {
			continue
		}

		var k domain.ShiftKind
		if err := k.Scan(kind.String); err != nil {
			return nil, err
		}
		if hours.Valid {
			regime.Hours[k] = hours.Decimal
		}
		if code.Valid && code.String != "" {
			regime.Codes[k] = code.String
		}
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if regime == nil {
		return nil, domain.ErrNotFound
	}

	return regime, nil
}

func (r *Repository) LaborRegimeForProfessional(ctx context.Context, professionalID int64) (*domain.LaborRegime, error) {
	query := `SELECT labor_regime_id FROM professionals WHERE id = $1`

	qctx, cancel := r.queryContext(ctx)
	defer cancel()

	var regimeID int64
	if err := r.conn(qctx).QueryRowContext(qctx, query, professionalID).Scan(&regimeID); err != nil {
		return nil, mapError(err)
	}

	return r.GetLaborRegime(ctx, regimeID)
}

func (r *Repository) AreaForSpecialty(ctx context.Context, specialtyID int64) (int64, error) {
	query := `SELECT area_id FROM specialties WHERE id = $1`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	var areaID int64
	if err := r.conn(ctx).QueryRowContext(ctx, query, specialtyID).Scan(&areaID); err != nil {
		return 0, mapError(err)
	}

	return areaID, nil
}

func (r *Repository) GetProfessional(ctx context.Context, id int64) (*domain.Professional, error) {
	query := `SELECT full_name, email, labor_regime_id, created_at FROM professionals WHERE id = $1`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	p := &domain.Professional{ID: id}
	if err := r.conn(ctx).QueryRowContext(ctx, query, id).Scan(&p.FullName, &p.Email, &p.LaborRegimeID, &p.CreatedAt); err != nil {
		return nil, mapError(err)
	}

	return p, nil
}

func (r *Repository) GetProfessionalByEmail(ctx context.Context, email string) (*domain.Professional, error) {
	query := `SELECT id, full_name, labor_regime_id, created_at FROM professionals WHERE email = $1`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	p := &domain.Professional{Email: email}
	if err := r.conn(ctx).QueryRowContext(ctx, query, email).Scan(&p.ID, &p.FullName, &p.LaborRegimeID, &p.CreatedAt); err != nil {
		return nil, mapError(err)
	}

	return p, nil
}

func (r *Repository) ListProfessionals(ctx context.Context) ([]*domain.Professional, error) {
	query := `SELECT id, full_name, email, labor_regime_id, created_at FROM professionals ORDER BY id`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	rows, err := r.conn(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	professionals := []*domain.Professional{}
	for rows.Next() {
		var p domain.Professional
		if err := rows.Scan(&p.ID, &p.FullName, &p.Email, &p.LaborRegimeID, &p.CreatedAt); err != nil {
			return nil, err
		}
		professionals = append(professionals, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return professionals, nil
}

func (r *Repository) GetSpecialty(ctx context.Context, id int64) (*domain.Specialty, error) {
	query := `SELECT name, area_id FROM specialties WHERE id = $1`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	s := &domain.Specialty{ID: id}
	if err := r.conn(ctx).QueryRowContext(ctx, query, id).Scan(&s.Name, &s.AreaID); err != nil {
		return nil, mapError(err)
	}

	return s, nil
}

func (r *Repository) ListSpecialties(ctx context.Context) ([]*domain.Specialty, error) {
	query := `SELECT id, name, area_id FROM specialties ORDER BY id`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	rows, err := r.conn(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	specialties := []*domain.Specialty{}
	for rows.Next() {
		var s domain.Specialty
		if err := rows.Scan(&s.ID, &s.Name, &s.AreaID); err != nil {
			return nil, err
		}
		specialties = append(specialties, &s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return specialties, nil
}

// UpsertLaborRegime 按名称插入或更新劳动制度及其班次映射
func (r *Repository) UpsertLaborRegime(ctx context.Context, regime *domain.LaborRegime) error {
	return r.WithinTx(ctx, false, func(ctx context.Context) error {
		query := `
			INSERT INTO labor_regimes (name) VALUES ($1)
			ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			RETURNING id
		`
		if err := r.conn(ctx).QueryRowContext(ctx, query, regime.Name).Scan(&regime.ID); err != nil {
			return mapError(err)
		}

		query = `DELETE FROM labor_regime_shifts WHERE labor_regime_id = $1`
		if _, err := r.conn(ctx).ExecContext(ctx, query, regime.ID); err != nil {
			return err
		}

		query = `
			INSERT INTO labor_regime_shifts (labor_regime_id, shift_kind, hours, schedule_code)
			VALUES ($1, $2, $3, $4)
		`
		for _, m := range regime.Mapping() {
			if !m.Hours.IsPositive() {
				continue
			}
			var code *string
			if m.Code != "" {
				code = &m.Code
			}
			if _, err := r.conn(ctx).ExecContext(ctx, query, regime.ID, m.Kind, m.Hours, code); err != nil {
				return err
			}
		}

		return nil
	})
}

// UpsertArea 按名称插入区域，已存在时返回原有记录
func (r *Repository) UpsertArea(ctx context.Context, area *domain.Area) error {
	query := `
		INSERT INTO areas (name) VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	if err := r.conn(ctx).QueryRowContext(ctx, query, area.Name).Scan(&area.ID); err != nil {
		return mapError(err)
	}

	return nil
}

func (r *Repository) UpsertSpecialty(ctx context.Context, s *domain.Specialty) error {
	query := `
		INSERT INTO specialties (name, area_id) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET area_id = EXCLUDED.area_id
		RETURNING id
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	if err := r.conn(ctx).QueryRowContext(ctx, query, s.Name, s.AreaID).Scan(&s.ID); err != nil {
		return mapError(err)
	}

	return nil
}

func (r *Repository) CreateProfessional(ctx context.Context, p *domain.Professional) error {
	query := `
		INSERT INTO professionals (full_name, email, labor_regime_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	if err := r.conn(ctx).QueryRowContext(ctx, query, p.FullName, p.Email, p.LaborRegimeID).Scan(&p.ID, &p.CreatedAt); err != nil {
		return mapError(err)
	}

	return nil
}
