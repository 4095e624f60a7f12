package seed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/telesalud/shift-sync/backend/internal/domain"
	"github.com/telesalud/shift-sync/backend/internal/repository"
)

// 信息列的表头，其余列的表头是日期中的“日”（1 到 31），单元格填写 M、T 或 MT
const (
	headerEmail     = "邮箱"
	headerFullName  = "姓名"
	headerRegime    = "劳动制度"
	headerSpecialty = "专科"
	headerPeriod    = "周期"
)

var infoHeaders = []string{headerEmail, headerFullName, headerRegime, headerSpecialty, headerPeriod}

type ShiftRecord struct {
	Date domain.Date
	Kind domain.ShiftKind
}

// DeclarationRecord 是 CSV 中的一行，对应一名医务人员在一个周期内的申报
type DeclarationRecord struct {
	Line      int
	Email     string
	FullName  string
	Regime    string
	Specialty string
	Period    domain.Period
	Shifts    []ShiftRecord
}

func ParseDeclarations(reader io.Reader) ([]DeclarationRecord, error) {
	r := csv.NewReader(reader)
	r.TrimLeadingSpace = true

	// 读取表头
	headers, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("读取表头失败: %w", err)
	}

	infoColumns := make(map[string]int)
	dayColumns := make(map[int]int)
	for i, header := range headers {
		header = strings.TrimSpace(header)
		if day, err := strconv.Atoi(header); err == nil {
			if day < 1 || day > 31 {
				return nil, fmt.Errorf("第 %d 列的日期 %d 不合法", i+1, day)
			}
			dayColumns[i] = day
			continue
		}
		infoColumns[header] = i
	}

	for _, header := range infoHeaders {
		if _, ok := infoColumns[header]; !ok {
			return nil, fmt.Errorf("没有找到信息列 %s", header)
		}
	}
	if len(dayColumns) == 0 {
		return nil, errors.New("没有找到日期列")
	}

	records := []DeclarationRecord{}
	for line := 2; ; line++ {
		row, err := r.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("读取第 %d 行失败: %w", line, err)
		}

		record := DeclarationRecord{
			Line:      line,
			Email:     strings.TrimSpace(row[infoColumns[headerEmail]]),
			FullName:  strings.TrimSpace(row[infoColumns[headerFullName]]),
			Regime:    strings.TrimSpace(row[infoColumns[headerRegime]]),
			Specialty: strings.TrimSpace(row[infoColumns[headerSpecialty]]),
		}
		if record.Email == "" {
			return nil, fmt.Errorf("第 %d 行没有填写邮箱", line)
		}

		period, err := domain.ParsePeriod(strings.TrimSpace(row[infoColumns[headerPeriod]]))
		if err != nil {
			return nil, fmt.Errorf("第 %d 行: %w", line, err)
		}
		record.Period = period

		first := period.FirstDay()
		for col, day := range dayColumns {
			value := strings.TrimSpace(row[col])
			if value == "" {
				continue
			}
			if day > period.Days() {
				return nil, fmt.Errorf("第 %d 行: 周期 %s 没有第 %d 天", line, period, day)
			}

			var kind domain.ShiftKind
			if err := kind.Scan(value); err != nil {
				return nil, fmt.Errorf("第 %d 行第 %d 天: %w", line, day, err)
			}
			record.Shifts = append(record.Shifts, ShiftRecord{
				Date: domain.NewDate(first.Year, first.Month, day),
				Kind: kind,
			})
		}

		sort.Slice(record.Shifts, func(i, j int) bool {
			return record.Shifts[i].Date.Before(record.Shifts[j].Date)
		})
		records = append(records, record)
	}

	return records, nil
}

type ImportOptions struct {
	PasswordHash  string // 新建账号使用的密码哈希
	RequiredHours decimal.Decimal
}

// ImportDeclarations 导入 CSV 中的申报，单行失败只记录日志，返回成功导入的数量
func ImportDeclarations(ctx context.Context, r *repository.Repository, path string, opts ImportOptions) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	records, err := ParseDeclarations(file)
	if err != nil {
		return 0, err
	}

	regimes, err := r.ListLaborRegimes(ctx)
	if err != nil {
		return 0, err
	}
	regimesByName := make(map[string]*domain.LaborRegime)
	for _, regime := range regimes {
		regimesByName[regime.Name] = regime
	}

	specialties, err := r.ListSpecialties(ctx)
	if err != nil {
		return 0, err
	}
	specialtiesByName := make(map[string]*domain.Specialty)
	for _, s := range specialties {
		specialtiesByName[s.Name] = s
	}

	cnt := 0
	for _, record := range records {
		regime, ok := regimesByName[record.Regime]
		if !ok {
			slog.Error("劳动制度不存在", "line", record.Line, "regime", record.Regime)
			continue
		}
		specialty, ok := specialtiesByName[record.Specialty]
		if !ok {
			slog.Error("专科不存在", "line", record.Line, "specialty", record.Specialty)
			continue
		}

		err := r.WithinTx(ctx, false, func(ctx context.Context) error {
			professional, err := ensureProfessional(ctx, r, record, regime.ID, opts.PasswordHash)
			if err != nil {
				return err
			}
			return importDeclaration(ctx, r, record, professional.ID, specialty.ID, regime, opts.RequiredHours)
		})
		if err != nil {
			slog.Error("导入申报失败", "line", record.Line, "email", record.Email, "error", err)
			continue
		}

		cnt++
	}

	return cnt, nil
}

// ensureProfessional 按邮箱查找医务人员，不存在时同时创建档案和登录账号
func ensureProfessional(ctx context.Context, r *repository.Repository, record DeclarationRecord, regimeID int64, passwordHash string) (*domain.Professional, error) {
	professional, err := r.GetProfessionalByEmail(ctx, record.Email)
	if err == nil {
		return professional, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	professional = &domain.Professional{
		FullName:      record.FullName,
		Email:         record.Email,
		LaborRegimeID: regimeID,
	}
	if err := r.CreateProfessional(ctx, professional); err != nil {
		return nil, err
	}

	username, _, _ := strings.Cut(record.Email, "@")
	user := &domain.User{
		Username:       username,
		PasswordHash:   passwordHash,
		FullName:       record.FullName,
		Email:          record.Email,
		Role:           domain.RoleProfessional,
		ProfessionalID: &professional.ID,
	}
	if err := r.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	return professional, nil
}

func importDeclaration(ctx context.Context, r *repository.Repository, record DeclarationRecord, professionalID, specialtyID int64, regime *domain.LaborRegime, requiredHours decimal.Decimal) error {
	decl, err := domain.NewAvailabilityDeclaration(domain.DeclarationParams{
		ProfessionalID: professionalID,
		SpecialtyID:    specialtyID,
		Period:         string(record.Period),
		RequiredHours:  requiredHours,
		Notes:          fmt.Sprintf("由 CSV 第 %d 行导入", record.Line),
	})
	if err != nil {
		return err
	}

	if err := r.CreateDeclaration(ctx, decl); err != nil {
		return err
	}

	for _, shift := range record.Shifts {
		if err := decl.AddOrUpdateShift(shift.Date, shift.Kind, regime); err != nil {
			return err
		}
	}

	// 工时不足的申报保持草稿状态，由医务人员自行补充
	if decl.TotalHours.GreaterThanOrEqual(decl.RequiredHours) {
		if err := decl.Submit(time.Now()); err != nil {
			return err
		}
	}

	return r.SaveDeclaration(ctx, decl)
}
