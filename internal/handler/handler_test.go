package handler

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/telesalud/shift-sync/backend/internal/config"
	"github.com/telesalud/shift-sync/backend/internal/domain"
	"github.com/telesalud/shift-sync/backend/internal/repository"
	"github.com/telesalud/shift-sync/backend/internal/synchronizer"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret"

var userColumns = []string{
	"username", "password_hash", "full_name", "email", "role", "professional_id", "is_active", "created_at", "version",
}

func setupTestHandler(t *testing.T) (*Handler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})

	cfg := &config.Config{}
	cfg.Database.QueryTimeout = 5
	cfg.Database.TransactionTimeout = 5
	cfg.JWT.Secret = testSecret
	cfg.JWT.Expiration = 3600
	cfg.RabbitMQ.PublishTimeout = 1
	cfg.Declaration.RequiredHours = domain.DefaultRequiredHours

	repo := repository.NewRepository(cfg, db)
	engine := synchronizer.New(repo, repo, synchronizer.Options{})

	h, err := NewHandler(cfg, repo, repo, engine, nil)
	require.NoError(t, err)
	h.RegisterRoutes()

	return h, mock
}

func signedCookie(t *testing.T, userID int64, role domain.Role) *http.Cookie {
	t.Helper()
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, AuthClaims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   strconv.FormatInt(userID, 10),
		},
	})
	ss, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return &http.Cookie{Name: tokenCookieName, Value: ss}
}

func expectUser(mock sqlmock.Sqlmock, id int64, role domain.Role, professionalID any) {
	mock.ExpectQuery(`FROM users WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow("user"+strconv.FormatInt(id, 10), "", "测试用户", "user@example.com", string(role), professionalID, true, time.Now(), int32(1)))
}

func serve(h *Handler, req *http.Request) (*httptest.ResponseRecorder, Response) {
	rec := httptest.NewRecorder()
	h.Mux.ServeHTTP(rec, req)

	var resp Response
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	return rec, resp
}

func TestLogin(t *testing.T) {
	h, mock := setupTestHandler(t)

	hash, err := bcrypt.GenerateFromPassword([]byte("correct-password"), bcrypt.MinCost)
	require.NoError(t, err)

	mock.ExpectQuery(`FROM users WHERE username = \$1`).
		WithArgs("coordinador").
		WillReturnRows(sqlmock.NewRows([]string{"id", "password_hash", "full_name", "email", "role", "professional_id", "is_active", "created_at", "version"}).
			AddRow(int64(2), string(hash), "协调员", "coord@example.com", "coordinador", nil, true, time.Now(), int32(1)))

	body := bytes.NewBufferString(`{"username":"coordinador","password":"correct-password"}`)
	rec, resp := serve(h, httptest.NewRequest(http.MethodPost, "/auth/login", body))

	require.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, tokenCookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	claims := &AuthClaims{}
	_, err = jwt.ParseWithClaims(cookies[0].Value, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(testSecret), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "2", claims.Subject)
	assert.Equal(t, "coordinador", claims.Role)
}

func TestLoginWrongPassword(t *testing.T) {
	h, mock := setupTestHandler(t)

	hash, err := bcrypt.GenerateFromPassword([]byte("correct-password"), bcrypt.MinCost)
	require.NoError(t, err)

	mock.ExpectQuery(`FROM users WHERE username = \$1`).
		WithArgs("coordinador").
		WillReturnRows(sqlmock.NewRows([]string{"id", "password_hash", "full_name", "email", "role", "professional_id", "is_active", "created_at", "version"}).
			AddRow(int64(2), string(hash), "协调员", "coord@example.com", "coordinador", nil, true, time.Now(), int32(1)))

	body := bytes.NewBufferString(`{"username":"coordinador","password":"wrong"}`)
	rec, resp := serve(h, httptest.NewRequest(http.MethodPost, "/auth/login", body))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, resp.Success)
	assert.Equal(t, "用户名不存在或密码错误", resp.Message)
	assert.Empty(t, rec.Result().Cookies())
}

func TestLoginValidation(t *testing.T) {
	h, _ := setupTestHandler(t)

	_, resp := serve(h, httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(`{"username":"admin"}`)))

	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Message)
}

func TestAuthRequiresCookie(t *testing.T) {
	h, _ := setupTestHandler(t)

	_, resp := serve(h, httptest.NewRequest(http.MethodGet, "/my-info", nil))

	assert.False(t, resp.Success)
	assert.Equal(t, "用户未登录", resp.Message)
}

func TestAuthRejectsForgedToken(t *testing.T) {
	h, _ := setupTestHandler(t)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, AuthClaims{
		Role:             "administrador",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "1"},
	})
	ss, err := token.SignedString([]byte("another-secret"))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/my-info", nil)
	req.AddCookie(&http.Cookie{Name: tokenCookieName, Value: ss})
	_, resp := serve(h, req)

	assert.False(t, resp.Success)
	assert.Equal(t, "无效的令牌", resp.Message)
}

func TestGetMyInfo(t *testing.T) {
	h, mock := setupTestHandler(t)
	expectUser(mock, 5, domain.RoleProfessional, int64(7))

	req := httptest.NewRequest(http.MethodGet, "/my-info", nil)
	req.AddCookie(signedCookie(t, 5, domain.RoleProfessional))
	_, resp := serve(h, req)

	require.NoError(t, mock.ExpectationsWereMet())
	require.True(t, resp.Success)
	data := resp.Data.(map[string]any)
	assert.Equal(t, "user5", data["username"])
	assert.Equal(t, float64(7), data["professionalID"])
	assert.NotContains(t, data, "passwordHash")
}

func TestSyncLogsRequireCoordinator(t *testing.T) {
	h, mock := setupTestHandler(t)
	expectUser(mock, 5, domain.RoleProfessional, int64(7))

	req := httptest.NewRequest(http.MethodGet, "/sync-logs", nil)
	req.AddCookie(signedCookie(t, 5, domain.RoleProfessional))
	_, resp := serve(h, req)

	assert.False(t, resp.Success)
	assert.Equal(t, "权限不足", resp.Message)
}

func TestGetSyncLogsRejectsInvalidQuery(t *testing.T) {
	tests := []struct {
		name  string
		query string
		msg   string
	}{
		{"limit 为零", "limit=0", "limit 必须在 1 到 500 之间"},
		{"时间格式错误", "from=2026-01-01", "起始时间格式错误"},
		{"时间范围颠倒", "from=2026-02-01T00:00:00Z&to=2026-01-01T00:00:00Z", "起始时间必须早于结束时间"},
		{"结果取值错误", "result=EXITOSO", "同步结果只能是 SUCCESS、PARTIAL 或 FAILED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, mock := setupTestHandler(t)
			expectUser(mock, 2, domain.RoleCoordinator, nil)

			req := httptest.NewRequest(http.MethodGet, "/sync-logs?"+tt.query, nil)
			req.AddCookie(signedCookie(t, 2, domain.RoleCoordinator))
			_, resp := serve(h, req)

			assert.False(t, resp.Success)
			assert.Equal(t, tt.msg, resp.Message)
		})
	}
}

var declarationColumns = []string{
	"professional_id", "specialty_id", "period", "state", "total_hours", "required_hours",
	"submitted_at", "reviewed_at", "reviewed_by", "notes", "created_at", "version",
}

func expectDraftDeclaration(mock sqlmock.Sqlmock, id, professionalID int64) {
	mock.ExpectQuery(`FROM availability_declarations\s+WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(declarationColumns).
			AddRow(professionalID, int64(3), "202601", "BORRADOR", "0.00", "150.00", nil, nil, nil, "", time.Now(), int32(1)))
	mock.ExpectQuery(`FROM declaration_shifts`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"date", "shift_kind", "hours", "adjusted_by", "adjustment_note"}))
}

func TestDeclarationVisibility(t *testing.T) {
	tests := []struct {
		name           string
		userID         int64
		role           domain.Role
		professionalID any
		success        bool
	}{
		{"申报所属医务人员", 5, domain.RoleProfessional, int64(7), true},
		{"其他医务人员", 6, domain.RoleProfessional, int64(8), false},
		{"协调员", 2, domain.RoleCoordinator, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, mock := setupTestHandler(t)
			expectUser(mock, tt.userID, tt.role, tt.professionalID)
			expectDraftDeclaration(mock, 1, 7)

			req := httptest.NewRequest(http.MethodGet, "/declarations/1", nil)
			req.AddCookie(signedCookie(t, tt.userID, tt.role))
			_, resp := serve(h, req)

			require.NoError(t, mock.ExpectationsWereMet())
			assert.Equal(t, tt.success, resp.Success)
			if !tt.success {
				assert.Equal(t, "申报不存在", resp.Message)
			}
		})
	}
}

func TestCoordinatorCannotEditShifts(t *testing.T) {
	h, mock := setupTestHandler(t)
	expectUser(mock, 2, domain.RoleCoordinator, nil)
	expectDraftDeclaration(mock, 1, 7)

	req := httptest.NewRequest(http.MethodPut, "/declarations/1/shifts", bytes.NewBufferString(`{"date":"2026-01-05","kind":"FULL"}`))
	req.AddCookie(signedCookie(t, 2, domain.RoleCoordinator))
	_, resp := serve(h, req)

	assert.False(t, resp.Success)
	assert.Equal(t, "只能修改自己的申报", resp.Message)
}

func TestSubmitDeclarationWithInsufficientHours(t *testing.T) {
	h, mock := setupTestHandler(t)
	expectUser(mock, 5, domain.RoleProfessional, int64(7))
	expectDraftDeclaration(mock, 1, 7)

	req := httptest.NewRequest(http.MethodPost, "/declarations/1/submit", nil)
	req.AddCookie(signedCookie(t, 5, domain.RoleProfessional))
	_, resp := serve(h, req)

	require.NoError(t, mock.ExpectationsWereMet())
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Message, domain.ErrInsufficientHours.Error())
}

func TestSynchronizeRejectsUnknownOperation(t *testing.T) {
	h, mock := setupTestHandler(t)
	expectUser(mock, 2, domain.RoleCoordinator, nil)
	expectDraftDeclaration(mock, 1, 7)

	req := httptest.NewRequest(http.MethodPost, "/declarations/1/synchronize", bytes.NewBufferString(`{"operation":"DELETE"}`))
	req.AddCookie(signedCookie(t, 2, domain.RoleCoordinator))
	_, resp := serve(h, req)

	require.NoError(t, mock.ExpectationsWereMet())
	assert.False(t, resp.Success)
}

func TestCoordinatorRoutesRejectProfessional(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		body   string
	}{
		{"审核申报", http.MethodPost, "/declarations/1/review", ""},
		{"调整班次", http.MethodPost, "/declarations/1/adjustments", `{"date":"2026-01-05","kind":"MORNING","note":"调整"}`},
		{"同步排班", http.MethodPost, "/declarations/1/synchronize", `{"operation":"CREATE"}`},
		{"一致性校验", http.MethodGet, "/declarations/1/consistency", ""},
		{"查看排班表", http.MethodGet, "/declarations/1/schedule", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, mock := setupTestHandler(t)
			expectUser(mock, 5, domain.RoleProfessional, int64(7))
			expectDraftDeclaration(mock, 1, 7)

			req := httptest.NewRequest(tt.method, tt.path, bytes.NewBufferString(tt.body))
			req.AddCookie(signedCookie(t, 5, domain.RoleProfessional))
			_, resp := serve(h, req)

			require.NoError(t, mock.ExpectationsWereMet())
			assert.False(t, resp.Success)
			assert.Equal(t, "权限不足", resp.Message)
		})
	}
}

// expectReviewedDeclaration 返回一份 LOCADOR 医务人员在 1 月 5 日和 6 日各有一个 FULL 班次的已审核申报
func expectReviewedDeclaration(mock sqlmock.Sqlmock, id, professionalID int64) {
	now := time.Now()
	mock.ExpectQuery(`FROM availability_declarations\s+WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(declarationColumns).
			AddRow(professionalID, int64(3), "202601", "REVISADO", "24.00", "24.00", now, now, int64(2), "", now, int32(3)))
	mock.ExpectQuery(`FROM declaration_shifts`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"date", "shift_kind", "hours", "adjusted_by", "adjustment_note"}).
			AddRow(time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC), "MT", "12.00", nil, "").
			AddRow(time.Date(2026, 1, 6, 0, 0, 0, 0, time.UTC), "MT", "12.00", nil, ""))
}

func TestSynchronizeCreatesSchedule(t *testing.T) {
	h, mock := setupTestHandler(t)
	now := time.Now()
	expectUser(mock, 2, domain.RoleCoordinator, nil)
	expectReviewedDeclaration(mock, 1, 7)

	mock.ExpectBegin()
	expectReviewedDeclaration(mock, 1, 7)
	mock.ExpectQuery(`SELECT labor_regime_id FROM professionals`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"labor_regime_id"}).AddRow(int64(2)))
	mock.ExpectQuery(`FROM labor_regimes lr`).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"name", "shift_kind", "hours", "schedule_code"}).
			AddRow("LOCADOR", "M", "6.00", "158A").
			AddRow("LOCADOR", "T", "6.00", "159A").
			AddRow("LOCADOR", "MT", "12.00", "200A"))
	mock.ExpectQuery(`SELECT area_id FROM specialties`).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"area_id"}).AddRow(int64(11)))
	mock.ExpectQuery(`FROM operational_schedules\s+WHERE period = \$1 AND professional_id = \$2 AND area_id = \$3 FOR UPDATE`).
		WithArgs("202601", int64(7), int64(11)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`INSERT INTO operational_schedules`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(5), now, now))
	mock.ExpectExec(`INSERT INTO schedule_day_details`).
		WithArgs(int64(5), sqlmock.AnyArg(), "MT", sqlmock.AnyArg(), "200A", "SINCRONIZADO", "").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO schedule_day_details`).
		WithArgs(int64(5), sqlmock.AnyArg(), "MT", sqlmock.AnyArg(), "200A", "SINCRONIZADO", "").
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectQuery(`UPDATE operational_schedules`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(now))
	mock.ExpectQuery(`INSERT INTO sync_logs`).
		WithArgs(sqlmock.AnyArg(), int64(1), int64(5), "CREAR", "EXITOSO", sqlmock.AnyArg(), int64(2), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(9)))
	mock.ExpectCommit()

	req := httptest.NewRequest(http.MethodPost, "/declarations/1/synchronize", bytes.NewBufferString(`{"operation":"CREATE"}`))
	req.AddCookie(signedCookie(t, 2, domain.RoleCoordinator))
	_, resp := serve(h, req)

	require.NoError(t, mock.ExpectationsWereMet())
	require.True(t, resp.Success, resp.Message)
	assert.Equal(t, "同步完成", resp.Message)

	data := resp.Data.(map[string]any)
	assert.Equal(t, "SUCCESS", data["result"])
	assert.Equal(t, "CREATE", data["operationKind"])
	assert.Equal(t, float64(5), data["scheduleID"])
	assert.Equal(t, float64(9), data["logID"])
	assert.Equal(t, float64(2), data["countsSynced"])
	assert.Equal(t, float64(0), data["countsSkipped"])
	assert.Equal(t, []any{"2026-01-05", "2026-01-06"}, data["updatedDates"])
}

func TestAdjustShiftRequiresDeclaredDay(t *testing.T) {
	h, mock := setupTestHandler(t)
	expectUser(mock, 2, domain.RoleCoordinator, nil)
	expectReviewedDeclaration(mock, 1, 7)
	mock.ExpectQuery(`SELECT labor_regime_id FROM professionals`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"labor_regime_id"}).AddRow(int64(2)))
	mock.ExpectQuery(`FROM labor_regimes lr`).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"name", "shift_kind", "hours", "schedule_code"}).
			AddRow("LOCADOR", "M", "6.00", "158A").
			AddRow("LOCADOR", "MT", "12.00", "200A"))

	body := bytes.NewBufferString(`{"date":"2026-01-20","kind":"MORNING","note":"新增班次"}`)
	req := httptest.NewRequest(http.MethodPost, "/declarations/1/adjustments", body)
	req.AddCookie(signedCookie(t, 2, domain.RoleCoordinator))
	_, resp := serve(h, req)

	require.NoError(t, mock.ExpectationsWereMet())
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Message, domain.ErrShiftNotFound.Error())
}

func TestGetAllLaborRegimes(t *testing.T) {
	h, mock := setupTestHandler(t)
	expectUser(mock, 5, domain.RoleProfessional, int64(7))

	mock.ExpectQuery(`FROM labor_regimes lr\s+LEFT JOIN labor_regime_shifts`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "shift_kind", "hours", "schedule_code"}).
			AddRow(int64(1), "728/CAS", "M", "4.00", "158").
			AddRow(int64(1), "728/CAS", "T", "4.00", "159").
			AddRow(int64(1), "728/CAS", "MT", "8.00", "200").
			AddRow(int64(2), "PRACTICANTE", nil, nil, nil))

	req := httptest.NewRequest(http.MethodGet, "/labor-regimes", nil)
	req.AddCookie(signedCookie(t, 5, domain.RoleProfessional))
	_, resp := serve(h, req)

	require.NoError(t, mock.ExpectationsWereMet())
	require.True(t, resp.Success)
	regimes := resp.Data.([]any)
	assert.Len(t, regimes, 2)
}
