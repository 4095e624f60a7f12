package synchronizer

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/telesalud/shift-sync/backend/internal/domain"
)

var (
	testNow   = time.Date(2026, 2, 2, 8, 0, 0, 0, time.FixedZone("PET", -5*3600))
	testRunID = uuid.MustParse("5b0b7b55-8d55-4a8e-9a57-0f4ad1a3c2e1")
)

const (
	coordinatorID  int64 = 2
	professionalID int64 = 7
	specialtyID    int64 = 3
	areaID         int64 = 11
)

// memStore 是内存中的 Store 实现，WithinTx 出错时恢复快照
type memStore struct {
	declarations   map[int64]*domain.AvailabilityDeclaration
	schedules      map[domain.ScheduleKey]*domain.OperationalSchedule
	logs           []*domain.SyncLogEntry
	nextScheduleID int64
	failUpsert     error
}

func newMemStore() *memStore {
	return &memStore{
		declarations: make(map[int64]*domain.AvailabilityDeclaration),
		schedules:    make(map[domain.ScheduleKey]*domain.OperationalSchedule),
	}
}

func (s *memStore) WithinTx(ctx context.Context, readOnly bool, fn func(ctx context.Context) error) error {
	snapshot := make(map[domain.ScheduleKey]*domain.OperationalSchedule, len(s.schedules))
	for k, v := range s.schedules {
		snapshot[k] = cloneSchedule(v)
	}
	nextID, logCount := s.nextScheduleID, len(s.logs)

	if err := fn(ctx); err != nil {
		s.schedules, s.nextScheduleID, s.logs = snapshot, nextID, s.logs[:logCount]
		return err
	}
	return nil
}

func (s *memStore) GetDeclaration(ctx context.Context, id int64) (*domain.AvailabilityDeclaration, error) {
	d, ok := s.declarations[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *d
	cp.Shifts = slices.Clone(d.Shifts)
	return &cp, nil
}

func (s *memStore) GetScheduleByKey(ctx context.Context, key domain.ScheduleKey, forUpdate bool) (*domain.OperationalSchedule, error) {
	schedule, ok := s.schedules[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneSchedule(schedule), nil
}

func (s *memStore) CreateSchedule(ctx context.Context, schedule *domain.OperationalSchedule) error {
	s.nextScheduleID++
	schedule.ID = s.nextScheduleID
	schedule.CreatedAt = testNow
	schedule.UpdatedAt = testNow
	s.schedules[schedule.Key()] = cloneSchedule(schedule)
	return nil
}

func (s *memStore) UpsertScheduleDays(ctx context.Context, scheduleID int64, days []domain.ScheduleDayDetail) error {
	if s.failUpsert != nil {
		return s.failUpsert
	}
	stored := s.byID(scheduleID)
	for _, day := range days {
		stored.PutDay(day)
	}
	return nil
}

func (s *memStore) UpdateScheduleTotals(ctx context.Context, schedule *domain.OperationalSchedule) error {
	stored := s.byID(schedule.ID)
	stored.TotalShifts = schedule.TotalShifts
	stored.TotalHours = schedule.TotalHours
	stored.ValidShifts = schedule.ValidShifts
	return nil
}

func (s *memStore) InsertSyncLog(ctx context.Context, entry *domain.SyncLogEntry) error {
	entry.ID = int64(len(s.logs) + 1)
	cp := *entry
	s.logs = append(s.logs, &cp)
	return nil
}

func (s *memStore) byID(id int64) *domain.OperationalSchedule {
	for _, schedule := range s.schedules {
		if schedule.ID == id {
			return schedule
		}
	}
	panic("schedule not found")
}

func (s *memStore) onlySchedule(t *testing.T) *domain.OperationalSchedule {
	t.Helper()
	require.Len(t, s.schedules, 1)
	for _, schedule := range s.schedules {
		return schedule
	}
	return nil
}

func (s *memStore) lastLog(t *testing.T) *domain.SyncLogEntry {
	t.Helper()
	require.NotEmpty(t, s.logs)
	return s.logs[len(s.logs)-1]
}

func cloneSchedule(s *domain.OperationalSchedule) *domain.OperationalSchedule {
	cp := *s
	cp.Days = slices.Clone(s.Days)
	return &cp
}

type memReferences struct {
	regimes map[int64]*domain.LaborRegime
	areas   map[int64]int64
}

func (r *memReferences) LaborRegimeForProfessional(ctx context.Context, id int64) (*domain.LaborRegime, error) {
	regime, ok := r.regimes[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return regime, nil
}

func (r *memReferences) AreaForSpecialty(ctx context.Context, id int64) (int64, error) {
	area, ok := r.areas[id]
	if !ok {
		return 0, domain.ErrNotFound
	}
	return area, nil
}

func regime(t *testing.T, name string) *domain.LaborRegime {
	t.Helper()
	for _, r := range domain.DefaultLaborRegimes() {
		if r.Name == name {
			return r
		}
	}
	t.Fatalf("未知的劳动制度 %s", name)
	return nil
}

type fixture struct {
	store  *memStore
	refs   *memReferences
	engine *Engine
	regime *domain.LaborRegime
}

func newFixture(t *testing.T, regimeName string) *fixture {
	t.Helper()
	f := &fixture{
		store:  newMemStore(),
		regime: regime(t, regimeName),
	}
	f.refs = &memReferences{
		regimes: map[int64]*domain.LaborRegime{professionalID: f.regime},
		areas:   map[int64]int64{specialtyID: areaID},
	}
	f.engine = New(f.store, f.refs, Options{
		Now:      func() time.Time { return testNow },
		NewRunID: func() uuid.UUID { return testRunID },
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return f
}

// reviewedDeclaration 生成从 1 日起连续 days 天的 FULL 班次并完成审核
func (f *fixture) reviewedDeclaration(t *testing.T, id int64, period string, days int) *domain.AvailabilityDeclaration {
	t.Helper()
	d := f.submittedDeclaration(t, id, period, days)
	require.NoError(t, d.MarkReviewed(coordinatorID, testNow))
	return d
}

func (f *fixture) submittedDeclaration(t *testing.T, id int64, period string, days int) *domain.AvailabilityDeclaration {
	t.Helper()
	d, err := domain.NewAvailabilityDeclaration(domain.DeclarationParams{
		ProfessionalID: professionalID,
		SpecialtyID:    specialtyID,
		Period:         period,
	})
	require.NoError(t, err)
	d.ID = id

	first := d.Period.FirstDay()
	for i := 0; i < days; i++ {
		require.NoError(t, d.AddOrUpdateShift(domain.NewDate(first.Year, first.Month, first.Day+i), domain.ShiftFull, f.regime))
	}
	require.NoError(t, d.Submit(testNow))
	f.store.declarations[id] = d
	return d
}

func (f *fixture) sync(t *testing.T, id int64, op domain.OperationKind, overwrite bool) *SyncResult {
	t.Helper()
	res, err := f.engine.Synchronize(context.Background(), SyncRequest{
		DeclarationID: id,
		Operation:     op,
		Overwrite:     overwrite,
		ExecutedBy:    coordinatorID,
	})
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func assertHours(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Equal(t, want, got.StringFixed(2))
}

func jan(day int) domain.Date {
	return domain.NewDate(2026, time.January, day)
}
