package synchronizer

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/telesalud/shift-sync/backend/internal/domain"
)

// Store 是引擎所需的持久化能力，WithinTx 把事务放在 ctx 中传给 fn
type Store interface {
	WithinTx(ctx context.Context, readOnly bool, fn func(ctx context.Context) error) error
	GetDeclaration(ctx context.Context, id int64) (*domain.AvailabilityDeclaration, error)
	GetScheduleByKey(ctx context.Context, key domain.ScheduleKey, forUpdate bool) (*domain.OperationalSchedule, error)
	CreateSchedule(ctx context.Context, schedule *domain.OperationalSchedule) error
	UpsertScheduleDays(ctx context.Context, scheduleID int64, days []domain.ScheduleDayDetail) error
	UpdateScheduleTotals(ctx context.Context, schedule *domain.OperationalSchedule) error
	InsertSyncLog(ctx context.Context, entry *domain.SyncLogEntry) error
}

// References 是只读的参考数据查询
type References interface {
	LaborRegimeForProfessional(ctx context.Context, professionalID int64) (*domain.LaborRegime, error)
	AreaForSpecialty(ctx context.Context, specialtyID int64) (int64, error)
}

type Options struct {
	ConsistencyThreshold decimal.Decimal // 默认 10.00 小时
	Now                  func() time.Time
	NewRunID             func() uuid.UUID
	Logger               *slog.Logger
}

type SyncRequest struct {
	DeclarationID int64
	Operation     domain.OperationKind
	Overwrite     bool
	Filter        *domain.SyncFilter
	ExecutedBy    int64
}

type SyncResult struct {
	RunID         uuid.UUID            `json:"runID"`
	LogID         int64                `json:"logID"`
	DeclarationID int64                `json:"declarationID"`
	ScheduleID    *int64               `json:"scheduleID"`
	Operation     domain.OperationKind `json:"operationKind"`
	Result        domain.SyncOutcome   `json:"result"`
	CountsSynced  int                  `json:"countsSynced"`
	CountsWritten int                  `json:"countsWritten"` // 实际改写的明细数，未变化的天不会重写
	CountsSkipped int                  `json:"countsSkipped"`
	CountsFailed  int                  `json:"countsFailed"`
	UpdatedDates  []domain.Date        `json:"updatedDates"`
	SkippedDates  []domain.Date        `json:"skippedDates"`
	Errors        []domain.DayError    `json:"errors"`
	Warnings      []string             `json:"warnings"`
	Summary       string               `json:"summary"`
}

type Classification string

const (
	NoScheduleLoaded      Classification = "NO_SCHEDULE_LOADED"
	Consistent            Classification = "CONSISTENT"
	SignificantDifference Classification = "SIGNIFICANT_DIFFERENCE"
)

type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
)

type DiscrepancyType string

const (
	MissingInSchedule    DiscrepancyType = "MISSING_IN_SCHEDULE"
	MissingInDeclaration DiscrepancyType = "MISSING_IN_DECLARATION"
	HoursMismatch        DiscrepancyType = "HOURS_MISMATCH"
	KindMismatch         DiscrepancyType = "KIND_MISMATCH"
)

const (
	ActionResynchronize = "resynchronize"
	ActionManualReview  = "manual review"
)

type Discrepancy struct {
	Date            domain.Date       `json:"date"`
	Type            DiscrepancyType   `json:"type"`
	DeclaredKind    *domain.ShiftKind `json:"declaredKind,omitempty"`
	ScheduledKind   *domain.ShiftKind `json:"scheduledKind,omitempty"`
	DeclaredHours   decimal.Decimal   `json:"declaredHours"`
	ScheduledHours  decimal.Decimal   `json:"scheduledHours"`
	DeltaHours      decimal.Decimal   `json:"deltaHours"`
	Severity        Severity          `json:"severity"`
	SuggestedAction string            `json:"suggestedAction"`
}

type ConsistencyReport struct {
	DeclarationID    int64           `json:"declarationID"`
	ScheduleID       *int64          `json:"scheduleID"`
	Classification   Classification  `json:"classification"`
	DeclaredHours    decimal.Decimal `json:"declaredHours"`
	SyncedHours      decimal.Decimal `json:"syncedHours"`
	DiffHours        decimal.Decimal `json:"diffHours"`
	DiffPercent      decimal.Decimal `json:"diffPercent"`
	Discrepancies    []Discrepancy   `json:"discrepancies"`
	RecommendsResync bool            `json:"recommendsResync"`
}
