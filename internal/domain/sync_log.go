package domain

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// SyncFilter 限定一次同步处理的日期和班次类型，为空表示不限
type SyncFilter struct {
	Dates      []Date      `json:"dates,omitempty"`
	ShiftKinds []ShiftKind `json:"shiftKinds,omitempty"`
}

func (f *SyncFilter) Empty() bool {
	return f == nil || (len(f.Dates) == 0 && len(f.ShiftKinds) == 0)
}

func (f *SyncFilter) Matches(shift ShiftDetail) bool {
	if f == nil {
		return true
	}
	if len(f.Dates) > 0 && !slices.Contains(f.Dates, shift.Date) {
		return false
	}
	if len(f.ShiftKinds) > 0 && !slices.Contains(f.ShiftKinds, shift.Kind) {
		return false
	}
	return true
}

// DayError 记录同步中某一天的映射错误
type DayError struct {
	Date    Date      `json:"date"`
	Kind    ShiftKind `json:"kind"`
	Message string    `json:"message"`
}

type SyncLogDetail struct {
	Overwrite     bool            `json:"overwrite"`
	Filter        *SyncFilter     `json:"filter,omitempty"`
	Regime        string          `json:"regime,omitempty"`
	Mapping       []RegimeMapping `json:"mapping,omitempty"`
	CountsSynced  int             `json:"countsSynced"`
	CountsWritten int             `json:"countsWritten"`
	CountsSkipped int             `json:"countsSkipped"`
	CountsFailed  int             `json:"countsFailed"`
	Errors        []DayError      `json:"errors"`
	Warnings      []string        `json:"warnings"`
	SystemError   string          `json:"systemError,omitempty"`
}

// SyncLogEntry 只追加，不允许修改或删除
type SyncLogEntry struct {
	ID            int64         `json:"id"`
	RunID         uuid.UUID     `json:"runID"`
	DeclarationID int64         `json:"declarationID"`
	ScheduleID    *int64        `json:"scheduleID"`
	Operation     OperationKind `json:"operation"`
	Result        SyncOutcome   `json:"result"`
	Detail        SyncLogDetail `json:"detail"`
	ExecutedBy    int64         `json:"executedBy"`
	CreatedAt     time.Time     `json:"createdAt"`
}

type SyncLogFilter struct {
	DeclarationID *int64
	From          *time.Time
	To            *time.Time
	Result        *SyncOutcome
	Limit         int
}
