package synchronizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/telesalud/shift-sync/backend/internal/domain"
)

// errRollback 表示逻辑结果为 FAILED，需要回滚本次事务但仍要返回结果
var errRollback = errors.New("同步结果为 FAILED，回滚事务")

type Engine struct {
	store     Store
	refs      References
	threshold decimal.Decimal
	now       func() time.Time
	newRunID  func() uuid.UUID
	logger    *slog.Logger
}

func New(store Store, refs References, opts Options) *Engine {
	e := &Engine{
		store:     store,
		refs:      refs,
		threshold: opts.ConsistencyThreshold,
		now:       opts.Now,
		newRunID:  opts.NewRunID,
		logger:    opts.Logger,
	}

	if e.threshold.IsZero() {
		e.threshold = decimal.NewFromInt(10)
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.newRunID == nil {
		e.newRunID = uuid.New
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}

	return e
}

/**
 * 将一份已审核的申报同步到排班表
 * 1. 状态、排班表已存在（CREATE 且未开启覆盖）、并发冲突、存储错误属于致命错误，
 *    事务整体回滚，返回 error，同时写入一条 FAILED 日志
 * 2. 所有选中的班次都无法写入时逻辑结果为 FAILED，事务回滚，但返回结果而不是 error
 * 3. 其余情况提交事务，日志与排班表在同一个事务中写入
 */
func (e *Engine) Synchronize(ctx context.Context, req SyncRequest) (*SyncResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	run := newSyncRun(e, req)

	err := e.store.WithinTx(ctx, false, func(ctx context.Context) error {
		if err := run.execute(ctx); err != nil {
			return err
		}
		if run.result.Result == domain.OutcomeFailed {
			return errRollback
		}
		return run.writeLog(ctx, "")
	})

	// 事务已经结束，失败日志需要脱离调用方的取消信号单独写入
	logCtx := context.WithoutCancel(ctx)

	switch {
	case err == nil:
		e.logger.Info("同步完成", run.logAttrs()...)
		return run.result, nil
	case errors.Is(err, errRollback):
		run.discardCreatedSchedule()
		if err := run.writeLog(logCtx, ""); err != nil {
			return nil, fmt.Errorf("写入同步日志失败: %w", err)
		}
		e.logger.Warn("同步失败，没有任何班次被写入", run.logAttrs()...)
		return run.result, nil
	default:
		run.abort()
		if logErr := run.writeLog(logCtx, err.Error()); logErr != nil {
			e.logger.Error("写入同步日志失败", "declaration", req.DeclarationID, "error", logErr)
			return nil, errors.Join(err, logErr)
		}
		e.logger.Error("同步中止", append(run.logAttrs(), "error", err)...)
		return nil, err
	}
}

func validateRequest(req SyncRequest) error {
	if req.DeclarationID <= 0 {
		return &domain.ValidationError{Field: "declarationID", Message: "必须指定申报"}
	}
	if !req.Operation.Valid() {
		return &domain.ValidationError{Field: "operation", Message: "操作类型必须是 CREATE 或 UPDATE"}
	}
	if req.ExecutedBy <= 0 {
		return &domain.ValidationError{Field: "executedBy", Message: "必须指定执行人"}
	}
	if req.Filter != nil {
		for _, kind := range req.Filter.ShiftKinds {
			if !kind.Valid() {
				return &domain.ValidationError{Field: "shiftKinds", Message: "存在未知的班次类型"}
			}
		}
	}
	return nil
}
