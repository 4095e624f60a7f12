package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/telesalud/shift-sync/backend/internal/config"
	"github.com/telesalud/shift-sync/backend/internal/domain"
)

type Repository struct {
	cfg    *config.Config
	dbpool *sql.DB
}

func NewRepository(cfg *config.Config, dbpool *sql.DB) *Repository {
	return &Repository{
		cfg:    cfg,
		dbpool: dbpool,
	}
}

type txKey struct{}

// querier 是 *sql.DB 与 *sql.Tx 的公共部分
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn 优先使用 ctx 中的事务
func (r *Repository) conn(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return r.dbpool
}

func (r *Repository) queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
}

// WithinTx 在一个事务中执行 fn，fn 返回错误时回滚
// 嵌套调用直接复用外层事务
func (r *Repository) WithinTx(ctx context.Context, readOnly bool, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, &sql.TxOptions{ReadOnly: readOnly})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return mapError(err)
	}

	return nil
}

// 数据库唯一约束与领域错误的对应关系
var constraintErrors = map[string]error{
	"availability_declarations_professional_period_specialty_key": domain.ErrDuplicateDeclaration,
	"operational_schedules_period_professional_area_key":          domain.ErrConcurrentSync,
	"schedule_day_details_schedule_id_date_key":                   domain.ErrConcurrentSync,
	"users_username_key":                                          domain.ErrDuplicateUser,
	"users_email_key":                                             domain.ErrDuplicateUser,
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if target, ok := constraintErrors[pgErr.ConstraintName]; ok {
			return fmt.Errorf("%w: %s", target, pgErr.Message)
		}
	}

	return err
}
