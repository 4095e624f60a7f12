package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/telesalud/shift-sync/backend/internal/domain"
)

const defaultSyncLogLimit = 100

const syncLogColumns = `
	id,
	run_id,
	declaration_id,
	schedule_id,
	operation_kind,
	result,
	detail,
	executed_by,
	created_at
`

// InsertSyncLog 只追加，日志表没有更新和删除的入口
func (r *Repository) InsertSyncLog(ctx context.Context, entry *domain.SyncLogEntry) error {
	detail, err := json.Marshal(entry.Detail)
	if err != nil {
		return fmt.Errorf("无法序列化同步日志: %w", err)
	}

	query := `
		INSERT INTO sync_logs (
			run_id,
			declaration_id,
			schedule_id,
			operation_kind,
			result,
			detail,
			executed_by,
			created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	params := []any{
		entry.RunID,
		entry.DeclarationID,
		entry.ScheduleID,
		entry.Operation,
		entry.Result,
		detail,
		entry.ExecutedBy,
		entry.CreatedAt,
	}
	if err := r.conn(ctx).QueryRowContext(ctx, query, params...).Scan(&entry.ID); err != nil {
		return mapError(err)
	}

	return nil
}

func (r *Repository) GetSyncLog(ctx context.Context, id int64) (*domain.SyncLogEntry, error) {
	query := `SELECT ` + syncLogColumns + ` FROM sync_logs WHERE id = $1`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	entry, err := scanSyncLog(r.conn(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError(err)
	}

	return entry, nil
}

// ListSyncLogs 按时间倒序返回符合条件的日志
func (r *Repository) ListSyncLogs(ctx context.Context, filter domain.SyncLogFilter) ([]*domain.SyncLogEntry, error) {
	conditions := []string{}
	args := []any{}
	addCondition := func(cond string, arg any) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	if filter.DeclarationID != nil {
		addCondition("declaration_id = $%d", *filter.DeclarationID)
	}
	if filter.From != nil {
		addCondition("created_at >= $%d", *filter.From)
	}
	if filter.To != nil {
		addCondition("created_at < $%d", *filter.To)
	}
	if filter.Result != nil {
		addCondition("result = $%d", *filter.Result)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultSyncLogLimit
	}

	query := `SELECT ` + syncLogColumns + ` FROM sync_logs`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d", len(args))

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	rows, err := r.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []*domain.SyncLogEntry{}
	for rows.Next() {
		entry, err := scanSyncLog(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSyncLog(row rowScanner) (*domain.SyncLogEntry, error) {
	entry := &domain.SyncLogEntry{}
	var detail []byte
	dst := []any{
		&entry.ID,
		&entry.RunID,
		&entry.DeclarationID,
		&entry.ScheduleID,
		&entry.Operation,
		&entry.Result,
		&detail,
		&entry.ExecutedBy,
		&entry.CreatedAt,
	}
	if err := row.Scan(dst...); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(detail, &entry.Detail); err != nil {
		return nil, fmt.Errorf("无法解析同步日志 %d 的详情: %w", entry.ID, err)
	}

	return entry, nil
}
