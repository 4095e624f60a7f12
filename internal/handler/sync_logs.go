package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/telesalud/shift-sync/backend/internal/domain"
)

const maxSyncLogLimit = 500

// GetSyncLogs 支持 declarationID、from、to（RFC3339）、result、limit 查询参数
func (h *Handler) GetSyncLogs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := domain.SyncLogFilter{}

	if s := query.Get("declarationID"); s != "" {
		declarationID, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			h.errorResponse(w, r, "申报ID无效")
			return
		}
		filter.DeclarationID = &declarationID
	}

	if s := query.Get("from"); s != "" {
		from, err := time.Parse(time.RFC3339, s)
		if err != nil {
			h.errorResponse(w, r, "起始时间格式错误")
			return
		}
		filter.From = &from
	}

	if s := query.Get("to"); s != "" {
		to, err := time.Parse(time.RFC3339, s)
		if err != nil {
			h.errorResponse(w, r, "结束时间格式错误")
			return
		}
		filter.To = &to
	}

	if filter.From != nil && filter.To != nil && !filter.From.Before(*filter.To) {
		h.errorResponse(w, r, "起始时间必须早于结束时间")
		return
	}

	if s := query.Get("result"); s != "" {
		result, err := domain.ParseSyncOutcome(s)
		if err != nil {
			h.errorResponse(w, r, "同步结果只能是 SUCCESS、PARTIAL 或 FAILED")
			return
		}
		filter.Result = &result
	}

	if s := query.Get("limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil || limit <= 0 || limit > maxSyncLogLimit {
			h.errorResponse(w, r, "limit 必须在 1 到 500 之间")
			return
		}
		filter.Limit = limit
	}

	logs, err := h.repository.ListSyncLogs(r.Context(), filter)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取同步日志成功", logs)
}

func (h *Handler) GetSyncLog(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.errorResponse(w, r, "同步日志ID无效")
		return
	}

	entry, err := h.repository.GetSyncLog(r.Context(), id)
	if err != nil {
		h.domainError(w, r, err, "同步日志不存在")
		return
	}

	h.successResponse(w, r, "获取同步日志成功", entry)
}
