package handler

import (
	"errors"
	"net/http"

	"github.com/telesalud/shift-sync/backend/internal/domain"
	"github.com/telesalud/shift-sync/backend/internal/synchronizer"
)

func (h *Handler) Synchronize(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)
	decl := r.Context().Value(DeclarationCtx).(*domain.AvailabilityDeclaration)

	var req struct {
		Operation  string   `json:"operation" validate:"required,oneof=CREATE UPDATE"`
		Overwrite  bool     `json:"overwrite"`
		Dates      []string `json:"dates" validate:"omitempty,dive,required"`
		ShiftKinds []string `json:"shiftKinds" validate:"omitempty,dive,oneof=MORNING AFTERNOON FULL"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	operation, err := domain.ParseOperationKind(req.Operation)
	if err != nil {
		h.domainError(w, r, err, "")
		return
	}

	var filter *domain.SyncFilter
	if len(req.Dates) > 0 || len(req.ShiftKinds) > 0 {
		filter = &domain.SyncFilter{}
		for _, s := range req.Dates {
			date, err := domain.ParseDate(s)
			if err != nil {
				h.domainError(w, r, err, "")
				return
			}
			filter.Dates = append(filter.Dates, date)
		}
		for _, s := range req.ShiftKinds {
			kind, err := domain.ParseShiftKind(s)
			if err != nil {
				h.domainError(w, r, err, "")
				return
			}
			filter.ShiftKinds = append(filter.ShiftKinds, kind)
		}
	}

	result, err := h.engine.Synchronize(r.Context(), synchronizer.SyncRequest{
		DeclarationID: decl.ID,
		Operation:     operation,
		Overwrite:     req.Overwrite,
		Filter:        filter,
		ExecutedBy:    myInfo.ID,
	})
	if err != nil {
		var validationErr *domain.ValidationError
		if !errors.As(err, &validationErr) {
			h.notifySyncAborted(myInfo, decl, err)
		}
		h.domainError(w, r, err, "申报不存在")
		return
	}

	h.notifySyncReport(myInfo, decl, result)

	h.successResponse(w, r, "同步完成", result)
}

func (h *Handler) ValidateConsistency(w http.ResponseWriter, r *http.Request) {
	decl := r.Context().Value(DeclarationCtx).(*domain.AvailabilityDeclaration)

	report, err := h.engine.Validate(r.Context(), decl.ID)
	if err != nil {
		h.domainError(w, r, err, "申报不存在")
		return
	}

	h.successResponse(w, r, "一致性校验完成", report)
}

// GetOperationalSchedule 返回申报对应的排班表，尚未同步时 data 为空
func (h *Handler) GetOperationalSchedule(w http.ResponseWriter, r *http.Request) {
	decl := r.Context().Value(DeclarationCtx).(*domain.AvailabilityDeclaration)

	areaID, err := h.references.AreaForSpecialty(r.Context(), decl.SpecialtyID)
	if err != nil {
		h.domainError(w, r, err, "专科不存在")
		return
	}

	key := domain.ScheduleKey{
		Period:         decl.Period,
		ProfessionalID: decl.ProfessionalID,
		AreaID:         areaID,
	}
	schedule, err := h.repository.GetScheduleByKey(r.Context(), key, false)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			h.successResponse(w, r, "尚未同步排班表", nil)
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "获取排班表成功", schedule)
}
