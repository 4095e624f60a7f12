package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/telesalud/shift-sync/backend/internal/domain"
	"github.com/telesalud/shift-sync/backend/internal/repository"
)

func (h *Handler) CreateDeclaration(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)
	if myInfo.ProfessionalID == nil {
		h.errorResponse(w, r, "该账号没有关联医务人员档案")
		return
	}

	var req struct {
		SpecialtyID int64  `json:"specialtyID" validate:"required,gt=0"`
		Period      string `json:"period" validate:"required,len=6,numeric"`
		Notes       string `json:"notes" validate:"max=500"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if _, err := h.repository.GetSpecialty(r.Context(), req.SpecialtyID); err != nil {
		h.domainError(w, r, err, "专科不存在")
		return
	}

	decl, err := domain.NewAvailabilityDeclaration(domain.DeclarationParams{
		ProfessionalID: *myInfo.ProfessionalID,
		SpecialtyID:    req.SpecialtyID,
		Period:         req.Period,
		RequiredHours:  h.config.Declaration.RequiredHours,
		Notes:          req.Notes,
	})
	if err != nil {
		h.domainError(w, r, err, "")
		return
	}

	if err := h.repository.CreateDeclaration(r.Context(), decl); err != nil {
		h.domainError(w, r, err, "")
		return
	}

	h.successResponse(w, r, "创建申报成功", decl)
}

// GetAllDeclarations 只返回申报头信息，医务人员只能看到自己的申报
func (h *Handler) GetAllDeclarations(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)
	query := r.URL.Query()

	filter := repository.DeclarationFilter{}

	if s := query.Get("period"); s != "" {
		period, err := domain.ParsePeriod(s)
		if err != nil {
			h.domainError(w, r, err, "")
			return
		}
		filter.Period = &period
	}

	switch {
	case myInfo.IsCoordinator():
		if s := query.Get("professionalID"); s != "" {
			professionalID, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				h.errorResponse(w, r, "医务人员ID无效")
				return
			}
			filter.ProfessionalID = &professionalID
		}
	case myInfo.ProfessionalID != nil:
		filter.ProfessionalID = myInfo.ProfessionalID
	default:
		h.successResponse(w, r, "获取申报成功", []*domain.AvailabilityDeclaration{})
		return
	}

	declarations, err := h.repository.ListDeclarations(r.Context(), filter)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取申报成功", declarations)
}

func (h *Handler) GetDeclaration(w http.ResponseWriter, r *http.Request) {
	decl := r.Context().Value(DeclarationCtx).(*domain.AvailabilityDeclaration)
	h.successResponse(w, r, "获取申报成功", decl)
}

func (h *Handler) PutShift(w http.ResponseWriter, r *http.Request) {
	decl := r.Context().Value(DeclarationCtx).(*domain.AvailabilityDeclaration)

	var req struct {
		Date string `json:"date" validate:"required"`
		Kind string `json:"kind" validate:"required,oneof=MORNING AFTERNOON FULL"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	date, err := domain.ParseDate(req.Date)
	if err != nil {
		h.domainError(w, r, err, "")
		return
	}
	kind, err := domain.ParseShiftKind(req.Kind)
	if err != nil {
		h.domainError(w, r, err, "")
		return
	}

	regime, err := h.references.LaborRegimeForProfessional(r.Context(), decl.ProfessionalID)
	if err != nil {
		h.domainError(w, r, err, "医务人员没有配置劳动制度")
		return
	}

	if err := decl.AddOrUpdateShift(date, kind, regime); err != nil {
		h.domainError(w, r, err, "")
		return
	}

	if err := h.repository.SaveDeclaration(r.Context(), decl); err != nil {
		h.domainError(w, r, err, "申报不存在")
		return
	}

	h.successResponse(w, r, "保存班次成功", decl)
}

func (h *Handler) DeleteShift(w http.ResponseWriter, r *http.Request) {
	decl := r.Context().Value(DeclarationCtx).(*domain.AvailabilityDeclaration)

	date, err := domain.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		h.domainError(w, r, err, "")
		return
	}

	if err := decl.RemoveShift(date); err != nil {
		h.domainError(w, r, err, "")
		return
	}

	if err := h.repository.SaveDeclaration(r.Context(), decl); err != nil {
		h.domainError(w, r, err, "申报不存在")
		return
	}

	h.successResponse(w, r, "删除班次成功", decl)
}

func (h *Handler) SubmitDeclaration(w http.ResponseWriter, r *http.Request) {
	decl := r.Context().Value(DeclarationCtx).(*domain.AvailabilityDeclaration)

	if err := decl.Submit(time.Now()); err != nil {
		h.domainError(w, r, err, "")
		return
	}

	if err := h.repository.SaveDeclaration(r.Context(), decl); err != nil {
		h.domainError(w, r, err, "申报不存在")
		return
	}

	h.successResponse(w, r, "提交申报成功", decl)
}

func (h *Handler) ReviewDeclaration(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)
	decl := r.Context().Value(DeclarationCtx).(*domain.AvailabilityDeclaration)

	if err := decl.MarkReviewed(myInfo.ID, time.Now()); err != nil {
		h.domainError(w, r, err, "")
		return
	}

	if err := h.repository.SaveDeclaration(r.Context(), decl); err != nil {
		h.domainError(w, r, err, "申报不存在")
		return
	}

	h.notifyDeclarationReviewed(r.Context(), decl)

	h.successResponse(w, r, "审核申报成功", decl)
}

func (h *Handler) AdjustShift(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)
	decl := r.Context().Value(DeclarationCtx).(*domain.AvailabilityDeclaration)

	var req struct {
		Date  string           `json:"date" validate:"required"`
		Kind  string           `json:"kind" validate:"required,oneof=MORNING AFTERNOON FULL"`
		Note  string           `json:"note" validate:"required,max=500"`
		Hours *decimal.Decimal `json:"hours"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	date, err := domain.ParseDate(req.Date)
	if err != nil {
		h.domainError(w, r, err, "")
		return
	}
	kind, err := domain.ParseShiftKind(req.Kind)
	if err != nil {
		h.domainError(w, r, err, "")
		return
	}

	regime, err := h.references.LaborRegimeForProfessional(r.Context(), decl.ProfessionalID)
	if err != nil {
		h.domainError(w, r, err, "医务人员没有配置劳动制度")
		return
	}

	previous, _ := decl.Shift(date)

	adj := domain.Adjustment{
		Date:  date,
		Kind:  kind,
		Note:  req.Note,
		By:    myInfo.ID,
		Hours: req.Hours,
	}
	if err := decl.AdjustShift(adj, regime); err != nil {
		h.domainError(w, r, err, "")
		return
	}

	if err := h.repository.SaveDeclaration(r.Context(), decl); err != nil {
		switch {
		case errors.Is(err, domain.ErrVersionConflict):
			h.errorResponse(w, r, "申报已被他人修改，请刷新后重试")
		default:
			h.domainError(w, r, err, "申报不存在")
		}
		return
	}

	slog.Info("协调员调整了班次", "declaration", decl.ID, "date", date.String(),
		"from", previous.Kind.String(), "to", kind.String(), "by", myInfo.ID)

	h.successResponse(w, r, "调整班次成功", decl)
}
