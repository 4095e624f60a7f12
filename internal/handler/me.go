package handler

import (
	"net/http"

	"github.com/telesalud/shift-sync/backend/internal/domain"
)

func (h *Handler) GetMyInfo(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)
	h.successResponse(w, r, "获取个人信息成功", myInfo)
}

func (h *Handler) GetAllLaborRegimes(w http.ResponseWriter, r *http.Request) {
	regimes, err := h.repository.ListLaborRegimes(r.Context())
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取劳动制度成功", regimes)
}
