package handler

import (
	"net/http"
	"time"

	"github.com/hitoshi/adlab/internal/billing"
	"github.com/hitoshi/adlab/internal/middleware"
	"github.com/hitoshi/adlab/internal/model"
)

// BillingHandler はアクセス状態参照のHTTPハンドラー。
type BillingHandler struct {
	service *billing.Service
}

// NewBillingHandler はBillingHandlerを生成する。
func NewBillingHandler(service *billing.Service) *BillingHandler {
	return &BillingHandler{service: service}
}

// accessStatusResponse はアクセス状態のAPIレスポンス。
type accessStatusResponse struct {
	Plan        string     `json:"plan"`
	Status      string     `json:"status"`
	AccessUntil *time.Time `json:"accessUntil,omitempty"`
	Source      string     `json:"source"`
}

// Status は利用者の現在のアクセス状態を返す。
// GET /api/billing/status
func (h *BillingHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	status, err := h.service.Status(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, accessStatusResponse{
		Plan:        status.Plan,
		Status:      status.Status,
		AccessUntil: status.AccessUntil,
		Source:      string(status.Source),
	})
}
