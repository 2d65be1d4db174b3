package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/hitoshi/adlab/internal/metrics"
	"github.com/hitoshi/adlab/internal/middleware"
	"github.com/hitoshi/adlab/internal/model"
	"github.com/hitoshi/adlab/internal/promo"
)

// PromoHandler はプロモーションコード引き換えのHTTPハンドラー。
type PromoHandler struct {
	service   *promo.Service
	collector metrics.MetricsCollector
}

// NewPromoHandler はPromoHandlerを生成する。
func NewPromoHandler(service *promo.Service, collector metrics.MetricsCollector) *PromoHandler {
	return &PromoHandler{service: service, collector: collector}
}

// activateRequest はコード引き換えリクエストのボディ。
type activateRequest struct {
	Code string `json:"code"`
}

// activationResponse は引き換え結果のAPIレスポンス。
type activationResponse struct {
	ActivatedAt time.Time `json:"activatedAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// Activate はプロモーションコードを引き換える。
// POST /api/promo/activate
func (h *PromoHandler) Activate(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req activateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	activation, err := h.service.Activate(r.Context(), userID, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, promo.ErrCodeInvalid):
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewPromoInvalidError())
		case errors.Is(err, promo.ErrCodeExhausted):
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewPromoExhaustedError())
		case errors.Is(err, promo.ErrAlreadyActive):
			writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
				Code:     "PROMO_ALREADY_ACTIVE",
				Message:  "既に有効なプロモーション特典があります。",
				Category: "promo",
				Action:   "現在の特典の期限が切れてから再度お試しください。",
			})
		default:
			handleServiceError(w, err)
		}
		return
	}

	h.collector.RecordPromoActivation()
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"success": true,
		"data": activationResponse{
			ActivatedAt: activation.ActivatedAt,
			ExpiresAt:   activation.ExpiresAt,
		},
	})
}
