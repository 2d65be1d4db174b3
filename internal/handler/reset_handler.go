package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/adlab/internal/metrics"
	"github.com/hitoshi/adlab/internal/model"
	"github.com/hitoshi/adlab/internal/reset"
)

// resetCodeLength は再設定コードの桁数。
const resetCodeLength = 6

// ResetHandler はパスワード再設定フローのHTTPハンドラー。
type ResetHandler struct {
	service   *reset.Service
	collector metrics.MetricsCollector
}

// NewResetHandler はResetHandlerを生成する。
func NewResetHandler(service *reset.Service, collector metrics.MetricsCollector) *ResetHandler {
	return &ResetHandler{service: service, collector: collector}
}

// requestResetRequest は再設定開始リクエストのボディ。
// localeはメール文面の言語選択用に受理するが、現状は日本語のみ対応。
type requestResetRequest struct {
	Email  string `json:"email"`
	Locale string `json:"locale"`
}

// validateTokenRequest はリンクトークン検証リクエストのボディ。
type validateTokenRequest struct {
	Token string `json:"token"`
}

// verifyCodeRequest はコード検証リクエストのボディ。
type verifyCodeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// confirmRequest はパスワード更新リクエストのボディ。
type confirmRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"newPassword"`
}

// Request はパスワード再設定を開始する。
// POST /api/auth/reset-password
// メールアドレスの存在有無に関わらず同一の成功レスポンスを返す。
func (h *ResetHandler) Request(w http.ResponseWriter, r *http.Request) {
	var req requestResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !isValidEmailShape(email) {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("メールアドレスの形式が正しくありません"))
		return
	}

	if err := h.service.Request(r.Context(), email); err != nil {
		// 内部エラーも成功として返すと障害に気づけないため、500は区別する
		slog.Error("reset request failed", slog.String("error", err.Error()))
		handleServiceError(w, err)
		return
	}

	h.collector.RecordResetRequest()
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"success": true,
	})
}

// ValidateToken はメールリンクのトークンを検証する。読み取り専用。
// POST /api/auth/reset-password/validate
func (h *ResetHandler) ValidateToken(w http.ResponseWriter, r *http.Request) {
	var req validateTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	if req.Token == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("トークンは必須です"))
		return
	}

	if err := h.service.ValidateLinkToken(r.Context(), req.Token); err != nil {
		writeResetError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{
		"success": true,
	})
}

// VerifyCode はメールアドレスとコードの組を検証する。読み取り専用。
// POST /api/auth/reset-password/verify-code
func (h *ResetHandler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var req verifyCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	code := strings.TrimSpace(req.Code)

	// コードは常にゼロパディングされた6桁。桁数不一致はストレージを見ずに弾く
	if email == "" || len(code) != resetCodeLength {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewResetNotFoundError())
		return
	}

	if err := h.service.Validate(r.Context(), email, code); err != nil {
		writeResetError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{
		"success": true,
	})
}

// Confirm はコードを引き換えて新しいパスワードを設定する。
// POST /api/auth/reset-password/confirm
func (h *ResetHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	code := strings.TrimSpace(req.Code)

	if email == "" || len(code) != resetCodeLength {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewResetNotFoundError())
		return
	}

	if len(req.NewPassword) < passwordMinLength {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("パスワードは8文字以上で入力してください"))
		return
	}

	if err := h.service.Confirm(r.Context(), email, code, req.NewPassword); err != nil {
		writeResetError(w, err)
		return
	}

	h.collector.RecordResetRedemption()
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"success": true,
	})
}

// writeResetError は再設定フローのエラーをHTTPレスポンスに変換する。
// NotFound・Expired・AlreadyUsedはいずれも400で、理由コードのみ区別する。
func writeResetError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, reset.ErrExpired):
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewResetExpiredError())
	case errors.Is(err, reset.ErrAlreadyUsed):
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewResetUsedError())
	case errors.Is(err, reset.ErrNotFound), errors.Is(err, reset.ErrInvalidLinkToken):
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewResetNotFoundError())
	default:
		handleServiceError(w, err)
	}
}
