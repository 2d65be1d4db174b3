package handler

import (
	"log/slog"
	"net/http"

	"github.com/hitoshi/adlab/internal/middleware"
	"github.com/hitoshi/adlab/internal/model"
	"github.com/hitoshi/adlab/internal/security"
)

// CSRFHandler はCSRFトークン発行のHTTPハンドラー。
type CSRFHandler struct {
	guard *security.CSRFGuard
}

// NewCSRFHandler はCSRFHandlerを生成する。
func NewCSRFHandler(guard *security.CSRFGuard) *CSRFHandler {
	return &CSRFHandler{guard: guard}
}

// Token は現在のセッションに束縛されたCSRFトークンを発行する。
// GET /api/csrf-token
// 未認証の場合はセンチネル"anonymous"に束縛されたトークンを発行する。
func (h *CSRFHandler) Token(w http.ResponseWriter, r *http.Request) {
	sessionID := ""
	if data := middleware.SessionFromContext(r.Context()); data != nil {
		sessionID = data.User.ID
	}

	token, err := h.guard.Issue(sessionID)
	if err != nil {
		slog.Error("failed to issue csrf token", slog.String("error", err.Error()))
		writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
			Code:     "INTERNAL_ERROR",
			Message:  "内部エラーが発生しました。",
			Category: "system",
			Action:   "しばらく待ってから再度お試しください。",
		})
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]string{
		"csrfToken": token,
	})
}
