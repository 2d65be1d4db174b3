package handler

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"unicode"

	"github.com/hitoshi/adlab/internal/auth"
	"github.com/hitoshi/adlab/internal/metrics"
	"github.com/hitoshi/adlab/internal/middleware"
	"github.com/hitoshi/adlab/internal/model"
	"github.com/hitoshi/adlab/internal/session"
)

const oauthStateCookie = "oauth_state"

// passwordMinLength はパスワードの最小文字数。
const passwordMinLength = 8

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	BaseURL      string
	CookieSecure bool
}

// AuthHandler はローカル認証・OAuth・セッション管理のHTTPハンドラー。
type AuthHandler struct {
	service   *auth.Service
	sessions  *session.Manager
	collector metrics.MetricsCollector
	config    AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(
	service *auth.Service,
	sessions *session.Manager,
	collector metrics.MetricsCollector,
	config AuthHandlerConfig,
) *AuthHandler {
	return &AuthHandler{
		service:   service,
		sessions:  sessions,
		collector: collector,
		config:    config,
	}
}

// loginRequest はログインリクエストのボディ。
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// registerRequest はユーザー登録リクエストのボディ。
type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// userResponse はユーザー情報のAPIレスポンス。
type userResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

func toUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		AvatarURL: u.AvatarURL,
	}
}

// Login はローカルログインを処理する。
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	if req.Email == "" || req.Password == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("メールアドレスとパスワードは必須です"))
		return
	}

	// 登録時と同じ正規化を通し、大文字小文字の揺れでログインを落とさない
	user, err := h.service.Login(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)), req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			h.collector.RecordLoginFailure("local")
			writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewInvalidCredentialsError())
			return
		}
		handleServiceError(w, err)
		return
	}

	if err := h.establishSession(w, user, nil); err != nil {
		handleServiceError(w, err)
		return
	}

	h.collector.RecordLoginSuccess("local")
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"message": "ログインしました。",
		"user":    toUserResponse(user),
	})
}

// Register はローカルユーザー登録を処理する。
// POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	if reason := validateRegistration(req); reason != "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError(reason))
		return
	}

	user, err := h.service.Register(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)), req.Password, strings.TrimSpace(req.Name))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if err := h.establishSession(w, user, nil); err != nil {
		handleServiceError(w, err)
		return
	}

	h.collector.RecordRegistration()
	writeJSONResponse(w, http.StatusCreated, map[string]any{
		"success": true,
		"user":    toUserResponse(user),
	})
}

// Logout はセッションを破棄する。冪等であり、セッション不在でも成功する。
// GET/POST /api/auth/logout
// GETはブラウザナビゲーション用にトップへリダイレクトし、POSTはJSONを返す。
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Destroy(w)

	if r.Method == http.MethodGet {
		http.Redirect(w, r, h.config.BaseURL, http.StatusTemporaryRedirect)
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{
		"success": true,
	})
}

// Session は現在のセッション情報を返す。
// GET /api/auth/session
// セッション不在・復号失敗のいずれでも200で{user:null}を返し、
// 認証エラーを表面化させない。
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	data := middleware.SessionFromContext(r.Context())
	if data == nil {
		writeJSONResponse(w, http.StatusOK, map[string]any{
			"user": nil,
		})
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{
		"user": userResponse{
			ID:        data.User.ID,
			Email:     data.User.Email,
			Name:      data.User.Name,
			AvatarURL: data.User.AvatarURL,
		},
		"expiresAt": data.ExpiresAt.Unix(),
	})
}

// Refresh はセッションのアクセストークンと有効期限を更新する。
// POST /api/auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	data := middleware.SessionFromContext(r.Context())
	if data == nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	refreshed, err := h.service.RefreshSession(r.Context(), data)
	if err != nil {
		slog.Warn("session refresh failed",
			slog.String("user_id", data.User.ID),
			slog.String("error", err.Error()),
		)
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	if err := h.sessions.Create(w, refreshed); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{
		"success":   true,
		"expiresAt": refreshed.ExpiresAt.Unix(),
	})
}

// GoogleLogin はGoogle OAuthフローを開始する。
// GET /api/auth/google/login
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	state, err := generateState()
	if err != nil {
		slog.Error("failed to generate oauth state", slog.String("error", err.Error()))
		writeAPIErrorResponse(w, http.StatusInternalServerError, model.NewValidationError("内部エラー"))
		return
	}

	// stateをCookieに保存（CSRF対策）
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10分
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.service.GetLoginURL(state), http.StatusTemporaryRedirect)
}

// GoogleCallback はOAuthコールバックを処理する。
// GET /api/auth/google/callback?code=xxx&state=yyy
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	// 1. stateの検証（CSRF対策）
	state := r.URL.Query().Get("state")
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != state {
		slog.Warn("oauth state mismatch",
			slog.String("query_state", state),
		)
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("stateパラメータが不正です"))
		return
	}

	// stateクッキーを削除
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	// 2. 認可コードの取得
	code := r.URL.Query().Get("code")
	if code == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("認可コードがありません"))
		return
	}

	// 3. 認証処理とセッション確立
	user, token, err := h.service.HandleCallback(r.Context(), code)
	if err != nil {
		slog.Error("oauth callback failed", slog.String("error", err.Error()))
		h.collector.RecordLoginFailure("google")
		writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
			Code:     "OAUTH_FAILED",
			Message:  "Google認証に失敗しました。",
			Category: "auth",
			Action:   "再度ログインをお試しください。",
		})
		return
	}

	if err := h.establishSession(w, user, token); err != nil {
		handleServiceError(w, err)
		return
	}

	h.collector.RecordLoginSuccess("google")

	// 4. アプリケーションにリダイレクト
	http.Redirect(w, r, h.config.BaseURL, http.StatusTemporaryRedirect)
}

// establishSession はユーザーのセッションデータを組み立ててCookieを設定する。
func (h *AuthHandler) establishSession(w http.ResponseWriter, user *model.User, token *auth.OAuthToken) error {
	data, err := h.service.SessionDataFor(user, token)
	if err != nil {
		return err
	}
	return h.sessions.Create(w, data)
}

// validateRegistration は登録入力を検証し、不備があれば理由を返す。
func validateRegistration(req registerRequest) string {
	email := strings.TrimSpace(req.Email)
	if email == "" || !isValidEmailShape(email) {
		return "メールアドレスの形式が正しくありません"
	}
	if strings.TrimSpace(req.Name) == "" {
		return "名前は必須です"
	}
	if len(req.Password) < passwordMinLength {
		return "パスワードは8文字以上で入力してください"
	}
	var hasLetter, hasDigit bool
	for _, c := range req.Password {
		switch {
		case unicode.IsLetter(c):
			hasLetter = true
		case unicode.IsDigit(c):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return "パスワードには英字と数字の両方を含めてください"
	}
	return ""
}

// isValidEmailShape はメールアドレスの形状を簡易検証する。
// 厳密なRFC検証は行わず、明らかな入力ミスのみ弾く。
func isValidEmailShape(email string) bool {
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return false
	}
	domain := email[at+1:]
	return strings.Contains(domain, ".") && !strings.ContainsAny(email, " \t")
}

// generateState はCSRF対策用のランダムなstate値を生成する。
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
