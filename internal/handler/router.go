package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/adlab/internal/adcopy"
	"github.com/hitoshi/adlab/internal/auth"
	"github.com/hitoshi/adlab/internal/billing"
	"github.com/hitoshi/adlab/internal/metrics"
	"github.com/hitoshi/adlab/internal/middleware"
	"github.com/hitoshi/adlab/internal/promo"
	"github.com/hitoshi/adlab/internal/reset"
	"github.com/hitoshi/adlab/internal/security"
	"github.com/hitoshi/adlab/internal/session"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionManager *session.Manager
	OriginGuard    *security.OriginGuard
	CSRFGuard      *security.CSRFGuard
	RateLimiter    *middleware.RateLimiter
	AllowedOrigins []string
	Logger         *slog.Logger
	Collector      *metrics.Collector
	Gatherer       prometheus.Gatherer

	// サービス
	AuthService    *auth.Service
	ResetService   *reset.Service
	PromoService   *promo.Service
	BillingService *billing.Service
	AdCopyService  *adcopy.Service

	AuthConfig AuthHandlerConfig
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → Session → CSRF(Origin含む)
//
// 認証必須ルートにはさらにRequireSession → RateLimit(General)が重なる。
// ログイン・登録・再設定にはIP単位のRateLimit(Auth)を適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.AllowedOrigins))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.Collector))
	r.Use(middleware.NewSessionMiddleware(deps.SessionManager))
	r.Use(middleware.NewCSRFMiddleware(deps.OriginGuard, deps.CSRFGuard, deps.Collector))

	authHandler := NewAuthHandler(deps.AuthService, deps.SessionManager, deps.Collector, deps.AuthConfig)
	csrfHandler := NewCSRFHandler(deps.CSRFGuard)
	resetHandler := NewResetHandler(deps.ResetService, deps.Collector)
	promoHandler := NewPromoHandler(deps.PromoService, deps.Collector)
	billingHandler := NewBillingHandler(deps.BillingService)
	adcopyHandler := NewAdCopyHandler(deps.AdCopyService)

	// 死活監視
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Prometheusスクレイプ
	r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))

	// --- 認証不要のルート ---

	r.Get("/api/csrf-token", csrfHandler.Token)

	r.Route("/api/auth", func(r chi.Router) {
		// 認証系エンドポイントはIP単位のレート制限を適用
		authLimit := deps.RateLimiter.AuthMiddleware()

		r.With(authLimit).Post("/login", authHandler.Login)
		r.With(authLimit).Post("/register", authHandler.Register)

		r.Get("/logout", authHandler.Logout)
		r.Post("/logout", authHandler.Logout)
		r.Get("/session", authHandler.Session)
		r.Post("/refresh", authHandler.Refresh)

		// Google OAuthフロー
		r.Get("/google/login", authHandler.GoogleLogin)
		r.Get("/google/callback", authHandler.GoogleCallback)

		// パスワード再設定フロー
		r.Route("/reset-password", func(r chi.Router) {
			r.Use(authLimit)
			r.Post("/", resetHandler.Request)
			r.Post("/validate", resetHandler.ValidateToken)
			r.Post("/verify-code", resetHandler.VerifyCode)
			r.Post("/confirm", resetHandler.Confirm)
		})
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: RequireSession → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireSession())
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// プロモーションコード
		r.Post("/api/promo/activate", promoHandler.Activate)

		// アクセス状態
		r.Get("/api/billing/status", billingHandler.Status)

		// 広告コピー文書
		r.Route("/api/adcopy", func(r chi.Router) {
			r.Get("/", adcopyHandler.List)
			r.Post("/", adcopyHandler.Create)
			r.Post("/generate", adcopyHandler.Generate)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", adcopyHandler.Get)
				r.Put("/", adcopyHandler.Update)
				r.Delete("/", adcopyHandler.Delete)
			})
		})
	})

	return r
}
