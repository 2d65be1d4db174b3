package middleware

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/adlab/internal/metrics"
	"github.com/hitoshi/adlab/internal/security"
)

func TestRecoveryMiddleware_PanicReturns500(t *testing.T) {
	mw := NewRecoveryMiddleware()

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/test", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	if !bytes.Contains(body, []byte("INTERNAL_ERROR")) {
		t.Errorf("body should use the unified error format, got %s", body)
	}
	if bytes.Contains(body, []byte("boom")) {
		t.Error("panic details must not leak into the response")
	}
}

func TestSecurityHeadersMiddleware_SetsAllHeaders(t *testing.T) {
	mw := NewSecurityHeadersMiddleware()

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	resp := w.Result()
	tests := []struct {
		header string
		want   string
	}{
		{"X-Content-Type-Options", "nosniff"},
		{"X-Frame-Options", "DENY"},
		{"Referrer-Policy", "strict-origin-when-cross-origin"},
		{"Permissions-Policy", "camera=(), microphone=(), geolocation=()"},
	}
	for _, tt := range tests {
		if got := resp.Header.Get(tt.header); got != tt.want {
			t.Errorf("%s = %q, want %q", tt.header, got, tt.want)
		}
	}
}

// フルチェーン（Recovery → SecurityHeaders → CORS → Logging → Session → CSRF）を
// 組み立てた状態で、認証済みの状態変更リクエストが通ることを検証する。
func TestMiddlewareChain_AuthenticatedPOST_PassesAllLayers(t *testing.T) {
	manager := newTestSessionManager()
	originGuard := security.NewOriginGuard([]string{"http://localhost:3000"}, false)
	csrfGuard := security.NewCSRFGuard(testCSRFSecret, 1*time.Hour)
	collector := metrics.NewCollector(prometheus.NewRegistry())

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	var capturedUserID string
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedUserID, _ = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	// ルーターと同じ順序で重ねる
	var handler http.Handler = final
	handler = NewCSRFMiddleware(originGuard, csrfGuard, collector)(handler)
	handler = NewSessionMiddleware(manager)(handler)
	handler = NewLoggingMiddleware(logger, collector)(handler)
	handler = NewCORSMiddleware([]string{"http://localhost:3000"})(handler)
	handler = NewSecurityHeadersMiddleware()(handler)
	handler = NewRecoveryMiddleware()(handler)

	csrfToken, err := csrfGuard.Issue("user-chain")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/promo/activate", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("X-CSRF-Token", csrfToken)
	req.AddCookie(sessionCookieFor(t, manager, "user-chain"))
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if capturedUserID != "user-chain" {
		t.Errorf("userID = %q, want user-chain", capturedUserID)
	}

	// 各レイヤーのヘッダーが揃っていること
	if resp.Header.Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers should be applied")
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
		t.Error("CORS headers should be applied")
	}
	if buf.Len() == 0 {
		t.Error("request should be logged")
	}
}

// セッションCookieのユーザーとCSRFトークンの束縛が食い違うとチェーン全体として403になる。
func TestMiddlewareChain_SessionAndCSRFBindingMismatch_Returns403(t *testing.T) {
	manager := newTestSessionManager()
	originGuard := security.NewOriginGuard([]string{"http://localhost:3000"}, false)
	csrfGuard := security.NewCSRFGuard(testCSRFSecret, 1*time.Hour)
	collector := metrics.NewCollector(prometheus.NewRegistry())

	var handler http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be reached")
	})
	handler = NewCSRFMiddleware(originGuard, csrfGuard, collector)(handler)
	handler = NewSessionMiddleware(manager)(handler)

	// anonymousトークンを認証済みセッションで使う
	csrfToken, err := csrfGuard.Issue("")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/promo/activate", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("X-CSRF-Token", csrfToken)
	req.AddCookie(sessionCookieFor(t, manager, "user-1"))
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Result().StatusCode)
	}
}
