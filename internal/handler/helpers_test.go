package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/adlab/internal/metrics"
	"github.com/hitoshi/adlab/internal/middleware"
	"github.com/hitoshi/adlab/internal/model"
	"github.com/hitoshi/adlab/internal/session"
)

var testSessionSecret = []byte("test-session-secret-32bytes-long!")

func newTestCollector() *metrics.Collector {
	return metrics.NewCollector(prometheus.NewRegistry())
}

func newTestSessionManager() *session.Manager {
	return session.NewManager(session.NewCodec(testSessionSecret), session.ManagerConfig{
		MaxAge: 86400,
	})
}

func testSessionData() *session.Data {
	return &session.Data{
		User: session.User{
			ID:    "user-1",
			Email: "taro@example.com",
			Name:  "山田太郎",
		},
		AccessToken: "opaque-token",
		ExpiresAt:   time.Now().Add(time.Hour),
	}
}

// withSession はリクエストにセッションとユーザーIDを注入する。
// ミドルウェアを経由した状態を再現する。
func withSession(r *http.Request, data *session.Data) *http.Request {
	ctx := middleware.ContextWithSession(r.Context(), data)
	ctx = middleware.ContextWithUserID(ctx, data.User.ID)
	return r.WithContext(ctx)
}

func withUserID(r *http.Request, userID string) *http.Request {
	return r.WithContext(middleware.ContextWithUserID(r.Context(), userID))
}

// decodeAPIError はレスポンスボディを統一エラーフォーマットとして読み取る。
func decodeAPIError(t *testing.T, rec *httptest.ResponseRecorder) apiErrorResponse {
	t.Helper()
	var body apiErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return body
}

func decodeJSONMap(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	return body
}

func findSetCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	res := rec.Result()
	for _, c := range res.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// --- 共有モックリポジトリ ---

type mockUserRepo struct {
	findByIDFn           func(ctx context.Context, id string) (*model.User, error)
	findByEmailFn        func(ctx context.Context, email string) (*model.User, error)
	createFn             func(ctx context.Context, user *model.User) error
	createWithIdentityFn func(ctx context.Context, user *model.User, identity *model.Identity) error
	updatePasswordFn     func(ctx context.Context, userID, passwordHash string) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}

func (m *mockUserRepo) CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error {
	if m.createWithIdentityFn != nil {
		return m.createWithIdentityFn(ctx, user, identity)
	}
	return nil
}

func (m *mockUserRepo) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	if m.updatePasswordFn != nil {
		return m.updatePasswordFn(ctx, userID, passwordHash)
	}
	return nil
}

type mockIdentityRepo struct {
	findFn func(ctx context.Context, provider, providerUserID string) (*model.Identity, error)
}

func (m *mockIdentityRepo) FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error) {
	if m.findFn != nil {
		return m.findFn(ctx, provider, providerUserID)
	}
	return nil, nil
}
