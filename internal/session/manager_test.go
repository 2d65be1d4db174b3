package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestManager() *Manager {
	codec := NewCodec(testSecret)
	return NewManager(codec, ManagerConfig{
		CookieSecure: false,
		MaxAge:       86400,
	})
}

// findCookie はレスポンスのSet-Cookieから指定名のCookieを探す。
// 複数ある場合は最初のものを返す。
func findCookie(t *testing.T, resp *http.Response, name string) *http.Cookie {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestManager_Create_SetsSessionCookie(t *testing.T) {
	m := newTestManager()
	w := httptest.NewRecorder()

	if err := m.Create(w, validData()); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	cookie := findCookie(t, w.Result(), CookieName)
	if cookie == nil {
		t.Fatal("expected session cookie to be set")
	}
	if cookie.Value == "" {
		t.Error("expected non-empty cookie value")
	}
	if !cookie.HttpOnly {
		t.Error("session cookie must be HttpOnly")
	}
	if cookie.SameSite != http.SameSiteLaxMode {
		t.Errorf("SameSite = %v, want Lax", cookie.SameSite)
	}
	if cookie.Path != "/" {
		t.Errorf("Path = %q, want /", cookie.Path)
	}
	if cookie.MaxAge != 86400 {
		t.Errorf("MaxAge = %d, want 86400", cookie.MaxAge)
	}
}

func TestManager_Create_WithSecureConfig_SetsSecureAttribute(t *testing.T) {
	codec := NewCodec(testSecret)
	m := NewManager(codec, ManagerConfig{CookieSecure: true, MaxAge: 86400})
	w := httptest.NewRecorder()

	if err := m.Create(w, validData()); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	cookie := findCookie(t, w.Result(), CookieName)
	if cookie == nil {
		t.Fatal("expected session cookie to be set")
	}
	if !cookie.Secure {
		t.Error("session cookie should be Secure in https configuration")
	}
}

// 再ログイン時には残存するlogout_flagを削除する。
func TestManager_Create_ClearsLogoutFlag(t *testing.T) {
	m := newTestManager()
	w := httptest.NewRecorder()

	if err := m.Create(w, validData()); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	flag := findCookie(t, w.Result(), LogoutFlagCookieName)
	if flag == nil {
		t.Fatal("expected logout_flag deletion to be issued")
	}
	if flag.MaxAge != -1 {
		t.Errorf("logout_flag MaxAge = %d, want -1 (deletion)", flag.MaxAge)
	}
}

func TestManager_Read_RoundTrip(t *testing.T) {
	m := newTestManager()
	w := httptest.NewRecorder()
	data := validData()

	if err := m.Create(w, data); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	cookie := findCookie(t, w.Result(), CookieName)

	r := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
	r.AddCookie(cookie)

	got := m.Read(httptest.NewRecorder(), r)
	if got == nil {
		t.Fatal("expected session to be read back")
	}
	if got.User != data.User {
		t.Errorf("User = %+v, want %+v", got.User, data.User)
	}
}

func TestManager_Read_NoCookie_ReturnsNil(t *testing.T) {
	m := newTestManager()
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	if got := m.Read(httptest.NewRecorder(), r); got != nil {
		t.Errorf("expected nil session, got %+v", got)
	}
}

// logout_flagが立っている間は有効なセッションCookieでもnilに短絡する。
func TestManager_Read_LogoutFlagSet_ReturnsNil(t *testing.T) {
	m := newTestManager()
	w := httptest.NewRecorder()

	if err := m.Create(w, validData()); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	cookie := findCookie(t, w.Result(), CookieName)

	r := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
	r.AddCookie(cookie)
	r.AddCookie(&http.Cookie{Name: LogoutFlagCookieName, Value: "1"})

	if got := m.Read(httptest.NewRecorder(), r); got != nil {
		t.Errorf("expected nil session while logout_flag is set, got %+v", got)
	}
}

// 署名不一致のCookieは読み取り時に先回りして削除される。
func TestManager_Read_InvalidSignature_ClearsCookie(t *testing.T) {
	m := newTestManager()

	// 別のシークレットで署名されたトークン
	otherCodec := NewCodec([]byte("another-secret-entirely-32-bytes"))
	token, err := otherCodec.Encode(validData())
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: CookieName, Value: token})

	w := httptest.NewRecorder()
	if got := m.Read(w, r); got != nil {
		t.Errorf("expected nil session, got %+v", got)
	}

	cleared := findCookie(t, w.Result(), CookieName)
	if cleared == nil {
		t.Fatal("expected broken cookie to be cleared")
	}
	if cleared.MaxAge != -1 {
		t.Errorf("cleared cookie MaxAge = %d, want -1", cleared.MaxAge)
	}
}

// 期限切れトークンは削除せずセッション不在として扱う。
func TestManager_Read_ExpiredToken_ReturnsNilWithoutClearing(t *testing.T) {
	m := newTestManager()
	codec := NewCodec(testSecret)

	data := validData()
	data.ExpiresAt = time.Now().Add(-1 * time.Minute)
	token, err := codec.Encode(data)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: CookieName, Value: token})

	w := httptest.NewRecorder()
	if got := m.Read(w, r); got != nil {
		t.Errorf("expected nil session for expired token, got %+v", got)
	}

	if cleared := findCookie(t, w.Result(), CookieName); cleared != nil {
		t.Error("expired token should not trigger cookie clearing")
	}
}

func TestManager_Update_ReplacesTokensAndExpiry(t *testing.T) {
	m := newTestManager()
	w := httptest.NewRecorder()
	data := validData()

	if err := m.Create(w, data); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	cookie := findCookie(t, w.Result(), CookieName)

	r := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
	r.AddCookie(cookie)

	newToken := "rotated-access-token"
	newExpiry := time.Now().Add(2 * time.Hour)
	w2 := httptest.NewRecorder()

	updated, err := m.Update(w2, r, Update{
		AccessToken: &newToken,
		ExpiresAt:   &newExpiry,
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated == nil {
		t.Fatal("expected updated session data")
	}
	if updated.AccessToken != newToken {
		t.Errorf("AccessToken = %q, want %q", updated.AccessToken, newToken)
	}
	// 指定しなかったリフレッシュトークンは維持される
	if updated.RefreshToken != data.RefreshToken {
		t.Errorf("RefreshToken = %q, want %q", updated.RefreshToken, data.RefreshToken)
	}

	// 新しいCookieが発行されている
	if newCookie := findCookie(t, w2.Result(), CookieName); newCookie == nil || newCookie.Value == cookie.Value {
		t.Error("expected a re-signed session cookie")
	}
}

func TestManager_Update_NoSession_ReturnsNil(t *testing.T) {
	m := newTestManager()
	r := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)

	updated, err := m.Update(httptest.NewRecorder(), r, Update{})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated != nil {
		t.Errorf("expected nil for missing session, got %+v", updated)
	}
}

// Destroyは現行名とレガシー名のCookieを属性の全組み合わせで削除し、
// logout_flagを設定する。
func TestManager_Destroy_ClearsAllCookieVariants(t *testing.T) {
	m := newTestManager()
	w := httptest.NewRecorder()

	m.Destroy(w)

	resp := w.Result()
	expectedNames := map[string]int{
		"session":                 0,
		"adlab_session":           0,
		"auth_token":              0,
		"next-auth.session-token": 0,
	}

	var logoutFlag *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == LogoutFlagCookieName {
			logoutFlag = c
			continue
		}
		if _, ok := expectedNames[c.Name]; !ok {
			t.Errorf("unexpected cookie cleared: %q", c.Name)
			continue
		}
		if c.MaxAge != -1 {
			t.Errorf("cookie %q MaxAge = %d, want -1", c.Name, c.MaxAge)
		}
		expectedNames[c.Name]++
	}

	// HttpOnly {true,false} × SameSite {Lax,Strict} = 4通り
	for name, count := range expectedNames {
		if count != 4 {
			t.Errorf("cookie %q cleared %d times, want 4 attribute combinations", name, count)
		}
	}

	if logoutFlag == nil {
		t.Fatal("expected logout_flag cookie to be set")
	}
	if logoutFlag.Value != "1" {
		t.Errorf("logout_flag value = %q, want 1", logoutFlag.Value)
	}
	if logoutFlag.MaxAge != 10 {
		t.Errorf("logout_flag MaxAge = %d, want 10", logoutFlag.MaxAge)
	}
}

// ドメイン設定時のDestroyは、設定ドメイン付きとホストオンリー
// （Domain属性なし）の両方の変種を削除する。ドメイン付きの削除指示は
// ホストオンリーで設定された古いCookieに一致しないため、
// 片方だけでは有効なセッションCookieが残りうる。
func TestManager_Destroy_WithCookieDomain_ClearsHostOnlyVariant(t *testing.T) {
	m := NewManager(NewCodec(testSecret), ManagerConfig{
		CookieDomain: "app.example.com",
		CookieSecure: true,
		MaxAge:       86400,
	})
	w := httptest.NewRecorder()

	m.Destroy(w)

	hostOnly := 0
	domainScoped := 0
	for _, c := range w.Result().Cookies() {
		if c.Name != CookieName || c.MaxAge != -1 {
			continue
		}
		switch c.Domain {
		case "":
			hostOnly++
		case "app.example.com":
			domainScoped++
		default:
			t.Errorf("unexpected domain on clear: %q", c.Domain)
		}
	}

	// HttpOnly {true,false} × SameSite {Lax,Strict} = 4通りずつ
	if hostOnly != 4 {
		t.Errorf("host-only clears = %d, want 4", hostOnly)
	}
	if domainScoped != 4 {
		t.Errorf("domain-scoped clears = %d, want 4", domainScoped)
	}
}

// Destroyは冪等であり、繰り返し呼んでも同じ削除指示を出す。
func TestManager_Destroy_IsIdempotent(t *testing.T) {
	m := newTestManager()

	w1 := httptest.NewRecorder()
	m.Destroy(w1)
	w2 := httptest.NewRecorder()
	m.Destroy(w2)

	if len(w1.Result().Cookies()) != len(w2.Result().Cookies()) {
		t.Error("repeated Destroy should issue identical cookie operations")
	}
}
