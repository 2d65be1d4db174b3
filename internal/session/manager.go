package session

import (
	"errors"
	"log/slog"
	"net/http"
	"time"
)

const (
	// CookieName はセッショントークンを保持するCookieの名前。
	CookieName = "session"

	// LogoutFlagCookieName はログアウト直後のセッション読み取りを
	// 短絡させるためのマーカーCookieの名前。
	// Cookie削除がクライアントに届く前に並行リクエストが
	// 古いセッションCookieを読むレースを塞ぐ。
	LogoutFlagCookieName = "logout_flag"

	// logoutFlagMaxAge はlogout_flagの有効期間（秒）。
	logoutFlagMaxAge = 10
)

// legacyCookieNames は過去の認証方式で使用されていたCookie名。
// Destroy時に必ず削除する固定の列挙リストであり、推測的に増やさないこと。
var legacyCookieNames = []string{
	"adlab_session",
	"auth_token",
	"next-auth.session-token",
}

// ManagerConfig はセッションCookieの属性設定。
type ManagerConfig struct {
	CookieDomain string
	CookieSecure bool
	MaxAge       int // 秒
}

// Manager はセッションのcreate/read/update/destroyをCookieとして永続化する。
type Manager struct {
	codec  *Codec
	config ManagerConfig
}

// NewManager はManagerを生成する。
func NewManager(codec *Codec, config ManagerConfig) *Manager {
	return &Manager{codec: codec, config: config}
}

// Create はセッションデータに署名し、HTTP Only・SameSite=Laxの
// セッションCookieを設定する。Secure属性は本番（https）でのみ付与される。
// ExpiresAtが未設定の場合はMaxAgeから算出する。
func (m *Manager) Create(w http.ResponseWriter, data *Data) error {
	if data.ExpiresAt.IsZero() {
		data.ExpiresAt = time.Now().Add(time.Duration(m.config.MaxAge) * time.Second)
	}

	token, err := m.codec.Encode(data)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Domain:   m.config.CookieDomain,
		MaxAge:   m.config.MaxAge,
		HttpOnly: true,
		Secure:   m.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	// 再ログイン時に残っている可能性のあるlogout_flagを消す
	m.clearCookie(w, LogoutFlagCookieName, true, http.SameSiteLaxMode)

	return nil
}

// Read はリクエストのCookieからセッションを復号して返す。
// あらゆる復号失敗はセッション不在（nil）に収束させ、例外として
// ルートハンドラーへ伝播させない。署名不一致が明確な場合のみ、
// 壊れたCookieを先回りして削除する。
// logout_flagが立っている間はCookieの内容に関わらずnilを返す。
func (m *Manager) Read(w http.ResponseWriter, r *http.Request) *Data {
	if flag, err := r.Cookie(LogoutFlagCookieName); err == nil && flag.Value != "" {
		return nil
	}

	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}

	data, err := m.codec.Decode(cookie.Value)
	if err != nil {
		if errors.Is(err, ErrInvalidSignature) {
			slog.Warn("session cookie signature mismatch, clearing",
				slog.String("cookie", CookieName),
			)
			m.clearCookie(w, CookieName, true, http.SameSiteLaxMode)
		}
		return nil
	}

	return data
}

// Update はセッションのアクセストークン・リフレッシュトークン・有効期限を
// 差し替えて再署名する。指定されなかったフィールドは既存の値を維持する。
// リフレッシュフローでのみ使用される。セッションが存在しない場合はnilを返す。
func (m *Manager) Update(w http.ResponseWriter, r *http.Request, update Update) (*Data, error) {
	data := m.Read(w, r)
	if data == nil {
		return nil, nil
	}

	if update.AccessToken != nil {
		data.AccessToken = *update.AccessToken
	}
	if update.RefreshToken != nil {
		data.RefreshToken = *update.RefreshToken
	}
	if update.ExpiresAt != nil {
		data.ExpiresAt = *update.ExpiresAt
	}

	if err := m.Create(w, data); err != nil {
		return nil, err
	}

	return data, nil
}

// Update はセッション更新時の部分指定。nilのフィールドは変更しない。
type Update struct {
	AccessToken  *string
	RefreshToken *string
	ExpiresAt    *time.Time
}

// Destroy はセッションCookieを削除する。
//
// ブラウザは属性が一致しない削除要求を無視するため、セッションCookieを
// 設定時に使われた可能性のある属性の組み合わせ
// （ホストオンリー/設定ドメイン × HttpOnlyの有無 × SameSite Lax/Strict、
// いずれもPath=/）すべてで削除する。
// 過去の認証方式のCookie名も同様に削除する。
// 不完全な削除は有効なセッションCookieを残す認可バイパスとなるため、
// これは正当性要件であって単なる後始末ではない。
//
// 併せてlogout_flag Cookieを設定し、削除がクライアントに反映されるまでの
// 並行リクエストのセッション読み取りを短絡させる。
// 既に削除済みのCookieを再度削除しても同じ結果になる（冪等）。
func (m *Manager) Destroy(w http.ResponseWriter) {
	names := append([]string{CookieName}, legacyCookieNames...)

	for _, name := range names {
		for _, domain := range m.clearDomains() {
			for _, httpOnly := range []bool{true, false} {
				for _, sameSite := range []http.SameSite{http.SameSiteLaxMode, http.SameSiteStrictMode} {
					m.clearCookieWithDomain(w, name, domain, httpOnly, sameSite)
				}
			}
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     LogoutFlagCookieName,
		Value:    "1",
		Path:     "/",
		Domain:   m.config.CookieDomain,
		MaxAge:   logoutFlagMaxAge,
		HttpOnly: true,
		Secure:   m.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearDomains はCookie削除対象のDomain属性の列挙を返す。
// ドメイン設定時もホストオンリーCookie（Domain属性なし）で設定された
// 過去のセッションを取りこぼさないよう、必ず空文字列を含める。
func (m *Manager) clearDomains() []string {
	if m.config.CookieDomain == "" {
		return []string{""}
	}
	return []string{"", m.config.CookieDomain}
}

// clearCookie は設定されたドメイン属性でCookie削除を指示する。
func (m *Manager) clearCookie(w http.ResponseWriter, name string, httpOnly bool, sameSite http.SameSite) {
	m.clearCookieWithDomain(w, name, m.config.CookieDomain, httpOnly, sameSite)
}

// clearCookieWithDomain は指定された属性の組み合わせでCookie削除を指示する。
func (m *Manager) clearCookieWithDomain(w http.ResponseWriter, name, domain string, httpOnly bool, sameSite http.SameSite) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   domain,
		MaxAge:   -1,
		HttpOnly: httpOnly,
		Secure:   m.config.CookieSecure,
		SameSite: sameSite,
	})
}
