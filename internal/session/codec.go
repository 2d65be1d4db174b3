// Package session は署名付きセッショントークンの符号化と、
// HTTP Cookieとしてのセッションライフサイクル管理を提供する。
//
// セッションはサーバー側に可変レコードを持たない完全ステートレス設計であり、
// クライアントが保持する署名付きトークンのみが正となる。
// ログアウトによる即時失効はCookie削除でのみ実現され、
// 自然失効はトークンに埋め込まれた有効期限の署名検証で判定する。
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Decode失敗の分類。呼び出し側はこれらをerrors.Isで判別できるが、
// HTTPレスポンスに署名内部の詳細を漏らしてはならない。
var (
	// ErrExpired はトークンの有効期限切れを表す。
	ErrExpired = errors.New("session token expired")
	// ErrInvalidSignature は署名検証の失敗を表す。
	ErrInvalidSignature = errors.New("session token signature invalid")
	// ErrMalformed はトークンの構造不正を表す。
	ErrMalformed = errors.New("session token malformed")
)

// User はセッションに埋め込まれる認証済みユーザー情報。
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// Data はセッショントークンに署名される内容を表す。
// ExpiresAtは署名ペイロードに埋め込まれ、検証と同一ステップで強制される。
type Data struct {
	User         User
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// claims はJWTペイロードの内部表現。
type claims struct {
	jwt.RegisteredClaims
	User         User   `json:"user"`
	AccessToken  string `json:"act"`
	RefreshToken string `json:"rft,omitempty"`
}

// Codec はセッションデータの署名付きトークンへの符号化・復号を行う。
// 署名には起動時に1回読み込まれる対称シークレットを使用する。
// シークレットの欠如は設定エラーとして起動時に弾かれるため、ここでは検査しない。
type Codec struct {
	secret []byte
}

// NewCodec はCodecを生成する。
func NewCodec(secret []byte) *Codec {
	return &Codec{secret: secret}
}

// Encode はセッションデータをHS256署名付きトークンに符号化する。
func (c *Codec) Encode(data *Data) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(data.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		User:         data.User,
		AccessToken:  data.AccessToken,
		RefreshToken: data.RefreshToken,
	})

	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}

	return signed, nil
}

// Decode は署名付きトークンを検証してセッションデータに復号する。
// 失敗はErrExpired、ErrInvalidSignature、ErrMalformedのいずれかに分類される。
// user.idまたはuser.emailを欠くトークンはセッション不在として扱うため、
// ErrMalformedを返す。部分的なデータを返すことはない。
func (c *Codec) Decode(tokenString string) (*Data, error) {
	cl := &claims{}

	token, err := jwt.ParseWithClaims(tokenString, cl, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrInvalidSignature
		default:
			return nil, ErrMalformed
		}
	}
	if !token.Valid {
		return nil, ErrInvalidSignature
	}

	if cl.User.ID == "" || cl.User.Email == "" {
		return nil, ErrMalformed
	}

	data := &Data{
		User:         cl.User,
		AccessToken:  cl.AccessToken,
		RefreshToken: cl.RefreshToken,
	}
	if cl.ExpiresAt != nil {
		data.ExpiresAt = cl.ExpiresAt.Time
	}

	return data, nil
}
