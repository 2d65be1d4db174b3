// Package reset はパスワード再設定フローを提供する。
//
// 認証情報のライフサイクルは Issued -> {Redeemed | Expired}（いずれも終端）で、
// 検証（validate）と引き換え（redeem)は別ステップである。
// 「コードを確認してから新しいパスワードを入力する」UXを支えるため、
// validateは読み取り専用で何度でも呼べる。
// redeemはストレージ層の条件付きUPDATEで正確に1回だけ成功する。
package reset

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/hitoshi/adlab/internal/mailer"
	"github.com/hitoshi/adlab/internal/model"
	"github.com/hitoshi/adlab/internal/repository"
)

// 検証・引き換え失敗の分類。
var (
	// ErrNotFound は該当する認証情報が存在しないことを表す。
	ErrNotFound = errors.New("reset credential not found")
	// ErrExpired は認証情報の有効期限切れを表す。
	ErrExpired = errors.New("reset credential expired")
	// ErrAlreadyUsed は認証情報が既に引き換え済みであることを表す。
	ErrAlreadyUsed = errors.New("reset credential already used")
	// ErrInvalidLinkToken はメールリンクのトークンが不正であることを表す。
	ErrInvalidLinkToken = errors.New("reset link token invalid")
)

// linkTokenType はメールリンクトークンのtypクレームの値。
const linkTokenType = "pwreset"

// codeLength は再設定コードの桁数。
const codeLength = 6

// UserStore は再設定フローが必要とするユーザー操作のインターフェース。
// repository.UserRepositoryの部分集合として定義する。
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
}

// PasswordHasher は新パスワードのハッシュ化インターフェース。
type PasswordHasher interface {
	Hash(password string) (string, error)
}

// ServiceConfig は再設定フローの設定。
type ServiceConfig struct {
	CodeTTL time.Duration
	BaseURL string // メールリンクの組み立てに使用
}

// Service はパスワード再設定のビジネスロジックを提供する。
type Service struct {
	users  UserStore
	creds  repository.ResetCredentialRepository
	mail   mailer.Mailer
	hasher PasswordHasher
	secret []byte // リンクトークンの署名シークレット
	config ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	users UserStore,
	creds repository.ResetCredentialRepository,
	mail mailer.Mailer,
	hasher PasswordHasher,
	secret []byte,
	config ServiceConfig,
) *Service {
	return &Service{
		users:  users,
		creds:  creds,
		mail:   mail,
		hasher: hasher,
		secret: secret,
		config: config,
	}
}

// linkClaims はメールリンクトークンのJWTペイロード。
type linkClaims struct {
	jwt.RegisteredClaims
	TokenType    string `json:"typ"`
	CredentialID string `json:"cid"`
}

// Request はパスワード再設定を開始する。
//
// アカウント列挙を防ぐため、メールアドレスが未登録でも登録済みでも
// 同じ成功として返る。認証情報の作成とメール送信は登録済みの場合のみ
// 内部的に行われる。既存の未使用認証情報は無効化しない。
func (s *Service) Request(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		// 未登録アドレス: 応答時間以外で登録済みと区別できないようにする
		slog.Info("password reset requested for unknown email")
		return nil
	}

	code, err := generateCode()
	if err != nil {
		return fmt.Errorf("failed to generate reset code: %w", err)
	}

	now := time.Now()
	cred := &model.ResetCredential{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		Email:     user.Email,
		Code:      code,
		ExpiresAt: now.Add(s.config.CodeTTL),
		CreatedAt: now,
	}

	if err := s.creds.Create(ctx, cred); err != nil {
		return fmt.Errorf("failed to create reset credential: %w", err)
	}

	linkToken, err := s.issueLinkToken(cred)
	if err != nil {
		return fmt.Errorf("failed to issue link token: %w", err)
	}

	link := s.config.BaseURL + "/reset-password?token=" + linkToken
	htmlBody := fmt.Sprintf(
		"<p>パスワード再設定コード: <strong>%s</strong></p><p><a href=%q>こちらのリンク</a>からも再設定できます。</p>",
		code, link,
	)
	textBody := fmt.Sprintf("パスワード再設定コード: %s\n再設定リンク: %s\n", code, link)

	if err := s.mail.Send(ctx, user.Email, "パスワード再設定のご案内", htmlBody, textBody); err != nil {
		return fmt.Errorf("failed to send reset mail: %w", err)
	}

	slog.Info("password reset credential issued",
		slog.String("user_id", user.ID),
		slog.String("credential_id", cred.ID),
	)

	return nil
}

// Validate はemailとcodeの組で認証情報を検証する。
// 読み取り専用であり、何度呼んでも認証情報の状態は変化しない。
// 失敗はErrNotFound、ErrAlreadyUsed、ErrExpiredのいずれかに分類される。
func (s *Service) Validate(ctx context.Context, email, code string) error {
	cred, err := s.creds.FindByEmailAndCode(ctx, email, code)
	if err != nil {
		return fmt.Errorf("failed to find reset credential: %w", err)
	}
	return checkCredential(cred, time.Now())
}

// ValidateLinkToken はメールリンクのトークンを検証する。
// トークンが指す認証情報に対してValidateと同じ検査を行う。
func (s *Service) ValidateLinkToken(ctx context.Context, token string) error {
	cred, err := s.resolveLinkToken(ctx, token)
	if err != nil {
		return err
	}
	return checkCredential(cred, time.Now())
}

// Redeem は認証情報を検証した上で1回だけ引き換える。
// 二重送信に対して安全であり、2回目以降の引き換えはErrAlreadyUsedで失敗する。
func (s *Service) Redeem(ctx context.Context, email, code string) error {
	cred, err := s.creds.FindByEmailAndCode(ctx, email, code)
	if err != nil {
		return fmt.Errorf("failed to find reset credential: %w", err)
	}
	if err := checkCredential(cred, time.Now()); err != nil {
		return err
	}

	ok, err := s.creds.Redeem(ctx, cred.ID)
	if err != nil {
		return fmt.Errorf("failed to redeem reset credential: %w", err)
	}
	if !ok {
		// 並行する引き換えに先を越された
		return ErrAlreadyUsed
	}

	slog.Info("password reset credential redeemed",
		slog.String("credential_id", cred.ID),
	)

	return nil
}

// Confirm は認証情報を引き換え、新しいパスワードを設定する。
func (s *Service) Confirm(ctx context.Context, email, code, newPassword string) error {
	cred, err := s.creds.FindByEmailAndCode(ctx, email, code)
	if err != nil {
		return fmt.Errorf("failed to find reset credential: %w", err)
	}
	if err := checkCredential(cred, time.Now()); err != nil {
		return err
	}

	ok, err := s.creds.Redeem(ctx, cred.ID)
	if err != nil {
		return fmt.Errorf("failed to redeem reset credential: %w", err)
	}
	if !ok {
		return ErrAlreadyUsed
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash new password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, cred.UserID, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	slog.Info("password updated via reset flow",
		slog.String("user_id", cred.UserID),
	)

	return nil
}

// issueLinkToken は認証情報を指す短命の署名付きリンクトークンを発行する。
// トークンは認証情報そのものではなく、同一の保存済み認証情報への参照であり、
// 検証は常にストレージ上の認証情報に対して行われる。
func (s *Service) issueLinkToken(cred *model.ResetCredential) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, linkClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   cred.Email,
			IssuedAt:  jwt.NewNumericDate(cred.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(cred.ExpiresAt),
		},
		TokenType:    linkTokenType,
		CredentialID: cred.ID,
	})
	return token.SignedString(s.secret)
}

// resolveLinkToken はリンクトークンを検証し、指している認証情報を取得する。
func (s *Service) resolveLinkToken(ctx context.Context, tokenString string) (*model.ResetCredential, error) {
	cl := &linkClaims{}
	token, err := jwt.ParseWithClaims(tokenString, cl, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrInvalidLinkToken
	}
	if !token.Valid || cl.TokenType != linkTokenType || cl.CredentialID == "" {
		return nil, ErrInvalidLinkToken
	}

	cred, err := s.creds.FindByID(ctx, cl.CredentialID)
	if err != nil {
		return nil, fmt.Errorf("failed to find reset credential: %w", err)
	}
	if cred == nil || cred.Email != cl.Subject {
		return nil, ErrNotFound
	}

	return cred, nil
}

// checkCredential は認証情報の利用可否を判定する。
// 判定順: 存在 -> 未使用 -> 期限内。期限境界はクロックスキュー許容なし。
func checkCredential(cred *model.ResetCredential, now time.Time) error {
	if cred == nil {
		return ErrNotFound
	}
	if cred.IsUsed() {
		return ErrAlreadyUsed
	}
	if cred.IsExpired(now) {
		return ErrExpired
	}
	return nil
}

// generateCode は暗号的に安全な6桁のコードを生成する。
// 必ずゼロパディングされた6桁の文字列を返す。比較は常に文字列として行い、
// 数値比較で先頭ゼロが失われるバグを避ける。
func generateCode() (string, error) {
	max := big.NewInt(1000000) // 10^codeLength
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeLength, n), nil
}
