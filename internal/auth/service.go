// Package auth はローカル認証（メール+パスワード）、Google OAuthフロー、
// セッションデータの発行・更新を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/adlab/internal/model"
	"github.com/hitoshi/adlab/internal/repository"
	"github.com/hitoshi/adlab/internal/session"
)

// ErrInvalidCredentials はログイン失敗を表す。
// アカウント列挙を防ぐため、ユーザー不存在とパスワード不一致を区別しない。
var ErrInvalidCredentials = errors.New("invalid email or password")

// OAuthUserInfo はOAuthプロバイダーから取得したユーザー情報を表す。
type OAuthUserInfo struct {
	ProviderUserID string
	Email          string
	Name           string
	AvatarURL      string
	Provider       string // "google" 等
}

// OAuthToken はOAuthプロバイダーが発行したトークンの組を表す。
type OAuthToken struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int // 秒
}

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
// 将来的に複数IdP（Google, GitHub等）に対応するための抽象化。
type OAuthProvider interface {
	// GetLoginURL はOAuth認証URLを生成する。
	GetLoginURL(state string) string
	// ExchangeCode は認可コードをトークンに交換し、ユーザー情報を取得する。
	ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, *OAuthToken, error)
	// RefreshAccessToken はリフレッシュトークンでアクセストークンを再発行する。
	RefreshAccessToken(ctx context.Context, refreshToken string) (*OAuthToken, error)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	oauth     OAuthProvider // nilの場合OAuthフローは無効
	userRepo  repository.UserRepository
	identRepo repository.IdentityRepository
	config    ServiceConfig
}

// NewService はServiceを生成する。oauthはnilを許容する。
func NewService(
	oauth OAuthProvider,
	userRepo repository.UserRepository,
	identRepo repository.IdentityRepository,
	config ServiceConfig,
) *Service {
	return &Service{
		oauth:     oauth,
		userRepo:  userRepo,
		identRepo: identRepo,
		config:    config,
	}
}

// Register はローカルユーザーを登録する。
// メールアドレスが既に使われている場合はmodel.APIError（USER_EXISTS）を返す。
// パスワードはbcryptでハッシュ化して保存する。
func (s *Service) Register(ctx context.Context, email, password, name string) (*model.User, error) {
	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, model.NewUserExistsError()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &model.User{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("new user registered",
		slog.String("user_id", user.ID),
	)

	return user, nil
}

// Login はメールアドレスとパスワードでユーザーを認証する。
// ユーザーが存在しない場合とパスワードが一致しない場合のどちらも
// ErrInvalidCredentialsを返し、呼び出し側はこれを区別できない。
func (s *Service) Login(ctx context.Context, email, password string) (*model.User, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil || user.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	slog.Info("user logged in",
		slog.String("user_id", user.ID),
	)

	return user, nil
}

// GetLoginURL はOAuth認証URLを生成する。
func (s *Service) GetLoginURL(state string) string {
	if s.oauth == nil {
		return ""
	}
	return s.oauth.GetLoginURL(state)
}

// HandleCallback はOAuthコールバックを処理し、認証済みユーザーと
// プロバイダートークンを返す。
// 未登録ユーザーの場合はusersレコードとidentitiesレコードを同時に自動作成する。
// 登録済みユーザーの場合はidentitiesテーブルで既存ユーザーを特定しログインする。
func (s *Service) HandleCallback(ctx context.Context, code string) (*model.User, *OAuthToken, error) {
	if s.oauth == nil {
		return nil, nil, fmt.Errorf("oauth provider is not configured")
	}

	// 1. 認可コードをトークンに交換し、ユーザー情報を取得
	userInfo, token, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to exchange oauth code: %w", err)
	}

	// 2. identitiesテーブルで既存ユーザーを検索
	identity, err := s.identRepo.FindByProviderAndProviderUserID(ctx, userInfo.Provider, userInfo.ProviderUserID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find identity: %w", err)
	}

	var user *model.User

	if identity != nil {
		// 3a. 既存ユーザー: identityからユーザーを取得
		user, err = s.userRepo.FindByID(ctx, identity.UserID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to find user: %w", err)
		}
		if user == nil {
			return nil, nil, fmt.Errorf("identity references missing user: %s", identity.UserID)
		}
		slog.Info("existing user logged in via oauth",
			slog.String("user_id", user.ID),
			slog.String("provider", userInfo.Provider),
		)
	} else {
		// 3b. 新規ユーザー: usersレコードとidentitiesレコードを同時に作成
		now := time.Now()
		user = &model.User{
			ID:        uuid.New().String(),
			Email:     userInfo.Email,
			Name:      userInfo.Name,
			AvatarURL: userInfo.AvatarURL,
			CreatedAt: now,
			UpdatedAt: now,
		}
		newIdentity := &model.Identity{
			ID:             uuid.New().String(),
			UserID:         user.ID,
			Provider:       userInfo.Provider,
			ProviderUserID: userInfo.ProviderUserID,
			CreatedAt:      now,
		}

		if err := s.userRepo.CreateWithIdentity(ctx, user, newIdentity); err != nil {
			return nil, nil, fmt.Errorf("failed to create user and identity: %w", err)
		}

		slog.Info("new user created via oauth",
			slog.String("user_id", user.ID),
			slog.String("provider", userInfo.Provider),
		)
	}

	return user, token, nil
}

// SessionDataFor はユーザーのセッションデータを組み立てる。
// providerTokenがnilの場合（ローカルログイン）はプロセス内で不透明な
// アクセストークンを生成する。
func (s *Service) SessionDataFor(user *model.User, providerToken *OAuthToken) (*session.Data, error) {
	data := &session.Data{
		User: session.User{
			ID:        user.ID,
			Email:     user.Email,
			Name:      user.Name,
			AvatarURL: user.AvatarURL,
		},
		ExpiresAt: time.Now().Add(time.Duration(s.config.SessionMaxAge) * time.Second),
	}

	if providerToken != nil {
		data.AccessToken = providerToken.AccessToken
		data.RefreshToken = providerToken.RefreshToken
	} else {
		token, err := generateOpaqueToken()
		if err != nil {
			return nil, fmt.Errorf("failed to generate access token: %w", err)
		}
		data.AccessToken = token
	}

	return data, nil
}

// RefreshSession はセッションのアクセストークンと有効期限を更新した
// 新しいセッションデータを返す。
// プロバイダーのリフレッシュトークンを保持するセッションはプロバイダーに対して
// 再発行を試み、失敗した場合はエラーを返す（セッションは据え置き）。
// ローカルセッションは新しい不透明トークンを発行して期限を延長する。
func (s *Service) RefreshSession(ctx context.Context, data *session.Data) (*session.Data, error) {
	refreshed := *data
	refreshed.ExpiresAt = time.Now().Add(time.Duration(s.config.SessionMaxAge) * time.Second)

	if data.RefreshToken != "" && s.oauth != nil {
		token, err := s.oauth.RefreshAccessToken(ctx, data.RefreshToken)
		if err != nil {
			return nil, fmt.Errorf("provider token refresh failed: %w", err)
		}
		refreshed.AccessToken = token.AccessToken
		if token.RefreshToken != "" {
			refreshed.RefreshToken = token.RefreshToken
		}
	} else {
		token, err := generateOpaqueToken()
		if err != nil {
			return nil, fmt.Errorf("failed to generate access token: %w", err)
		}
		refreshed.AccessToken = token
	}

	return &refreshed, nil
}

// generateOpaqueToken は暗号的に安全な不透明トークンを生成する。
func generateOpaqueToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
