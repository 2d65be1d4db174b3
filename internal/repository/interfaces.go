// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/adlab/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail は指定メールアドレスのユーザーを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はローカル登録ユーザーを作成する。
	Create(ctx context.Context, user *model.User) error

	// CreateWithIdentity はユーザーとidentityを同一トランザクションで作成する。
	// OAuth経由の初回ログインで使用する。
	CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error

	// UpdatePassword は指定ユーザーのパスワードハッシュを更新する。
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
}

// IdentityRepository は外部IdP紐付け情報の永続化インターフェース。
type IdentityRepository interface {
	// FindByProviderAndProviderUserID はproviderとprovider_user_idでidentityを検索する。
	// 見つからない場合はnilを返す。
	FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error)
}

// ResetCredentialRepository はパスワード再設定認証情報の永続化インターフェース。
// 認証情報は引き換え後も監査のため削除しない。
type ResetCredentialRepository interface {
	// Create は認証情報を作成する。同一ユーザーの既存の未使用認証情報は
	// 無効化しない（複数の未使用認証情報の並存を許す）。
	Create(ctx context.Context, cred *model.ResetCredential) error

	// FindByEmailAndCode はemailとcodeの組で最新の認証情報を検索する。
	// codeは文字列として厳密比較される。見つからない場合はnilを返す。
	FindByEmailAndCode(ctx context.Context, email, code string) (*model.ResetCredential, error)

	// FindByID は指定IDの認証情報を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.ResetCredential, error)

	// Redeem はused_atがnullの場合に限り1回だけused_atを現在時刻に設定する。
	// 条件付きUPDATEにより並行する引き換えのうち正確に1つだけが成功する。
	// 成功した場合はtrueを、既に使用済みの場合はfalseを返す。
	Redeem(ctx context.Context, id string) (bool, error)
}

// PromoRepository はプロモコードとactivationの永続化インターフェース。
type PromoRepository interface {
	// FindCodeByCode はコード文字列でプロモコードを検索する。見つからない場合はnilを返す。
	FindCodeByCode(ctx context.Context, code string) (*model.PromoCode, error)

	// ConsumeCode は利用上限に達していない場合に限りused_countを1増やす。
	// 条件付きUPDATEで増分するため並行する消費はどちらか一方のみ上限超過で失敗する。
	// 成功した場合はtrueを、上限到達済みの場合はfalseを返す。
	ConsumeCode(ctx context.Context, codeID string) (bool, error)

	// CreateActivation はプロモactivationを作成する。
	CreateActivation(ctx context.Context, activation *model.PromoActivation) error

	// FindActiveActivation はユーザーの有効な（is_activeかつ期限内の）最新の
	// activationを検索する。見つからない場合はnilを返す。
	FindActiveActivation(ctx context.Context, userID string) (*model.PromoActivation, error)
}

// SubscriptionRepository は購読データの参照インターフェース。
// レコードの書き込みは対象外の決済Webhookパイプラインが行う。
type SubscriptionRepository interface {
	// FindActiveByUserID はユーザーの有効な（active/trialingかつ期限内の）
	// 購読を検索する。見つからない場合はnilを返す。
	FindActiveByUserID(ctx context.Context, userID string) (*model.Subscription, error)
}

// AdDocumentRepository は広告コピー文書の永続化インターフェース。
type AdDocumentRepository interface {
	// Create は文書を作成する。
	Create(ctx context.Context, doc *model.AdDocument) error

	// FindByID は指定IDの文書を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.AdDocument, error)

	// ListByUserID はユーザーの文書一覧をupdated_at降順で返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.AdDocument, error)

	// Update は文書のタイトル・本文・トーンを更新する。
	Update(ctx context.Context, doc *model.AdDocument) error

	// Delete は指定IDの文書を削除する。
	Delete(ctx context.Context, id string) error
}
