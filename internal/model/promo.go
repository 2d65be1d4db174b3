package model

import "time"

// PromoCode は配布用のプロモーションコードを表す。
// MaxUsesが0の場合は利用回数無制限。
type PromoCode struct {
	ID           string
	Code         string
	DurationDays int
	MaxUses      int
	UsedCount    int
	IsActive     bool
	CreatedAt    time.Time
}

// PromoActivation はユーザーへの期間限定アクセス付与を表す。
// ユーザーの「有効なプロモアクセス」は is_active かつ expires_at > now を満たす
// 最新のactivationで判定する。
type PromoActivation struct {
	ID          string
	UserID      string
	PromoCodeID string
	ActivatedAt time.Time
	ExpiresAt   time.Time
	IsActive    bool
}
