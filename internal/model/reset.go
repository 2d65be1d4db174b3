package model

import "time"

// ResetCredential はパスワード再設定のための使い捨て認証情報を表す。
// 6桁のゼロパディングされた数字コードを秘密として保持する。
// used_atがnullかつ有効期限内の場合のみ利用可能で、
// 一度引き換えられた後は監査のため削除せず保持する。
type ResetCredential struct {
	ID        string
	UserID    string
	Email     string
	Code      string // 必ず6桁ゼロパディング。数値比較は行わない
	ExpiresAt time.Time
	UsedAt    *time.Time // null = 未使用
	CreatedAt time.Time
}

// IsExpired は認証情報が期限切れかどうかを返す。
// 境界はクロックスキュー許容なしの厳密比較。
func (c *ResetCredential) IsExpired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// IsUsed は認証情報が既に引き換え済みかどうかを返す。
func (c *ResetCredential) IsUsed() bool {
	return c.UsedAt != nil
}
