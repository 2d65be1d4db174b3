package model

import "time"

// SubscriptionStatus は決済プロバイダーが管理する購読の状態を表す。
type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionTrialing SubscriptionStatus = "trialing"
	SubscriptionPastDue  SubscriptionStatus = "past_due"
	SubscriptionCanceled SubscriptionStatus = "canceled"
)

// Subscription は決済プロバイダーのWebhookパイプライン（本リポジトリの対象外）が
// 書き込む購読レコードを表す。本システムは参照のみ行う。
type Subscription struct {
	ID               string
	UserID           string
	Plan             string
	Status           SubscriptionStatus
	CurrentPeriodEnd time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// AccessSource はアクセス権の由来を表す。
type AccessSource string

const (
	AccessSourceSubscription AccessSource = "subscription"
	AccessSourcePromo        AccessSource = "promo"
	AccessSourceNone         AccessSource = "none"
)

// AccessStatus はユーザーの現在の利用権限の解決結果。
// 購読とプロモアクセスの両方が有効な場合は購読を優先する。
type AccessStatus struct {
	Plan        string
	Status      string
	AccessUntil *time.Time
	Source      AccessSource
}
