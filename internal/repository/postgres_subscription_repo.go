package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/adlab/internal/model"
)

// PostgresSubscriptionRepo はPostgreSQLを使用した購読リポジトリ。
// レコードの書き込みは決済プロバイダーのWebhookパイプライン（対象外）が行い、
// 本リポジトリは参照のみ提供する。
type PostgresSubscriptionRepo struct {
	db *sql.DB
}

// NewPostgresSubscriptionRepo はPostgresSubscriptionRepoを生成する。
func NewPostgresSubscriptionRepo(db *sql.DB) *PostgresSubscriptionRepo {
	return &PostgresSubscriptionRepo{db: db}
}

// FindActiveByUserID はユーザーの有効な購読を検索する。
// active/trialingかつ期間内のもののうち最新を返す。見つからない場合はnilを返す。
func (r *PostgresSubscriptionRepo) FindActiveByUserID(ctx context.Context, userID string) (*model.Subscription, error) {
	sub := &model.Subscription{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, plan, status, current_period_end, created_at, updated_at
		 FROM subscriptions
		 WHERE user_id = $1
		   AND status IN ('active', 'trialing')
		   AND current_period_end > now()
		 ORDER BY updated_at DESC
		 LIMIT 1`,
		userID,
	).Scan(&sub.ID, &sub.UserID, &sub.Plan, &sub.Status, &sub.CurrentPeriodEnd, &sub.CreatedAt, &sub.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find active subscription: %w", err)
	}

	return sub, nil
}

// compile-time interface check
var _ SubscriptionRepository = (*PostgresSubscriptionRepo)(nil)
