package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/adlab/internal/model"
)

// PostgresPromoRepo はPostgreSQLを使用したプロモコードリポジトリ。
type PostgresPromoRepo struct {
	db *sql.DB
}

// NewPostgresPromoRepo はPostgresPromoRepoを生成する。
func NewPostgresPromoRepo(db *sql.DB) *PostgresPromoRepo {
	return &PostgresPromoRepo{db: db}
}

// FindCodeByCode はコード文字列でプロモコードを検索する。見つからない場合はnilを返す。
func (r *PostgresPromoRepo) FindCodeByCode(ctx context.Context, code string) (*model.PromoCode, error) {
	pc := &model.PromoCode{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, code, duration_days, max_uses, used_count, is_active, created_at
		 FROM promo_codes
		 WHERE code = $1`,
		code,
	).Scan(&pc.ID, &pc.Code, &pc.DurationDays, &pc.MaxUses, &pc.UsedCount, &pc.IsActive, &pc.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find promo code: %w", err)
	}

	return pc, nil
}

// ConsumeCode は利用上限に達していない場合に限りused_countを1増やす。
// max_uses = 0 は無制限を意味する。条件付きUPDATEで増分するため、
// 並行する消費が上限を超えることはない。
func (r *PostgresPromoRepo) ConsumeCode(ctx context.Context, codeID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE promo_codes
		 SET used_count = used_count + 1
		 WHERE id = $1 AND is_active AND (max_uses = 0 OR used_count < max_uses)`,
		codeID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to consume promo code: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected == 1, nil
}

// CreateActivation はプロモactivationを作成する。
func (r *PostgresPromoRepo) CreateActivation(ctx context.Context, activation *model.PromoActivation) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO promo_activations (id, user_id, promo_code_id, activated_at, expires_at, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		activation.ID, activation.UserID, activation.PromoCodeID,
		activation.ActivatedAt, activation.ExpiresAt, activation.IsActive,
	)
	if err != nil {
		return fmt.Errorf("failed to create promo activation: %w", err)
	}
	return nil
}

// FindActiveActivation はユーザーの有効な最新のactivationを検索する。
// 「有効なプロモアクセス」= is_active かつ expires_at > now の最新activation。
// 見つからない場合はnilを返す。
func (r *PostgresPromoRepo) FindActiveActivation(ctx context.Context, userID string) (*model.PromoActivation, error) {
	a := &model.PromoActivation{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, promo_code_id, activated_at, expires_at, is_active
		 FROM promo_activations
		 WHERE user_id = $1 AND is_active AND expires_at > now()
		 ORDER BY activated_at DESC
		 LIMIT 1`,
		userID,
	).Scan(&a.ID, &a.UserID, &a.PromoCodeID, &a.ActivatedAt, &a.ExpiresAt, &a.IsActive)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find active promo activation: %w", err)
	}

	return a, nil
}

// compile-time interface check
var _ PromoRepository = (*PostgresPromoRepo)(nil)
