package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/adlab/internal/model"
)

// PostgresResetCredentialRepo はPostgreSQLを使用した
// パスワード再設定認証情報リポジトリ。
type PostgresResetCredentialRepo struct {
	db *sql.DB
}

// NewPostgresResetCredentialRepo はPostgresResetCredentialRepoを生成する。
func NewPostgresResetCredentialRepo(db *sql.DB) *PostgresResetCredentialRepo {
	return &PostgresResetCredentialRepo{db: db}
}

// Create は認証情報を作成する。既存の未使用認証情報は無効化しない。
func (r *PostgresResetCredentialRepo) Create(ctx context.Context, cred *model.ResetCredential) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO password_reset_credentials (id, user_id, email, code, expires_at, used_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		cred.ID, cred.UserID, cred.Email, cred.Code, cred.ExpiresAt, cred.UsedAt, cred.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create reset credential: %w", err)
	}
	return nil
}

// FindByEmailAndCode はemailとcodeの組で最新の認証情報を検索する。
// codeはTEXTカラム同士の文字列比較であり、先頭ゼロが落ちることはない。
// 見つからない場合はnilを返す。
func (r *PostgresResetCredentialRepo) FindByEmailAndCode(ctx context.Context, email, code string) (*model.ResetCredential, error) {
	cred := &model.ResetCredential{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, email, code, expires_at, used_at, created_at
		 FROM password_reset_credentials
		 WHERE email = $1 AND code = $2
		 ORDER BY created_at DESC
		 LIMIT 1`,
		email, code,
	).Scan(&cred.ID, &cred.UserID, &cred.Email, &cred.Code, &cred.ExpiresAt, &cred.UsedAt, &cred.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find reset credential: %w", err)
	}

	return cred, nil
}

// FindByID は指定IDの認証情報を取得する。見つからない場合はnilを返す。
func (r *PostgresResetCredentialRepo) FindByID(ctx context.Context, id string) (*model.ResetCredential, error) {
	cred := &model.ResetCredential{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, email, code, expires_at, used_at, created_at
		 FROM password_reset_credentials
		 WHERE id = $1`,
		id,
	).Scan(&cred.ID, &cred.UserID, &cred.Email, &cred.Code, &cred.ExpiresAt, &cred.UsedAt, &cred.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find reset credential by ID: %w", err)
	}

	return cred, nil
}

// Redeem はused_atがnullの場合に限りused_atを現在時刻に設定する。
// check-then-actの競合を避けるため、アプリケーション側ではなく
// ストレージ側の条件付きUPDATE1文で排他を成立させる。
// 並行する引き換えは正確に1つだけrowsAffected=1となる。
func (r *PostgresResetCredentialRepo) Redeem(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE password_reset_credentials
		 SET used_at = now()
		 WHERE id = $1 AND used_at IS NULL`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to redeem reset credential: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected == 1, nil
}

// compile-time interface check
var _ ResetCredentialRepository = (*PostgresResetCredentialRepo)(nil)
