package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/adlab/internal/model"
)

const identityByProviderQuery = `
SELECT id, user_id, provider, provider_user_id, created_at
FROM identities
WHERE provider = $1 AND provider_user_id = $2`

// PostgresIdentityRepo は外部IdP紐付け情報のPostgreSQL実装。
// identitiesレコードの作成はユーザー作成と同一トランザクションで行うため
// UserRepository.CreateWithIdentity側に置いている。ここは参照のみ。
type PostgresIdentityRepo struct {
	db *sql.DB
}

func NewPostgresIdentityRepo(db *sql.DB) *PostgresIdentityRepo {
	return &PostgresIdentityRepo{db: db}
}

// FindByProviderAndProviderUserID はproviderとprovider_user_idの組で
// identityを検索する。見つからない場合はnilを返す。
func (r *PostgresIdentityRepo) FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error) {
	row := r.db.QueryRowContext(ctx, identityByProviderQuery, provider, providerUserID)

	var ident model.Identity
	err := row.Scan(&ident.ID, &ident.UserID, &ident.Provider, &ident.ProviderUserID, &ident.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find identity: %w", err)
	}

	return &ident, nil
}

var _ IdentityRepository = (*PostgresIdentityRepo)(nil)
