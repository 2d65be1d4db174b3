package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/adlab/internal/model"
)

// PostgresAdDocumentRepo はPostgreSQLを使用した広告コピー文書リポジトリ。
type PostgresAdDocumentRepo struct {
	db *sql.DB
}

// NewPostgresAdDocumentRepo はPostgresAdDocumentRepoを生成する。
func NewPostgresAdDocumentRepo(db *sql.DB) *PostgresAdDocumentRepo {
	return &PostgresAdDocumentRepo{db: db}
}

// Create は文書を作成する。
func (r *PostgresAdDocumentRepo) Create(ctx context.Context, doc *model.AdDocument) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO ad_documents (id, user_id, title, body_html, tone, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		doc.ID, doc.UserID, doc.Title, doc.BodyHTML, doc.Tone, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create ad document: %w", err)
	}
	return nil
}

// FindByID は指定IDの文書を取得する。見つからない場合はnilを返す。
func (r *PostgresAdDocumentRepo) FindByID(ctx context.Context, id string) (*model.AdDocument, error) {
	doc := &model.AdDocument{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, title, body_html, tone, created_at, updated_at
		 FROM ad_documents
		 WHERE id = $1`,
		id,
	).Scan(&doc.ID, &doc.UserID, &doc.Title, &doc.BodyHTML, &doc.Tone, &doc.CreatedAt, &doc.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find ad document: %w", err)
	}

	return doc, nil
}

// ListByUserID はユーザーの文書一覧をupdated_at降順で返す。
func (r *PostgresAdDocumentRepo) ListByUserID(ctx context.Context, userID string) ([]*model.AdDocument, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, title, body_html, tone, created_at, updated_at
		 FROM ad_documents
		 WHERE user_id = $1
		 ORDER BY updated_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list ad documents: %w", err)
	}
	defer rows.Close()

	var docs []*model.AdDocument
	for rows.Next() {
		doc := &model.AdDocument{}
		if err := rows.Scan(&doc.ID, &doc.UserID, &doc.Title, &doc.BodyHTML, &doc.Tone, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ad document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ad documents: %w", err)
	}

	return docs, nil
}

// Update は文書のタイトル・本文・トーンを更新する。
func (r *PostgresAdDocumentRepo) Update(ctx context.Context, doc *model.AdDocument) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE ad_documents
		 SET title = $2, body_html = $3, tone = $4, updated_at = now()
		 WHERE id = $1`,
		doc.ID, doc.Title, doc.BodyHTML, doc.Tone,
	)
	if err != nil {
		return fmt.Errorf("failed to update ad document: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("ad document not found: %s", doc.ID)
	}
	return nil
}

// Delete は指定IDの文書を削除する。
func (r *PostgresAdDocumentRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM ad_documents WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete ad document: %w", err)
	}
	return nil
}

// compile-time interface check
var _ AdDocumentRepository = (*PostgresAdDocumentRepo)(nil)
