// Package cleanup は期限切れプロモーション特典の定期整理ジョブを提供する。
// 期限切れの特典をis_active = falseに畳む処理を日次バッチで行う。
// パスワード再設定認証情報は監査のため削除しない。
package cleanup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// CleanupJob は期限切れプロモーション特典の無効化ジョブ。
// 日次実行のバッチジョブとして設計されており、冪等な処理を保証する。
// アクセス判定はexpires_atでも行われるため無効化の遅延は権限に影響しないが、
// is_activeを畳んでおくことで有効特典の検索を単純に保つ。
type CleanupJob struct {
	db     Executor
	logger *slog.Logger
}

// NewCleanupJob は新しいCleanupJobを生成する。
func NewCleanupJob(db Executor, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{
		db:     db,
		logger: logger,
	}
}

// Run は期限切れのプロモーション特典を無効化する。
// 冪等: 対象がない場合でもエラーにならない。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	query := `UPDATE promo_activations SET is_active = false WHERE is_active AND expires_at < now()`
	result, err := j.db.ExecContext(ctx, query)
	if err != nil {
		j.logger.Error("プロモーション特典の無効化に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("プロモーション特典の無効化に失敗: %w", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		j.logger.Error("無効化件数の取得に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("無効化件数の取得に失敗: %w", err)
	}

	duration := time.Since(start)
	j.logger.Info("クリーンアップジョブが完了しました",
		slog.Int64("deactivated_activations", count),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}
