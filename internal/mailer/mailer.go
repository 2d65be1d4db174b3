// Package mailer はトランザクションメール送信の外部コラボレーター境界を定義する。
// メールプロバイダーとの実際の連携は本リポジトリの対象外であり、
// サービス層はMailerインターフェースにのみ依存する。
package mailer

import (
	"context"
	"log/slog"
)

// Mailer はトランザクションメールの送信インターフェース。
type Mailer interface {
	// Send は指定の宛先にHTML/テキスト両形式のメールを送信する。
	Send(ctx context.Context, to, subject, htmlBody, textBody string) error
}

// LogMailer は送信内容を構造化ログに出力するMailer実装。
// 開発環境およびプロバイダー未設定時に使用する。
// 本文にはワンタイムコードが含まれるためログには出力しない。
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer はLogMailerを生成する。loggerがnilの場合はデフォルトロガーを使用する。
func NewLogMailer(logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{logger: logger}
}

// Send は送信内容のメタデータをログに出力する。常に成功する。
func (m *LogMailer) Send(ctx context.Context, to, subject, htmlBody, textBody string) error {
	m.logger.InfoContext(ctx, "mail dispatched (log mailer)",
		slog.String("to", to),
		slog.String("subject", subject),
		slog.Int("html_bytes", len(htmlBody)),
		slog.Int("text_bytes", len(textBody)),
	)
	return nil
}

// compile-time interface check
var _ Mailer = (*LogMailer)(nil)
