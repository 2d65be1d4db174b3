package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/adlab/internal/metrics"
)

// responseRecorder はhttp.ResponseWriterをラップし、最初に確定した
// ステータスコードを保持する。
type responseRecorder struct {
	http.ResponseWriter
	code int
}

func (rr *responseRecorder) WriteHeader(code int) {
	if rr.code == 0 {
		rr.code = code
	}
	rr.ResponseWriter.WriteHeader(code)
}

func (rr *responseRecorder) Write(b []byte) (int, error) {
	// WriteHeader未呼び出しのままWriteされた場合、net/httpは200を送る
	if rr.code == 0 {
		rr.code = http.StatusOK
	}
	return rr.ResponseWriter.Write(b)
}

// status は確定済みステータスコードを返す。未確定なら200とみなす。
func (rr *responseRecorder) status() int {
	if rr.code == 0 {
		return http.StatusOK
	}
	return rr.code
}

// statusLevel はHTTPステータスコードに対応するログレベルを返す。
// 4xxは警告、5xxはエラーとして扱う。
func statusLevel(code int) slog.Level {
	switch {
	case code >= 500:
		return slog.LevelError
	case code >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// NewLoggingMiddleware はリクエスト1件ごとにJSON構造化ログを1行出力し、
// ステータスコードと処理時間のメトリクスを記録するミドルウェアを返す。
// collectorがnilの場合はメトリクス記録をスキップする。
func NewLoggingMiddleware(logger *slog.Logger, collector metrics.MetricsCollector) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &responseRecorder{ResponseWriter: w}

			next.ServeHTTP(rec, r)

			elapsed := time.Since(start)
			code := rec.status()

			if collector != nil {
				collector.RecordHTTPStatus(code)
				collector.RecordRequestDuration(elapsed)
			}

			args := []any{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", code),
				slog.Float64("duration_ms", float64(elapsed)/float64(time.Millisecond)),
			}
			if userID, err := UserIDFromContext(r.Context()); err == nil && userID != "" {
				args = append(args, slog.String("user_id", userID))
			}

			logger.Log(r.Context(), statusLevel(code), "http_request", args...)
		})
	}
}
