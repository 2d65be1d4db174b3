// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hitoshi/adlab/internal/model"
	"github.com/hitoshi/adlab/internal/session"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// userIDContextKey はリクエストコンテキストにユーザーIDを格納するためのキー。
var userIDContextKey = contextKey("user_id")

// sessionContextKey はリクエストコンテキストにセッションデータを格納するためのキー。
var sessionContextKey = contextKey("session_data")

// NewSessionMiddleware はセッションCookieを復号し、セッションデータと
// ユーザーIDをリクエストコンテキストに注入するミドルウェアを返す。
// セッション不在でもリクエストは通過させる（認証の強制はRequireSessionが行う）。
// 復号失敗はすべてセッション不在として扱われ、401にはならない。
func NewSessionMiddleware(manager *session.Manager) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			data := manager.Read(w, r)
			if data == nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), sessionContextKey, data)
			ctx = context.WithValue(ctx, userIDContextKey, data.User.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireSession は認証済みセッションを必須とするミドルウェアを返す。
// SessionMiddlewareの後に配置すること。
// セッション不在のリクエストには401 Unauthorizedを統一エラーフォーマットで返す。
func RequireSession() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := UserIDFromContext(r.Context()); err != nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
// セッションミドルウェアを通過した認証済みリクエストでのみ有効。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// SessionFromContext はリクエストコンテキストからセッションデータを取得する。
// セッション不在の場合はnilを返す。
func SessionFromContext(ctx context.Context) *session.Data {
	data, ok := ctx.Value(sessionContextKey).(*session.Data)
	if !ok {
		return nil
	}
	return data
}

// ContextWithSession はコンテキストにセッションデータとユーザーIDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithSession(ctx context.Context, data *session.Data) context.Context {
	ctx = context.WithValue(ctx, sessionContextKey, data)
	return context.WithValue(ctx, userIDContextKey, data.User.ID)
}

// ContextWithUserID はコンテキストにユーザーIDのみを注入する。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}
