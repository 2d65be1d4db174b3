// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, security, promo, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidRequest     = "INVALID_REQUEST"
	ErrCodeValidation         = "VALIDATION_FAILED"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeUserExists         = "USER_EXISTS"
	ErrCodeCSRFMissing        = "CSRF_TOKEN_MISSING"
	ErrCodeCSRFInvalid        = "CSRF_TOKEN_INVALID"
	ErrCodeOriginRejected     = "ORIGIN_REJECTED"
	ErrCodeResetNotFound      = "RESET_CODE_NOT_FOUND"
	ErrCodeResetExpired       = "RESET_CODE_EXPIRED"
	ErrCodeResetUsed          = "RESET_CODE_USED"
	ErrCodePromoInvalid       = "PROMO_CODE_INVALID"
	ErrCodePromoExhausted     = "PROMO_CODE_EXHAUSTED"
	ErrCodeDocumentNotFound   = "DOCUMENT_NOT_FOUND"
)

// NewInvalidRequestError はリクエストボディの解析失敗エラーを生成する。
func NewInvalidRequestError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}

// NewValidationError は入力値検証エラーを生成する。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  fmt.Sprintf("入力値が不正です: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewUnauthorizedError は認証が必要な場合のエラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewInvalidCredentialsError は認証失敗エラーを生成する。
// アカウント列挙を防ぐため、ユーザー不存在とパスワード誤りを区別しない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewUserExistsError は登録済みメールアドレスの重複登録エラーを生成する。
func NewUserExistsError() *APIError {
	return &APIError{
		Code:     ErrCodeUserExists,
		Message:  "このメールアドレスは既に登録されています。",
		Category: "auth",
		Action:   "ログインするか、パスワード再設定をお試しください。",
	}
}

// NewCSRFMissingError はCSRFトークン未送信エラーを生成する。
func NewCSRFMissingError() *APIError {
	return &APIError{
		Code:     ErrCodeCSRFMissing,
		Message:  "CSRFトークンが送信されていません。",
		Category: "security",
		Action:   "GET /api/csrf-token でトークンを取得し、X-CSRF-Tokenヘッダーに設定してください。",
	}
}

// NewCSRFInvalidError はCSRFトークン不正エラーを生成する。
func NewCSRFInvalidError() *APIError {
	return &APIError{
		Code:     ErrCodeCSRFInvalid,
		Message:  "CSRFトークンが無効または期限切れです。",
		Category: "security",
		Action:   "GET /api/csrf-token でトークンを再取得してください。",
	}
}

// NewOriginRejectedError は許可されていないオリジンからのリクエストエラーを生成する。
func NewOriginRejectedError() *APIError {
	return &APIError{
		Code:     ErrCodeOriginRejected,
		Message:  "許可されていないオリジンからのリクエストです。",
		Category: "security",
		Action:   "アプリケーションの正規のページから操作してください。",
	}
}

// NewResetNotFoundError は再設定コード不一致エラーを生成する。
func NewResetNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeResetNotFound,
		Message:  "再設定コードが正しくありません。",
		Category: "auth",
		Action:   "メールに記載されたコードを確認してください。",
	}
}

// NewResetExpiredError は再設定コード期限切れエラーを生成する。
func NewResetExpiredError() *APIError {
	return &APIError{
		Code:     ErrCodeResetExpired,
		Message:  "再設定コードの有効期限が切れています。",
		Category: "auth",
		Action:   "パスワード再設定を最初からやり直してください。",
	}
}

// NewResetUsedError は再設定コード使用済みエラーを生成する。
func NewResetUsedError() *APIError {
	return &APIError{
		Code:     ErrCodeResetUsed,
		Message:  "この再設定コードは既に使用されています。",
		Category: "auth",
		Action:   "パスワード再設定を最初からやり直してください。",
	}
}

// NewPromoInvalidError は無効なプロモコードエラーを生成する。
func NewPromoInvalidError() *APIError {
	return &APIError{
		Code:     ErrCodePromoInvalid,
		Message:  "プロモーションコードが無効です。",
		Category: "promo",
		Action:   "コードの綴りを確認してください。",
	}
}

// NewPromoExhaustedError は利用上限到達済みのプロモコードエラーを生成する。
func NewPromoExhaustedError() *APIError {
	return &APIError{
		Code:     ErrCodePromoExhausted,
		Message:  "このプロモーションコードは利用上限に達しています。",
		Category: "promo",
		Action:   "別のコードをお試しください。",
	}
}

// NewDocumentNotFoundError は広告コピー文書未検出エラーを生成する。
func NewDocumentNotFoundError(docID string) *APIError {
	return &APIError{
		Code:     ErrCodeDocumentNotFound,
		Message:  fmt.Sprintf("指定された文書が見つかりません: %s", docID),
		Category: "validation",
		Action:   "文書IDを確認してください。",
	}
}
