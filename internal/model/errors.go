// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, pass, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidRequest   = "INVALID_REQUEST"
	ErrCodePassNotFound     = "PASS_NOT_FOUND"
	ErrCodeInvalidCriterion = "INVALID_CRITERION"
	ErrCodeTooManyRows      = "TOO_MANY_ROWS"
)

// NewInvalidRequestError は不正なリクエストボディのエラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("リクエストが不正です: %s", reason),
		Category: "validation",
		Action:   "リクエストボディの形式を確認してください。",
	}
}

// NewPassNotFoundError はレンダーパス未検出エラーを生成する。
func NewPassNotFoundError(passID string) *APIError {
	return &APIError{
		Code:     ErrCodePassNotFound,
		Message:  fmt.Sprintf("指定されたレンダーパスが見つかりません: %s", passID),
		Category: "pass",
		Action:   "パスは保持期限を過ぎると破棄されます。新しいパスを実行してください。",
	}
}

// NewInvalidCriterionError は無効なフィルタ条件エラーを生成する。
func NewInvalidCriterionError(kind string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCriterion,
		Message:  fmt.Sprintf("無効なフィルタ条件です: %s", kind),
		Category: "validation",
		Action:   "条件には ready または match のいずれかを指定してください。",
	}
}

// NewTooManyRowsError は行数上限超過エラーを生成する。
func NewTooManyRowsError(count, limit int) *APIError {
	return &APIError{
		Code:     ErrCodeTooManyRows,
		Message:  fmt.Sprintf("行数が上限を超えています: %d > %d", count, limit),
		Category: "validation",
		Action:   "1回のレンダーパスに含める行数を減らしてください。",
	}
}
