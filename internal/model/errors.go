// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, calendar, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeMissingPendingIdentity = "MISSING_PENDING_IDENTITY"
	ErrCodeNoLinkedAccount        = "NO_LINKED_ACCOUNT"
	ErrCodeAccountNotLinked       = "ACCOUNT_NOT_LINKED"
	ErrCodeUsernameTaken          = "USERNAME_TAKEN"
	ErrCodeUserNotFound           = "USER_NOT_FOUND"
	ErrCodeInvalidTimeInterval    = "INVALID_TIME_INTERVAL"
)

// ErrMissingPendingIdentity はペンディングアイデンティティCookieなしで
// createUserが呼ばれた場合の前提条件エラー。
// ユーザー操作では回復できないフロー異常として扱う。
var ErrMissingPendingIdentity = &APIError{
	Code:     ErrCodeMissingPendingIdentity,
	Message:  "サインアップ中のユーザーIDがCookieに見つかりません。",
	Category: "auth",
	Action:   "サインアップを最初からやり直してください。",
}

// ErrNoLinkedAccount は対象プロバイダーの連携アカウントが存在しない場合のエラー。
var ErrNoLinkedAccount = &APIError{
	Code:     ErrCodeNoLinkedAccount,
	Message:  "Googleアカウントの連携情報が見つかりません。",
	Category: "auth",
	Action:   "カレンダー連携を行ってから再度お試しください。",
}

// ErrAccountNotLinked は同じメールアドレスの既存ユーザーに未連携の外部IDで
// ログインしようとした場合のエラー。プロバイダー間の自動連携は行わない。
var ErrAccountNotLinked = &APIError{
	Code:     ErrCodeAccountNotLinked,
	Message:  "このメールアドレスは別のログイン方法で登録済みです。",
	Category: "auth",
	Action:   "登録時に使用したログイン方法でサインインしてください。",
}

// NewUsernameTakenError はユーザー名重複エラーを生成する。
func NewUsernameTakenError(username string) *APIError {
	return &APIError{
		Code:     ErrCodeUsernameTaken,
		Message:  fmt.Sprintf("このユーザー名は既に使用されています: %s", username),
		Category: "validation",
		Action:   "別のユーザー名を入力してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewInvalidTimeIntervalError は無効な時間帯エラーを生成する。
func NewInvalidTimeIntervalError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidTimeInterval,
		Message:  fmt.Sprintf("無効な時間帯です: %s", reason),
		Category: "validation",
		Action:   "曜日は0〜6、時刻は0〜1440分の範囲で、終了が開始より後になるよう指定してください。",
	}
}
