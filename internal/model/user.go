// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// サインアップフローの最初のステップでid+usernameのみのプレースホルダ行として
// 作成され、初回の外部ログイン成功時にname/email/avatar_urlが補完される。
type User struct {
	ID        string
	Name      string
	Username  string
	Email     string // プレースホルダ状態では空（DB上はNULL）
	AvatarURL string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsPlaceholder はプロフィール補完前のプレースホルダ状態かどうかを返す。
func (u *User) IsPlaceholder() bool {
	return u.Email == ""
}

// Account は外部プロバイダーとの連携アカウントを表す。
// (Provider, ProviderAccountID)の組は全体で一意であり、
// 「この外部IDは既に連携済みか」の検索キーとして使用する。
type Account struct {
	ID                string
	UserID            string
	Type              string
	Provider          string
	ProviderAccountID string
	AccessToken       string
	RefreshToken      string
	IDToken           string
	TokenType         string
	Scope             string
	SessionState      string
	ExpiresAt         *int64 // アクセストークンの有効期限（エポック秒）。nilは無期限扱い
	CreatedAt         time.Time
}

// AccountCredentials はトークンリフレッシュ後に永続化する資格情報一式。
// RefreshTokenが空の場合、保存済みの値を維持する（プロバイダーは
// リフレッシュトークンを再発行しないことがある）。
type AccountCredentials struct {
	AccessToken  string
	RefreshToken string
	IDToken      string
	TokenType    string
	Scope        string
	ExpiresAt    *int64 // エポック秒
}

// Session はユーザーのログインセッションを表す。
// SessionTokenは検索キーとなる不透明なトークン。
type Session struct {
	SessionToken string
	UserID       string
	ExpiresAt    time.Time
	CreatedAt    time.Time
}

// UserTimeInterval はユーザーが予約を受け付ける曜日ごとの時間帯を表す。
// 時刻は0時からの経過分で保持する（例: 9:00 = 540）。
type UserTimeInterval struct {
	ID                 string
	UserID             string
	WeekDay            int
	TimeStartInMinutes int
	TimeEndInMinutes   int
	CreatedAt          time.Time
}
