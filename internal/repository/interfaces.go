// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/ignitecall/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	// プレースホルダ行（email未設定）は検索対象に含まれない。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// FindByUsername はユーザー名でユーザーを検索する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// CreatePlaceholder はid+usernameのみのプレースホルダ行を作成する。
	// usernameが重複する場合はストアの一意性違反をそのまま返す。
	CreatePlaceholder(ctx context.Context, user *model.User) error

	// UpdateProfile は既存行のname/email/avatar_urlを更新する。
	// 対象IDの行が存在しない場合はエラーを返す。新規行は決して挿入しない。
	UpdateProfile(ctx context.Context, user *model.User) error

	// DeleteByID は指定IDのユーザーを削除する。
	// accounts、sessions、user_time_intervalsはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// AccountRepository は外部プロバイダー連携アカウントの永続化インターフェース。
type AccountRepository interface {
	// FindByProviderAccountID は(provider, provider_account_id)でアカウントを検索する。
	// 見つからない場合はnilを返す。
	FindByProviderAccountID(ctx context.Context, provider, providerAccountID string) (*model.Account, error)

	// FindByUserAndProvider はユーザーIDとプロバイダー名でアカウントを検索する。
	// 1ユーザー・1プロバイダーにつき高々1件を前提とする。見つからない場合はnilを返す。
	FindByUserAndProvider(ctx context.Context, userID, provider string) (*model.Account, error)

	// Link は連携アカウントを作成する。
	// (provider, provider_account_id)が既に存在する場合は一意性違反をそのまま返す。
	Link(ctx context.Context, account *model.Account) error

	// UpdateCredentials はトークンリフレッシュ後の資格情報一式を永続化する。
	// 対象IDの行が存在しない場合はエラーを返す。
	UpdateCredentials(ctx context.Context, id string, creds model.AccountCredentials) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	// session_tokenが重複する場合はストアの一意性違反をそのまま返す。
	Create(ctx context.Context, session *model.Session) error

	// FindByToken は指定トークンのセッションを取得する。見つからない場合はnilを返す。
	FindByToken(ctx context.Context, token string) (*model.Session, error)

	// FindByTokenWithUser はセッションと所有ユーザーを1回のJOINクエリで取得する。
	// トークンが未知の場合は両方nilを返す。
	FindByTokenWithUser(ctx context.Context, token string) (*model.Session, *model.User, error)

	// Update はセッションのuser_idとexpires_atを更新する。
	// 対象トークンの行が存在しない場合はエラーを返す。
	Update(ctx context.Context, session *model.Session) error

	// DeleteByToken は指定トークンのセッションを削除する。
	// 対象行が存在しない場合はエラーを返す。
	DeleteByToken(ctx context.Context, token string) error

	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// TimeIntervalRepository は予約受付時間帯の永続化インターフェース。
type TimeIntervalRepository interface {
	// CreateMany は複数の時間帯を同一トランザクションで作成する。
	CreateMany(ctx context.Context, intervals []*model.UserTimeInterval) error

	// ListByUserID はユーザーの時間帯一覧をweek_day昇順で返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.UserTimeInterval, error)
}
