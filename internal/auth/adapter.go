// Package auth は外部認証プロトコルとの橋渡し、セッション管理を提供する。
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/ignitecall/internal/model"
	"github.com/hitoshi/ignitecall/internal/repository"
)

// AdapterUser は認証プロトコルが期待するユーザー射影。
// EmailVerifiedは常にnil（このシステムはメール検証を行わない）。
type AdapterUser struct {
	ID            string
	Name          string
	Username      string
	Email         string
	AvatarURL     string
	EmailVerified *time.Time
}

// AdapterSession は認証プロトコルが期待するセッション射影。
type AdapterSession struct {
	SessionToken string
	UserID       string
	Expires      time.Time
}

// Adapter は外部認証プロトコルが要求する永続化操作一式をリレーショナルストア上に実装する。
// 「存在するか」を表す読み取りは失敗ではなく不在（nil）を返す。
// プロトコル側は不在を正常な分岐（未登録→サインアップ続行等）として扱うため。
type Adapter struct {
	users    repository.UserRepository
	accounts repository.AccountRepository
	sessions repository.SessionRepository
	pending  PendingIdentity
}

// NewAdapter はAdapterを生成する。
// pendingはCreateUserでのみ使用される。nilの場合、CreateUserは常に
// ErrMissingPendingIdentityで失敗する。
func NewAdapter(
	users repository.UserRepository,
	accounts repository.AccountRepository,
	sessions repository.SessionRepository,
	pending PendingIdentity,
) *Adapter {
	return &Adapter{
		users:    users,
		accounts: accounts,
		sessions: sessions,
		pending:  pending,
	}
}

// projectUser はドメインモデルをプロトコル射影へ変換する。
func projectUser(user *model.User) *AdapterUser {
	return &AdapterUser{
		ID:            user.ID,
		Name:          user.Name,
		Username:      user.Username,
		Email:         user.Email,
		AvatarURL:     user.AvatarURL,
		EmailVerified: nil,
	}
}

// CreateUser はペンディングアイデンティティCookieが指すプレースホルダ行を補完する。
// 新規行は決して挿入しない。Cookieが無い場合はErrMissingPendingIdentityを返す。
// 補完に成功した場合はCookieを破棄し、完成したユーザー射影を返す。
func (a *Adapter) CreateUser(ctx context.Context, candidate AdapterUser) (*AdapterUser, error) {
	var userID string
	if a.pending != nil {
		userID = a.pending.UserID()
	}
	if userID == "" {
		return nil, model.ErrMissingPendingIdentity
	}

	if err := a.users.UpdateProfile(ctx, &model.User{
		ID:        userID,
		Name:      candidate.Name,
		Email:     candidate.Email,
		AvatarURL: candidate.AvatarURL,
	}); err != nil {
		return nil, fmt.Errorf("failed to complete placeholder user: %w", err)
	}

	a.pending.Clear()

	user, err := a.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload completed user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	return projectUser(user), nil
}

// GetUser は指定IDのユーザーを返す。見つからない場合はnilを返す。
func (a *Adapter) GetUser(ctx context.Context, id string) (*AdapterUser, error) {
	user, err := a.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}
	return projectUser(user), nil
}

// GetUserByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
func (a *Adapter) GetUserByEmail(ctx context.Context, email string) (*AdapterUser, error) {
	user, err := a.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}
	return projectUser(user), nil
}

// GetUserByAccount は(provider, providerAccountID)で連携アカウントを検索し、
// 所有ユーザーを返す。アカウントが存在しない場合はnilを返す。
// ログイン試行のたびに「この外部IDは連携済みか」を判定する主要な検索。
func (a *Adapter) GetUserByAccount(ctx context.Context, provider, providerAccountID string) (*AdapterUser, error) {
	account, err := a.accounts.FindByProviderAccountID(ctx, provider, providerAccountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, nil
	}

	user, err := a.users.FindByID(ctx, account.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}

	return projectUser(user), nil
}

// UpdateUser は既存ユーザーのname/email/avatar_urlを更新する。
// 対象IDの行が存在しない場合はストアのエラーをそのまま返す。
func (a *Adapter) UpdateUser(ctx context.Context, candidate AdapterUser) (*AdapterUser, error) {
	if err := a.users.UpdateProfile(ctx, &model.User{
		ID:        candidate.ID,
		Name:      candidate.Name,
		Email:     candidate.Email,
		AvatarURL: candidate.AvatarURL,
	}); err != nil {
		return nil, err
	}

	user, err := a.users.FindByID(ctx, candidate.ID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	return projectUser(user), nil
}

// LinkAccount は外部プロバイダーIDとユーザーの連携を作成する。
// (provider, providerAccountID)が連携済みの場合はストアの一意性違反をそのまま返す。
// 同一の外部IDが二重に連携されることを防ぐ仕組みはこの制約のみ。
func (a *Adapter) LinkAccount(ctx context.Context, account *model.Account) error {
	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now()
	}
	return a.accounts.Link(ctx, account)
}

// CreateSession はセッションを作成する。
func (a *Adapter) CreateSession(ctx context.Context, session AdapterSession) (*AdapterSession, error) {
	if err := a.sessions.Create(ctx, &model.Session{
		SessionToken: session.SessionToken,
		UserID:       session.UserID,
		ExpiresAt:    session.Expires,
		CreatedAt:    time.Now(),
	}); err != nil {
		return nil, err
	}
	return &session, nil
}

// GetSessionAndUser はセッションと所有ユーザーを1回の検索で返す。
// トークンが未知の場合は両方nilを返す。
func (a *Adapter) GetSessionAndUser(ctx context.Context, sessionToken string) (*AdapterSession, *AdapterUser, error) {
	session, user, err := a.sessions.FindByTokenWithUser(ctx, sessionToken)
	if err != nil {
		return nil, nil, err
	}
	if session == nil {
		return nil, nil, nil
	}

	return &AdapterSession{
		SessionToken: session.SessionToken,
		UserID:       session.UserID,
		Expires:      session.ExpiresAt,
	}, projectUser(user), nil
}

// UpdateSession はセッションのローテーション（有効期限・所有者の更新）を行う。
// 対象トークンの行が存在しない場合はストアのエラーをそのまま返す。
func (a *Adapter) UpdateSession(ctx context.Context, session AdapterSession) (*AdapterSession, error) {
	if err := a.sessions.Update(ctx, &model.Session{
		SessionToken: session.SessionToken,
		UserID:       session.UserID,
		ExpiresAt:    session.Expires,
	}); err != nil {
		return nil, err
	}
	return &session, nil
}

// DeleteSession は指定トークンのセッションを削除する。
// 対象行が存在しない場合はストアのエラーをそのまま返す。
func (a *Adapter) DeleteSession(ctx context.Context, sessionToken string) error {
	return a.sessions.DeleteByToken(ctx, sessionToken)
}
