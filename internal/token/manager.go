package token

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/ignitecall/internal/model"
	"github.com/hitoshi/ignitecall/internal/repository"
)

// MetricsRecorder はトークンリフレッシュのメトリクス記録インターフェース。
type MetricsRecorder interface {
	RecordTokenRefresh(result string)
	ObserveTokenRefreshDuration(seconds float64)
}

// Manager は連携アカウントに保存された資格情報の有効期限を管理し、
// 必要に応じてリフレッシュ交換を行った上で使用可能な資格情報を返す。
//
// 同一ユーザーへの並行呼び出しは同期しない。期限切れ時に複数の呼び出しが
// 同時に走ると、それぞれが独立にリフレッシュ交換を行い、最後の永続化が勝つ。
// どの交換結果も有効な資格情報であるため実害はない。
type Manager struct {
	accounts  repository.AccountRepository
	exchanger RefreshExchanger
	provider  string
	metrics   MetricsRecorder
	now       func() time.Time
}

// NewManager はManagerを生成する。metricsはnilでもよい。
func NewManager(accounts repository.AccountRepository, exchanger RefreshExchanger, metrics MetricsRecorder) *Manager {
	return &Manager{
		accounts:  accounts,
		exchanger: exchanger,
		provider:  "google",
		metrics:   metrics,
		now:       time.Now,
	}
}

// GetAuthorizedCredential は指定ユーザーのGoogle資格情報を使用可能な状態で返す。
// 連携アカウントが存在しない場合はErrNoLinkedAccountを返す。
// 有効期限情報がない資格情報はそのまま返す。
// 期限切れの場合はリフレッシュ交換を行い、結果を永続化してから返す。
func (m *Manager) GetAuthorizedCredential(ctx context.Context, userID string) (*Credential, error) {
	account, err := m.accounts.FindByUserAndProvider(ctx, userID, m.provider)
	if err != nil {
		return nil, fmt.Errorf("failed to find linked account: %w", err)
	}
	if account == nil {
		return nil, model.ErrNoLinkedAccount
	}

	cred := credentialFromAccount(account)
	if !cred.Expired(m.now()) {
		return cred, nil
	}

	refreshed, err := m.refresh(ctx, account)
	if err != nil {
		return nil, err
	}

	return refreshed, nil
}

// refresh はリフレッシュ交換を実行し、結果を永続化した資格情報を返す。
func (m *Manager) refresh(ctx context.Context, account *model.Account) (*Credential, error) {
	start := m.now()

	result, err := m.exchanger.Refresh(ctx, account.RefreshToken)
	if m.metrics != nil {
		m.metrics.ObserveTokenRefreshDuration(time.Since(start).Seconds())
	}
	if err != nil {
		m.recordRefresh("error")
		return nil, fmt.Errorf("failed to refresh token for user %s: %w", account.UserID, err)
	}

	creds := model.AccountCredentials{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		IDToken:      result.IDToken,
		TokenType:    result.TokenType,
		Scope:        result.Scope,
	}
	// プロバイダーがリフレッシュトークンを再発行しなかった場合は保存済みの値を維持する
	if creds.RefreshToken == "" {
		creds.RefreshToken = account.RefreshToken
	}
	if creds.IDToken == "" {
		creds.IDToken = account.IDToken
	}
	if creds.Scope == "" {
		creds.Scope = account.Scope
	}
	if result.ExpiryMillis != nil {
		seconds := toStoredSeconds(*result.ExpiryMillis)
		creds.ExpiresAt = &seconds
	}

	if err := m.accounts.UpdateCredentials(ctx, account.ID, creds); err != nil {
		m.recordRefresh("error")
		return nil, fmt.Errorf("failed to persist refreshed credentials: %w", err)
	}

	m.recordRefresh("success")
	slog.Info("token refreshed",
		slog.String("user_id", account.UserID),
		slog.String("provider", account.Provider),
	)

	cred := &Credential{
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
		ExpiryMillis: result.ExpiryMillis,
	}
	return cred, nil
}

// recordRefresh はメトリクスが設定されている場合のみリフレッシュ結果を記録する。
func (m *Manager) recordRefresh(result string) {
	if m.metrics != nil {
		m.metrics.RecordTokenRefresh(result)
	}
}

// credentialFromAccount は保存済みアカウント行から資格情報を組み立てる。
// ストレージのエポック秒をエポックミリ秒へ引き上げる。
func credentialFromAccount(account *model.Account) *Credential {
	cred := &Credential{
		AccessToken:  account.AccessToken,
		RefreshToken: account.RefreshToken,
	}
	if account.ExpiresAt != nil {
		millis := toCredentialMillis(*account.ExpiresAt)
		cred.ExpiryMillis = &millis
	}
	return cred
}
