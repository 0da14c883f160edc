package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/ignitecall/internal/model"
	"github.com/hitoshi/ignitecall/internal/repository"
)

// MetricsRecorder はログイン結果のメトリクス記録インターフェース。
type MetricsRecorder interface {
	RecordLogin(result string)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
}

// Service は外部認証プロトコルのサインイン/サインアウト/セッション読み書きを
// Adapterの操作として実行する。
type Service struct {
	users    repository.UserRepository
	accounts repository.AccountRepository
	sessions repository.SessionRepository
	provider Provider
	config   ServiceConfig
	metrics  MetricsRecorder
}

// NewService はServiceを生成する。metricsはnilでもよい。
func NewService(
	provider Provider,
	users repository.UserRepository,
	accounts repository.AccountRepository,
	sessions repository.SessionRepository,
	config ServiceConfig,
	metrics MetricsRecorder,
) *Service {
	return &Service{
		users:    users,
		accounts: accounts,
		sessions: sessions,
		provider: provider,
		config:   config,
		metrics:  metrics,
	}
}

// AuthCodeURL はOAuth認可URLを生成する。
func (s *Service) AuthCodeURL(state string) string {
	return s.provider.AuthCodeURL(state)
}

// HandleCallback はOAuthコールバックを処理し、セッションを発行する。
// 連携済みの外部IDであれば既存ユーザーとしてログインする。
// 未連携かつ同一メールの既存ユーザーがいなければ、ペンディングアイデンティティ
// Cookieが指すプレースホルダ行を補完（createUser）し、アカウントを連携する。
// 同一メールの既存ユーザーがいる場合はErrAccountNotLinkedで失敗する
// （プロバイダー間の自動連携は行わない）。
func (s *Service) HandleCallback(ctx context.Context, code string, pending PendingIdentity) (*model.Session, error) {
	adapter := NewAdapter(s.users, s.accounts, s.sessions, pending)

	// 1. 認可コードをトークン一式に交換し、ユーザー情報を取得
	tokens, providerUser, err := s.provider.Exchange(ctx, code)
	if err != nil {
		s.recordLogin("exchange_error")
		return nil, fmt.Errorf("failed to exchange oauth code: %w", err)
	}

	// 2. 外部IDが連携済みか判定
	user, err := adapter.GetUserByAccount(ctx, s.provider.Name(), providerUser.ProviderAccountID)
	if err != nil {
		s.recordLogin("error")
		return nil, fmt.Errorf("failed to find user by account: %w", err)
	}

	if user != nil {
		// 3a. 既存ユーザー: そのままセッション発行へ
		slog.Info("existing user logged in",
			slog.String("user_id", user.ID),
			slog.String("provider", s.provider.Name()),
		)
	} else {
		// 3b. 未連携: 同一メールの既存ユーザーがいれば自動連携せず失敗させる
		existing, err := adapter.GetUserByEmail(ctx, providerUser.Email)
		if err != nil {
			s.recordLogin("error")
			return nil, fmt.Errorf("failed to find user by email: %w", err)
		}
		if existing != nil {
			s.recordLogin("account_not_linked")
			return nil, model.ErrAccountNotLinked
		}

		// プレースホルダ行を補完して正規ユーザーにする
		user, err = adapter.CreateUser(ctx, AdapterUser{
			Name:      providerUser.Name,
			Email:     providerUser.Email,
			AvatarURL: providerUser.AvatarURL,
		})
		if err != nil {
			s.recordLogin("create_user_error")
			return nil, fmt.Errorf("failed to create user: %w", err)
		}

		// 外部IDとユーザーを連携する
		if err := adapter.LinkAccount(ctx, &model.Account{
			UserID:            user.ID,
			Type:              "oauth",
			Provider:          s.provider.Name(),
			ProviderAccountID: providerUser.ProviderAccountID,
			AccessToken:       tokens.AccessToken,
			RefreshToken:      tokens.RefreshToken,
			IDToken:           tokens.IDToken,
			TokenType:         tokens.TokenType,
			Scope:             tokens.Scope,
			ExpiresAt:         tokens.ExpiresAt,
		}); err != nil {
			s.recordLogin("link_error")
			return nil, fmt.Errorf("failed to link account: %w", err)
		}

		slog.Info("new user completed and linked",
			slog.String("user_id", user.ID),
			slog.String("provider", s.provider.Name()),
		)
	}

	// 4. セッションを発行
	sessionToken, err := generateSessionToken()
	if err != nil {
		s.recordLogin("error")
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	expires := time.Now().Add(time.Duration(s.config.SessionMaxAge) * time.Second)
	created, err := adapter.CreateSession(ctx, AdapterSession{
		SessionToken: sessionToken,
		UserID:       user.ID,
		Expires:      expires,
	})
	if err != nil {
		s.recordLogin("error")
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.recordLogin("success")
	return &model.Session{
		SessionToken: created.SessionToken,
		UserID:       created.UserID,
		ExpiresAt:    created.Expires,
	}, nil
}

// ResolveSession はセッショントークンからセッションと所有ユーザーを解決する。
// 未知または期限切れのトークンの場合は両方nilを返す（期限切れは削除する）。
// 残り有効期間が最大値の半分を切っている場合は有効期限を延長する
// （ローリングセッション）。
func (s *Service) ResolveSession(ctx context.Context, sessionToken string) (*model.Session, *model.User, error) {
	adapter := NewAdapter(s.users, s.accounts, s.sessions, nil)

	session, user, err := adapter.GetSessionAndUser(ctx, sessionToken)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get session and user: %w", err)
	}
	if session == nil {
		return nil, nil, nil
	}

	now := time.Now()
	if session.Expires.Before(now) {
		if err := adapter.DeleteSession(ctx, session.SessionToken); err != nil {
			slog.Warn("failed to delete expired session",
				slog.String("error", err.Error()),
			)
		}
		return nil, nil, nil
	}

	maxAge := time.Duration(s.config.SessionMaxAge) * time.Second
	if session.Expires.Sub(now) < maxAge/2 {
		session.Expires = now.Add(maxAge)
		if _, err := adapter.UpdateSession(ctx, *session); err != nil {
			return nil, nil, fmt.Errorf("failed to extend session: %w", err)
		}
	}

	return &model.Session{
			SessionToken: session.SessionToken,
			UserID:       session.UserID,
			ExpiresAt:    session.Expires,
		}, &model.User{
			ID:        user.ID,
			Name:      user.Name,
			Username:  user.Username,
			Email:     user.Email,
			AvatarURL: user.AvatarURL,
		}, nil
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, sessionToken string) error {
	if sessionToken == "" {
		return fmt.Errorf("session token is required")
	}

	adapter := NewAdapter(s.users, s.accounts, s.sessions, nil)
	if err := adapter.DeleteSession(ctx, sessionToken); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("user logged out")
	return nil
}

// recordLogin はメトリクスが設定されている場合のみログイン結果を記録する。
func (s *Service) recordLogin(result string) {
	if s.metrics != nil {
		s.metrics.RecordLogin(result)
	}
}

// generateSessionToken は暗号的に安全なセッショントークンを生成する。
func generateSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
