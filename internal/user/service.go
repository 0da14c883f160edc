// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/ignitecall/internal/model"
	"github.com/hitoshi/ignitecall/internal/repository"
)

// usernamePattern はユーザー名として許可する文字列。
// 予約ページのURLパスになるため、英小文字・数字・ハイフンのみを許可する。
var usernamePattern = regexp.MustCompile(`^[a-z0-9-]{3,30}$`)

// Service はユーザー管理のサービス層。
// 登録（プレースホルダ作成）と退会処理のビジネスロジックを提供する。
type Service struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
) *Service {
	return &Service{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
	}
}

// Register はサインアップの最初のステップとしてプレースホルダユーザーを作成する。
// この時点ではid+username+nameのみが確定し、email/avatar_urlは
// 初回の外部ログイン成功時に補完される。
// ユーザー名が使用済みの場合はUsernameTakenエラーを返す。
func (s *Service) Register(ctx context.Context, name, username string) (*model.User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if !usernamePattern.MatchString(username) {
		return nil, &model.APIError{
			Code:     "INVALID_USERNAME",
			Message:  "ユーザー名は英小文字・数字・ハイフンのみ、3〜30文字で入力してください。",
			Category: "validation",
			Action:   "ユーザー名を修正してください。",
		}
	}

	existing, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("ユーザー名の確認に失敗しました: %w", err)
	}
	if existing != nil {
		return nil, model.NewUsernameTakenError(username)
	}

	now := time.Now()
	user := &model.User{
		ID:        uuid.New().String(),
		Name:      name,
		Username:  username,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.userRepo.CreatePlaceholder(ctx, user); err != nil {
		return nil, fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
	}

	slog.Info("placeholder user created",
		slog.String("user_id", user.ID),
		slog.String("username", username),
	)

	return user, nil
}

// Withdraw はユーザーの退会処理を実行する。
// 削除順序: sessions → user（+ CASCADE: accounts, user_time_intervals）
func (s *Service) Withdraw(ctx context.Context, userID string) error {
	// ユーザー存在確認
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError()
	}

	slog.Info("退会処理を開始します",
		slog.String("user_id", userID),
	)

	// 1. セッションを削除
	if err := s.sessionRepo.DeleteByUserID(ctx, userID); err != nil {
		return fmt.Errorf("セッションの削除に失敗しました: %w", err)
	}

	// 2. ユーザーを削除（accounts, user_time_intervalsはCASCADE削除）
	if err := s.userRepo.DeleteByID(ctx, userID); err != nil {
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}

	slog.Info("退会処理が完了しました",
		slog.String("user_id", userID),
	)

	return nil
}
