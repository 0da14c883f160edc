// Package calendar はGoogleカレンダーAPIクライアントの構築を提供する。
package calendar

import (
	"context"
	"fmt"

	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/hitoshi/ignitecall/internal/token"
)

// CredentialSource はAPI呼び出し可能な資格情報の供給元。
type CredentialSource interface {
	GetAuthorizedCredential(ctx context.Context, userID string) (*token.Credential, error)
}

// ClientFactory はユーザーごとの認可済みカレンダークライアントを構築する。
type ClientFactory struct {
	credentials CredentialSource
}

// NewClientFactory はClientFactoryを生成する。
func NewClientFactory(credentials CredentialSource) *ClientFactory {
	return &ClientFactory{credentials: credentials}
}

// ServiceForUser は指定ユーザーの資格情報で認可されたカレンダーサービスを返す。
// 資格情報の有効期限が切れている場合は先にリフレッシュされる。
func (f *ClientFactory) ServiceForUser(ctx context.Context, userID string) (*gcal.Service, error) {
	cred, err := f.credentials.GetAuthorizedCredential(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get authorized credential: %w", err)
	}

	svc, err := gcal.NewService(ctx, option.WithTokenSource(cred.TokenSource()))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}

	return svc, nil
}
