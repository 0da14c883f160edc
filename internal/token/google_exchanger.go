package token

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// RefreshExchanger はリフレッシュトークンを新しいアクセストークンに交換する。
type RefreshExchanger interface {
	// Refresh はリフレッシュトークンでトークンエンドポイントへ交換リクエストを送る。
	Refresh(ctx context.Context, refreshToken string) (*RefreshedToken, error)
}

// RefreshedToken はリフレッシュ交換の結果。
// RefreshTokenはプロバイダーが再発行した場合のみ非空。
// ExpiryMillisはエポックミリ秒。レスポンスに有効期限がない場合はnil。
type RefreshedToken struct {
	AccessToken  string
	RefreshToken string
	IDToken      string
	TokenType    string
	Scope        string
	ExpiryMillis *int64
}

// GoogleExchanger はGoogleのトークンエンドポイントに対するRefreshExchanger実装。
type GoogleExchanger struct {
	conf *oauth2.Config
}

// NewGoogleExchanger はGoogleExchangerを生成する。
// tokenURLは通常空でよい（テスト時のみオーバーライドする）。
func NewGoogleExchanger(clientID, clientSecret, tokenURL string) *GoogleExchanger {
	endpoint := google.Endpoint
	if tokenURL != "" {
		endpoint.TokenURL = tokenURL
	}
	return &GoogleExchanger{
		conf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     endpoint,
		},
	}
}

// Refresh はリフレッシュトークンで新しいアクセストークンを取得する。
// 期限切れのシードトークンをTokenSourceに渡すことで、
// oauth2パッケージにリフレッシュ交換を強制させる。
func (e *GoogleExchanger) Refresh(ctx context.Context, refreshToken string) (*RefreshedToken, error) {
	seed := &oauth2.Token{
		RefreshToken: refreshToken,
		Expiry:       time.Unix(1, 0),
	}

	tok, err := e.conf.TokenSource(ctx, seed).Token()
	if err != nil {
		return nil, fmt.Errorf("refresh exchange failed: %w", err)
	}

	refreshed := &RefreshedToken{
		AccessToken: tok.AccessToken,
		TokenType:   tok.TokenType,
	}
	// 再発行されなかった場合、oauth2はシードのリフレッシュトークンを引き継ぐ。
	// 保存済みの値と同じものを上書きしても害はないためそのまま渡す。
	refreshed.RefreshToken = tok.RefreshToken
	if idToken, ok := tok.Extra("id_token").(string); ok {
		refreshed.IDToken = idToken
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		refreshed.Scope = scope
	}
	if !tok.Expiry.IsZero() {
		millis := tok.Expiry.UnixMilli()
		refreshed.ExpiryMillis = &millis
	}

	return refreshed, nil
}

// compile-time interface check
var _ RefreshExchanger = (*GoogleExchanger)(nil)
