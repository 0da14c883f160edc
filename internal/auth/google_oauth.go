package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// ProviderGoogle はGoogleプロバイダーの識別名。accountsテーブルのprovider列に入る。
const ProviderGoogle = "google"

const defaultGoogleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

// googleScopes はログイン時に要求するスコープ。
// カレンダースコープを含めることで、取得したトークンをそのまま
// Googleカレンダー呼び出しの認可に使用できる。
var googleScopes = []string{
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/userinfo.profile",
	"https://www.googleapis.com/auth/calendar",
}

// TokenSet は認可コード交換で得られる資格情報一式。
// ExpiresAtはエポック秒。nilは有効期限情報なしを表す。
type TokenSet struct {
	AccessToken  string
	RefreshToken string
	IDToken      string
	TokenType    string
	Scope        string
	ExpiresAt    *int64
}

// ProviderUser は外部プロバイダーから取得したユーザー情報を表す。
type ProviderUser struct {
	ProviderAccountID string
	Email             string
	Name              string
	AvatarURL         string
}

// Provider は外部認証プロバイダーのインターフェース。
// 将来的に複数IdP（Google, GitHub等）に対応するための抽象化。
type Provider interface {
	// Name はprovider列に格納する識別名を返す。
	Name() string
	// AuthCodeURL は認可エンドポイントのURLを生成する。
	AuthCodeURL(state string) string
	// Exchange は認可コードをトークン一式に交換し、ユーザー情報を取得する。
	Exchange(ctx context.Context, code string) (*TokenSet, *ProviderUser, error)
}

// GoogleProviderConfig はGoogleプロバイダーの設定。
type GoogleProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// テスト用にオーバーライド可能なURL
	AuthURL     string
	TokenURL    string
	UserInfoURL string
}

// GoogleProvider はgolang.org/x/oauth2によるGoogle OAuth 2.0認証を提供する。
type GoogleProvider struct {
	conf        *oauth2.Config
	userInfoURL string
}

// NewGoogleProvider はGoogleProviderを生成する。
func NewGoogleProvider(config GoogleProviderConfig) *GoogleProvider {
	endpoint := google.Endpoint
	if config.AuthURL != "" {
		endpoint.AuthURL = config.AuthURL
	}
	if config.TokenURL != "" {
		endpoint.TokenURL = config.TokenURL
	}
	userInfoURL := config.UserInfoURL
	if userInfoURL == "" {
		userInfoURL = defaultGoogleUserInfoURL
	}

	return &GoogleProvider{
		conf: &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			RedirectURL:  config.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       googleScopes,
		},
		userInfoURL: userInfoURL,
	}
}

// Name はプロバイダー識別名を返す。
func (p *GoogleProvider) Name() string {
	return ProviderGoogle
}

// AuthCodeURL はGoogle OAuthの認可URLを生成する。
// access_type=offlineとprompt=consentでリフレッシュトークンの発行を要求する。
func (p *GoogleProvider) AuthCodeURL(state string) string {
	return p.conf.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

// Exchange は認可コードをトークン一式に交換し、ユーザー情報を取得する。
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*TokenSet, *ProviderUser, error) {
	tok, err := p.conf.Exchange(ctx, code)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	set := tokenSetFromOAuth2(tok)

	user, err := p.fetchUserInfo(ctx, tok.AccessToken)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch user info: %w", err)
	}

	return set, user, nil
}

// tokenSetFromOAuth2 はoauth2.TokenをTokenSetへ変換する。
// 有効期限はエポック秒に丸める。ゼロ値のExpiryはnilとして扱う。
func tokenSetFromOAuth2(tok *oauth2.Token) *TokenSet {
	set := &TokenSet{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
	}
	if idToken, ok := tok.Extra("id_token").(string); ok {
		set.IDToken = idToken
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		set.Scope = scope
	}
	if !tok.Expiry.IsZero() {
		seconds := tok.Expiry.Unix()
		set.ExpiresAt = &seconds
	}
	return set
}

// googleUserInfo はGoogleのユーザー情報エンドポイントのレスポンス。
type googleUserInfo struct {
	Sub     string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// fetchUserInfo はアクセストークンでGoogleのユーザー情報を取得する。
func (p *GoogleProvider) fetchUserInfo(ctx context.Context, accessToken string) (*ProviderUser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create user info request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("user info request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read user info response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user info fetch failed with status %d: %s", resp.StatusCode, string(body))
	}

	var userInfo googleUserInfo
	if err := json.Unmarshal(body, &userInfo); err != nil {
		return nil, fmt.Errorf("failed to parse user info response: %w", err)
	}

	if userInfo.Sub == "" {
		return nil, fmt.Errorf("empty sub in user info response")
	}

	return &ProviderUser{
		ProviderAccountID: userInfo.Sub,
		Email:             userInfo.Email,
		Name:              userInfo.Name,
		AvatarURL:         userInfo.Picture,
	}, nil
}

// compile-time interface check
var _ Provider = (*GoogleProvider)(nil)
