// Package token はGoogle OAuthトークンのライフサイクル管理を提供する。
package token

import (
	"time"

	"golang.org/x/oauth2"
)

// Credential はGoogle API呼び出しに使用できる状態の資格情報。
// ExpiryMillisはエポックミリ秒。nilは有効期限情報なしを表し、
// その場合リフレッシュは試行されない。
type Credential struct {
	AccessToken  string
	RefreshToken string
	ExpiryMillis *int64
}

// Expired は基準時刻nowにおいて有効期限切れかどうかを返す。
// 有効期限情報がない場合は常にfalse。
func (c *Credential) Expired(now time.Time) bool {
	if c.ExpiryMillis == nil {
		return false
	}
	return *c.ExpiryMillis < now.UnixMilli()
}

// Token はoauth2.Tokenへ変換する。
func (c *Credential) Token() *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenType:    "Bearer",
	}
	if c.ExpiryMillis != nil {
		tok.Expiry = time.UnixMilli(*c.ExpiryMillis)
	}
	return tok
}

// TokenSource は静的なトークンソースへ変換する。
// 有効期限の管理はManagerが行うため、oauth2側の自動リフレッシュは使用しない。
func (c *Credential) TokenSource() oauth2.TokenSource {
	return oauth2.StaticTokenSource(c.Token())
}

// toStoredSeconds はエポックミリ秒をストレージ表現のエポック秒へ変換する。
// 秒未満は切り捨てる。
func toStoredSeconds(millis int64) int64 {
	if millis >= 0 {
		return millis / 1000
	}
	// 負値でも数学的な床関数に揃える
	return (millis - 999) / 1000
}

// toCredentialMillis はストレージ表現のエポック秒をエポックミリ秒へ変換する。
// 切り捨てで失われたミリ秒は復元できないため、秒境界の値になる。
func toCredentialMillis(seconds int64) int64 {
	return seconds * 1000
}
