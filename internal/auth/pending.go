package auth

import "net/http"

// PendingIdentityCookieName はサインアップ中ユーザーのIDを保持するCookieの名前。
// サインアップの最初のステップで設定され、createUserで消費される。
const PendingIdentityCookieName = "@ignitecall:userId"

// pendingIdentityMaxAge はペンディングアイデンティティCookieの有効期間（7日）。
const pendingIdentityMaxAge = 60 * 60 * 24 * 7

// PendingIdentity はサインアップ中ユーザーを識別する短命トークンへの能力。
// 読み取り（リクエスト側）と破棄（レスポンス側）を1つの値で表し、
// アダプタ構築時に注入することでHTTPコンテキストなしでもテスト可能にする。
type PendingIdentity interface {
	// UserID はペンディング中のプレースホルダユーザーIDを返す。未設定なら空文字。
	UserID() string
	// Clear はペンディングアイデンティティCookieを破棄する。
	Clear()
}

// CookiePendingIdentity は1組のリクエスト/レスポンスに束縛された
// Cookie実装のPendingIdentity。
type CookiePendingIdentity struct {
	r      *http.Request
	w      http.ResponseWriter
	secure bool
}

// NewCookiePendingIdentity はCookiePendingIdentityを生成する。
func NewCookiePendingIdentity(w http.ResponseWriter, r *http.Request, secure bool) *CookiePendingIdentity {
	return &CookiePendingIdentity{r: r, w: w, secure: secure}
}

// UserID はCookieからペンディング中のユーザーIDを読み取る。未設定なら空文字。
func (c *CookiePendingIdentity) UserID() string {
	cookie, err := c.r.Cookie(PendingIdentityCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// Clear はペンディングアイデンティティCookieを破棄する。
func (c *CookiePendingIdentity) Clear() {
	http.SetCookie(c.w, &http.Cookie{
		Name:     PendingIdentityCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// SetPendingIdentityCookie はサインアップの最初のステップで
// プレースホルダユーザーIDをCookieに保存する。
// ブラウザセッションあたり有効なペンディングIDは常に1つ。
func SetPendingIdentityCookie(w http.ResponseWriter, userID string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     PendingIdentityCookieName,
		Value:    userID,
		Path:     "/",
		MaxAge:   pendingIdentityMaxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// compile-time interface check
var _ PendingIdentity = (*CookiePendingIdentity)(nil)
