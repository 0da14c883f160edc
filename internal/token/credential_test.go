package token

import (
	"testing"
	"time"
)

func int64Ptr(v int64) *int64 {
	return &v
}

// TestCredential_Expired は有効期限判定の境界動作を検証する。
func TestCredential_Expired(t *testing.T) {
	now := time.UnixMilli(1700000000000)

	tests := []struct {
		name   string
		expiry *int64
		want   bool
	}{
		{"nil expiry never expires", nil, false},
		{"past expiry is expired", int64Ptr(1699999999999), true},
		{"future expiry is not expired", int64Ptr(1700000000001), false},
		{"exactly now is not expired", int64Ptr(1700000000000), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Credential{AccessToken: "at", ExpiryMillis: tt.expiry}
			if got := c.Expired(now); got != tt.want {
				t.Errorf("Expired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCredential_Token(t *testing.T) {
	c := &Credential{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		ExpiryMillis: int64Ptr(1700000000500),
	}

	tok := c.Token()

	if tok.AccessToken != "access-1" {
		t.Errorf("AccessToken = %q, want %q", tok.AccessToken, "access-1")
	}
	if tok.RefreshToken != "refresh-1" {
		t.Errorf("RefreshToken = %q, want %q", tok.RefreshToken, "refresh-1")
	}
	if tok.TokenType != "Bearer" {
		t.Errorf("TokenType = %q, want %q", tok.TokenType, "Bearer")
	}
	if got := tok.Expiry.UnixMilli(); got != 1700000000500 {
		t.Errorf("Expiry = %d, want %d", got, 1700000000500)
	}
}

// TestCredential_Token_NilExpiry は有効期限情報がない場合に
// oauth2.TokenのExpiryがゼロ値のままになることを検証する。
func TestCredential_Token_NilExpiry(t *testing.T) {
	c := &Credential{AccessToken: "access-1"}

	tok := c.Token()

	if !tok.Expiry.IsZero() {
		t.Errorf("Expiry = %v, want zero time", tok.Expiry)
	}
}

func TestCredential_TokenSource(t *testing.T) {
	c := &Credential{AccessToken: "access-1"}

	ts := c.TokenSource()
	tok, err := ts.Token()
	if err != nil {
		t.Fatalf("TokenSource().Token() returned error: %v", err)
	}
	if tok.AccessToken != "access-1" {
		t.Errorf("AccessToken = %q, want %q", tok.AccessToken, "access-1")
	}
}

// TestToStoredSeconds は秒未満の切り捨てが負値でも数学的な床関数に
// 揃うことを検証する。
func TestToStoredSeconds(t *testing.T) {
	tests := []struct {
		millis int64
		want   int64
	}{
		{0, 0},
		{999, 0},
		{1000, 1},
		{1999, 1},
		{1700003600123, 1700003600},
		{-1, -1},
		{-999, -1},
		{-1000, -1},
		{-1001, -2},
	}

	for _, tt := range tests {
		if got := toStoredSeconds(tt.millis); got != tt.want {
			t.Errorf("toStoredSeconds(%d) = %d, want %d", tt.millis, got, tt.want)
		}
	}
}

func TestToCredentialMillis(t *testing.T) {
	if got := toCredentialMillis(1700003600); got != 1700003600000 {
		t.Errorf("toCredentialMillis(1700003600) = %d, want 1700003600000", got)
	}
	if got := toCredentialMillis(0); got != 0 {
		t.Errorf("toCredentialMillis(0) = %d, want 0", got)
	}
}
