package dto

import (
	"time"

	"golang.org/x/oauth2"
)

// AccessToken represents the credential issued by the platform token
// endpoint. ExpireTime is absolute (epoch milliseconds); ExpiresIn and
// SlidingWindow are relative lifetimes in seconds used to derive ExpireTime
// when the server did not send an absolute one.
type AccessToken struct {
	Token         string `json:"access_token"`
	TokenType     string `json:"token_type,omitempty"`
	ExpireTime    int64  `json:"expireTime,omitempty"`
	ExpiresIn     int64  `json:"expires_in,omitempty"`
	SlidingWindow int64  `json:"sliding_window,omitempty"`
}

// ExpiresAt returns the absolute expiry, or the zero time when the token
// carries no expiry and is treated as non-expiring.
func (t *AccessToken) ExpiresAt() time.Time {
	if t == nil || t.ExpireTime == 0 {
		return time.Time{}
	}
	return time.UnixMilli(t.ExpireTime)
}

// IsExpired returns true only for tokens with an ExpireTime at or before
// now. A token without ExpireTime never expires.
func (t *AccessToken) IsExpired() bool {
	if t == nil || t.Token == "" {
		return true
	}
	if t.ExpireTime == 0 {
		return false
	}
	return !time.Now().Before(time.UnixMilli(t.ExpireTime))
}

// Sliding reports whether the token uses a sliding expiration window.
func (t *AccessToken) Sliding() bool {
	return t != nil && t.SlidingWindow > 0
}

// FromOAuth2 maps an oauth2 token into the SDK token model.
func FromOAuth2(tok *oauth2.Token) *AccessToken {
	if tok == nil {
		return nil
	}
	out := &AccessToken{
		Token:     tok.AccessToken,
		TokenType: tok.TokenType,
	}
	if !tok.Expiry.IsZero() {
		out.ExpireTime = tok.Expiry.UnixMilli()
	}
	return out
}
