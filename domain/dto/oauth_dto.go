package dto

import "time"

// TokenResult is the normalized response of a platform token endpoint.
type TokenResult struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token,omitempty"`
	ExpiresIn    time.Duration `json:"expires_in"`
	Scope        string        `json:"scope,omitempty"`
}

// ExpiresAt converts the relative lifetime into an absolute timestamp. Zero lifetime means no expiry.
func (t *TokenResult) ExpiresAt(now time.Time) *time.Time {
	if t.ExpiresIn <= 0 {
		return nil
	}
	at := now.Add(t.ExpiresIn).UTC()
	return &at
}

// AccountInfo identifies the external account a token acts on.
type AccountInfo struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Handle string `json:"handle,omitempty"`
	// AccessToken replaces the user token when the platform publishes with a per-account token.
	AccessToken string `json:"-"`
}

// Credential is a resolved, currently valid token ready for a publish call.
type Credential struct {
	UserID      string
	AccountID   string
	AccessToken string
}

type AuthURLResponse struct {
	Platform string `json:"platform"`
	AuthURL  string `json:"auth_url"`
}
