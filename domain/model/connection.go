package model

import "time"

// PlatformConnection stores a user's credentials for one platform. Rows are never hard-deleted;
// disconnecting clears the tokens and keeps the account history.
type PlatformConnection struct {
	ID            int64      `json:"id"`
	UserID        string     `json:"user_id"`
	Platform      Platform   `json:"platform"`
	Connected     bool       `json:"connected"`
	AccountID     string     `json:"account_id"`
	AccountName   string     `json:"account_name"`
	AccountHandle *string    `json:"account_handle,omitempty"`
	AccessToken   string     `json:"-"`
	RefreshToken  string     `json:"-"`
	Scopes        string     `json:"scopes"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	LastSyncAt    *time.Time `json:"last_sync_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Usable reports whether the connection holds a token that can be presented to the platform.
func (c *PlatformConnection) Usable() bool {
	return c != nil && c.Connected && c.AccessToken != ""
}

// ExpiresWithin reports whether the access token expires before now+d. A nil expiry never expires.
func (c *PlatformConnection) ExpiresWithin(now time.Time, d time.Duration) bool {
	if c.ExpiresAt == nil {
		return false
	}
	return !c.ExpiresAt.After(now.Add(d))
}

func (c *PlatformConnection) Expired(now time.Time) bool {
	return c.ExpiresWithin(now, 0)
}
