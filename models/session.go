package models

import "time"

// Session represents an authenticated session for an account.
type Session struct {
	Token      string    `json:"token"`
	AccountID  string    `json:"accountId"`
	Persistent bool      `json:"persistent,omitempty"`
	ExpiresAt  time.Time `json:"expiresAt"`
	CreatedAt  time.Time `json:"createdAt"`
	UserAgent  string    `json:"userAgent,omitempty"`
	IPAddress  string    `json:"ipAddress,omitempty"`
}

// IsExpired returns true if the session has expired.
func (s Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}
