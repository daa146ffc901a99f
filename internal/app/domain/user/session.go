package user

import "time"

// Session is the server side record behind a bearer token. Wallet logins
// without a bound user carry only the wallet address.
type Session struct {
	UserID        string    `json:"userId,omitempty"`
	WalletAddress string    `json:"walletAddress,omitempty"`
	IssuedAt      time.Time `json:"issuedAt"`
	ExpiresAt     time.Time `json:"expiresAt"`
}

// Expired reports whether the session is no longer valid at now.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}
