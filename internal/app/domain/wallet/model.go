package wallet

import "time"

// Wallet is an on-chain address, optionally bound to a user.
type Wallet struct {
	ID        string    `json:"id" db:"id"`
	Address   string    `json:"address" db:"address"`
	OwnerID   *string   `json:"ownerId,omitempty" db:"owner_id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// OwnedBy reports whether the wallet is bound to userID.
func (w Wallet) OwnedBy(userID string) bool {
	return w.OwnerID != nil && *w.OwnerID == userID
}
