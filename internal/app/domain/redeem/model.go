package redeem

import "time"

// Status of a redemption request.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCanceled  Status = "canceled"
)

// Request asks for the physical item attached to a held token.
type Request struct {
	ID            string    `json:"id" db:"id"`
	CollectionID  string    `json:"collectionId" db:"collection_id"`
	TokenID       string    `json:"tokenId" db:"token_id"`
	WalletAddress string    `json:"walletAddress" db:"wallet_address"`
	UserID        string    `json:"userId" db:"user_id"`
	Email         string    `json:"email" db:"email"`
	Name          string    `json:"name" db:"name"`
	Address       string    `json:"address" db:"address"`
	Status        Status    `json:"status" db:"status"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time `json:"updatedAt" db:"updated_at"`
}

// Open reports whether the request still blocks another one for its token.
func (r Request) Open() bool {
	return r.Status == StatusPending || r.Status == StatusCompleted
}
