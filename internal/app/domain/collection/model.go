package collection

import (
	"encoding/json"
	"time"
)

// Kind distinguishes collection contract flavours.
type Kind string

const (
	KindEdition Kind = "edition"
	KindTiered  Kind = "tiered"
	KindDynamic Kind = "dynamic"
)

// Collection is an NFT collection owned by an organization. Sale times are
// epoch seconds; a nil PublishedAt marks a draft.
type Collection struct {
	ID             string     `json:"id" db:"id"`
	OrganizationID string     `json:"organizationId" db:"organization_id"`
	CreatorID      *string    `json:"creatorId,omitempty" db:"creator_id"`
	Name           string     `json:"name" db:"name"`
	Description    string     `json:"description" db:"description"`
	Kind           Kind       `json:"kind" db:"kind"`
	Address        string     `json:"address" db:"address"`
	ChainID        int64      `json:"chainId" db:"chain_id"`
	BeginSaleAt    int64      `json:"beginSaleAt" db:"begin_sale_at"`
	EndSaleAt      int64      `json:"endSaleAt" db:"end_sale_at"`
	PublishedAt    *time.Time `json:"publishedAt,omitempty" db:"published_at"`
	CreatedAt      time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time  `json:"updatedAt" db:"updated_at"`
}

// Published reports whether the collection has left draft state.
func (c Collection) Published() bool { return c.PublishedAt != nil }

// Tier is a mint-price tranche of a collection.
type Tier struct {
	ID                  string          `json:"id" db:"id"`
	CollectionID        string          `json:"collectionId" db:"collection_id"`
	Name                string          `json:"name" db:"name"`
	Description         string          `json:"description" db:"description"`
	TierID              int64           `json:"tierId" db:"tier_id"`
	Price               string          `json:"price" db:"price"`
	PaymentTokenAddress string          `json:"paymentTokenAddress" db:"payment_token_address"`
	TotalMints          int64           `json:"totalMints" db:"total_mints"`
	ImageURL            string          `json:"imageUrl" db:"image_url"`
	Metadata            json.RawMessage `json:"metadata,omitempty" db:"metadata"`
	CreatedAt           time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt           time.Time       `json:"updatedAt" db:"updated_at"`
}
