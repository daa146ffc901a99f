// Package chain holds the read models mirrored from on-chain state by the
// indexer. The platform only reads them.
package chain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Coin is an ERC20 payment token.
type Coin struct {
	ID         string              `json:"id" db:"id"`
	ChainID    int64               `json:"chainId" db:"chain_id"`
	Address    string              `json:"address" db:"address"`
	Name       string              `json:"name" db:"name"`
	Symbol     string              `json:"symbol" db:"symbol"`
	Decimals   int32               `json:"decimals" db:"decimals"`
	DerivedUSD decimal.NullDecimal `json:"derivedUsd" db:"derived_usd"`
	Enabled    bool                `json:"enabled" db:"enabled"`
	UpdatedAt  time.Time           `json:"updatedAt" db:"updated_at"`
}

// MintSaleContract is a deployed sale contract for a collection.
type MintSaleContract struct {
	ID              string    `json:"id" db:"id"`
	ChainID         int64     `json:"chainId" db:"chain_id"`
	Address         string    `json:"address" db:"address"`
	TokenAddress    string    `json:"tokenAddress" db:"token_address"`
	PaymentToken    string    `json:"paymentToken" db:"payment_token"`
	Royalty         int64     `json:"royalty" db:"royalty"`
	RoyaltyReceiver string    `json:"royaltyReceiver" db:"royalty_receiver"`
	StartTime       int64     `json:"startTime" db:"start_time"`
	EndTime         int64     `json:"endTime" db:"end_time"`
	CollectionID    string    `json:"collectionId" db:"collection_id"`
	CreatedAt       time.Time `json:"createdAt" db:"created_at"`
}

// MintSaleTransaction is one minted token. Price is the raw integer amount
// in payment token base units.
type MintSaleTransaction struct {
	ID           string    `json:"id" db:"id"`
	ChainID      int64     `json:"chainId" db:"chain_id"`
	TxHash       string    `json:"txHash" db:"tx_hash"`
	Address      string    `json:"address" db:"address"`
	TokenAddress string    `json:"tokenAddress" db:"token_address"`
	PaymentToken string    `json:"paymentToken" db:"payment_token"`
	TierID       int64     `json:"tierId" db:"tier_id"`
	TokenID      string    `json:"tokenId" db:"token_id"`
	Sender       string    `json:"sender" db:"sender"`
	Recipient    string    `json:"recipient" db:"recipient"`
	Price        string    `json:"price" db:"price"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}

// Asset721 is the current owner of one ERC721 token.
type Asset721 struct {
	ID           string    `json:"id" db:"id"`
	ChainID      int64     `json:"chainId" db:"chain_id"`
	TokenAddress string    `json:"tokenAddress" db:"token_address"`
	TokenID      string    `json:"tokenId" db:"token_id"`
	Owner        string    `json:"owner" db:"owner"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}

// TransactionFilter narrows mint transaction queries. Zero fields are ignored;
// Since is inclusive and Until exclusive.
type TransactionFilter struct {
	TokenAddresses []string
	TierID         *int64
	Recipient      string
	Since          time.Time
	Until          time.Time
}
