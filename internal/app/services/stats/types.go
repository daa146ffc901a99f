package stats

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Page requests a slice of a cursor-paginated listing.
type Page struct {
	Cursor string `json:"cursor,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

func (p Page) size() int {
	switch {
	case p.Limit <= 0:
		return defaultPageSize
	case p.Limit > maxPageSize:
		return maxPageSize
	}
	return p.Limit
}

// PageInfo describes where a returned page ends.
type PageInfo struct {
	EndCursor   string `json:"endCursor,omitempty"`
	HasNextPage bool   `json:"hasNextPage"`
}

// TokenAmount is a sum of raw on-chain amounts in one payment token.
type TokenAmount struct {
	ChainID      int64           `json:"chainId"`
	PaymentToken string          `json:"paymentToken"`
	Symbol       string          `json:"symbol"`
	Decimals     int32           `json:"decimals"`
	Raw          string          `json:"raw"`
	Amount       decimal.Decimal `json:"amount"`
	USDRate      decimal.Decimal `json:"usdRate"`
	USD          decimal.Decimal `json:"usd"`
}

// Earnings is the per-token and USD total of a set of mint transactions.
type Earnings struct {
	Tokens       []TokenAmount   `json:"tokens"`
	TotalUSD     decimal.Decimal `json:"totalUsd"`
	Transactions int             `json:"transactions"`
}

// Holder is one current owner of collection tokens.
type Holder struct {
	Address    string          `json:"address"`
	Quantity   int64           `json:"quantity"`
	TokenIDs   []string        `json:"tokenIds"`
	TotalSpend decimal.Decimal `json:"totalSpendUsd"`
}

type HolderEdge struct {
	Cursor string `json:"cursor"`
	Node   Holder `json:"node"`
}

// HolderConnection is a page of holders ranked by quantity.
type HolderConnection struct {
	Edges      []HolderEdge `json:"edges"`
	PageInfo   PageInfo     `json:"pageInfo"`
	TotalCount int          `json:"totalCount"`
}

// Buyer summarises the mints received by one address.
type Buyer struct {
	Address    string          `json:"address"`
	Mints      int64           `json:"mints"`
	TotalSpend decimal.Decimal `json:"totalSpendUsd"`
}

// Activity is one transaction that minted one or more tokens.
type Activity struct {
	TxHash    string        `json:"txHash"`
	Recipient string        `json:"recipient"`
	Quantity  int64         `json:"quantity"`
	TokenIDs  []string      `json:"tokenIds"`
	TierIDs   []int64       `json:"tierIds"`
	Amounts   []TokenAmount `json:"amounts"`
	CreatedAt time.Time     `json:"createdAt"`
}

type ActivityEdge struct {
	Cursor string   `json:"cursor"`
	Node   Activity `json:"node"`
}

// ActivityConnection is a page of activities, newest first.
type ActivityConnection struct {
	Edges      []ActivityEdge `json:"edges"`
	PageInfo   PageInfo       `json:"pageInfo"`
	TotalCount int            `json:"totalCount"`
}

// DailyActivity buckets mint activity by UTC day.
type DailyActivity struct {
	Date         string          `json:"date"`
	Transactions int             `json:"transactions"`
	Quantity     int64           `json:"quantity"`
	VolumeUSD    decimal.Decimal `json:"volumeUsd"`
}

// MarketStat describes secondary market trading for a collection.
type MarketStat struct {
	FloorPriceUSD decimal.Decimal `json:"floorPriceUsd"`
	VolumeUSD     decimal.Decimal `json:"volumeUsd"`
	Sales         int64           `json:"sales"`
	Listings      int64           `json:"listings"`
}
