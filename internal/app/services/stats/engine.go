// Package stats aggregates the sync-chain mirror into collection, tier and
// organization statistics. Token amounts are summed exactly as integers and
// converted to human units and USD with arbitrary precision decimals.
package stats

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/R3E-Network/nft_platform/internal/app/domain/chain"
	"github.com/R3E-Network/nft_platform/internal/app/metrics"
	"github.com/R3E-Network/nft_platform/internal/app/services/quotes"
	"github.com/R3E-Network/nft_platform/internal/app/storage"
	apperrors "github.com/R3E-Network/nft_platform/internal/errors"
	"github.com/R3E-Network/nft_platform/pkg/logger"
)

const defaultDecimals = 18

// MarketData supplies secondary market figures from an external source.
type MarketData interface {
	SecondaryMarketStat(ctx context.Context, tokenAddress string) (MarketStat, error)
}

// NoMarketData reports zero activity for every collection.
type NoMarketData struct{}

func (NoMarketData) SecondaryMarketStat(context.Context, string) (MarketStat, error) {
	return MarketStat{}, nil
}

// Scope selects the mint transactions an aggregation runs over.
type Scope struct {
	TokenAddresses []string
	TierID         *int64
}

// ForAddress scopes to a single collection address.
func ForAddress(address string) Scope {
	return Scope{TokenAddresses: []string{address}}
}

func (s Scope) addresses() []string {
	out := make([]string, 0, len(s.TokenAddresses))
	for _, a := range s.TokenAddresses {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, strings.ToLower(a))
		}
	}
	return out
}

// Window bounds transaction time; Since is inclusive, Until exclusive and
// zero values are open.
type Window struct {
	Since time.Time
	Until time.Time
}

// Engine runs the aggregations.
type Engine struct {
	chain  storage.ChainStore
	quotes quotes.Provider
	market MarketData
	now    func() time.Time
	log    *logger.Logger
}

// New constructs an engine. provider may be nil, in which case only the
// USD rates stored on coins are used.
func New(chainStore storage.ChainStore, provider quotes.Provider, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.NewDefault("stats")
	}
	return &Engine{
		chain:  chainStore,
		quotes: provider,
		market: NoMarketData{},
		now:    time.Now,
		log:    log,
	}
}

// WithClock overrides the time source used for rolling windows.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// WithMarketData plugs in a secondary market source.
func (e *Engine) WithMarketData(m MarketData) *Engine {
	if m != nil {
		e.market = m
	}
	return e
}

// Now reports the engine clock.
func (e *Engine) Now() time.Time { return e.now() }

func (e *Engine) transactions(ctx context.Context, scope Scope, w Window) ([]chain.MintSaleTransaction, error) {
	addrs := scope.addresses()
	if len(addrs) == 0 {
		return nil, nil
	}
	txs, err := e.chain.ListMintSaleTransactions(ctx, chain.TransactionFilter{
		TokenAddresses: addrs,
		TierID:         scope.TierID,
		Since:          w.Since,
		Until:          w.Until,
	})
	if err != nil {
		return nil, apperrors.Internal("failed to load mint transactions", err)
	}
	return txs, nil
}

// Earnings sums prices per payment token over the scope and window. It
// returns nil when there are no transactions.
func (e *Engine) Earnings(ctx context.Context, scope Scope, w Window) (*Earnings, error) {
	defer metrics.ObserveAggregation("earnings", time.Now())
	txs, err := e.transactions(ctx, scope, w)
	if err != nil || len(txs) == 0 {
		return nil, err
	}
	book := e.newRateBook(ctx)
	amounts, total, err := book.summarize(txs)
	if err != nil {
		return nil, err
	}
	return &Earnings{Tokens: amounts, TotalUSD: total, Transactions: len(txs)}, nil
}

// GrossEarnings is the all-time USD total, zero without transactions.
func (e *Engine) GrossEarnings(ctx context.Context, scope Scope) (decimal.Decimal, error) {
	earnings, err := e.Earnings(ctx, scope, Window{})
	if err != nil || earnings == nil {
		return decimal.Zero, err
	}
	return earnings.TotalUSD, nil
}

// SevenDayVolume is the USD total of the last seven days.
func (e *Engine) SevenDayVolume(ctx context.Context, scope Scope) (decimal.Decimal, error) {
	earnings, err := e.Earnings(ctx, scope, Window{Since: e.now().Add(-7 * 24 * time.Hour)})
	if err != nil || earnings == nil {
		return decimal.Zero, err
	}
	return earnings.TotalUSD, nil
}

// UniqueHolderCount counts distinct mint recipients.
func (e *Engine) UniqueHolderCount(ctx context.Context, scope Scope) (int, error) {
	txs, err := e.transactions(ctx, scope, Window{})
	if err != nil {
		return 0, err
	}
	seen := make(map[string]struct{}, len(txs))
	for _, tx := range txs {
		seen[strings.ToLower(tx.Recipient)] = struct{}{}
	}
	return len(seen), nil
}

// Buyers lists mint recipients ranked by mints received.
func (e *Engine) Buyers(ctx context.Context, scope Scope, w Window) ([]Buyer, error) {
	defer metrics.ObserveAggregation("buyers", time.Now())
	txs, err := e.transactions(ctx, scope, w)
	if err != nil {
		return nil, err
	}
	book := e.newRateBook(ctx)
	byAddr := make(map[string]*Buyer)
	for _, tx := range txs {
		addr := strings.ToLower(tx.Recipient)
		b, ok := byAddr[addr]
		if !ok {
			b = &Buyer{Address: addr, TotalSpend: decimal.Zero}
			byAddr[addr] = b
		}
		usd, err := book.usd(tx)
		if err != nil {
			return nil, err
		}
		b.Mints++
		b.TotalSpend = b.TotalSpend.Add(usd)
	}
	out := make([]Buyer, 0, len(byAddr))
	for _, b := range byAddr {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Mints != out[j].Mints {
			return out[i].Mints > out[j].Mints
		}
		return out[i].Address < out[j].Address
	})
	return out, nil
}

// Holders ranks current owners by quantity held, then address.
func (e *Engine) Holders(ctx context.Context, scope Scope, page Page) (HolderConnection, error) {
	defer metrics.ObserveAggregation("holders", time.Now())
	afterQty, afterAddr := int64(0), ""
	if page.Cursor != "" {
		var err error
		if afterQty, afterAddr, err = decodeHolderCursor(page.Cursor); err != nil {
			return HolderConnection{}, err
		}
	}

	txs, err := e.transactions(ctx, scope, Window{})
	if err != nil {
		return HolderConnection{}, err
	}
	assets, err := e.currentAssets(ctx, scope.addresses())
	if err != nil {
		return HolderConnection{}, err
	}
	if scope.TierID != nil {
		minted := make(map[string]struct{}, len(txs))
		for _, tx := range txs {
			minted[assetKey(tx.TokenAddress, tx.TokenID)] = struct{}{}
		}
		filtered := assets[:0]
		for _, a := range assets {
			if _, ok := minted[assetKey(a.TokenAddress, a.TokenID)]; ok {
				filtered = append(filtered, a)
			}
		}
		assets = filtered
	}

	byOwner := make(map[string]*Holder)
	for _, a := range assets {
		owner := strings.ToLower(a.Owner)
		h, ok := byOwner[owner]
		if !ok {
			h = &Holder{Address: owner, TotalSpend: decimal.Zero}
			byOwner[owner] = h
		}
		h.Quantity++
		h.TokenIDs = append(h.TokenIDs, a.TokenID)
	}
	book := e.newRateBook(ctx)
	for _, tx := range txs {
		h, ok := byOwner[strings.ToLower(tx.Recipient)]
		if !ok {
			continue
		}
		usd, err := book.usd(tx)
		if err != nil {
			return HolderConnection{}, err
		}
		h.TotalSpend = h.TotalSpend.Add(usd)
	}

	rows := make([]Holder, 0, len(byOwner))
	for _, h := range byOwner {
		sort.Strings(h.TokenIDs)
		rows = append(rows, *h)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Quantity != rows[j].Quantity {
			return rows[i].Quantity > rows[j].Quantity
		}
		return rows[i].Address < rows[j].Address
	})

	start := 0
	if page.Cursor != "" {
		start = sort.Search(len(rows), func(i int) bool {
			return rows[i].Quantity < afterQty || (rows[i].Quantity == afterQty && rows[i].Address > afterAddr)
		})
	}
	end := start + page.size()
	if end > len(rows) {
		end = len(rows)
	}

	conn := HolderConnection{Edges: make([]HolderEdge, 0, end-start), TotalCount: len(rows)}
	for _, h := range rows[start:end] {
		conn.Edges = append(conn.Edges, HolderEdge{Cursor: encodeHolderCursor(h.Quantity, h.Address), Node: h})
	}
	if n := len(conn.Edges); n > 0 {
		conn.PageInfo.EndCursor = conn.Edges[n-1].Cursor
	}
	conn.PageInfo.HasNextPage = end < len(rows)
	return conn, nil
}

// HolderCount counts distinct current owners in scope.
func (e *Engine) HolderCount(ctx context.Context, scope Scope) (int, error) {
	conn, err := e.Holders(ctx, scope, Page{Limit: 1})
	if err != nil {
		return 0, err
	}
	return conn.TotalCount, nil
}

// Activities groups mint transactions by transaction hash, newest first.
func (e *Engine) Activities(ctx context.Context, scope Scope, page Page) (ActivityConnection, error) {
	defer metrics.ObserveAggregation("activities", time.Now())
	var (
		afterAt   time.Time
		afterHash string
	)
	if page.Cursor != "" {
		var err error
		if afterAt, afterHash, err = decodeActivityCursor(page.Cursor); err != nil {
			return ActivityConnection{}, err
		}
	}

	txs, err := e.transactions(ctx, scope, Window{})
	if err != nil {
		return ActivityConnection{}, err
	}
	rows, err := groupActivities(e.newRateBook(ctx), txs)
	if err != nil {
		return ActivityConnection{}, err
	}

	start := 0
	if page.Cursor != "" {
		start = sort.Search(len(rows), func(i int) bool {
			at := rows[i].CreatedAt
			return at.Before(afterAt) || (at.Equal(afterAt) && rows[i].TxHash > afterHash)
		})
	}
	end := start + page.size()
	if end > len(rows) {
		end = len(rows)
	}

	conn := ActivityConnection{Edges: make([]ActivityEdge, 0, end-start), TotalCount: len(rows)}
	for _, a := range rows[start:end] {
		conn.Edges = append(conn.Edges, ActivityEdge{Cursor: encodeActivityCursor(a.CreatedAt, a.TxHash), Node: a})
	}
	if n := len(conn.Edges); n > 0 {
		conn.PageInfo.EndCursor = conn.Edges[n-1].Cursor
	}
	conn.PageInfo.HasNextPage = end < len(rows)
	return conn, nil
}

func groupActivities(book *rateBook, txs []chain.MintSaleTransaction) ([]Activity, error) {
	type group struct {
		activity Activity
		txs      []chain.MintSaleTransaction
		tiers    map[int64]struct{}
	}
	byHash := make(map[string]*group)
	var order []string
	for _, tx := range txs {
		hash := strings.ToLower(tx.TxHash)
		g, ok := byHash[hash]
		if !ok {
			g = &group{
				activity: Activity{TxHash: hash, Recipient: strings.ToLower(tx.Recipient), CreatedAt: tx.CreatedAt},
				tiers:    make(map[int64]struct{}),
			}
			byHash[hash] = g
			order = append(order, hash)
		}
		g.txs = append(g.txs, tx)
		g.activity.Quantity++
		g.activity.TokenIDs = append(g.activity.TokenIDs, tx.TokenID)
		if _, seen := g.tiers[tx.TierID]; !seen {
			g.tiers[tx.TierID] = struct{}{}
			g.activity.TierIDs = append(g.activity.TierIDs, tx.TierID)
		}
		if tx.CreatedAt.After(g.activity.CreatedAt) {
			g.activity.CreatedAt = tx.CreatedAt
		}
	}

	out := make([]Activity, 0, len(order))
	for _, hash := range order {
		g := byHash[hash]
		sort.Slice(g.activity.TierIDs, func(i, j int) bool { return g.activity.TierIDs[i] < g.activity.TierIDs[j] })
		amounts, _, err := book.summarize(g.txs)
		if err != nil {
			return nil, err
		}
		g.activity.Amounts = amounts
		out = append(out, g.activity)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].TxHash < out[j].TxHash
	})
	return out, nil
}

// AggregatedActivities buckets the last days UTC days (today included),
// oldest first. Days without activity are reported as zero.
func (e *Engine) AggregatedActivities(ctx context.Context, scope Scope, days int) ([]DailyActivity, error) {
	defer metrics.ObserveAggregation("aggregated_activities", time.Now())
	if days <= 0 {
		days = 7
	}
	if days > 365 {
		days = 365
	}
	now := e.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	start := today.AddDate(0, 0, -(days - 1))

	out := make([]DailyActivity, days)
	index := make(map[string]int, days)
	for i := range out {
		date := start.AddDate(0, 0, i).Format("2006-01-02")
		out[i] = DailyActivity{Date: date, VolumeUSD: decimal.Zero}
		index[date] = i
	}

	txs, err := e.transactions(ctx, scope, Window{Since: start, Until: today.AddDate(0, 0, 1)})
	if err != nil {
		return nil, err
	}
	book := e.newRateBook(ctx)
	hashes := make([]map[string]struct{}, days)
	for _, tx := range txs {
		i, ok := index[tx.CreatedAt.UTC().Format("2006-01-02")]
		if !ok {
			continue
		}
		if hashes[i] == nil {
			hashes[i] = make(map[string]struct{})
		}
		usd, err := book.usd(tx)
		if err != nil {
			return nil, err
		}
		hashes[i][strings.ToLower(tx.TxHash)] = struct{}{}
		out[i].Quantity++
		out[i].VolumeUSD = out[i].VolumeUSD.Add(usd)
	}
	for i := range out {
		out[i].Transactions = len(hashes[i])
	}
	return out, nil
}

// SecondaryMarketStat delegates to the configured MarketData.
func (e *Engine) SecondaryMarketStat(ctx context.Context, tokenAddress string) (MarketStat, error) {
	stat, err := e.market.SecondaryMarketStat(ctx, strings.ToLower(tokenAddress))
	if err != nil {
		return MarketStat{}, apperrors.Internal("failed to load secondary market stats", err)
	}
	return stat, nil
}

// currentAssets returns one ownership row per token; duplicated mirror rows
// collapse onto the most recent.
func (e *Engine) currentAssets(ctx context.Context, addresses []string) ([]chain.Asset721, error) {
	latest := make(map[string]chain.Asset721)
	var order []string
	for _, addr := range addresses {
		assets, err := e.chain.ListAssets(ctx, addr)
		if err != nil {
			return nil, apperrors.Internal("failed to load assets", err)
		}
		for _, a := range assets {
			key := assetKey(a.TokenAddress, a.TokenID)
			prev, ok := latest[key]
			if !ok {
				order = append(order, key)
			}
			if !ok || !a.CreatedAt.Before(prev.CreatedAt) {
				latest[key] = a
			}
		}
	}
	out := make([]chain.Asset721, 0, len(order))
	for _, key := range order {
		out = append(out, latest[key])
	}
	return out, nil
}

func assetKey(tokenAddress, tokenID string) string {
	return strings.ToLower(tokenAddress) + "/" + tokenID
}

// rateBook memoises coin metadata and USD rates for one aggregation.
type rateBook struct {
	ctx   context.Context
	e     *Engine
	coins map[coinKey]coinInfo
}

// coinKey identifies a payment token; the same address may exist on
// several chains.
type coinKey struct {
	chainID int64
	token   string
}

func (k coinKey) less(o coinKey) bool {
	if k.chainID != o.chainID {
		return k.chainID < o.chainID
	}
	return k.token < o.token
}

type coinInfo struct {
	symbol   string
	decimals int32
	rate     decimal.Decimal
}

func (e *Engine) newRateBook(ctx context.Context) *rateBook {
	return &rateBook{ctx: ctx, e: e, coins: make(map[coinKey]coinInfo)}
}

// lookup resolves the coin of a payment token. Unknown coins default to 18
// decimals without a USD rate; store failures are returned.
func (b *rateBook) lookup(chainID int64, token string) (coinInfo, error) {
	key := coinKey{chainID: chainID, token: strings.ToLower(token)}
	if info, ok := b.coins[key]; ok {
		return info, nil
	}
	info := coinInfo{decimals: defaultDecimals, rate: decimal.Zero}

	coin, err := b.e.chain.GetCoin(b.ctx, chainID, key.token)
	if errors.Is(err, storage.ErrNotFound) && chainID != 0 {
		coin, err = b.e.chain.GetCoin(b.ctx, 0, key.token)
	}
	switch {
	case errors.Is(err, storage.ErrNotFound):
		b.e.log.WithField("payment_token", key.token).WithField("chain_id", chainID).Warn("unknown coin; assuming 18 decimals and no USD rate")
	case err != nil:
		return coinInfo{}, apperrors.Internal("failed to load coin "+key.token, err)
	default:
		info.symbol = strings.ToUpper(coin.Symbol)
		info.decimals = coin.Decimals
		info.rate = b.e.usdRate(b.ctx, coin)
	}
	b.coins[key] = info
	return info, nil
}

// usdRate prefers the rate stored on the coin, then the quote provider.
// Unknown rates resolve to zero.
func (e *Engine) usdRate(ctx context.Context, coin chain.Coin) decimal.Decimal {
	if coin.DerivedUSD.Valid && coin.DerivedUSD.Decimal.IsPositive() {
		metrics.RecordQuoteLookup("store", true)
		return coin.DerivedUSD.Decimal
	}
	if e.quotes == nil || coin.Symbol == "" {
		return decimal.Zero
	}
	rate, err := e.quotes.USDPrice(ctx, coin.Symbol)
	if err != nil {
		e.log.WithError(err).WithField("symbol", coin.Symbol).Warn("usd quote unavailable")
		return decimal.Zero
	}
	return rate
}

func (b *rateBook) raw(tx chain.MintSaleTransaction) decimal.Decimal {
	price, err := decimal.NewFromString(strings.TrimSpace(tx.Price))
	if err != nil {
		b.e.log.WithError(err).WithField("tx_hash", tx.TxHash).Warn("skipping unparsable mint price")
		return decimal.Zero
	}
	return price
}

// usd converts one transaction's price to USD.
func (b *rateBook) usd(tx chain.MintSaleTransaction) (decimal.Decimal, error) {
	info, err := b.lookup(tx.ChainID, tx.PaymentToken)
	if err != nil {
		return decimal.Zero, err
	}
	return b.raw(tx).Shift(-info.decimals).Mul(info.rate), nil
}

// summarize sums raw prices per payment token and converts each sum.
func (b *rateBook) summarize(txs []chain.MintSaleTransaction) ([]TokenAmount, decimal.Decimal, error) {
	byToken := make(map[coinKey]decimal.Decimal)
	for _, tx := range txs {
		key := coinKey{chainID: tx.ChainID, token: strings.ToLower(tx.PaymentToken)}
		sum, ok := byToken[key]
		if !ok {
			sum = decimal.Zero
		}
		byToken[key] = sum.Add(b.raw(tx))
	}

	keys := make([]coinKey, 0, len(byToken))
	for k := range byToken {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].less(keys[j]) })

	total := decimal.Zero
	out := make([]TokenAmount, 0, len(keys))
	for _, k := range keys {
		info, err := b.lookup(k.chainID, k.token)
		if err != nil {
			return nil, decimal.Zero, err
		}
		raw := byToken[k]
		amount := raw.Shift(-info.decimals)
		usd := amount.Mul(info.rate)
		total = total.Add(usd)
		out = append(out, TokenAmount{
			ChainID:      k.chainID,
			PaymentToken: k.token,
			Symbol:       info.symbol,
			Decimals:     info.decimals,
			Raw:          raw.String(),
			Amount:       amount,
			USDRate:      info.rate,
			USD:          usd,
		})
	}
	return out, total, nil
}
