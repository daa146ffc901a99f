package collections

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/nft_platform/internal/app/domain/chain"
	"github.com/R3E-Network/nft_platform/internal/app/domain/organization"
	"github.com/R3E-Network/nft_platform/internal/app/domain/user"
	"github.com/R3E-Network/nft_platform/internal/app/services/memberships"
	"github.com/R3E-Network/nft_platform/internal/app/services/stats"
	"github.com/R3E-Network/nft_platform/internal/app/storage"
	"github.com/R3E-Network/nft_platform/internal/app/storage/memory"
	apperrors "github.com/R3E-Network/nft_platform/internal/errors"
)

const contract = "0xC011EC7100000000000000000000000000000042"

type fixture struct {
	svc   *Service
	store *memory.Store
	owner user.User
	org   organization.Organization
	now   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{store: memory.New(), now: time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)}
	clock := func() time.Time { return f.now }
	f.store.WithClock(clock)
	members := memberships.New(f.store, f.store, f.store, []byte("secret"), nil).WithClock(clock)
	engine := stats.New(f.store, nil, nil).WithClock(clock)
	f.svc = New(f.store, f.store, members, engine, nil).WithClock(clock)

	var err error
	f.owner, err = f.store.CreateUser(ctx, user.User{Email: "owner@example.com"})
	require.NoError(t, err)
	f.org, err = f.store.CreateOrganization(ctx, organization.Organization{Name: "Acme", OwnerID: f.owner.ID})
	require.NoError(t, err)
	return f
}

func (f *fixture) create(t *testing.T, begin, end int64) (CreateInput, error) {
	t.Helper()
	in := CreateInput{OrganizationID: f.org.ID, Name: "Genesis", SaleWindow: SaleWindow{BeginSaleAt: begin, EndSaleAt: end}}
	_, err := f.svc.Create(context.Background(), f.owner.ID, in)
	return in, err
}

func TestPrecheck(t *testing.T) {
	f := newFixture(t)
	now := f.now.Unix()

	tests := []struct {
		name    string
		window  SaleWindow
		wantMsg string
	}{
		{"future window", SaleWindow{now + 10, now + 20}, ""},
		{"starts now", SaleWindow{now, now + 1000}, ""},
		{"end equals start", SaleWindow{now + 10, now + 10}, apperrors.MsgEndBeforeStart},
		{"end before start", SaleWindow{now + 10, now + 5}, apperrors.MsgEndBeforeStart},
		{"start in past", SaleWindow{now - 1, now + 100}, apperrors.MsgStartInPast},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := f.svc.Precheck(tc.window)
			if tc.wantMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tc.wantMsg, apperrors.GetServiceError(err).Message)
		})
	}
}

func TestUpdateShiftsWindowExactly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := f.now.Unix()

	c, err := f.svc.Create(ctx, f.owner.ID, CreateInput{OrganizationID: f.org.ID, Name: "Genesis", SaleWindow: SaleWindow{now, now + 1000}})
	require.NoError(t, err)
	assert.Equal(t, "edition", string(c.Kind))

	begin, end := c.BeginSaleAt+100, c.EndSaleAt+100
	updated, err := f.svc.Update(ctx, f.owner.ID, c.ID, UpdateInput{BeginSaleAt: &begin, EndSaleAt: &end})
	require.NoError(t, err)
	assert.Equal(t, now+100, updated.BeginSaleAt)
	assert.Equal(t, now+1100, updated.EndSaleAt)

	got, err := f.svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, now+100, got.BeginSaleAt)
	assert.Equal(t, now+1100, got.EndSaleAt)

	bad := got.BeginSaleAt
	_, err = f.svc.Update(ctx, f.owner.ID, c.ID, UpdateInput{EndSaleAt: &bad})
	require.Error(t, err)
	assert.Equal(t, apperrors.MsgEndBeforeStart, apperrors.GetServiceError(err).Message)
}

func TestCreateRequiresEditCapability(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	stranger, err := f.store.CreateUser(ctx, user.User{Email: "s@example.com"})
	require.NoError(t, err)

	now := f.now.Unix()
	_, err = f.svc.Create(ctx, stranger.ID, CreateInput{OrganizationID: f.org.ID, Name: "X", SaleWindow: SaleWindow{now + 1, now + 2}})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	_, err = f.create(t, now-10, now+10)
	assert.Equal(t, apperrors.MsgStartInPast, apperrors.GetServiceError(err).Message)
}

func TestDeleteOnlyWhenUnpublished(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := f.now.Unix()

	draft, err := f.svc.Create(ctx, f.owner.ID, CreateInput{OrganizationID: f.org.ID, Name: "Draft", SaleWindow: SaleWindow{now, now + 10}})
	require.NoError(t, err)
	require.NoError(t, f.svc.Delete(ctx, f.owner.ID, draft.ID))
	_, err = f.svc.Get(ctx, draft.ID)
	assert.True(t, apperrors.IsNotFound(err))

	live, err := f.svc.Create(ctx, f.owner.ID, CreateInput{OrganizationID: f.org.ID, Name: "Live", SaleWindow: SaleWindow{now, now + 10}})
	require.NoError(t, err)
	published, err := f.svc.Publish(ctx, f.owner.ID, live.ID, contract)
	require.NoError(t, err)
	assert.True(t, published.Published())
	assert.Equal(t, "0xc011ec7100000000000000000000000000000042", published.Address)

	err = f.svc.Delete(ctx, f.owner.ID, live.ID)
	require.Error(t, err)
	assert.Equal(t, apperrors.MsgCollectionPublished, apperrors.GetServiceError(err).Message)

	_, err = f.svc.Publish(ctx, f.owner.ID, live.ID, contract)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeBadRequest))

	byAddr, err := f.svc.GetByAddress(ctx, contract)
	require.NoError(t, err)
	assert.Equal(t, live.ID, byAddr.ID)

	yes := true
	list, err := f.svc.List(ctx, storage.CollectionFilter{OrganizationID: f.org.ID, Published: &yes})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestAggregationsDelegateByAddress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	const token = "0x000000000000000000000000000000000000dead"
	f.store.SeedCoin(chain.Coin{ChainID: 1, Address: token, Symbol: "DAI", Decimals: 18, DerivedUSD: decimal.NewNullDecimal(decimal.NewFromInt(1))})
	for i, to := range []string{"0xaa", "0xbb", "0xAA"} {
		f.store.SeedMintSaleTransaction(chain.MintSaleTransaction{
			ChainID:      1,
			TxHash:       "0x" + string(rune('1'+i)),
			TokenAddress: contract,
			PaymentToken: token,
			Recipient:    to,
			Price:        "1000000000000000000",
			CreatedAt:    f.now.Add(-time.Duration(i) * time.Hour),
		})
	}

	count, err := f.svc.UniqueHolderCount(ctx, contract)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	earnings, err := f.svc.EarningsByAddress(ctx, contract)
	require.NoError(t, err)
	require.NotNil(t, earnings)
	assert.Equal(t, "3", earnings.Tokens[0].Amount.String())

	vol, err := f.svc.SevenDayVolume(ctx, contract)
	require.NoError(t, err)
	assert.Equal(t, "3", vol.String())

	none, err := f.svc.EarningsByAddress(ctx, "0x0000000000000000000000000000000000000001")
	require.NoError(t, err)
	assert.Nil(t, none)
}
