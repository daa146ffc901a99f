package organizations

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/nft_platform/internal/app/domain/chain"
	"github.com/R3E-Network/nft_platform/internal/app/domain/collection"
	"github.com/R3E-Network/nft_platform/internal/app/domain/organization"
	"github.com/R3E-Network/nft_platform/internal/app/domain/user"
	"github.com/R3E-Network/nft_platform/internal/app/services/memberships"
	"github.com/R3E-Network/nft_platform/internal/app/services/stats"
	"github.com/R3E-Network/nft_platform/internal/app/storage"
	"github.com/R3E-Network/nft_platform/internal/app/storage/memory"
	apperrors "github.com/R3E-Network/nft_platform/internal/errors"
	"github.com/R3E-Network/nft_platform/pkg/testutil"
)

type fixture struct {
	svc     *Service
	members *memberships.Service
	store   *memory.Store
	owner   user.User
	now     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{store: memory.New(), now: time.Date(2024, 7, 15, 12, 0, 0, 0, time.UTC)}
	clock := func() time.Time { return f.now }
	f.store.WithClock(clock)
	f.members = memberships.New(f.store, f.store, f.store, []byte("secret"), nil).WithClock(clock)
	engine := stats.New(f.store, nil, nil).WithClock(clock)
	f.svc = New(f.store, f.store, f.store, f.members, engine, nil)

	var err error
	f.owner, err = f.store.CreateUser(context.Background(), user.User{Email: "owner@example.com"})
	require.NoError(t, err)
	return f
}

func TestCreateAddsOwnerMembership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	org, err := f.svc.Create(ctx, f.owner.ID, CreateInput{Name: "Acme"})
	require.NoError(t, err)
	assert.Equal(t, f.owner.ID, org.OwnerID)

	_, err = f.svc.Create(ctx, f.owner.ID, CreateInput{Name: "ACME"})
	require.Error(t, err)
	assert.Equal(t, apperrors.MsgOrganizationNameExists, apperrors.GetServiceError(err).Message)

	list, err := f.svc.ListForUser(ctx, f.owner.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, org.ID, list[0].ID)

	require.NoError(t, f.members.Authorize(ctx, f.owner.ID, org.ID, organization.CapabilityDeploy))
}

func TestUpdateRequiresManage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	org, err := f.svc.Create(ctx, f.owner.ID, CreateInput{Name: "Acme"})
	require.NoError(t, err)

	stranger, err := f.store.CreateUser(ctx, user.User{Email: "s@example.com"})
	require.NoError(t, err)
	name := "Renamed"
	_, err = f.svc.Update(ctx, stranger.ID, org.ID, UpdateInput{Name: &name})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	updated, err := f.svc.Update(ctx, f.owner.ID, org.ID, UpdateInput{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
}

func TestTransferOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	org, err := f.svc.Create(ctx, f.owner.ID, CreateInput{Name: "Acme"})
	require.NoError(t, err)

	heir, err := f.store.CreateUser(ctx, user.User{Email: "heir@example.com"})
	require.NoError(t, err)
	_, err = f.svc.TransferOwnership(ctx, f.owner.ID, org.ID, heir.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeBadRequest))

	invite, err := f.members.Invite(ctx, org.ID, f.owner.ID, heir.Email, organization.Capabilities{})
	require.NoError(t, err)
	_, err = f.members.Accept(ctx, invite.InviteCode, heir.ID)
	require.NoError(t, err)

	transferred, err := f.svc.TransferOwnership(ctx, f.owner.ID, org.ID, heir.ID)
	require.NoError(t, err)
	assert.Equal(t, heir.ID, transferred.OwnerID)
	require.NoError(t, f.members.Authorize(ctx, heir.ID, org.ID, organization.CapabilityManage))
}

func TestDeleteBlockedByPublishedCollection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	org, err := f.svc.Create(ctx, f.owner.ID, CreateInput{Name: "Acme"})
	require.NoError(t, err)

	published := f.now
	col, err := f.store.CreateCollection(ctx, collection.Collection{OrganizationID: org.ID, Name: "Live", PublishedAt: &published})
	require.NoError(t, err)

	err = f.svc.Delete(ctx, f.owner.ID, org.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeBadRequest))

	require.NoError(t, f.store.DeleteCollection(ctx, col.ID))
	_, err = f.store.CreateCollection(ctx, collection.Collection{OrganizationID: org.ID, Name: "Draft"})
	require.NoError(t, err)
	require.NoError(t, f.svc.Delete(ctx, f.owner.ID, org.ID))

	_, err = f.svc.Get(ctx, org.ID)
	assert.True(t, apperrors.IsNotFound(err))
}

type noCollectionDeletes struct {
	storage.CollectionStore
}

func (noCollectionDeletes) DeleteCollection(context.Context, string) error {
	return testutil.ErrInjected
}

func TestDeleteRemovesOnlyOrganizationRow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.svc = New(f.store, noCollectionDeletes{f.store}, f.store, f.members, stats.New(f.store, nil, nil), nil)

	org, err := f.svc.Create(ctx, f.owner.ID, CreateInput{Name: "Acme"})
	require.NoError(t, err)
	draft, err := f.store.CreateCollection(ctx, collection.Collection{OrganizationID: org.ID, Name: "Draft"})
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, f.owner.ID, org.ID))
	_, err = f.store.GetCollection(ctx, draft.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStatsWindows(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	org, err := f.svc.Create(ctx, f.owner.ID, CreateInput{Name: "Acme"})
	require.NoError(t, err)

	const addr = "0xc011ec7100000000000000000000000000000009"
	const usd = "0x000000000000000000000000000000000000usdc"
	published := f.now
	_, err = f.store.CreateCollection(ctx, collection.Collection{OrganizationID: org.ID, Name: "Live", Address: addr, PublishedAt: &published})
	require.NoError(t, err)
	_, err = f.store.CreateCollection(ctx, collection.Collection{OrganizationID: org.ID, Name: "Draft"})
	require.NoError(t, err)

	f.store.SeedCoin(chain.Coin{ChainID: 1, Address: usd, Symbol: "USDC", Decimals: 6, DerivedUSD: decimal.NewNullDecimal(decimal.NewFromInt(1))})
	seed := func(hash, to string, ago time.Duration) {
		f.store.SeedMintSaleTransaction(chain.MintSaleTransaction{
			ChainID: 1, TxHash: hash, TokenAddress: addr, PaymentToken: usd,
			Recipient: to, Price: "1000000", CreatedAt: f.now.Add(-ago),
		})
	}
	seed("0x1", "0xa", time.Hour)
	seed("0x2", "0xb", 3*day)
	seed("0x3", "0xb", 20*day)
	seed("0x4", "0xc", 90*day)

	got, err := f.svc.Stats(ctx, org.ID, 14)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Collections)
	assert.Equal(t, 1, got.PublishedCollections)
	assert.Equal(t, 1, got.DraftCollections)

	assert.Equal(t, 1, got.Daily.Buyers)
	assert.Equal(t, "1", got.Daily.EarningsUSD.String())
	assert.Equal(t, 2, got.Weekly.Buyers)
	assert.Equal(t, "2", got.Weekly.EarningsUSD.String())
	assert.Equal(t, 2, got.Monthly.Buyers)
	assert.Equal(t, "3", got.Monthly.EarningsUSD.String())
	assert.Equal(t, 14, got.LastNDays)
	assert.Equal(t, 2, got.LastN.Transactions)
	assert.Equal(t, 3, got.AllTime.Buyers)
	assert.Equal(t, "4", got.AllTime.EarningsUSD.String())
}

func TestStatsWithoutDeployedCollections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	org, err := f.svc.Create(ctx, f.owner.ID, CreateInput{Name: "Empty"})
	require.NoError(t, err)

	got, err := f.svc.Stats(ctx, org.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 7, got.LastNDays)
	assert.True(t, got.AllTime.EarningsUSD.IsZero())
	assert.Equal(t, 0, got.AllTime.Buyers)
}
