package memberships

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/nft_platform/internal/app/domain/organization"
	"github.com/R3E-Network/nft_platform/internal/app/domain/user"
	"github.com/R3E-Network/nft_platform/internal/app/storage"
	"github.com/R3E-Network/nft_platform/internal/app/storage/memory"
	apperrors "github.com/R3E-Network/nft_platform/internal/errors"
	"github.com/R3E-Network/nft_platform/pkg/testutil"
)

type failingUpdates struct {
	storage.MembershipStore
}

func (failingUpdates) UpdateMembership(context.Context, organization.Membership) (organization.Membership, error) {
	return organization.Membership{}, testutil.ErrInjected
}

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
	f := &fixture{store: memory.New(), now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	clock := func() time.Time { return f.now }
	f.store.WithClock(clock)
	f.svc = New(f.store, f.store, f.store, []byte("invite-secret"), nil).WithClock(clock)

	var err error
	f.owner, err = f.store.CreateUser(ctx, user.User{Email: "owner@example.com", Username: "owner"})
	require.NoError(t, err)
	f.org, err = f.store.CreateOrganization(ctx, organization.Organization{Name: "Acme", OwnerID: f.owner.ID})
	require.NoError(t, err)
	_, err = f.svc.AddOwner(ctx, f.org.ID, f.owner.ID, f.owner.Email)
	require.NoError(t, err)
	return f
}

func TestInviteCodeRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.store.CreateUser(ctx, user.User{Email: "existing@example.com"})
	require.NoError(t, err)

	newcomer, err := f.svc.Invite(ctx, f.org.ID, f.owner.ID, "NewComer@Example.com", organization.Capabilities{CanEdit: true})
	require.NoError(t, err)
	assert.Equal(t, organization.StatusPending, newcomer.Status())

	claims, err := f.svc.DecodeInviteCode(newcomer.InviteCode)
	require.NoError(t, err)
	assert.Equal(t, "newcomer@example.com", claims.Email)
	assert.True(t, claims.IsNewUser)
	assert.Equal(t, f.org.ID, claims.OrganizationID)

	known, err := f.svc.Invite(ctx, f.org.ID, f.owner.ID, "EXISTING@example.com", organization.Capabilities{})
	require.NoError(t, err)
	claims, err = f.svc.DecodeInviteCode(known.InviteCode)
	require.NoError(t, err)
	assert.Equal(t, "existing@example.com", claims.Email)
	assert.False(t, claims.IsNewUser)
}

func TestDecodeRejectsTamperedCode(t *testing.T) {
	f := newFixture(t)
	other := New(f.store, f.store, f.store, []byte("other-secret"), nil)
	code, err := other.EncodeInviteCode("a@b.c", true, f.org.ID)
	require.NoError(t, err)

	_, err = f.svc.DecodeInviteCode(code)
	require.Error(t, err)
	assert.Equal(t, apperrors.MsgInvalidInviteCode, apperrors.GetServiceError(err).Message)
}

func TestAcceptInvite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	invited, err := f.svc.Invite(ctx, f.org.ID, f.owner.ID, "erin@example.com", organization.Capabilities{CanDeploy: true})
	require.NoError(t, err)

	erin, err := f.store.CreateUser(ctx, user.User{Email: "erin@example.com"})
	require.NoError(t, err)
	mallory, err := f.store.CreateUser(ctx, user.User{Email: "mallory@example.com"})
	require.NoError(t, err)

	_, err = f.svc.Accept(ctx, invited.InviteCode, mallory.ID)
	require.Error(t, err)
	assert.Equal(t, apperrors.MsgInviteEmailMismatch, apperrors.GetServiceError(err).Message)

	accepted, err := f.svc.Accept(ctx, invited.InviteCode, erin.ID)
	require.NoError(t, err)
	assert.Equal(t, organization.StatusAccepted, accepted.Status())
	require.NotNil(t, accepted.UserID)
	assert.Equal(t, erin.ID, *accepted.UserID)

	require.NoError(t, f.svc.Authorize(ctx, erin.ID, f.org.ID, organization.CapabilityDeploy))
	err = f.svc.Authorize(ctx, erin.ID, f.org.ID, organization.CapabilityManage)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	_, err = f.svc.Accept(ctx, invited.InviteCode, erin.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeBadRequest))
}

func TestDeclineRemovesPendingRow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	invited, err := f.svc.Invite(ctx, f.org.ID, f.owner.ID, "frank@example.com", organization.Capabilities{})
	require.NoError(t, err)
	frank, err := f.store.CreateUser(ctx, user.User{Email: "frank@example.com"})
	require.NoError(t, err)

	require.NoError(t, f.svc.Decline(ctx, invited.InviteCode, frank.ID))
	_, err = f.svc.Get(ctx, invited.ID)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestInviteRequiresManageAndRejectsDuplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	outsider, err := f.store.CreateUser(ctx, user.User{Email: "outsider@example.com"})
	require.NoError(t, err)
	_, err = f.svc.Invite(ctx, f.org.ID, outsider.ID, "x@example.com", organization.Capabilities{})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	_, err = f.svc.Invite(ctx, f.org.ID, f.owner.ID, "dup@example.com", organization.Capabilities{})
	require.NoError(t, err)
	_, err = f.svc.Invite(ctx, f.org.ID, f.owner.ID, "DUP@example.com", organization.Capabilities{})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeBadRequest))
}

func TestOwnerMembershipIsProtected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	members, err := f.svc.ListByOrganization(ctx, f.org.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	ownerMembership := members[0]
	assert.True(t, ownerMembership.Has(organization.CapabilityManage))

	_, err = f.svc.UpdateCapabilities(ctx, f.owner.ID, ownerMembership.ID, organization.Capabilities{})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeBadRequest))

	err = f.svc.Remove(ctx, f.owner.ID, ownerMembership.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeBadRequest))
}

func TestMemberCanLeave(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	invited, err := f.svc.Invite(ctx, f.org.ID, f.owner.ID, "gina@example.com", organization.Capabilities{})
	require.NoError(t, err)
	gina, err := f.store.CreateUser(ctx, user.User{Email: "gina@example.com"})
	require.NoError(t, err)
	m, err := f.svc.Accept(ctx, invited.InviteCode, gina.ID)
	require.NoError(t, err)

	require.NoError(t, f.svc.Remove(ctx, gina.ID, m.ID))
	ok, err := f.svc.IsMember(ctx, gina.ID, f.org.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAddOwnerUpdateFailureKeepsMembershipID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	member, err := f.store.CreateUser(ctx, user.User{Email: "next@example.com", Username: "next"})
	require.NoError(t, err)
	uid := member.ID
	existing, err := f.store.CreateMembership(ctx, organization.Membership{OrganizationID: f.org.ID, UserID: &uid, Email: member.Email})
	require.NoError(t, err)

	svc := New(failingUpdates{f.store}, f.store, f.store, []byte("invite-secret"), nil)
	_, err = svc.AddOwner(ctx, f.org.ID, member.ID, member.Email)
	require.True(t, apperrors.HasCode(err, apperrors.CodeInternal))
	assert.ErrorIs(t, err, testutil.ErrInjected)
	se := apperrors.GetServiceError(err)
	assert.Equal(t, existing.ID, se.Details["id"])
	assert.Contains(t, se.Message, existing.ID)
}
