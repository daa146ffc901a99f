package wallets

import (
	"context"
	"crypto/ecdsa"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/nft_platform/internal/app/storage/memory"
	apperrors "github.com/R3E-Network/nft_platform/internal/errors"
	"github.com/R3E-Network/nft_platform/pkg/testutil"
)

func sign(t *testing.T, key *ecdsa.PrivateKey, message string, bumpV bool) string {
	t.Helper()
	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), key)
	require.NoError(t, err)
	if bumpV {
		sig[64] += 27
	}
	return hexutil.Encode(sig)
}

func newKey(t *testing.T) (*ecdsa.PrivateKey, string) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return key, crypto.PubkeyToAddress(key.PublicKey).Hex()
}

func newService() *Service {
	store := memory.New()
	return New(store, store, nil)
}

func challenge(t *testing.T, svc *Service, key *ecdsa.PrivateKey, address string) (string, string) {
	t.Helper()
	c, err := svc.IssueChallenge(context.Background(), address)
	require.NoError(t, err)
	return c.Message, sign(t, key, c.Message, true)
}

func TestVerifySignatureAcceptsBothRecoveryForms(t *testing.T) {
	key, addr := newKey(t)
	msg := "Sign in to the platform"

	assert.NoError(t, VerifySignature(addr, msg, sign(t, key, msg, false)))
	assert.NoError(t, VerifySignature(strings.ToLower(addr), msg, sign(t, key, msg, true)))
	assert.NoError(t, VerifySignature(addr, msg, strings.TrimPrefix(sign(t, key, msg, true), "0x")))
}

func TestVerifySignatureRejects(t *testing.T) {
	key, addr := newKey(t)
	_, other := newKey(t)
	msg := "hello"

	assert.ErrorIs(t, VerifySignature(other, msg, sign(t, key, msg, true)), ErrSignatureMismatch)
	assert.ErrorIs(t, VerifySignature(addr, "tampered", sign(t, key, msg, true)), ErrSignatureMismatch)
	assert.ErrorIs(t, VerifySignature("not-an-address", msg, sign(t, key, msg, true)), ErrInvalidAddress)
	assert.Error(t, VerifySignature(addr, msg, "0x1234"))
}

func TestCreateIsCaseInsensitive(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	_, addr := newKey(t)

	w, err := svc.Create(ctx, addr, nil, "main")
	require.NoError(t, err)
	assert.Equal(t, strings.ToLower(addr), w.Address)

	_, err = svc.Create(ctx, strings.ToUpper("0x"+addr[2:]), nil, "")
	require.Error(t, err)
	assert.Equal(t, apperrors.MsgWalletExists, apperrors.GetServiceError(err).Message)

	got, err := svc.GetByAddress(ctx, strings.ToUpper("0x"+addr[2:]))
	require.NoError(t, err)
	assert.Equal(t, w.ID, got.ID)
}

func TestBindAndUnbind(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	key, addr := newKey(t)

	msg, _ := challenge(t, svc, key, addr)
	_, err := svc.Bind(ctx, "user-1", addr, msg, sign(t, key, "other", true))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeBadRequest))

	w, err := svc.Bind(ctx, "user-1", addr, msg, sign(t, key, msg, true))
	require.NoError(t, err)
	assert.True(t, w.OwnedBy("user-1"))

	msg, sig := challenge(t, svc, key, addr)
	_, err = svc.Bind(ctx, "user-2", addr, msg, sig)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	list, err := svc.ListByOwner(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	renamed, err := svc.Rename(ctx, "user-1", addr, " vault ")
	require.NoError(t, err)
	assert.Equal(t, "vault", renamed.Name)

	_, err = svc.Unbind(ctx, "user-2", addr)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	w, err = svc.Unbind(ctx, "user-1", addr)
	require.NoError(t, err)
	assert.Nil(t, w.OwnerID)
}

func TestChallengeIsSingleUse(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	key, addr := newKey(t)

	msg, sig := challenge(t, svc, key, addr)
	assert.Contains(t, msg, strings.ToLower(addr))
	require.NoError(t, svc.RedeemChallenge(ctx, addr, msg, sig))
	assert.ErrorIs(t, svc.RedeemChallenge(ctx, addr, msg, sig), ErrNonceRejected)

	_, err := svc.Bind(ctx, "user-1", addr, msg, sig)
	require.Error(t, err)
	assert.Equal(t, apperrors.MsgInvalidNonce, apperrors.GetServiceError(err).Message)

	w, err := svc.GetOrCreate(ctx, addr)
	require.NoError(t, err)
	assert.Nil(t, w.OwnerID)
}

func TestChallengeRejectsForeignAndUnissuedNonces(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	key, addr := newKey(t)
	otherKey, other := newKey(t)

	msg, _ := challenge(t, svc, otherKey, other)
	assert.ErrorIs(t, svc.RedeemChallenge(ctx, addr, msg, sign(t, key, msg, true)), ErrNonceRejected)

	plain := "Sign in to the platform"
	assert.ErrorIs(t, svc.RedeemChallenge(ctx, addr, plain, sign(t, key, plain, true)), ErrNonceRejected)

	forged := strings.Replace(msg, strings.ToLower(other), strings.ToLower(addr), 1) + "x"
	assert.ErrorIs(t, svc.RedeemChallenge(ctx, addr, forged, sign(t, key, forged, true)), ErrNonceRejected)
}

func TestChallengeExpires(t *testing.T) {
	clock := testutil.NewClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	store := memory.New().WithClock(clock.Now)
	svc := New(store, store, nil).WithClock(clock.Now)
	ctx := context.Background()
	key, addr := newKey(t)

	c, err := svc.IssueChallenge(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, clock.Now().Add(NonceTTL), c.ExpiresAt)

	clock.Advance(NonceTTL)
	err = svc.RedeemChallenge(ctx, addr, c.Message, sign(t, key, c.Message, true))
	assert.ErrorIs(t, err, ErrNonceRejected)
}
