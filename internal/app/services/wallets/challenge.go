package wallets

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"time"

	apperrors "github.com/R3E-Network/nft_platform/internal/errors"
)

// NonceTTL bounds how long an issued challenge can be signed and redeemed.
const NonceTTL = 5 * time.Minute

const challengeFormat = "Sign this message to authenticate with the NFT platform.\n\nWallet: %s\nNonce: %s\nIssued At: %d"

var nonceLine = regexp.MustCompile(`(?m)^Nonce: ([0-9a-f]{64})$`)

// ErrNonceRejected is returned when the signed message carries no live nonce
// issued to the signing address.
var ErrNonceRejected = errors.New("nonce missing or not issued to address")

// Challenge is the message a wallet signs to prove control of its address.
type Challenge struct {
	Address   string    `json:"address"`
	Nonce     string    `json:"nonce"`
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// IssueChallenge stores a fresh single-use nonce for address and returns the
// message to sign.
func (s *Service) IssueChallenge(ctx context.Context, address string) (Challenge, error) {
	normalized, err := NormalizeAddress(address)
	if err != nil {
		return Challenge{}, apperrors.BadRequest("Invalid wallet address")
	}
	nonce, err := generateNonce()
	if err != nil {
		return Challenge{}, apperrors.Internal("failed to generate nonce", err)
	}
	if err := s.nonces.PutNonce(ctx, normalized, nonce, NonceTTL); err != nil {
		return Challenge{}, apperrors.Internal("failed to store nonce", err)
	}
	now := s.now().UTC()
	return Challenge{
		Address:   normalized,
		Nonce:     nonce,
		Message:   fmt.Sprintf(challengeFormat, normalized, nonce, now.Unix()),
		ExpiresAt: now.Add(NonceTTL),
	}, nil
}

// RedeemChallenge verifies the signature and consumes the nonce embedded in
// message. A signature is accepted once.
func (s *Service) RedeemChallenge(ctx context.Context, address, message, signature string) error {
	if err := VerifySignature(address, message, signature); err != nil {
		return err
	}
	match := nonceLine.FindStringSubmatch(message)
	if match == nil {
		return ErrNonceRejected
	}
	normalized, err := NormalizeAddress(address)
	if err != nil {
		return err
	}
	ok, err := s.nonces.ConsumeNonce(ctx, normalized, match[1])
	if err != nil {
		return apperrors.Internal("failed to consume nonce", err)
	}
	if !ok {
		return ErrNonceRejected
	}
	return nil
}

// challengeMessage maps a rejected challenge onto the client-facing message.
func challengeMessage(err error) string {
	if errors.Is(err, ErrNonceRejected) {
		return apperrors.MsgInvalidNonce
	}
	return apperrors.MsgInvalidSignature
}

// ChallengeError converts a RedeemChallenge failure into a service error,
// using reject for signature and nonce rejections.
func ChallengeError(err error, reject func(string) *apperrors.ServiceError) error {
	if se := apperrors.GetServiceError(err); se != nil {
		return se
	}
	return reject(challengeMessage(err))
}

func generateNonce() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
