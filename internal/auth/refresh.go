package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrMalformedCredential is returned when an opaque refresh credential does
// not have the expected tokenId.secret shape.
var ErrMalformedCredential = errors.New("malformed refresh credential")

// RefreshCredential is a freshly minted refresh credential. The raw secret
// leaves the process only inside Opaque; callers persist SecretHash.
type RefreshCredential struct {
	TokenID    string
	SecretHash string
	Opaque     string
}

// NewRefreshCredential generates a refresh credential: a uuid tokenId plus a
// 32-byte random secret, hashed with the server pepper for storage.
func NewRefreshCredential(pepper string) (*RefreshCredential, error) {
	tokenID := uuid.New().String()

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("failed to generate refresh secret: %w", err)
	}
	secret := hex.EncodeToString(raw)

	return &RefreshCredential{
		TokenID:    tokenID,
		SecretHash: HashRefreshSecret(pepper, secret),
		Opaque:     tokenID + "." + secret,
	}, nil
}

// ParseOpaque splits an opaque refresh credential into tokenId and secret.
func ParseOpaque(opaque string) (tokenID, secret string, err error) {
	parts := strings.SplitN(opaque, ".", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", ErrMalformedCredential
	}
	return parts[0], parts[1], nil
}

// HashRefreshSecret computes the keyed hash stored in place of the raw
// secret. The pepper never leaves the server, so a leaked table row cannot
// be replayed as a credential.
func HashRefreshSecret(pepper, secret string) string {
	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(secret))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyRefreshSecret compares a presented secret against the stored keyed
// hash in constant time.
func VerifyRefreshSecret(pepper, secret, storedHash string) bool {
	computed := HashRefreshSecret(pepper, secret)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(storedHash)) == 1
}
