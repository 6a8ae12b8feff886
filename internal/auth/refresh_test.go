package auth

import (
	"errors"
	"strings"
	"testing"
)

func TestNewRefreshCredential(t *testing.T) {
	cred, err := NewRefreshCredential("pepper")
	if err != nil {
		t.Fatalf("NewRefreshCredential() error = %v", err)
	}

	tokenID, secret, err := ParseOpaque(cred.Opaque)
	if err != nil {
		t.Fatalf("ParseOpaque() error = %v", err)
	}
	if tokenID != cred.TokenID {
		t.Errorf("opaque tokenId = %q, want %q", tokenID, cred.TokenID)
	}
	if len(secret) != 64 {
		t.Errorf("secret length = %d, want 64 hex chars", len(secret))
	}
	if strings.Contains(cred.SecretHash, secret) {
		t.Error("stored hash contains the raw secret")
	}
	if !VerifyRefreshSecret("pepper", secret, cred.SecretHash) {
		t.Error("freshly minted secret does not verify against its hash")
	}
}

func TestNewRefreshCredentialUnique(t *testing.T) {
	a, err := NewRefreshCredential("pepper")
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewRefreshCredential("pepper")
	if err != nil {
		t.Fatal(err)
	}

	if a.TokenID == b.TokenID {
		t.Error("two credentials share a tokenId")
	}
	if a.SecretHash == b.SecretHash {
		t.Error("two credentials share a secret hash")
	}
}

func TestParseOpaqueMalformed(t *testing.T) {
	tests := []string{
		"",
		"noseparator",
		".secretonly",
		"tokenonly.",
		".",
	}
	for _, opaque := range tests {
		if _, _, err := ParseOpaque(opaque); !errors.Is(err, ErrMalformedCredential) {
			t.Errorf("ParseOpaque(%q) error = %v, want ErrMalformedCredential", opaque, err)
		}
	}
}

func TestParseOpaqueSecretMayContainDots(t *testing.T) {
	tokenID, secret, err := ParseOpaque("tok.se.cret")
	if err != nil {
		t.Fatalf("ParseOpaque() error = %v", err)
	}
	if tokenID != "tok" || secret != "se.cret" {
		t.Errorf("ParseOpaque() = (%q, %q), want (tok, se.cret)", tokenID, secret)
	}
}

func TestVerifyRefreshSecret(t *testing.T) {
	hash := HashRefreshSecret("pepper", "secret")

	if !VerifyRefreshSecret("pepper", "secret", hash) {
		t.Error("correct secret rejected")
	}
	if VerifyRefreshSecret("pepper", "wrong", hash) {
		t.Error("wrong secret accepted")
	}
	if VerifyRefreshSecret("other-pepper", "secret", hash) {
		t.Error("secret accepted under a different pepper")
	}
}
