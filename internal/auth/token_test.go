package auth

import (
	"testing"
	"time"

	"github.com/mailblast/mailblast/internal/config"
)

func testTokenConfig() config.TokenConfig {
	return config.TokenConfig{
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 168 * time.Hour,
		AccessSecret:    "test-access-secret",
		RefreshPepper:   "test-pepper",
		Issuer:          "mailblast-test",
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	svc := NewTokenService(testTokenConfig())

	signed, err := svc.GenerateAccessToken("usr_123", "alice@example.com")
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	claims, err := svc.ValidateAccessToken(signed)
	if err != nil {
		t.Fatalf("ValidateAccessToken() error = %v", err)
	}
	if claims.Subject != "usr_123" {
		t.Errorf("subject = %q, want usr_123", claims.Subject)
	}
	if claims.Email != "alice@example.com" {
		t.Errorf("email = %q, want alice@example.com", claims.Email)
	}
	if claims.Issuer != "mailblast-test" {
		t.Errorf("issuer = %q, want mailblast-test", claims.Issuer)
	}
}

func TestValidateAccessTokenWrongSecret(t *testing.T) {
	svc := NewTokenService(testTokenConfig())

	signed, err := svc.GenerateAccessToken("usr_123", "alice@example.com")
	if err != nil {
		t.Fatal(err)
	}

	otherCfg := testTokenConfig()
	otherCfg.AccessSecret = "different-secret"
	other := NewTokenService(otherCfg)

	if _, err := other.ValidateAccessToken(signed); err == nil {
		t.Error("token signed with a different secret validated")
	}
}

func TestValidateAccessTokenExpired(t *testing.T) {
	cfg := testTokenConfig()
	cfg.AccessTokenTTL = -1 * time.Minute
	svc := NewTokenService(cfg)

	signed, err := svc.GenerateAccessToken("usr_123", "alice@example.com")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.ValidateAccessToken(signed); err == nil {
		t.Error("expired token validated")
	}
}

func TestValidateAccessTokenGarbage(t *testing.T) {
	svc := NewTokenService(testTokenConfig())

	if _, err := svc.ValidateAccessToken("not.a.jwt"); err == nil {
		t.Error("garbage token validated")
	}
}
