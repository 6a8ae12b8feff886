package auth

import (
	"strings"
	"testing"
)

// Small parameters keep the test fast; production values come from config.
func testParams() *Argon2Params {
	return NewParams(8*1024, 1, 1)
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple", testParams())
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	if !strings.HasPrefix(hash, "$argon2id$") {
		t.Errorf("hash = %q, want $argon2id$ prefix", hash)
	}

	ok, err := VerifyPassword("correct horse battery staple", hash)
	if err != nil {
		t.Fatalf("VerifyPassword() error = %v", err)
	}
	if !ok {
		t.Error("correct password rejected")
	}

	ok, err = VerifyPassword("wrong password", hash)
	if err != nil {
		t.Fatalf("VerifyPassword() error = %v", err)
	}
	if ok {
		t.Error("wrong password accepted")
	}
}

func TestHashPasswordSaltsDiffer(t *testing.T) {
	a, err := HashPassword("same password", testParams())
	if err != nil {
		t.Fatal(err)
	}
	b, err := HashPassword("same password", testParams())
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Error("two hashes of the same password are identical")
	}
}

func TestVerifyPasswordInvalidHash(t *testing.T) {
	if _, err := VerifyPassword("password", "not-a-hash"); err == nil {
		t.Error("expected error for malformed hash")
	}
	if _, err := VerifyPassword("password", "$bcrypt$v=19$m=8,t=1,p=1$c2FsdA$aGFzaA"); err == nil {
		t.Error("expected error for unsupported algorithm")
	}
}
