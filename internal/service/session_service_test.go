package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mailblast/mailblast/internal/config"
	"github.com/mailblast/mailblast/internal/logger"
	"github.com/mailblast/mailblast/internal/model"
	"github.com/mailblast/mailblast/internal/repository"
)

type fakeTokenStore struct {
	mu     sync.Mutex
	tokens map[string]*model.RefreshToken
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{tokens: make(map[string]*model.RefreshToken)}
}

func (f *fakeTokenStore) Create(ctx context.Context, token *model.RefreshToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tokens[token.ID]; ok {
		return repository.ErrDuplicate
	}
	cp := *token
	f.tokens[token.ID] = &cp
	return nil
}

func (f *fakeTokenStore) GetByID(ctx context.Context, id string) (*model.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	token, ok := f.tokens[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *token
	return &cp, nil
}

func (f *fakeTokenStore) Revoke(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if token, ok := f.tokens[id]; ok && token.RevokedAt == nil {
		now := time.Now()
		token.RevokedAt = &now
	}
	return nil
}

func (f *fakeTokenStore) RevokeAllForUser(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	for _, token := range f.tokens {
		if token.UserID == userID && token.RevokedAt == nil {
			token.RevokedAt = &now
		}
	}
	return nil
}

func (f *fakeTokenStore) DeleteExpired(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var deleted int64
	for id, token := range f.tokens {
		if token.IsExpired() {
			delete(f.tokens, id)
			deleted++
		}
	}
	return deleted, nil
}

func newTestSessionService(store RefreshTokenStore) *SessionService {
	cfg := config.TokenConfig{
		RefreshTokenTTL: 168 * time.Hour,
		RefreshPepper:   "test-pepper",
	}
	return NewSessionService(store, cfg, logger.New("error", "text"))
}

func TestIssueAndRotate(t *testing.T) {
	store := newFakeTokenStore()
	svc := newTestSessionService(store)
	ctx := context.Background()

	opaque, err := svc.Issue(ctx, "usr_1", nil)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	userID, newOpaque, err := svc.ValidateAndRotate(ctx, opaque)
	if err != nil {
		t.Fatalf("ValidateAndRotate() error = %v", err)
	}
	if userID != "usr_1" {
		t.Errorf("userID = %q, want usr_1", userID)
	}
	if newOpaque == opaque {
		t.Error("rotation returned the same opaque credential")
	}

	// The rotated-out credential is single-use
	if _, _, err := svc.ValidateAndRotate(ctx, opaque); !errors.Is(err, ErrTokenRevoked) {
		t.Errorf("reused credential error = %v, want ErrTokenRevoked", err)
	}

	// The replacement still works
	if _, _, err := svc.ValidateAndRotate(ctx, newOpaque); err != nil {
		t.Errorf("replacement credential error = %v", err)
	}
}

func TestIssueConcurrentDistinct(t *testing.T) {
	store := newFakeTokenStore()
	svc := newTestSessionService(store)
	ctx := context.Background()

	const n = 20
	opaques := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			opaque, err := svc.Issue(ctx, "usr_1", nil)
			if err != nil {
				t.Errorf("Issue() error = %v", err)
				return
			}
			opaques[i] = opaque
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool, n)
	for _, opaque := range opaques {
		if seen[opaque] {
			t.Errorf("duplicate credential issued: %q", opaque)
		}
		seen[opaque] = true
	}
	if len(store.tokens) != n {
		t.Errorf("stored %d credentials, want %d", len(store.tokens), n)
	}
}

func TestValidateAndRotateMalformed(t *testing.T) {
	svc := newTestSessionService(newFakeTokenStore())

	for _, opaque := range []string{"", "nodot", ".secret", "token."} {
		if _, _, err := svc.ValidateAndRotate(context.Background(), opaque); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("ValidateAndRotate(%q) error = %v, want ErrInvalidToken", opaque, err)
		}
	}
}

func TestValidateAndRotateUnknownToken(t *testing.T) {
	svc := newTestSessionService(newFakeTokenStore())

	_, _, err := svc.ValidateAndRotate(context.Background(), "unknown.secret")
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("error = %v, want ErrInvalidToken", err)
	}
}

func TestValidateAndRotateWrongSecret(t *testing.T) {
	store := newFakeTokenStore()
	svc := newTestSessionService(store)
	ctx := context.Background()

	opaque, err := svc.Issue(ctx, "usr_1", nil)
	if err != nil {
		t.Fatal(err)
	}

	tokenID := opaque[:36]
	_, _, err = svc.ValidateAndRotate(ctx, tokenID+".wrongsecret")
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("error = %v, want ErrInvalidToken", err)
	}

	// The stored credential survives the failed attempt
	if _, _, err := svc.ValidateAndRotate(ctx, opaque); err != nil {
		t.Errorf("original credential error = %v", err)
	}
}

func TestValidateAndRotateExpired(t *testing.T) {
	store := newFakeTokenStore()
	svc := newTestSessionService(store)
	ctx := context.Background()

	opaque, err := svc.Issue(ctx, "usr_1", nil)
	if err != nil {
		t.Fatal(err)
	}

	for _, token := range store.tokens {
		token.ExpiresAt = time.Now().Add(-time.Minute)
	}

	_, _, err = svc.ValidateAndRotate(ctx, opaque)
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("error = %v, want ErrInvalidToken", err)
	}
}

func TestValidateAndRotateRevokedWinsOverExpired(t *testing.T) {
	store := newFakeTokenStore()
	svc := newTestSessionService(store)
	ctx := context.Background()

	opaque, err := svc.Issue(ctx, "usr_1", nil)
	if err != nil {
		t.Fatal(err)
	}

	now := time.Now()
	revoked := now.Add(-time.Hour)
	for _, token := range store.tokens {
		token.ExpiresAt = now.Add(-time.Minute)
		token.RevokedAt = &revoked
	}

	_, _, err = svc.ValidateAndRotate(ctx, opaque)
	if !errors.Is(err, ErrTokenRevoked) {
		t.Errorf("error = %v, want ErrTokenRevoked", err)
	}
}

func TestRevokeIdempotent(t *testing.T) {
	store := newFakeTokenStore()
	svc := newTestSessionService(store)
	ctx := context.Background()

	opaque, err := svc.Issue(ctx, "usr_1", nil)
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.Revoke(ctx, opaque); err != nil {
		t.Errorf("first Revoke() error = %v", err)
	}
	if err := svc.Revoke(ctx, opaque); err != nil {
		t.Errorf("second Revoke() error = %v", err)
	}
	if err := svc.Revoke(ctx, "unknown.secret"); err != nil {
		t.Errorf("Revoke(unknown) error = %v", err)
	}
	if err := svc.Revoke(ctx, "malformed"); err != nil {
		t.Errorf("Revoke(malformed) error = %v", err)
	}
}

func TestRevokeAllForUser(t *testing.T) {
	store := newFakeTokenStore()
	svc := newTestSessionService(store)
	ctx := context.Background()

	first, err := svc.Issue(ctx, "usr_1", nil)
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.Issue(ctx, "usr_1", nil)
	if err != nil {
		t.Fatal(err)
	}
	other, err := svc.Issue(ctx, "usr_2", nil)
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.RevokeAllForUser(ctx, "usr_1"); err != nil {
		t.Fatalf("RevokeAllForUser() error = %v", err)
	}

	if _, _, err := svc.ValidateAndRotate(ctx, first); !errors.Is(err, ErrTokenRevoked) {
		t.Errorf("first credential error = %v, want ErrTokenRevoked", err)
	}
	if _, _, err := svc.ValidateAndRotate(ctx, second); !errors.Is(err, ErrTokenRevoked) {
		t.Errorf("second credential error = %v, want ErrTokenRevoked", err)
	}
	if _, _, err := svc.ValidateAndRotate(ctx, other); err != nil {
		t.Errorf("other user's credential error = %v", err)
	}
}
