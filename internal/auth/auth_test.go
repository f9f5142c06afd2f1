package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"lafavorita/backend/internal/cache"
	"lafavorita/backend/internal/domain"
	"lafavorita/backend/internal/store/memory"
)

func newTestManager(t *testing.T) (*Manager, *memory.Store) {
	t.Helper()
	repo := memory.NewSeeded()
	m := NewManager(Config{Secret: "test-secret-test-secret-test-secret"}, repo, cache.NewMemory[domain.RecoverySession](), zerolog.Nop())
	return m, repo
}

func TestLoginUpgradesLegacyPlainPassword(t *testing.T) {
	m, repo := newTestManager(t)
	ctx := context.Background()

	resp, err := m.Login(ctx, domain.LoginRequest{Username: "admin", Password: "admin123"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if resp.Role != domain.RoleAdmin || resp.Name != "Administrador Principal" {
		t.Fatalf("unexpected login response: %+v", resp)
	}

	user, err := repo.GetUser(ctx, "admin")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if !IsHash(user.Password) {
		t.Fatalf("expected password to be upgraded from plain-text")
	}
	if !IsHash(user.SecurityQuestions.Answer1) {
		t.Fatalf("expected security answers to be hashed")
	}

	if _, err := m.Login(ctx, domain.LoginRequest{Username: "admin", Password: "admin123"}); err != nil {
		t.Fatalf("login with hashed password failed: %v", err)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	cases := []domain.LoginRequest{
		{Username: "admin", Password: "wrong"},
		{Username: "nobody", Password: "admin123"},
		{Username: "admin", Password: ""},
		{Username: "Admin", Password: "admin123"},
	}
	for _, req := range cases {
		if _, err := m.Login(ctx, req); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("login %+v: expected ErrInvalidCredentials, got %v", req, err)
		}
	}
}

func TestTokenRoundTripAndExpiry(t *testing.T) {
	m, _ := newTestManager(t)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	m.WithClock(func() time.Time { return now })

	resp, err := m.Login(context.Background(), domain.LoginRequest{Username: "empleado1", Password: "emp123"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	actor, err := m.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if actor.Username != "empleado1" || actor.Role != domain.RoleEmployee || actor.Name != "Juan Pérez" {
		t.Fatalf("unexpected actor: %+v", actor)
	}

	now = now.Add(9 * time.Hour)
	if _, err := m.ParseToken(resp.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expired token to be rejected, got %v", err)
	}
}

func TestParseTokenRejectsForeignSignature(t *testing.T) {
	m, repo := newTestManager(t)
	other := NewManager(Config{Secret: "another-secret-another-secret-0000"}, repo, nil, zerolog.Nop())

	resp, err := other.Login(context.Background(), domain.LoginRequest{Username: "admin", Password: "admin123"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if _, err := m.ParseToken(resp.AccessToken); err == nil {
		t.Fatalf("expected token signed with another secret to be rejected")
	}
}

func TestUpgradeLegacyCredentials(t *testing.T) {
	m, repo := newTestManager(t)
	ctx := context.Background()

	if err := m.UpgradeLegacyCredentials(ctx); err != nil {
		t.Fatalf("upgrade: %v", err)
	}
	users, _ := repo.ListUsers(ctx)
	for _, u := range users {
		if needsUpgrade(u) {
			t.Fatalf("user %s still has plaintext credentials", u.Username)
		}
	}
}

func TestValidateNewPassword(t *testing.T) {
	if err := ValidateNewPassword("12345", "12345"); !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}
	if err := ValidateNewPassword("123456", "123457"); !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("expected ErrPasswordMismatch, got %v", err)
	}
	if err := ValidateNewPassword("123456", "123456"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
