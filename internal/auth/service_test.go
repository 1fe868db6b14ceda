package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/vovakirdan/shopdesk-server/internal/store/sqlite"
)

func newTestAuthService(t *testing.T) *Service {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	jwtConfig := &JWTConfig{
		Secret:   []byte("test-secret-change-me"),
		Issuer:   "test",
		Audience: "test",
		TTL:      24 * time.Hour,
	}

	return NewService(st, jwtConfig)
}

func TestRegister_RejectsInvalidEmail(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	for _, email := range []string{"", "   ", "not-an-email"} {
		if _, err := svc.Register(ctx, "Ann", email, "password123"); !errors.Is(err, ErrInvalidEmail) {
			t.Fatalf("expected ErrInvalidEmail for %q, got %v", email, err)
		}
	}
}

func TestRegister_RejectsInvalidPassword(t *testing.T) {
	svc := newTestAuthService(t)

	for _, pw := range []string{"12345", strings.Repeat("x", 73)} {
		if _, err := svc.Register(context.Background(), "Ann", "ann@example.com", pw); !errors.Is(err, ErrInvalidPassword) {
			t.Fatalf("len %d: expected ErrInvalidPassword, got %v", len(pw), err)
		}
	}
}

func TestRegister_NormalizesEmailAndHashesPassword(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "Ann", " Ann@Example.com ", "password123")
	if err != nil {
		t.Fatalf("expected registration success, got %v", err)
	}
	if user.Email != "ann@example.com" {
		t.Fatalf("expected normalized email, got %q", user.Email)
	}
	if user.PasswordHash == "password123" || ComparePassword(user.PasswordHash, "password123") != nil {
		t.Fatalf("expected bcrypt hash to be stored")
	}

	// Should collide because the stored email is normalized.
	if _, err := svc.Register(ctx, "Other", "ann@example.com", "password123"); !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, "Ann", "ann@example.com", "password123")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, _, err := svc.Login(ctx, "ann@example.com", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, err := svc.Login(ctx, "nobody@example.com", "password123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}

	user, token, err := svc.Login(ctx, "ANN@example.com", "password123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if user.ID != registered.ID {
		t.Fatalf("expected same user, got %s", user.ID)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.Subject != user.ID || claims.Role != RoleUser {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if _, err := svc.ValidateAdminToken(token); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected user token to be refused for admin, got %v", err)
	}
}

func TestEnsureAdminAndAdminLogin(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	created, err := svc.EnsureAdmin(ctx, "admin", "s3cret")
	if err != nil || !created {
		t.Fatalf("expected admin to be created, got %v, %v", created, err)
	}
	created, err = svc.EnsureAdmin(ctx, "admin", "other")
	if err != nil || created {
		t.Fatalf("expected second EnsureAdmin to be a no-op, got %v, %v", created, err)
	}
	if created, _ := svc.EnsureAdmin(ctx, "admin2", ""); created {
		t.Fatalf("expected empty password to skip seeding")
	}

	if _, err := svc.AdminLogin(ctx, "admin", "other"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected original password to be kept, got %v", err)
	}
	token, err := svc.AdminLogin(ctx, "admin", "s3cret")
	if err != nil {
		t.Fatalf("admin login: %v", err)
	}
	claims, err := svc.ValidateAdminToken(token)
	if err != nil {
		t.Fatalf("validate admin token: %v", err)
	}
	if !claims.IsAdmin() || claims.Name != "admin" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}
