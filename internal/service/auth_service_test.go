package service

import (
	"context"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
)

func newAuthService() (*AuthService, *fakeUserRepo) {
	users := &fakeUserRepo{byID: map[string]*domain.User{}}
	cfg := config.Config{
		Auth: config.AuthConfig{
			JWTSecret:             "test-secret",
			AccessTokenTTLMinutes: 60,
			BcryptCost:            bcrypt.MinCost,
		},
	}
	return NewAuthService(cfg, users), users
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newAuthService()
	ctx := context.Background()

	user, token, _, err := svc.Register(ctx, "Alice@Example.com", "hunter22", "Alice", "")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Fatalf("email should be normalized, got %q", user.Email)
	}
	if user.Role != domain.RoleUser {
		t.Fatalf("role should default to user, got %s", user.Role)
	}
	if user.PasswordHash == "hunter22" {
		t.Fatalf("password must be stored hashed")
	}

	claims, err := svc.TokenManager().ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.UserID != user.ID || claims.Role != domain.RoleUser {
		t.Fatalf("token claims mismatch: %+v", claims)
	}

	logged, _, _, err := svc.Login(ctx, "alice@example.com", "hunter22")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if logged.ID != user.ID {
		t.Fatalf("login should resolve the registered account")
	}

	_, _, _, err = svc.Login(ctx, "alice@example.com", "wrong")
	assertCode(t, err, "UNAUTHORIZED")
	_, _, _, err = svc.Login(ctx, "nobody@example.com", "hunter22")
	assertCode(t, err, "UNAUTHORIZED")
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newAuthService()
	ctx := context.Background()

	cases := []struct {
		name     string
		email    string
		password string
		fullName string
		role     domain.Role
	}{
		{"missing email", "", "hunter22", "Alice", ""},
		{"malformed email", "not-an-email", "hunter22", "Alice", ""},
		{"short password", "a@example.com", "12345", "Alice", ""},
		{"short name", "a@example.com", "hunter22", "A", ""},
		{"unknown role", "a@example.com", "hunter22", "Alice", "superuser"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, _, err := svc.Register(ctx, tc.email, tc.password, tc.fullName, tc.role)
			assertCode(t, err, "FIELD_VALIDATION")
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newAuthService()
	ctx := context.Background()

	if _, _, _, err := svc.Register(ctx, "alice@example.com", "hunter22", "Alice", ""); err != nil {
		t.Fatalf("first register: %v", err)
	}
	_, _, _, err := svc.Register(ctx, "ALICE@example.com", "different", "Alice Two", "")
	assertCode(t, err, "USER_EXISTS")
}

func TestRegisterExplicitRole(t *testing.T) {
	svc, _ := newAuthService()
	user, _, _, err := svc.Register(context.Background(), "gina@example.com", "hunter22", "Gina", domain.RoleAgent)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.Role != domain.RoleAgent {
		t.Fatalf("explicit role should stick, got %s", user.Role)
	}
}
