package identity

import (
	"context"
	"errors"
	"testing"
)

func TestRegisterAndAuthenticate(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	user, err := svc.Register(ctx, Credentials{Email: "Ada@Example.com", Password: "correct-horse", FullName: "Ada O."})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Email != "ada@example.com" {
		t.Fatalf("expected normalized email, got %s", user.Email)
	}
	if string(user.PasswordHash) == "correct-horse" {
		t.Fatal("password stored in clear")
	}

	got, err := svc.Authenticate(ctx, Credentials{Email: "ada@example.com", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got.ID != user.ID {
		t.Fatalf("expected user %s, got %s", user.ID, got.ID)
	}
}

func TestAuthenticateRejectsBadCredentials(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	if _, err := svc.Register(ctx, Credentials{Email: "ada@example.com", Password: "correct-horse"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := svc.Authenticate(ctx, Credentials{Email: "ada@example.com", Password: "wrong"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, Credentials{Email: "nobody@example.com", Password: "correct-horse"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	if _, err := svc.Register(ctx, Credentials{Email: "", Password: "long-enough"}); err == nil {
		t.Fatal("expected error for empty email")
	}
	if _, err := svc.Register(ctx, Credentials{Email: "a@b.com", Password: "short"}); err == nil {
		t.Fatal("expected error for short password")
	}

	if _, err := svc.Register(ctx, Credentials{Email: "a@b.com", Password: "long-enough"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Register(ctx, Credentials{Email: "A@B.com", Password: "long-enough"}); err == nil {
		t.Fatal("expected duplicate email rejection")
	}
}
