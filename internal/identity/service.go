package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLen = 8

// ErrInvalidCredentials indicates an authentication failure. The reason
// (unknown email vs wrong password) is deliberately not distinguished.
var ErrInvalidCredentials = errors.New("invalid email or password")

// Service manages the identity lifecycle.
type Service struct {
	repo Repository
}

// NewService creates a new identity service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Register creates a new user with a bcrypt-hashed password.
func (s *Service) Register(ctx context.Context, creds Credentials) (User, error) {
	email := strings.ToLower(strings.TrimSpace(creds.Email))
	if email == "" || !strings.Contains(email, "@") {
		return User{}, errors.New("a valid email is required")
	}
	if len(creds.Password) < minPasswordLen {
		return User{}, errors.New("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	user := User{
		ID:           uuid.New(),
		Email:        email,
		FullName:     strings.TrimSpace(creds.FullName),
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return User{}, err
	}

	return user, nil
}

// Authenticate verifies email/password credentials.
func (s *Service) Authenticate(ctx context.Context, creds Credentials) (User, error) {
	user, err := s.repo.ByEmail(ctx, strings.ToLower(strings.TrimSpace(creds.Email)))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(creds.Password)); err != nil {
		return User{}, ErrInvalidCredentials
	}

	return user, nil
}

// ByID fetches the user behind an authenticated caller identity.
func (s *Service) ByID(ctx context.Context, id uuid.UUID) (User, error) {
	return s.repo.ByID(ctx, id)
}
