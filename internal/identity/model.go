package identity

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered wallet owner.
type User struct {
	ID           uuid.UUID
	Email        string
	FullName     string
	PasswordHash []byte
	CreatedAt    time.Time
}

// Credentials carries a registration or login request.
type Credentials struct {
	Email    string
	Password string
	FullName string
}
