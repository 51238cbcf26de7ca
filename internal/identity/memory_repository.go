package identity

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
)

type memoryRepository struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]User
	byEmail map[string]uuid.UUID
}

// NewMemoryRepository constructs an in-memory repository for tests and
// database-less development runs.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		byID:    make(map[uuid.UUID]User),
		byEmail: make(map[string]uuid.UUID),
	}
}

func (r *memoryRepository) Create(_ context.Context, user User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := strings.ToLower(user.Email)
	if _, exists := r.byEmail[key]; exists {
		return errors.New("email already registered")
	}
	r.byID[user.ID] = user
	r.byEmail[key] = user.ID
	return nil
}

func (r *memoryRepository) ByEmail(_ context.Context, email string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return r.byID[id], nil
}

func (r *memoryRepository) ByID(_ context.Context, id uuid.UUID) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.byID[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}
