package wallet

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service manages the wallet lifecycle. Exactly one wallet is provisioned per
// user, at registration time, and is never deleted.
type Service struct {
	repo     Repository
	currency string
}

// NewService builds a wallet service issuing wallets in the given currency.
func NewService(repo Repository, currency string) *Service {
	if currency == "" {
		currency = "NGN"
	}
	return &Service{repo: repo, currency: currency}
}

// CreateForUser provisions the wallet for a newly registered user. The public
// wallet number is derived from the user id so it stays stable and unique.
func (s *Service) CreateForUser(ctx context.Context, userID uuid.UUID) (Wallet, error) {
	w := Wallet{
		ID:           uuid.New(),
		UserID:       userID,
		WalletNumber: fmt.Sprintf("WL-%s", userID),
		Balance:      decimal.Zero,
		Currency:     s.currency,
		CreatedAt:    time.Now().UTC(),
	}
	w.UpdatedAt = w.CreatedAt

	if err := s.repo.Create(ctx, w); err != nil {
		return Wallet{}, err
	}
	return w, nil
}

// ByUser returns the wallet owned by the given user.
func (s *Service) ByUser(ctx context.Context, userID uuid.UUID) (Wallet, error) {
	return s.repo.ByUserID(ctx, userID)
}

// ByNumber returns the wallet with the given public number.
func (s *Service) ByNumber(ctx context.Context, walletNumber string) (Wallet, error) {
	return s.repo.ByNumber(ctx, walletNumber)
}
