package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kobo-pay/kobo_pay/internal/ledger"
	"github.com/kobo-pay/kobo_pay/internal/notification"
)

// Service wires ledger postings for wallet-to-wallet transfers.
type Service struct {
	ledger   ledger.Ledger
	notifier notification.Notifier
}

// NewService constructs a payment service.
func NewService(ledger ledger.Ledger, notifier notification.Notifier) *Service {
	return &Service{ledger: ledger, notifier: notifier}
}

// TransferInput captures the data needed to move funds between wallets.
type TransferInput struct {
	SenderUserID          uuid.UUID
	RecipientWalletNumber string
	Amount                decimal.Decimal
}

// TransferResult describes the ledger outcome of a transfer.
type TransferResult struct {
	DebitReference   string
	CreditReference  string
	SenderBalance    decimal.Decimal
	RecipientBalance decimal.Decimal
	CompletedAt      time.Time
}

// Transfer posts a balanced debit and credit between two wallets.
func (s *Service) Transfer(ctx context.Context, input TransferInput) (TransferResult, error) {
	res, err := s.ledger.Transfer(ctx, input.SenderUserID, input.RecipientWalletNumber, input.Amount)
	if err != nil {
		return TransferResult{}, err
	}

	outcome := TransferResult{
		DebitReference:   res.DebitReference,
		CreditReference:  res.CreditReference,
		SenderBalance:    res.SenderBalance,
		RecipientBalance: res.RecipientBalance,
		CompletedAt:      time.Now().UTC(),
	}

	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindTransferReceipt,
			Destination: input.RecipientWalletNumber,
			Body:        fmt.Sprintf("You received %s on wallet %s", input.Amount.StringFixed(2), input.RecipientWalletNumber),
		})
	}

	return outcome, nil
}
