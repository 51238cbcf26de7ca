package payments

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kobo-pay/kobo_pay/internal/ledger"
	"github.com/kobo-pay/kobo_pay/internal/notification"
	"github.com/kobo-pay/kobo_pay/internal/wallet"
)

type testNotifier struct {
	last notification.Message
}

func (n *testNotifier) Send(_ context.Context, msg notification.Message) error {
	n.last = msg
	return nil
}

func TestTransferSuccess(t *testing.T) {
	led := ledger.NewInMemory()
	walletSvc := wallet.NewService(led, "NGN")
	notifier := &testNotifier{}
	svc := NewService(led, notifier)

	ctx := context.Background()
	from, _ := walletSvc.CreateForUser(ctx, uuid.New())
	to, _ := walletSvc.CreateForUser(ctx, uuid.New())

	ledger.SeedBalance(led, from.WalletNumber, decimal.RequireFromString("100.00"))

	res, err := svc.Transfer(ctx, TransferInput{
		SenderUserID:          from.UserID,
		RecipientWalletNumber: to.WalletNumber,
		Amount:                decimal.RequireFromString("25.00"),
	})
	if err != nil {
		t.Fatalf("transfer failed: %v", err)
	}

	if !res.SenderBalance.Equal(decimal.RequireFromString("75.00")) || !res.RecipientBalance.Equal(decimal.RequireFromString("25.00")) {
		t.Fatalf("unexpected balances: %+v", res)
	}
	if res.DebitReference == "" || res.CreditReference == "" {
		t.Fatalf("expected both leg references, got %+v", res)
	}

	if notifier.last.Kind != notification.KindTransferReceipt {
		t.Fatalf("expected notification to be sent")
	}
	if notifier.last.Destination != to.WalletNumber {
		t.Fatalf("notification went to %q, want %q", notifier.last.Destination, to.WalletNumber)
	}
}

func TestTransferInsufficientFunds(t *testing.T) {
	led := ledger.NewInMemory()
	walletSvc := wallet.NewService(led, "NGN")
	notifier := &testNotifier{}
	svc := NewService(led, notifier)

	ctx := context.Background()
	from, _ := walletSvc.CreateForUser(ctx, uuid.New())
	to, _ := walletSvc.CreateForUser(ctx, uuid.New())

	_, err := svc.Transfer(ctx, TransferInput{
		SenderUserID:          from.UserID,
		RecipientWalletNumber: to.WalletNumber,
		Amount:                decimal.New(10, 0),
	})
	if !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if notifier.last.Kind != "" {
		t.Fatalf("no notification expected on failure")
	}
}

func TestTransferFailedLedgerPropagates(t *testing.T) {
	led := ledger.NewInMemory()
	svc := NewService(led, nil)

	_, err := svc.Transfer(context.Background(), TransferInput{
		SenderUserID:          uuid.New(),
		RecipientWalletNumber: "WL-unknown",
		Amount:                decimal.New(5, 0),
	})
	if !errors.Is(err, ledger.ErrWalletNotFound) {
		t.Fatalf("expected wallet not found, got %v", err)
	}
}
