package deposits

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kobo-pay/kobo_pay/internal/identity"
	"github.com/kobo-pay/kobo_pay/internal/ledger"
	"github.com/kobo-pay/kobo_pay/internal/notification"
	"github.com/kobo-pay/kobo_pay/internal/paystack"
	"github.com/kobo-pay/kobo_pay/internal/wallet"
)

// Service coordinates hosted-payment deposits between the gateway and the ledger.
type Service struct {
	ledger   ledger.Ledger
	wallets  *wallet.Service
	users    *identity.Service
	gateway  paystack.Gateway
	notifier notification.Notifier
}

// NewService constructs a deposit service.
func NewService(ledgerBackend ledger.Ledger, wallets *wallet.Service, users *identity.Service, gateway paystack.Gateway, notifier notification.Notifier) *Service {
	if gateway == nil {
		gateway = paystack.StaticGateway{}
	}
	return &Service{ledger: ledgerBackend, wallets: wallets, users: users, gateway: gateway, notifier: notifier}
}

// InitializeResult carries what the caller needs to complete a hosted payment.
type InitializeResult struct {
	Reference        string
	AuthorizationURL string
	Amount           decimal.Decimal
}

// SettleResult reports the gateway-side state of a deposit and whether this
// call credited the wallet.
type SettleResult struct {
	Reference     string
	GatewayStatus string
	Amount        decimal.Decimal
	Credited      bool
}

// Initialize starts a deposit: it opens a gateway transaction for the user's
// email and records the pending intent on the ledger. The pending row is only
// written once the gateway has accepted the reference, so a gateway failure
// leaves no trace.
func (s *Service) Initialize(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (InitializeResult, error) {
	if err := ledger.ValidateAmount(amount); err != nil {
		return InitializeResult{}, err
	}

	user, err := s.users.ByID(ctx, userID)
	if err != nil {
		return InitializeResult{}, err
	}
	if _, err := s.wallets.ByUser(ctx, userID); err != nil {
		return InitializeResult{}, err
	}

	reference := fmt.Sprintf("DEP-%s-%d", userID, time.Now().UnixMilli())

	init, err := s.gateway.Initialize(ctx, user.Email, amount, reference)
	if err != nil {
		return InitializeResult{}, fmt.Errorf("initialize deposit: %w", err)
	}

	if err := s.ledger.RecordPendingDeposit(ctx, userID, amount, reference); err != nil {
		return InitializeResult{}, err
	}

	return InitializeResult{
		Reference:        reference,
		AuthorizationURL: init.AuthorizationURL,
		Amount:           amount,
	}, nil
}

// Confirm credits the pending deposit behind reference onto the wallet. It is
// safe to call any number of times for the same reference.
func (s *Service) Confirm(ctx context.Context, reference string) (ledger.CreditResult, error) {
	res, err := s.ledger.CreditDeposit(ctx, reference)
	if err != nil {
		return res, err
	}

	if res.Applied && s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindDepositCredited,
			Destination: reference,
			Body:        fmt.Sprintf("Deposit %s of %s settled", reference, res.Amount.StringFixed(2)),
		})
	}
	return res, nil
}

// Settle verifies the deposit with the gateway and, when the gateway reports
// success, credits it. Balance changes always go through Confirm, so the
// amount applied is the one recorded at initialization, never the gateway's.
func (s *Service) Settle(ctx context.Context, reference string) (SettleResult, error) {
	v, err := s.gateway.Verify(ctx, reference)
	if err != nil {
		return SettleResult{}, fmt.Errorf("verify deposit: %w", err)
	}

	out := SettleResult{Reference: reference, GatewayStatus: v.Status, Amount: v.Amount}
	if v.Status != "success" {
		return out, nil
	}

	res, err := s.Confirm(ctx, reference)
	if err != nil {
		return out, err
	}
	out.Credited = res.Applied
	return out, nil
}
