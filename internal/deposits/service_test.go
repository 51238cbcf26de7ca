package deposits

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/kobo-pay/kobo_pay/internal/identity"
	"github.com/kobo-pay/kobo_pay/internal/ledger"
	"github.com/kobo-pay/kobo_pay/internal/paystack"
	"github.com/kobo-pay/kobo_pay/internal/wallet"
)

type failingGateway struct{}

func (failingGateway) Initialize(context.Context, string, decimal.Decimal, string) (paystack.Initialization, error) {
	return paystack.Initialization{}, errors.New("gateway unavailable")
}

func (failingGateway) Verify(context.Context, string) (paystack.Verification, error) {
	return paystack.Verification{}, errors.New("gateway unavailable")
}

func (failingGateway) VerifyWebhookSignature(string, []byte) bool { return false }

type fixture struct {
	ledger  *ledger.InMemory
	wallets *wallet.Service
	users   *identity.Service
	user    identity.User
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	led := ledger.NewInMemory()
	wallets := wallet.NewService(led, "NGN")
	users := identity.NewService(identity.NewMemoryRepository())

	ctx := context.Background()
	user, err := users.Register(ctx, identity.Credentials{Email: "ada@example.com", Password: "long-enough", FullName: "Ada"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := wallets.CreateForUser(ctx, user.ID); err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	return fixture{ledger: led, wallets: wallets, users: users, user: user}
}

func TestInitializeRecordsPendingDeposit(t *testing.T) {
	fx := newFixture(t)
	svc := NewService(fx.ledger, fx.wallets, fx.users, paystack.StaticGateway{}, nil)

	ctx := context.Background()
	res, err := svc.Initialize(ctx, fx.user.ID, decimal.RequireFromString("200.00"))
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if !strings.HasPrefix(res.Reference, "DEP-"+fx.user.ID.String()) {
		t.Fatalf("unexpected reference %q", res.Reference)
	}
	if res.AuthorizationURL == "" {
		t.Fatalf("expected a checkout url")
	}

	status, amount, ok := ledger.TransactionByReference(fx.ledger, res.Reference)
	if !ok {
		t.Fatalf("pending row missing for %s", res.Reference)
	}
	if status != string(wallet.StatusPending) {
		t.Fatalf("status = %q, want pending", status)
	}
	if !amount.Equal(decimal.RequireFromString("200.00")) {
		t.Fatalf("stored amount = %s", amount)
	}

	info, err := fx.ledger.Balance(ctx, fx.user.ID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !info.Balance.IsZero() {
		t.Fatalf("pending deposit moved the balance: %s", info.Balance)
	}
}

func TestInitializeGatewayFailureLeavesNoRow(t *testing.T) {
	fx := newFixture(t)
	svc := NewService(fx.ledger, fx.wallets, fx.users, failingGateway{}, nil)

	_, err := svc.Initialize(context.Background(), fx.user.ID, decimal.New(50, 0))
	if err == nil {
		t.Fatalf("expected gateway error")
	}

	entries, err := fx.ledger.History(context.Background(), fx.user.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no ledger rows, got %d", len(entries))
	}
}

func TestConfirmCreditsOnce(t *testing.T) {
	fx := newFixture(t)
	svc := NewService(fx.ledger, fx.wallets, fx.users, paystack.StaticGateway{}, nil)

	ctx := context.Background()
	res, err := svc.Initialize(ctx, fx.user.ID, decimal.RequireFromString("120.50"))
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}

	first, err := svc.Confirm(ctx, res.Reference)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if !first.Applied {
		t.Fatalf("first confirm should credit")
	}

	second, err := svc.Confirm(ctx, res.Reference)
	if err != nil {
		t.Fatalf("second confirm: %v", err)
	}
	if second.Applied {
		t.Fatalf("second confirm must be a no-op")
	}

	info, _ := fx.ledger.Balance(ctx, fx.user.ID)
	if !info.Balance.Equal(decimal.RequireFromString("120.50")) {
		t.Fatalf("balance = %s, want 120.50", info.Balance)
	}
}

func TestConfirmUnknownReference(t *testing.T) {
	fx := newFixture(t)
	svc := NewService(fx.ledger, fx.wallets, fx.users, paystack.StaticGateway{}, nil)

	if _, err := svc.Confirm(context.Background(), "DEP-missing"); !errors.Is(err, ledger.ErrTransactionNotFound) {
		t.Fatalf("expected transaction not found, got %v", err)
	}
}

func TestSettleCreditsWhenGatewayReportsSuccess(t *testing.T) {
	fx := newFixture(t)
	svc := NewService(fx.ledger, fx.wallets, fx.users, paystack.StaticGateway{}, nil)

	ctx := context.Background()
	res, err := svc.Initialize(ctx, fx.user.ID, decimal.RequireFromString("75.00"))
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}

	settled, err := svc.Settle(ctx, res.Reference)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if settled.GatewayStatus != "success" || !settled.Credited {
		t.Fatalf("unexpected settle result: %+v", settled)
	}

	again, err := svc.Settle(ctx, res.Reference)
	if err != nil {
		t.Fatalf("second settle: %v", err)
	}
	if again.Credited {
		t.Fatalf("second settle must not credit again")
	}
}
