package ledger_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kobo-pay/kobo_pay/internal/ledger"
	"github.com/kobo-pay/kobo_pay/internal/wallet"
)

func newTestLedger(t *testing.T) (*ledger.InMemory, *wallet.Service) {
	t.Helper()
	mem := ledger.NewInMemory()
	return mem, wallet.NewService(mem, "NGN")
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestTransferMovesExactAmount(t *testing.T) {
	mem, svc := newTestLedger(t)
	ctx := context.Background()

	a, err := svc.CreateForUser(ctx, uuid.New())
	require.NoError(t, err)
	b, err := svc.CreateForUser(ctx, uuid.New())
	require.NoError(t, err)

	ledger.SeedBalance(mem, a.WalletNumber, dec("500.00"))

	res, err := mem.Transfer(ctx, a.UserID, b.WalletNumber, dec("150.00"))
	require.NoError(t, err)

	assert.True(t, res.SenderBalance.Equal(dec("350.00")), "sender balance %s", res.SenderBalance)
	assert.True(t, res.RecipientBalance.Equal(dec("150.00")), "recipient balance %s", res.RecipientBalance)

	status, amount, ok := ledger.TransactionByReference(mem, res.DebitReference)
	require.True(t, ok, "debit row missing")
	assert.Equal(t, string(wallet.StatusSuccess), status)
	assert.True(t, amount.Equal(dec("150.00")))

	status, amount, ok = ledger.TransactionByReference(mem, res.CreditReference)
	require.True(t, ok, "credit row missing")
	assert.Equal(t, string(wallet.StatusSuccess), status)
	assert.True(t, amount.Equal(dec("150.00")))

	hist, err := mem.History(ctx, a.UserID)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, wallet.TypeWithdrawal, hist[0].Type)

	hist, err = mem.History(ctx, b.UserID)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, wallet.TypeDeposit, hist[0].Type)
}

func TestTransferConservesFunds(t *testing.T) {
	mem, svc := newTestLedger(t)
	ctx := context.Background()

	a, _ := svc.CreateForUser(ctx, uuid.New())
	b, _ := svc.CreateForUser(ctx, uuid.New())
	ledger.SeedBalance(mem, a.WalletNumber, dec("500.00"))
	ledger.SeedBalance(mem, b.WalletNumber, dec("40.50"))

	_, err := mem.Transfer(ctx, a.UserID, b.WalletNumber, dec("123.45"))
	require.NoError(t, err)

	aBal, err := mem.Balance(ctx, a.UserID)
	require.NoError(t, err)
	bBal, err := mem.Balance(ctx, b.UserID)
	require.NoError(t, err)

	total := aBal.Balance.Add(bBal.Balance)
	assert.True(t, total.Equal(dec("540.50")), "total drifted to %s", total)
}

func TestTransferInsufficientFunds(t *testing.T) {
	mem, svc := newTestLedger(t)
	ctx := context.Background()

	a, _ := svc.CreateForUser(ctx, uuid.New())
	b, _ := svc.CreateForUser(ctx, uuid.New())
	ledger.SeedBalance(mem, a.WalletNumber, dec("350.00"))
	ledger.SeedBalance(mem, b.WalletNumber, dec("150.00"))

	_, err := mem.Transfer(ctx, a.UserID, b.WalletNumber, dec("1000.00"))
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	aBal, _ := mem.Balance(ctx, a.UserID)
	bBal, _ := mem.Balance(ctx, b.UserID)
	assert.True(t, aBal.Balance.Equal(dec("350.00")))
	assert.True(t, bBal.Balance.Equal(dec("150.00")))

	hist, err := mem.History(ctx, a.UserID)
	require.NoError(t, err)
	assert.Empty(t, hist, "no transaction rows may exist after a rejected transfer")
}

func TestTransferValidation(t *testing.T) {
	mem, svc := newTestLedger(t)
	ctx := context.Background()

	a, _ := svc.CreateForUser(ctx, uuid.New())
	b, _ := svc.CreateForUser(ctx, uuid.New())
	ledger.SeedBalance(mem, a.WalletNumber, dec("100.00"))

	_, err := mem.Transfer(ctx, a.UserID, b.WalletNumber, dec("0"))
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)

	_, err = mem.Transfer(ctx, a.UserID, b.WalletNumber, dec("-5.00"))
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)

	_, err = mem.Transfer(ctx, a.UserID, b.WalletNumber, dec("1.005"))
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)

	_, err = mem.Transfer(ctx, uuid.New(), b.WalletNumber, dec("10.00"))
	assert.ErrorIs(t, err, ledger.ErrWalletNotFound)

	_, err = mem.Transfer(ctx, a.UserID, "WL-missing", dec("10.00"))
	assert.ErrorIs(t, err, ledger.ErrWalletNotFound)

	_, err = mem.Transfer(ctx, a.UserID, a.WalletNumber, dec("10.00"))
	assert.ErrorIs(t, err, ledger.ErrSameWallet)

	aBal, _ := mem.Balance(ctx, a.UserID)
	assert.True(t, aBal.Balance.Equal(dec("100.00")), "rejected calls must not move money")
}

func TestPendingDepositDoesNotTouchBalance(t *testing.T) {
	mem, svc := newTestLedger(t)
	ctx := context.Background()

	a, _ := svc.CreateForUser(ctx, uuid.New())
	ledger.SeedBalance(mem, a.WalletNumber, dec("350.00"))

	err := mem.RecordPendingDeposit(ctx, a.UserID, dec("200.00"), "DEP-A-1")
	require.NoError(t, err)

	bal, _ := mem.Balance(ctx, a.UserID)
	assert.True(t, bal.Balance.Equal(dec("350.00")))

	status, amount, ok := ledger.TransactionByReference(mem, "DEP-A-1")
	require.True(t, ok)
	assert.Equal(t, string(wallet.StatusPending), status)
	assert.True(t, amount.Equal(dec("200.00")))
}

func TestPendingDepositDuplicateReference(t *testing.T) {
	mem, svc := newTestLedger(t)
	ctx := context.Background()

	a, _ := svc.CreateForUser(ctx, uuid.New())

	require.NoError(t, mem.RecordPendingDeposit(ctx, a.UserID, dec("200.00"), "DEP-A-1"))
	err := mem.RecordPendingDeposit(ctx, a.UserID, dec("99.00"), "DEP-A-1")
	require.ErrorIs(t, err, ledger.ErrDuplicateReference)
}

func TestCreditDepositAppliesStoredAmountOnce(t *testing.T) {
	mem, svc := newTestLedger(t)
	ctx := context.Background()

	a, _ := svc.CreateForUser(ctx, uuid.New())
	ledger.SeedBalance(mem, a.WalletNumber, dec("350.00"))
	require.NoError(t, mem.RecordPendingDeposit(ctx, a.UserID, dec("200.00"), "DEP-A-1"))

	res, err := mem.CreditDeposit(ctx, "DEP-A-1")
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.True(t, res.Amount.Equal(dec("200.00")))

	for i := 0; i < 3; i++ {
		res, err = mem.CreditDeposit(ctx, "DEP-A-1")
		require.NoError(t, err)
		assert.False(t, res.Applied, "repeat credit %d must be a no-op", i)
	}

	bal, _ := mem.Balance(ctx, a.UserID)
	assert.True(t, bal.Balance.Equal(dec("550.00")), "balance is %s", bal.Balance)

	status, _, _ := ledger.TransactionByReference(mem, "DEP-A-1")
	assert.Equal(t, string(wallet.StatusSuccess), status)
}

func TestCreditDepositUnknownReference(t *testing.T) {
	mem, _ := newTestLedger(t)

	_, err := mem.CreditDeposit(context.Background(), "DEP-nope")
	require.ErrorIs(t, err, ledger.ErrTransactionNotFound)
}

func TestCreditDepositConcurrent(t *testing.T) {
	mem, svc := newTestLedger(t)
	ctx := context.Background()

	a, _ := svc.CreateForUser(ctx, uuid.New())
	ledger.SeedBalance(mem, a.WalletNumber, dec("350.00"))
	require.NoError(t, mem.RecordPendingDeposit(ctx, a.UserID, dec("200.00"), "DEP-A-1"))

	const callers = 8
	applied := make(chan bool, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := mem.CreditDeposit(ctx, "DEP-A-1")
			if err != nil {
				t.Errorf("credit deposit: %v", err)
				return
			}
			applied <- res.Applied
		}()
	}
	wg.Wait()
	close(applied)

	var appliedCount int
	for ok := range applied {
		if ok {
			appliedCount++
		}
	}
	assert.Equal(t, 1, appliedCount, "exactly one caller may apply the credit")

	bal, _ := mem.Balance(ctx, a.UserID)
	assert.True(t, bal.Balance.Equal(dec("550.00")), "balance is %s", bal.Balance)
}

func TestConcurrentOppositeTransfers(t *testing.T) {
	mem, svc := newTestLedger(t)
	ctx := context.Background()

	a, _ := svc.CreateForUser(ctx, uuid.New())
	b, _ := svc.CreateForUser(ctx, uuid.New())
	ledger.SeedBalance(mem, a.WalletNumber, dec("1000.00"))
	ledger.SeedBalance(mem, b.WalletNumber, dec("1000.00"))

	const rounds = 50
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			if _, err := mem.Transfer(ctx, a.UserID, b.WalletNumber, dec("3.00")); err != nil {
				t.Errorf("a->b transfer %d: %v", i, err)
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			if _, err := mem.Transfer(ctx, b.UserID, a.WalletNumber, dec("2.00")); err != nil {
				t.Errorf("b->a transfer %d: %v", i, err)
			}
		}
	}()
	wg.Wait()

	aBal, _ := mem.Balance(ctx, a.UserID)
	bBal, _ := mem.Balance(ctx, b.UserID)

	// Sequential application in any order yields the same end state.
	assert.True(t, aBal.Balance.Equal(dec("950.00")), "wallet a is %s", aBal.Balance)
	assert.True(t, bBal.Balance.Equal(dec("1050.00")), "wallet b is %s", bBal.Balance)
}

func TestConcurrentFanOutTransfersConserveTotal(t *testing.T) {
	mem, svc := newTestLedger(t)
	ctx := context.Background()

	hub, _ := svc.CreateForUser(ctx, uuid.New())
	ledger.SeedBalance(mem, hub.WalletNumber, dec("10000.00"))

	const spokes = 10
	targets := make([]wallet.Wallet, 0, spokes)
	for i := 0; i < spokes; i++ {
		w, err := svc.CreateForUser(ctx, uuid.New())
		require.NoError(t, err)
		targets = append(targets, w)
	}

	var wg sync.WaitGroup
	for i, target := range targets {
		wg.Add(1)
		go func(i int, number string) {
			defer wg.Done()
			amount := dec(fmt.Sprintf("%d.25", i+1))
			if _, err := mem.Transfer(ctx, hub.UserID, number, amount); err != nil {
				t.Errorf("transfer to %s: %v", number, err)
			}
		}(i, target.WalletNumber)
	}
	wg.Wait()

	total := decimal.Zero
	hubBal, _ := mem.Balance(ctx, hub.UserID)
	total = total.Add(hubBal.Balance)
	for _, target := range targets {
		bal, err := mem.Balance(ctx, target.UserID)
		require.NoError(t, err)
		total = total.Add(bal.Balance)
	}
	assert.True(t, total.Equal(dec("10000.00")), "total drifted to %s", total)
}

func TestHistoryNewestFirst(t *testing.T) {
	mem, svc := newTestLedger(t)
	ctx := context.Background()

	a, _ := svc.CreateForUser(ctx, uuid.New())
	require.NoError(t, mem.RecordPendingDeposit(ctx, a.UserID, dec("10.00"), "DEP-1"))
	time.Sleep(2 * time.Millisecond)
	require.NoError(t, mem.RecordPendingDeposit(ctx, a.UserID, dec("20.00"), "DEP-2"))

	hist, err := mem.History(ctx, a.UserID)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, "DEP-2", hist[0].Reference)
	assert.Equal(t, "DEP-1", hist[1].Reference)
}

func TestBalanceUnknownUser(t *testing.T) {
	mem, _ := newTestLedger(t)
	_, err := mem.Balance(context.Background(), uuid.New())
	require.ErrorIs(t, err, ledger.ErrWalletNotFound)
}

func TestValidateAmount(t *testing.T) {
	assert.NoError(t, ledger.ValidateAmount(dec("0.01")))
	assert.NoError(t, ledger.ValidateAmount(dec("150.00")))
	assert.NoError(t, ledger.ValidateAmount(dec("1.5")))
	assert.ErrorIs(t, ledger.ValidateAmount(dec("0")), ledger.ErrInvalidAmount)
	assert.ErrorIs(t, ledger.ValidateAmount(dec("-1")), ledger.ErrInvalidAmount)
	assert.ErrorIs(t, ledger.ValidateAmount(dec("0.001")), ledger.ErrInvalidAmount)
}
