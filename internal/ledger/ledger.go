package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kobo-pay/kobo_pay/internal/wallet"
)

var (
	// ErrWalletNotFound occurs when a referenced wallet does not exist.
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrTransactionNotFound occurs when no transaction matches the given reference.
	ErrTransactionNotFound = errors.New("deposit transaction not found")

	// ErrInsufficientFunds rejects a transfer whose amount exceeds the sender's
	// balance. A domain outcome, not a system fault.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidAmount rejects non-positive or mis-scaled amounts before any
	// lock is taken.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrSameWallet rejects a transfer whose sender and recipient resolve to
	// the same wallet row.
	ErrSameWallet = errors.New("cannot transfer to own wallet")

	// ErrDuplicateReference indicates the reference already exists in the store.
	ErrDuplicateReference = errors.New("duplicate transaction reference")

	// ErrLedgerFailure is the opaque kind surfaced for any non-domain fault
	// (lock timeout, store unavailability, constraint violation). The store
	// detail is logged at the engine boundary, never leaked to the caller.
	ErrLedgerFailure = errors.New("ledger operation failed")
)

// BalanceInfo reports a wallet's current balance.
type BalanceInfo struct {
	WalletNumber string
	Balance      decimal.Decimal
	Currency     string
	AsOf         time.Time
}

// Entry is one row of a user's transaction history. Counterpart wallet ids
// are intentionally not exposed.
type Entry struct {
	Type      wallet.TransactionType
	Amount    decimal.Decimal
	Status    wallet.TransactionStatus
	Reference string
	CreatedAt time.Time
}

// TransferResult describes the outcome of a completed transfer.
type TransferResult struct {
	DebitReference   string
	CreditReference  string
	SenderBalance    decimal.Decimal
	RecipientBalance decimal.Decimal
}

// CreditResult describes the outcome of a deposit credit. Applied is false
// when the reference had already been credited and the call was a no-op.
type CreditResult struct {
	Reference string
	Amount    decimal.Decimal
	Applied   bool
}

// Ledger is the engine owning every balance mutation. Implementations
// guarantee atomicity of multi-row updates, a fixed wallet-lock order, and
// at-most-once crediting per deposit reference.
type Ledger interface {
	// Transfer atomically moves amount from the sender's wallet to the wallet
	// identified by recipientWalletNumber, appending one WITHDRAWAL row for
	// the sender and one DEPOSIT row for the recipient, both success.
	Transfer(ctx context.Context, senderUserID uuid.UUID, recipientWalletNumber string, amount decimal.Decimal) (TransferResult, error)

	// RecordPendingDeposit registers intent to receive amount under the
	// caller-supplied unique reference. No balance change happens here.
	RecordPendingDeposit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, reference string) error

	// CreditDeposit applies the pending deposit identified by reference to the
	// wallet balance at most once, using the stored amount.
	CreditDeposit(ctx context.Context, reference string) (CreditResult, error)

	// Balance returns the current balance for the user's wallet.
	Balance(ctx context.Context, userID uuid.UUID) (BalanceInfo, error)

	// History returns all transactions attributable to the user, newest first.
	History(ctx context.Context, userID uuid.UUID) ([]Entry, error)
}

// ValidateAmount enforces the monetary-unit contract: strictly positive with
// at most two fractional digits.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if !amount.Equal(amount.Round(2)) {
		return ErrInvalidAmount
	}
	return nil
}
