package wallet

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Wallet is the balance-holding account for one user. It is addressed
// internally by id and externally by its wallet number. The balance is only
// ever mutated inside a ledger transaction that also appends a matching
// transaction record.
type Wallet struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	WalletNumber string
	Balance      decimal.Decimal
	Currency     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TransactionType identifies the direction of a money movement. Amounts are
// stored as positive magnitudes; direction is carried by the type, never by sign.
type TransactionType string

const (
	TypeDeposit    TransactionType = "DEPOSIT"
	TypeWithdrawal TransactionType = "WITHDRAWAL"
	TypeTransfer   TransactionType = "TRANSFER"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	switch t {
	case TypeDeposit, TypeWithdrawal, TypeTransfer:
		return true
	default:
		return false
	}
}

// TransactionStatus tracks the lifecycle of a ledger entry. A transaction is
// created pending (asynchronous deposits) or success (synchronous transfers)
// and moves pending->success exactly once; pending->failed is terminal.
type TransactionStatus string

const (
	StatusPending TransactionStatus = "pending"
	StatusSuccess TransactionStatus = "success"
	StatusFailed  TransactionStatus = "failed"
)

// Valid reports whether s is a known transaction status.
func (s TransactionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusSuccess, StatusFailed:
		return true
	default:
		return false
	}
}

// Transaction is an immutable-after-success record of one money movement
// affecting exactly one wallet. The reference is globally unique and serves
// as the idempotency key for deposit crediting.
type Transaction struct {
	ID          uuid.UUID
	WalletID    uuid.UUID
	UserID      uuid.UUID
	Type        TransactionType
	Status      TransactionStatus
	Amount      decimal.Decimal
	Reference   string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
