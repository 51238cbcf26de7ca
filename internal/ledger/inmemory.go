package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kobo-pay/kobo_pay/internal/wallet"
)

// InMemory is a concurrency-safe in-memory ledger engine. It also implements
// wallet.Repository so provisioning and balances share one store, which makes
// it useful for unit tests and for running the API without PostgreSQL.
type InMemory struct {
	mu           sync.RWMutex
	wallets      map[uuid.UUID]wallet.Wallet
	byUser       map[uuid.UUID]uuid.UUID
	byNumber     map[string]uuid.UUID
	transactions map[string]wallet.Transaction
}

// NewInMemory creates an empty in-memory ledger engine.
func NewInMemory() *InMemory {
	return &InMemory{
		wallets:      make(map[uuid.UUID]wallet.Wallet),
		byUser:       make(map[uuid.UUID]uuid.UUID),
		byNumber:     make(map[string]uuid.UUID),
		transactions: make(map[string]wallet.Transaction),
	}
}

// Create inserts a wallet record (wallet.Repository).
func (l *InMemory) Create(_ context.Context, w wallet.Wallet) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.byUser[w.UserID]; exists {
		return fmt.Errorf("wallet exists for user %s", w.UserID)
	}
	if _, exists := l.byNumber[w.WalletNumber]; exists {
		return fmt.Errorf("wallet number %s taken", w.WalletNumber)
	}
	l.wallets[w.ID] = w
	l.byUser[w.UserID] = w.ID
	l.byNumber[w.WalletNumber] = w.ID
	return nil
}

// ByUserID fetches the wallet owned by the given user (wallet.Repository).
func (l *InMemory) ByUserID(_ context.Context, userID uuid.UUID) (wallet.Wallet, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	id, ok := l.byUser[userID]
	if !ok {
		return wallet.Wallet{}, wallet.ErrNotFound
	}
	return l.wallets[id], nil
}

// ByNumber fetches a wallet by public number (wallet.Repository).
func (l *InMemory) ByNumber(_ context.Context, walletNumber string) (wallet.Wallet, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	id, ok := l.byNumber[walletNumber]
	if !ok {
		return wallet.Wallet{}, wallet.ErrNotFound
	}
	return l.wallets[id], nil
}

// Transfer applies the same semantics as the Postgres engine under one mutex:
// the critical section spans both balance checks and both mutations.
func (l *InMemory) Transfer(_ context.Context, senderUserID uuid.UUID, recipientWalletNumber string, amount decimal.Decimal) (TransferResult, error) {
	if err := ValidateAmount(amount); err != nil {
		return TransferResult{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	senderID, ok := l.byUser[senderUserID]
	if !ok {
		return TransferResult{}, ErrWalletNotFound
	}
	recipientID, ok := l.byNumber[recipientWalletNumber]
	if !ok {
		return TransferResult{}, ErrWalletNotFound
	}
	if senderID == recipientID {
		return TransferResult{}, ErrSameWallet
	}

	sender := l.wallets[senderID]
	recipient := l.wallets[recipientID]
	if sender.Balance.LessThan(amount) {
		return TransferResult{}, ErrInsufficientFunds
	}

	now := time.Now().UTC()
	sender.Balance = sender.Balance.Sub(amount)
	recipient.Balance = recipient.Balance.Add(amount)
	sender.UpdatedAt = now
	recipient.UpdatedAt = now
	l.wallets[senderID] = sender
	l.wallets[recipientID] = recipient

	debitRef := fmt.Sprintf("TX-OUT-%s", uuid.NewString())
	creditRef := fmt.Sprintf("TX-IN-%s", uuid.NewString())
	l.transactions[debitRef] = wallet.Transaction{
		ID: uuid.New(), WalletID: senderID, UserID: sender.UserID,
		Type: wallet.TypeWithdrawal, Status: wallet.StatusSuccess,
		Amount: amount, Reference: debitRef,
		Description: fmt.Sprintf("Transfer to %s", recipientWalletNumber),
		CreatedAt:   now, UpdatedAt: now,
	}
	l.transactions[creditRef] = wallet.Transaction{
		ID: uuid.New(), WalletID: recipientID, UserID: recipient.UserID,
		Type: wallet.TypeDeposit, Status: wallet.StatusSuccess,
		Amount: amount, Reference: creditRef,
		Description: "Transfer received",
		CreatedAt:   now, UpdatedAt: now,
	}

	return TransferResult{
		DebitReference:   debitRef,
		CreditReference:  creditRef,
		SenderBalance:    sender.Balance,
		RecipientBalance: recipient.Balance,
	}, nil
}

// RecordPendingDeposit registers a pending deposit without touching balances.
func (l *InMemory) RecordPendingDeposit(_ context.Context, userID uuid.UUID, amount decimal.Decimal, reference string) error {
	if err := ValidateAmount(amount); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	walletID, ok := l.byUser[userID]
	if !ok {
		return ErrWalletNotFound
	}
	if _, exists := l.transactions[reference]; exists {
		return ErrDuplicateReference
	}

	now := time.Now().UTC()
	l.transactions[reference] = wallet.Transaction{
		ID: uuid.New(), WalletID: walletID, UserID: userID,
		Type: wallet.TypeDeposit, Status: wallet.StatusPending,
		Amount: amount, Reference: reference,
		Description: "Paystack deposit initialization",
		CreatedAt:   now, UpdatedAt: now,
	}
	return nil
}

// CreditDeposit applies a pending deposit at most once.
func (l *InMemory) CreditDeposit(_ context.Context, reference string) (CreditResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tr, ok := l.transactions[reference]
	if !ok {
		return CreditResult{}, ErrTransactionNotFound
	}
	if tr.Status == wallet.StatusSuccess {
		return CreditResult{Reference: reference, Amount: tr.Amount, Applied: false}, nil
	}

	w, ok := l.wallets[tr.WalletID]
	if !ok {
		return CreditResult{}, fmt.Errorf("credit_deposit: %w", ErrLedgerFailure)
	}

	now := time.Now().UTC()
	w.Balance = w.Balance.Add(tr.Amount)
	w.UpdatedAt = now
	l.wallets[tr.WalletID] = w

	tr.Status = wallet.StatusSuccess
	tr.UpdatedAt = now
	l.transactions[reference] = tr

	return CreditResult{Reference: reference, Amount: tr.Amount, Applied: true}, nil
}

// Balance returns the user's wallet balance.
func (l *InMemory) Balance(_ context.Context, userID uuid.UUID) (BalanceInfo, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	id, ok := l.byUser[userID]
	if !ok {
		return BalanceInfo{}, ErrWalletNotFound
	}
	w := l.wallets[id]
	return BalanceInfo{WalletNumber: w.WalletNumber, Balance: w.Balance, Currency: w.Currency, AsOf: time.Now().UTC()}, nil
}

// History returns the user's transactions, newest first.
func (l *InMemory) History(_ context.Context, userID uuid.UUID) ([]Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var entries []Entry
	for _, tr := range l.transactions {
		if tr.UserID != userID {
			continue
		}
		entries = append(entries, Entry{
			Type:      tr.Type,
			Amount:    tr.Amount,
			Status:    tr.Status,
			Reference: tr.Reference,
			CreatedAt: tr.CreatedAt,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	return entries, nil
}
