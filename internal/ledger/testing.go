package ledger

import (
	"github.com/shopspring/decimal"
)

// SeedBalance is a test helper that sets a wallet's balance directly when
// using the in-memory engine. Production balances only move through the
// engine's own operations.
func SeedBalance(l Ledger, walletNumber string, balance decimal.Decimal) {
	if mem, ok := l.(*InMemory); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		if id, ok := mem.byNumber[walletNumber]; ok {
			w := mem.wallets[id]
			w.Balance = balance
			mem.wallets[id] = w
		}
	}
}

// TransactionByReference is a test helper exposing a stored transaction row
// from the in-memory engine.
func TransactionByReference(l Ledger, reference string) (status string, amount decimal.Decimal, ok bool) {
	mem, isMem := l.(*InMemory)
	if !isMem {
		return "", decimal.Zero, false
	}
	mem.mu.RLock()
	defer mem.mu.RUnlock()
	tr, exists := mem.transactions[reference]
	if !exists {
		return "", decimal.Zero, false
	}
	return string(tr.Status), tr.Amount, true
}
