package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/kobo-pay/kobo_pay/internal/wallet"
)

const uniqueViolation = "23505"

// PostgresLedger implements the ledger engine on PostgreSQL. Every mutating
// operation runs inside a single explicit transaction holding row locks on
// the wallets it updates.
type PostgresLedger struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgresLedger constructs a Postgres-backed ledger engine.
func NewPostgresLedger(db *pgxpool.Pool, logger *slog.Logger) *PostgresLedger {
	return &PostgresLedger{db: db, logger: logger}
}

type lockedWallet struct {
	id      uuid.UUID
	userID  uuid.UUID
	balance decimal.Decimal
}

// Transfer moves amount between two wallets under SERIALIZABLE isolation.
// Both rows are locked in ascending wallet-id order regardless of which side
// sends, so two opposite transfers between the same pair cannot deadlock.
func (l *PostgresLedger) Transfer(ctx context.Context, senderUserID uuid.UUID, recipientWalletNumber string, amount decimal.Decimal) (TransferResult, error) {
	if err := ValidateAmount(amount); err != nil {
		return TransferResult{}, err
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return TransferResult{}, l.fail("transfer", err, "sender_user_id", senderUserID)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	var senderID uuid.UUID
	err = tx.QueryRow(ctx, `SELECT id FROM wallets WHERE user_id = $1`, senderUserID).Scan(&senderID)
	if errors.Is(err, pgx.ErrNoRows) {
		return TransferResult{}, ErrWalletNotFound
	}
	if err != nil {
		return TransferResult{}, l.fail("transfer", err, "sender_user_id", senderUserID)
	}

	var recipientID uuid.UUID
	err = tx.QueryRow(ctx, `SELECT id FROM wallets WHERE wallet_number = $1`, recipientWalletNumber).Scan(&recipientID)
	if errors.Is(err, pgx.ErrNoRows) {
		return TransferResult{}, ErrWalletNotFound
	}
	if err != nil {
		return TransferResult{}, l.fail("transfer", err, "recipient_wallet", recipientWalletNumber)
	}

	if senderID == recipientID {
		return TransferResult{}, ErrSameWallet
	}

	// Lock both rows in one statement ordered by wallet id. The ORDER BY is
	// the deadlock-avoidance invariant: the lock order must never depend on
	// which wallet happens to be the sender.
	locked, err := lockWallets(ctx, tx, senderID, recipientID)
	if err != nil {
		return TransferResult{}, l.fail("transfer", err, "sender_user_id", senderUserID)
	}

	sender, senderOK := locked[senderID]
	recipient, recipientOK := locked[recipientID]
	if !senderOK || !recipientOK {
		// A wallet vanished between the lookup and the lock. Wallets are never
		// deleted, so treat it as not found rather than a fault.
		return TransferResult{}, ErrWalletNotFound
	}

	// Re-check funds under the lock; the pre-lock read is not trustworthy.
	if sender.balance.LessThan(amount) {
		return TransferResult{}, ErrInsufficientFunds
	}

	now := time.Now().UTC()
	senderBalance := sender.balance.Sub(amount)
	recipientBalance := recipient.balance.Add(amount)

	if err := updateBalance(ctx, tx, senderID, senderBalance, now); err != nil {
		return TransferResult{}, l.fail("transfer", err, "wallet_id", senderID)
	}
	if err := updateBalance(ctx, tx, recipientID, recipientBalance, now); err != nil {
		return TransferResult{}, l.fail("transfer", err, "wallet_id", recipientID)
	}

	debitRef := fmt.Sprintf("TX-OUT-%s", uuid.NewString())
	creditRef := fmt.Sprintf("TX-IN-%s", uuid.NewString())

	debit := wallet.Transaction{
		ID:          uuid.New(),
		WalletID:    senderID,
		UserID:      sender.userID,
		Type:        wallet.TypeWithdrawal,
		Status:      wallet.StatusSuccess,
		Amount:      amount,
		Reference:   debitRef,
		Description: fmt.Sprintf("Transfer to %s", recipientWalletNumber),
		CreatedAt:   now,
	}
	credit := wallet.Transaction{
		ID:          uuid.New(),
		WalletID:    recipientID,
		UserID:      recipient.userID,
		Type:        wallet.TypeDeposit,
		Status:      wallet.StatusSuccess,
		Amount:      amount,
		Reference:   creditRef,
		Description: "Transfer received",
		CreatedAt:   now,
	}
	if err := insertTransaction(ctx, tx, debit); err != nil {
		return TransferResult{}, l.fail("transfer", err, "reference", debitRef)
	}
	if err := insertTransaction(ctx, tx, credit); err != nil {
		return TransferResult{}, l.fail("transfer", err, "reference", creditRef)
	}

	if err := tx.Commit(ctx); err != nil {
		return TransferResult{}, l.fail("transfer", err, "reference", debitRef)
	}

	return TransferResult{
		DebitReference:   debitRef,
		CreditReference:  creditRef,
		SenderBalance:    senderBalance,
		RecipientBalance: recipientBalance,
	}, nil
}

// RecordPendingDeposit inserts a pending DEPOSIT row under the supplied
// reference. The wallet balance is untouched until the deposit is credited.
func (l *PostgresLedger) RecordPendingDeposit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, reference string) error {
	if err := ValidateAmount(amount); err != nil {
		return err
	}
	if reference == "" {
		return fmt.Errorf("%w: reference is required", ErrInvalidAmount)
	}

	var walletID uuid.UUID
	err := l.db.QueryRow(ctx, `SELECT id FROM wallets WHERE user_id = $1`, userID).Scan(&walletID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrWalletNotFound
	}
	if err != nil {
		return l.fail("record_pending_deposit", err, "user_id", userID)
	}

	tr := wallet.Transaction{
		ID:          uuid.New(),
		WalletID:    walletID,
		UserID:      userID,
		Type:        wallet.TypeDeposit,
		Status:      wallet.StatusPending,
		Amount:      amount,
		Reference:   reference,
		Description: "Paystack deposit initialization",
		CreatedAt:   time.Now().UTC(),
	}
	if err := insertTransaction(ctx, l.db, tr); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicateReference
		}
		return l.fail("record_pending_deposit", err, "reference", reference)
	}
	return nil
}

// CreditDeposit applies the pending deposit for the given reference exactly
// once. The status is re-read after the wallet lock is held (check-lock-check),
// so concurrent webhook deliveries cannot double-credit. The credited amount
// always comes from the stored pending row, never from the notification.
func (l *PostgresLedger) CreditDeposit(ctx context.Context, reference string) (CreditResult, error) {
	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return CreditResult{}, l.fail("credit_deposit", err, "reference", reference)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	var (
		txID     uuid.UUID
		walletID uuid.UUID
		amount   decimal.Decimal
		status   wallet.TransactionStatus
	)
	err = tx.QueryRow(ctx, `SELECT id, wallet_id, amount, status FROM transactions WHERE reference = $1`, reference).
		Scan(&txID, &walletID, &amount, &status)
	if errors.Is(err, pgx.ErrNoRows) {
		return CreditResult{}, ErrTransactionNotFound
	}
	if err != nil {
		return CreditResult{}, l.fail("credit_deposit", err, "reference", reference)
	}

	// Idempotency short-circuit: repeat notifications are a success, not a fault.
	if status == wallet.StatusSuccess {
		if err := tx.Commit(ctx); err != nil {
			return CreditResult{}, l.fail("credit_deposit", err, "reference", reference)
		}
		return CreditResult{Reference: reference, Amount: amount, Applied: false}, nil
	}

	var balance decimal.Decimal
	err = tx.QueryRow(ctx, `SELECT balance FROM wallets WHERE id = $1 FOR UPDATE`, walletID).Scan(&balance)
	if err != nil {
		return CreditResult{}, l.fail("credit_deposit", err, "reference", reference, "wallet_id", walletID)
	}

	// Re-check the status now that the wallet lock serializes us against any
	// concurrent credit for the same reference.
	err = tx.QueryRow(ctx, `SELECT status FROM transactions WHERE id = $1`, txID).Scan(&status)
	if err != nil {
		return CreditResult{}, l.fail("credit_deposit", err, "reference", reference)
	}
	if status == wallet.StatusSuccess {
		if err := tx.Commit(ctx); err != nil {
			return CreditResult{}, l.fail("credit_deposit", err, "reference", reference)
		}
		return CreditResult{Reference: reference, Amount: amount, Applied: false}, nil
	}

	now := time.Now().UTC()
	if err := updateBalance(ctx, tx, walletID, balance.Add(amount), now); err != nil {
		return CreditResult{}, l.fail("credit_deposit", err, "reference", reference, "wallet_id", walletID)
	}
	if _, err := tx.Exec(ctx, `UPDATE transactions SET status = $1, updated_at = $2 WHERE id = $3`,
		wallet.StatusSuccess, now, txID); err != nil {
		return CreditResult{}, l.fail("credit_deposit", err, "reference", reference)
	}

	if err := tx.Commit(ctx); err != nil {
		return CreditResult{}, l.fail("credit_deposit", err, "reference", reference)
	}

	return CreditResult{Reference: reference, Amount: amount, Applied: true}, nil
}

// Balance returns the user's wallet balance.
func (l *PostgresLedger) Balance(ctx context.Context, userID uuid.UUID) (BalanceInfo, error) {
	var info BalanceInfo
	err := l.db.QueryRow(ctx, `SELECT wallet_number, balance, currency FROM wallets WHERE user_id = $1`, userID).
		Scan(&info.WalletNumber, &info.Balance, &info.Currency)
	if errors.Is(err, pgx.ErrNoRows) {
		return BalanceInfo{}, ErrWalletNotFound
	}
	if err != nil {
		return BalanceInfo{}, l.fail("balance", err, "user_id", userID)
	}
	info.AsOf = time.Now().UTC()
	return info, nil
}

// History returns all transactions attributable to the user, newest first.
func (l *PostgresLedger) History(ctx context.Context, userID uuid.UUID) ([]Entry, error) {
	rows, err := l.db.Query(ctx, `SELECT type, amount, status, reference, created_at
        FROM transactions WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, l.fail("history", err, "user_id", userID)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Type, &e.Amount, &e.Status, &e.Reference, &e.CreatedAt); err != nil {
			return nil, l.fail("history", err, "user_id", userID)
		}
		e.CreatedAt = e.CreatedAt.UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, l.fail("history", err, "user_id", userID)
	}
	return entries, nil
}

func lockWallets(ctx context.Context, tx pgx.Tx, ids ...uuid.UUID) (map[uuid.UUID]lockedWallet, error) {
	rows, err := tx.Query(ctx, `SELECT id, user_id, balance FROM wallets WHERE id = ANY($1) ORDER BY id FOR UPDATE`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	locked := make(map[uuid.UUID]lockedWallet, len(ids))
	for rows.Next() {
		var w lockedWallet
		if err := rows.Scan(&w.id, &w.userID, &w.balance); err != nil {
			return nil, err
		}
		locked[w.id] = w
	}
	return locked, rows.Err()
}

func updateBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, balance decimal.Decimal, now time.Time) error {
	cmd, err := tx.Exec(ctx, `UPDATE wallets SET balance = $1, updated_at = $2 WHERE id = $3`, balance, now, walletID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("wallet %s missing during balance update", walletID)
	}
	return nil
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insertTransaction(ctx context.Context, db execer, tr wallet.Transaction) error {
	_, err := db.Exec(ctx, `INSERT INTO transactions (id, wallet_id, user_id, type, status, amount, reference, description, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)`,
		tr.ID, tr.WalletID, tr.UserID, tr.Type, tr.Status, tr.Amount, tr.Reference, tr.Description, tr.CreatedAt)
	return err
}

// fail logs the store-level error with the operation's identifiers and
// surfaces the opaque ledger failure kind instead.
func (l *PostgresLedger) fail(op string, err error, attrs ...any) error {
	if l.logger != nil {
		l.logger.Error("ledger operation failed", append([]any{"op", op, "error", err}, attrs...)...)
	}
	return fmt.Errorf("%s: %w", op, ErrLedgerFailure)
}
