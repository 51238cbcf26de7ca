package wallet

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the requested wallet does not exist.
var ErrNotFound = errors.New("wallet not found")

// Repository persists wallet rows. Balance mutations are not part of this
// contract: they belong exclusively to the ledger engine, which locks the
// rows it updates inside its own transaction.
type Repository interface {
	Create(ctx context.Context, w Wallet) error
	ByUserID(ctx context.Context, userID uuid.UUID) (Wallet, error)
	ByNumber(ctx context.Context, walletNumber string) (Wallet, error)
}

// PostgresRepository stores wallets in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a wallet row with a zero balance.
func (r *PostgresRepository) Create(ctx context.Context, w Wallet) error {
	_, err := r.db.Exec(ctx, `INSERT INTO wallets (id, user_id, wallet_number, balance, currency, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $6)`,
		w.ID, w.UserID, w.WalletNumber, w.Balance, w.Currency, w.CreatedAt.UTC())
	return err
}

// ByUserID fetches the wallet owned by the given user.
func (r *PostgresRepository) ByUserID(ctx context.Context, userID uuid.UUID) (Wallet, error) {
	return r.scanOne(r.db.QueryRow(ctx, `SELECT id, user_id, wallet_number, balance, currency, created_at, updated_at
        FROM wallets WHERE user_id = $1`, userID))
}

// ByNumber fetches a wallet by its public wallet number.
func (r *PostgresRepository) ByNumber(ctx context.Context, walletNumber string) (Wallet, error) {
	return r.scanOne(r.db.QueryRow(ctx, `SELECT id, user_id, wallet_number, balance, currency, created_at, updated_at
        FROM wallets WHERE wallet_number = $1`, walletNumber))
}

func (r *PostgresRepository) scanOne(row pgx.Row) (Wallet, error) {
	var w Wallet
	err := row.Scan(&w.ID, &w.UserID, &w.WalletNumber, &w.Balance, &w.Currency, &w.CreatedAt, &w.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Wallet{}, ErrNotFound
	}
	if err != nil {
		return Wallet{}, err
	}
	w.CreatedAt = w.CreatedAt.UTC()
	w.UpdatedAt = w.UpdatedAt.UTC()
	return w, nil
}
