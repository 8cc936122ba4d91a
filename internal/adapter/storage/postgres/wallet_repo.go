package postgres

import (
	"context"
	"errors"
	"fmt"

	"custodial-wallet-backend/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WalletRepo implements ports.WalletRepository.
type WalletRepo struct {
	pool Pool
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(pool Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

const walletColumns = `id, user_id, wallet_number, balance, created_at, updated_at`

// Create inserts a new wallet within the provisioning transaction.
func (r *WalletRepo) Create(ctx context.Context, tx pgx.Tx, w *domain.Wallet) error {
	query := `INSERT INTO wallets (id, user_id, wallet_number, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := tx.Exec(ctx, query,
		w.ID, w.UserID, w.WalletNumber, w.Balance, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

// GetByID fetches a wallet by its UUID (without locking).
func (r *WalletRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1`
	return scanWallet(r.pool.QueryRow(ctx, query, id), "get wallet by id")
}

// GetByIDTx fetches a wallet by its UUID inside a transaction, so the read
// participates in the transfer's atomic unit.
func (r *WalletRepo) GetByIDTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1`
	return scanWallet(tx.QueryRow(ctx, query, id), "get wallet by id in tx")
}

// GetByUserID fetches the user's single wallet.
func (r *WalletRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1`
	return scanWallet(r.pool.QueryRow(ctx, query, userID), "get wallet by user id")
}

// Debit conditionally decrements the balance. The guard is in the WHERE
// clause, so under concurrent debits the database itself enforces that the
// balance never goes negative. Returns false when the guard rejects.
func (r *WalletRepo) Debit(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, amount int64) (bool, error) {
	query := `UPDATE wallets SET balance = balance - $1, updated_at = NOW()
		WHERE id = $2 AND balance >= $1`

	tag, err := tx.Exec(ctx, query, amount, walletID)
	if err != nil {
		return false, fmt.Errorf("debit wallet: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Credit increments the balance within a transaction.
func (r *WalletRepo) Credit(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, amount int64) error {
	query := `UPDATE wallets SET balance = balance + $1, updated_at = NOW() WHERE id = $2`

	tag, err := tx.Exec(ctx, query, amount, walletID)
	if err != nil {
		return fmt.Errorf("credit wallet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("wallet not found: %s", walletID)
	}
	return nil
}

func scanWallet(row pgx.Row, op string) (*domain.Wallet, error) {
	w := &domain.Wallet{}
	err := row.Scan(
		&w.ID, &w.UserID, &w.WalletNumber, &w.Balance, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return w, nil
}
