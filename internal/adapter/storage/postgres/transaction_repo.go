package postgres

import (
	"context"
	"errors"
	"fmt"

	"custodial-wallet-backend/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TransactionRepo implements ports.TransactionRepository.
type TransactionRepo struct {
	pool Pool
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

const transactionColumns = `id, wallet_id, amount, type, status, reference, description, metadata, created_at`

// Create appends a ledger entry within a transaction.
func (r *TransactionRepo) Create(ctx context.Context, tx pgx.Tx, txn *domain.Transaction) error {
	query := `INSERT INTO transactions (id, wallet_id, amount, type, status, reference, description, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := tx.Exec(ctx, query,
		txn.ID, txn.WalletID, txn.Amount, txn.Type, txn.Status,
		txn.Reference, txn.Description, txn.Metadata, txn.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// GetByReference fetches a ledger entry by its unique reference (non-locking read).
func (r *TransactionRepo) GetByReference(ctx context.Context, reference string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE reference = $1`
	return scanTransaction(r.pool.QueryRow(ctx, query, reference), "get transaction by reference")
}

// GetByReferenceForUpdate fetches a ledger entry by reference with
// pessimistic locking. This MUST be called within a transaction: it is how
// concurrent settlement deliveries for one reference serialize.
func (r *TransactionRepo) GetByReferenceForUpdate(ctx context.Context, tx pgx.Tx, reference string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE reference = $1 FOR UPDATE`
	return scanTransaction(tx.QueryRow(ctx, query, reference), "get transaction for update")
}

// MarkSettled flips a pending entry to SUCCESS and stores the settlement
// event payload as metadata.
func (r *TransactionRepo) MarkSettled(ctx context.Context, tx pgx.Tx, id uuid.UUID, metadata []byte) error {
	query := `UPDATE transactions SET status = $1, metadata = $2 WHERE id = $3`

	tag, err := tx.Exec(ctx, query, domain.TransactionStatusSuccess, metadata, id)
	if err != nil {
		return fmt.Errorf("mark transaction settled: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transaction not found: %s", id)
	}
	return nil
}

// ListByWallet returns the wallet's most recent entries, newest first.
func (r *TransactionRepo) ListByWallet(ctx context.Context, walletID uuid.UUID, limit int) ([]domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE wallet_id = $1 ORDER BY created_at DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, walletID, limit)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txns []domain.Transaction
	for rows.Next() {
		var txn domain.Transaction
		if err := rows.Scan(
			&txn.ID, &txn.WalletID, &txn.Amount, &txn.Type, &txn.Status,
			&txn.Reference, &txn.Description, &txn.Metadata, &txn.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txns = append(txns, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return txns, nil
}

func scanTransaction(row pgx.Row, op string) (*domain.Transaction, error) {
	txn := &domain.Transaction{}
	err := row.Scan(
		&txn.ID, &txn.WalletID, &txn.Amount, &txn.Type, &txn.Status,
		&txn.Reference, &txn.Description, &txn.Metadata, &txn.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return txn, nil
}
