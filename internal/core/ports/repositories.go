package ports

import (
	"context"
	"time"

	"custodial-wallet-backend/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

//go:generate mockgen -source=repositories.go -destination=mocks/repositories_mock.go -package=mocks

// UserRepository defines persistence operations for users.
// Create accepts a pgx.Tx because user and wallet creation share one
// atomic unit of work.
type UserRepository interface {
	Create(ctx context.Context, tx pgx.Tx, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByExternalID(ctx context.Context, externalID string) (*domain.User, error)
}

// WalletRepository defines persistence operations for wallets. Balance
// mutations are conditional writes executed inside transaction blocks; the
// debit applies only while it keeps the balance non-negative.
type WalletRepository interface {
	Create(ctx context.Context, tx pgx.Tx, wallet *domain.Wallet) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error)
	GetByIDTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error)
	// Debit decrements the balance only if current balance >= amount.
	// Returns false (and no error) when the condition fails.
	Debit(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, amount int64) (bool, error)
	// Credit increments the balance unconditionally.
	Credit(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, amount int64) error
}

// TransactionRepository defines persistence for the append-only ledger.
type TransactionRepository interface {
	Create(ctx context.Context, tx pgx.Tx, txn *domain.Transaction) error
	GetByReference(ctx context.Context, reference string) (*domain.Transaction, error)
	// GetByReferenceForUpdate locks the row so concurrent settlement
	// deliveries for the same reference serialize. MUST run inside tx.
	GetByReferenceForUpdate(ctx context.Context, tx pgx.Tx, reference string) (*domain.Transaction, error)
	// MarkSettled flips a transaction to SUCCESS and attaches the full
	// settlement event payload as metadata.
	MarkSettled(ctx context.Context, tx pgx.Tx, id uuid.UUID, metadata []byte) error
	ListByWallet(ctx context.Context, walletID uuid.UUID, limit int) ([]domain.Transaction, error)
}

// ApiKeyRepository defines persistence for API-key records. Keys are never
// deleted, only flagged revoked.
type ApiKeyRepository interface {
	// Create persists the key only while the owner holds fewer than
	// maxActive non-revoked, unexpired keys. The count and the insert are
	// one conditional statement, so concurrent issuance cannot overshoot
	// the quota. Returns false (and no error) when the quota is full.
	Create(ctx context.Context, key *domain.ApiKey, maxActive int) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ApiKey, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.ApiKey, error)
	// ListCandidatesByPrefix fetches all non-revoked keys sharing a lookup
	// prefix. Prefix collisions are rare but possible; callers verify the
	// hash against every candidate.
	ListCandidatesByPrefix(ctx context.Context, prefix string) ([]domain.ApiKey, error)
	CountActive(ctx context.Context, userID uuid.UUID, now time.Time) (int, error)
	SetRevoked(ctx context.Context, id uuid.UUID) error
}

// DBTransactor provides the atomic unit of work: everything executed
// against the returned pgx.Tx commits together or not at all.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
