package integration

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"custodial-wallet-backend/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// --- In-Memory User Repo ---

type inMemoryUserRepo struct {
	mu    sync.RWMutex
	users map[uuid.UUID]*domain.User
}

func newInMemoryUserRepo() *inMemoryUserRepo {
	return &inMemoryUserRepo{users: make(map[uuid.UUID]*domain.User)}
}

func (r *inMemoryUserRepo) Create(ctx context.Context, tx pgx.Tx, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return fmt.Errorf("email already exists")
		}
	}
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *inMemoryUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *inMemoryUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryUserRepo) GetByExternalID(ctx context.Context, externalID string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.ExternalID != nil && *u.ExternalID == externalID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

// --- In-Memory Wallet Repo ---

type inMemoryWalletRepo struct {
	mu      sync.RWMutex
	wallets map[uuid.UUID]*domain.Wallet
}

func newInMemoryWalletRepo() *inMemoryWalletRepo {
	return &inMemoryWalletRepo{wallets: make(map[uuid.UUID]*domain.Wallet)}
}

func (r *inMemoryWalletRepo) Create(ctx context.Context, tx pgx.Tx, w *domain.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *w
	r.wallets[w.ID] = &cp
	return nil
}

func (r *inMemoryWalletRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.wallets[id]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

func (r *inMemoryWalletRepo) GetByIDTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error) {
	return r.GetByID(ctx, id)
}

func (r *inMemoryWalletRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, w := range r.wallets {
		if w.UserID == userID {
			cp := *w
			return &cp, nil
		}
	}
	return nil, nil
}

// Debit applies the decrement only while it keeps the balance non-negative,
// mirroring the conditional UPDATE of the SQL implementation. The check and
// the write happen under one lock, so concurrent debits cannot overdraw.
func (r *inMemoryWalletRepo) Debit(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, amount int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[walletID]
	if !ok {
		return false, nil
	}
	if w.Balance < amount {
		return false, nil
	}
	w.Balance -= amount
	w.UpdatedAt = time.Now()
	return true, nil
}

func (r *inMemoryWalletRepo) Credit(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, amount int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[walletID]
	if !ok {
		return fmt.Errorf("wallet not found")
	}
	w.Balance += amount
	w.UpdatedAt = time.Now()
	return nil
}

// --- In-Memory Transaction Repo ---

type inMemoryTransactionRepo struct {
	mu           sync.RWMutex
	transactions map[uuid.UUID]*domain.Transaction
}

func newInMemoryTransactionRepo() *inMemoryTransactionRepo {
	return &inMemoryTransactionRepo{transactions: make(map[uuid.UUID]*domain.Transaction)}
}

func (r *inMemoryTransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.transactions {
		if existing.Reference == t.Reference {
			return fmt.Errorf("reference already exists")
		}
	}
	cp := *t
	r.transactions[t.ID] = &cp
	return nil
}

func (r *inMemoryTransactionRepo) GetByReference(ctx context.Context, reference string) (*domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.transactions {
		if t.Reference == reference {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryTransactionRepo) GetByReferenceForUpdate(ctx context.Context, tx pgx.Tx, reference string) (*domain.Transaction, error) {
	return r.GetByReference(ctx, reference)
}

func (r *inMemoryTransactionRepo) MarkSettled(ctx context.Context, tx pgx.Tx, id uuid.UUID, metadata []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.transactions[id]
	if !ok {
		return fmt.Errorf("transaction not found")
	}
	t.Status = domain.TransactionStatusSuccess
	t.Metadata = metadata
	return nil
}

func (r *inMemoryTransactionRepo) ListByWallet(ctx context.Context, walletID uuid.UUID, limit int) ([]domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Transaction
	for _, t := range r.transactions {
		if t.WalletID == walletID {
			result = append(result, *t)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// --- In-Memory API Key Repo ---

type inMemoryApiKeyRepo struct {
	mu   sync.RWMutex
	keys map[uuid.UUID]*domain.ApiKey
}

func newInMemoryApiKeyRepo() *inMemoryApiKeyRepo {
	return &inMemoryApiKeyRepo{keys: make(map[uuid.UUID]*domain.ApiKey)}
}

// Create counts and inserts under one lock, mirroring the single guarded
// INSERT of the SQL implementation.
func (r *inMemoryApiKeyRepo) Create(ctx context.Context, key *domain.ApiKey, maxActive int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	active := 0
	for _, k := range r.keys {
		if k.UserID == key.UserID && !k.Revoked && k.ExpiresAt.After(now) {
			active++
		}
	}
	if active >= maxActive {
		return false, nil
	}
	cp := *key
	r.keys[key.ID] = &cp
	return true, nil
}

func (r *inMemoryApiKeyRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.ApiKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.keys[id]
	if !ok {
		return nil, nil
	}
	cp := *k
	return &cp, nil
}

func (r *inMemoryApiKeyRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.ApiKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.ApiKey
	for _, k := range r.keys {
		if k.UserID == userID {
			result = append(result, *k)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (r *inMemoryApiKeyRepo) ListCandidatesByPrefix(ctx context.Context, prefix string) ([]domain.ApiKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.ApiKey
	for _, k := range r.keys {
		if k.Prefix == prefix && !k.Revoked {
			result = append(result, *k)
		}
	}
	return result, nil
}

func (r *inMemoryApiKeyRepo) CountActive(ctx context.Context, userID uuid.UUID, now time.Time) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, k := range r.keys {
		if k.UserID == userID && !k.Revoked && k.ExpiresAt.After(now) {
			count++
		}
	}
	return count, nil
}

func (r *inMemoryApiKeyRepo) SetRevoked(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k, ok := r.keys[id]
	if !ok {
		return fmt.Errorf("api key not found")
	}
	k.Revoked = true
	return nil
}

// --- In-Memory Transactor ---

// inMemoryTransactor serializes units of work with a single mutex, standing
// in for the row locks the SQL implementation takes with FOR UPDATE.
type inMemoryTransactor struct {
	mu sync.Mutex
}

func newInMemoryTransactor() *inMemoryTransactor {
	return &inMemoryTransactor{}
}

func (t *inMemoryTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	t.mu.Lock()
	return &serializedTx{release: &t.mu}, nil
}

// serializedTx is a pgx.Tx stand-in that releases the transactor lock on
// the first Commit or Rollback. Services call Rollback via defer after a
// successful Commit, so release must be idempotent.
type serializedTx struct {
	release *sync.Mutex
	once    sync.Once
}

func (t *serializedTx) done() {
	t.once.Do(t.release.Unlock)
}

func (t *serializedTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *serializedTx) Commit(ctx context.Context) error          { t.done(); return nil }
func (t *serializedTx) Rollback(ctx context.Context) error        { t.done(); return nil }
func (t *serializedTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *serializedTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *serializedTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *serializedTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *serializedTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *serializedTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *serializedTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *serializedTx) Conn() *pgx.Conn { return nil }
