package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"custodial-wallet-backend/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ApiKeyRepo implements ports.ApiKeyRepository.
type ApiKeyRepo struct {
	pool Pool
}

// NewApiKeyRepo creates a new ApiKeyRepo.
func NewApiKeyRepo(pool Pool) *ApiKeyRepo {
	return &ApiKeyRepo{pool: pool}
}

const apiKeyColumns = `id, user_id, name, secret_hash, prefix, masked_key, scopes, expires_at, revoked, created_at`

// Create inserts a new key record, conditioned on the owner staying under
// the active-key quota. The count and the insert run as one statement;
// RowsAffected tells whether the guard admitted the row.
func (r *ApiKeyRepo) Create(ctx context.Context, key *domain.ApiKey, maxActive int) (bool, error) {
	query := `INSERT INTO api_keys (id, user_id, name, secret_hash, prefix, masked_key, scopes, expires_at, revoked, created_at)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		WHERE (
			SELECT COUNT(*) FROM api_keys
			WHERE user_id = $2 AND revoked = FALSE AND expires_at > NOW()
		) < $11`

	tag, err := r.pool.Exec(ctx, query,
		key.ID, key.UserID, key.Name, key.SecretHash, key.Prefix,
		key.MaskedKey, key.Scopes, key.ExpiresAt, key.Revoked, key.CreatedAt,
		maxActive,
	)
	if err != nil {
		return false, fmt.Errorf("insert api key: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// GetByID fetches a key by its UUID, revoked keys included.
func (r *ApiKeyRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.ApiKey, error) {
	query := `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE id = $1`
	return scanApiKey(r.pool.QueryRow(ctx, query, id), "get api key by id")
}

// ListByUser returns all of the user's keys, newest first.
func (r *ApiKeyRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.ApiKey, error) {
	query := `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()
	return collectApiKeys(rows)
}

// ListCandidatesByPrefix fetches non-revoked keys sharing a lookup prefix.
// The prefix column is indexed; the caller verifies the hash against every
// candidate since distinct secrets can share a prefix.
func (r *ApiKeyRepo) ListCandidatesByPrefix(ctx context.Context, prefix string) ([]domain.ApiKey, error) {
	query := `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE prefix = $1 AND revoked = FALSE`

	rows, err := r.pool.Query(ctx, query, prefix)
	if err != nil {
		return nil, fmt.Errorf("list api key candidates: %w", err)
	}
	defer rows.Close()
	return collectApiKeys(rows)
}

// CountActive counts non-revoked, unexpired keys for quota enforcement.
func (r *ApiKeyRepo) CountActive(ctx context.Context, userID uuid.UUID, now time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM api_keys WHERE user_id = $1 AND revoked = FALSE AND expires_at > $2`

	var count int
	if err := r.pool.QueryRow(ctx, query, userID, now).Scan(&count); err != nil {
		return 0, fmt.Errorf("count active api keys: %w", err)
	}
	return count, nil
}

// SetRevoked flags a key as revoked. Records are never deleted.
func (r *ApiKeyRepo) SetRevoked(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE api_keys SET revoked = TRUE WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("api key not found: %s", id)
	}
	return nil
}

func scanApiKey(row pgx.Row, op string) (*domain.ApiKey, error) {
	k := &domain.ApiKey{}
	err := row.Scan(
		&k.ID, &k.UserID, &k.Name, &k.SecretHash, &k.Prefix,
		&k.MaskedKey, &k.Scopes, &k.ExpiresAt, &k.Revoked, &k.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return k, nil
}

func collectApiKeys(rows pgx.Rows) ([]domain.ApiKey, error) {
	var keys []domain.ApiKey
	for rows.Next() {
		var k domain.ApiKey
		if err := rows.Scan(
			&k.ID, &k.UserID, &k.Name, &k.SecretHash, &k.Prefix,
			&k.MaskedKey, &k.Scopes, &k.ExpiresAt, &k.Revoked, &k.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate api keys: %w", err)
	}
	return keys, nil
}
