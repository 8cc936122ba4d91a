package postgres

import (
	"context"
	"testing"
	"time"

	"custodial-wallet-backend/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApiKey(userID uuid.UUID) *domain.ApiKey {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.ApiKey{
		ID:         uuid.New(),
		UserID:     userID,
		Name:       "ci pipeline",
		SecretHash: "$argon2id$v=19$m=65536,t=1,p=4$salt$hash",
		Prefix:     "sk_live_0123",
		MaskedKey:  "sk_live_0123...cdef",
		Scopes:     []string{domain.ScopeTransfer, domain.ScopeRead},
		ExpiresAt:  now.AddDate(0, 0, 30),
		Revoked:    false,
		CreatedAt:  now,
	}
}

func apiKeyCols() []string {
	return []string{"id", "user_id", "name", "secret_hash", "prefix", "masked_key", "scopes", "expires_at", "revoked", "created_at"}
}

func apiKeyRow(k *domain.ApiKey) *pgxmock.Rows {
	return pgxmock.NewRows(apiKeyCols()).AddRow(
		k.ID, k.UserID, k.Name, k.SecretHash, k.Prefix,
		k.MaskedKey, k.Scopes, k.ExpiresAt, k.Revoked, k.CreatedAt,
	)
}

func TestApiKeyRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewApiKeyRepo(mock)
	k := newTestApiKey(uuid.New())

	mock.ExpectExec("INSERT INTO api_keys").
		WithArgs(k.ID, k.UserID, k.Name, k.SecretHash, k.Prefix,
			k.MaskedKey, k.Scopes, k.ExpiresAt, k.Revoked, k.CreatedAt,
			domain.MaxActiveKeys).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	ok, err := repo.Create(context.Background(), k, domain.MaxActiveKeys)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApiKeyRepo_Create_QuotaGuardRejects(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewApiKeyRepo(mock)
	k := newTestApiKey(uuid.New())

	// Zero rows affected: the embedded active-key count was at the cap.
	mock.ExpectExec("INSERT INTO api_keys").
		WithArgs(k.ID, k.UserID, k.Name, k.SecretHash, k.Prefix,
			k.MaskedKey, k.Scopes, k.ExpiresAt, k.Revoked, k.CreatedAt,
			domain.MaxActiveKeys).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	ok, err := repo.Create(context.Background(), k, domain.MaxActiveKeys)
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApiKeyRepo_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewApiKeyRepo(mock)
	k := newTestApiKey(uuid.New())

	mock.ExpectQuery("SELECT (.+) FROM api_keys WHERE id").
		WithArgs(k.ID).
		WillReturnRows(apiKeyRow(k))

	got, err := repo.GetByID(context.Background(), k.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, k.Prefix, got.Prefix)
	assert.Equal(t, k.Scopes, got.Scopes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApiKeyRepo_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewApiKeyRepo(mock)
	id := uuid.New()

	mock.ExpectQuery("SELECT (.+) FROM api_keys WHERE id").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(apiKeyCols()))

	got, err := repo.GetByID(context.Background(), id)
	assert.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApiKeyRepo_ListCandidatesByPrefix(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewApiKeyRepo(mock)
	userID := uuid.New()
	a := newTestApiKey(userID)
	b := newTestApiKey(userID)

	rows := pgxmock.NewRows(apiKeyCols()).
		AddRow(a.ID, a.UserID, a.Name, a.SecretHash, a.Prefix, a.MaskedKey, a.Scopes, a.ExpiresAt, a.Revoked, a.CreatedAt).
		AddRow(b.ID, b.UserID, b.Name, b.SecretHash, b.Prefix, b.MaskedKey, b.Scopes, b.ExpiresAt, b.Revoked, b.CreatedAt)

	mock.ExpectQuery("SELECT (.+) FROM api_keys WHERE prefix").
		WithArgs("sk_live_0123").
		WillReturnRows(rows)

	got, err := repo.ListCandidatesByPrefix(context.Background(), "sk_live_0123")
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApiKeyRepo_CountActive(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewApiKeyRepo(mock)
	userID := uuid.New()
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT COUNT").
		WithArgs(userID, now).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))

	count, err := repo.CountActive(context.Background(), userID, now)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApiKeyRepo_SetRevoked(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewApiKeyRepo(mock)
	id := uuid.New()

	mock.ExpectExec("UPDATE api_keys SET revoked").
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = repo.SetRevoked(context.Background(), id)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApiKeyRepo_SetRevoked_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewApiKeyRepo(mock)
	id := uuid.New()

	mock.ExpectExec("UPDATE api_keys SET revoked").
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = repo.SetRevoked(context.Background(), id)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
