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

func strPtr(s string) *string { return &s }

func newTestUser() *domain.User {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.User{
		ID:         uuid.New(),
		Email:      "alice@example.com",
		ExternalID: strPtr("ext-123"),
		FirstName:  "Alice",
		LastName:   "Ngo",
		Picture:    "https://cdn.example.com/alice.png",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func userCols() []string {
	return []string{"id", "email", "external_id", "first_name", "last_name", "picture", "created_at", "updated_at"}
}

func userRow(u *domain.User) *pgxmock.Rows {
	return pgxmock.NewRows(userCols()).AddRow(
		u.ID, u.Email, u.ExternalID, u.FirstName, u.LastName,
		u.Picture, u.CreatedAt, u.UpdatedAt,
	)
}

func TestUserRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewUserRepo(mock)
	u := newTestUser()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users").
		WithArgs(u.ID, u.Email, u.ExternalID, u.FirstName, u.LastName,
			u.Picture, u.CreatedAt, u.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), tx, u)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_GetByEmail(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewUserRepo(mock)
	u := newTestUser()

	mock.ExpectQuery("SELECT (.+) FROM users WHERE email").
		WithArgs(u.Email).
		WillReturnRows(userRow(u))

	got, err := repo.GetByEmail(context.Background(), u.Email)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, u.ID, got.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_GetByExternalID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewUserRepo(mock)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE external_id").
		WithArgs("ext-missing").
		WillReturnRows(pgxmock.NewRows(userCols()))

	got, err := repo.GetByExternalID(context.Background(), "ext-missing")
	assert.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHealthCheck_Ping(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	hc := NewHealthCheck(mock)

	mock.ExpectExec("SELECT 1").WillReturnResult(pgxmock.NewResult("SELECT", 1))

	assert.NoError(t, hc.Ping(context.Background()))
	assert.Equal(t, "postgresql", hc.Name())
	assert.NoError(t, mock.ExpectationsWereMet())
}
