package postgres

import (
	"context"
	"errors"
	"fmt"

	"custodial-wallet-backend/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// UserRepo implements ports.UserRepository.
type UserRepo struct {
	pool Pool
}

// NewUserRepo creates a new UserRepo.
func NewUserRepo(pool Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

const userColumns = `id, email, external_id, first_name, last_name, picture, created_at, updated_at`

// Create inserts a new user. Runs inside the provided transaction because
// user and wallet provisioning commit together.
func (r *UserRepo) Create(ctx context.Context, tx pgx.Tx, u *domain.User) error {
	query := `INSERT INTO users (id, email, external_id, first_name, last_name, picture, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := tx.Exec(ctx, query,
		u.ID, u.Email, u.ExternalID, u.FirstName, u.LastName,
		u.Picture, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetByID fetches a user by their UUID.
func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, id), "get user by id")
}

// GetByEmail fetches a user by their email address.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, email), "get user by email")
}

// GetByExternalID fetches a user by their verified external identity.
func (r *UserRepo) GetByExternalID(ctx context.Context, externalID string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE external_id = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, externalID), "get user by external id")
}

func (r *UserRepo) scanOne(row pgx.Row, op string) (*domain.User, error) {
	u := &domain.User{}
	err := row.Scan(
		&u.ID, &u.Email, &u.ExternalID, &u.FirstName, &u.LastName,
		&u.Picture, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}
