package service

import (
	"context"
	"fmt"
	"time"

	"custodial-wallet-backend/internal/core/domain"
	"custodial-wallet-backend/internal/core/ports"
	"custodial-wallet-backend/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AuthServiceImpl implements ports.AuthService.
type AuthServiceImpl struct {
	userRepo   ports.UserRepository
	walletRepo ports.WalletRepository
	keySvc     ports.ApiKeyService
	tokenSvc   ports.TokenService
	transactor ports.DBTransactor
	log        zerolog.Logger
}

// NewAuthService creates a new AuthServiceImpl.
func NewAuthService(
	userRepo ports.UserRepository,
	walletRepo ports.WalletRepository,
	keySvc ports.ApiKeyService,
	tokenSvc ports.TokenService,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *AuthServiceImpl {
	return &AuthServiceImpl{
		userRepo:   userRepo,
		walletRepo: walletRepo,
		keySvc:     keySvc,
		tokenSvc:   tokenSvc,
		transactor: transactor,
		log:        log,
	}
}

// Resolve turns request credentials into a principal. A present API key is
// authoritative: if it fails, the request fails, even if a valid bearer
// token rides alongside it. Token principals hold the wildcard scope.
func (s *AuthServiceImpl) Resolve(ctx context.Context, apiKey string, bearerToken string) (*domain.Principal, error) {
	if apiKey != "" {
		return s.keySvc.Validate(ctx, apiKey)
	}

	if bearerToken == "" {
		return nil, apperror.ErrUnauthenticated()
	}

	claims, err := s.tokenSvc.Validate(bearerToken)
	if err != nil {
		return nil, apperror.ErrInvalidToken()
	}

	return &domain.Principal{
		UserID: claims.UserID,
		Email:  claims.Email,
		Scopes: []string{domain.ScopeWildcard},
		Origin: domain.OriginToken,
	}, nil
}

// EnsureFromIdentity finds the user for a verified external identity, or
// creates the user and their wallet in one atomic unit on first sight.
func (s *AuthServiceImpl) EnsureFromIdentity(ctx context.Context, identity ports.VerifiedIdentity) (*domain.User, error) {
	if identity.Email == "" {
		return nil, apperror.Validation("identity email is required")
	}

	if identity.ExternalID != "" {
		user, err := s.userRepo.GetByExternalID(ctx, identity.ExternalID)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("lookup by external id: %w", err))
		}
		if user != nil {
			return user, nil
		}
	}

	user, err := s.userRepo.GetByEmail(ctx, identity.Email)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lookup by email: %w", err))
	}
	if user != nil {
		// The email already belongs to an account bound to another
		// provider identity. Refuse rather than silently relink.
		if identity.ExternalID != "" && user.ExternalID != nil && *user.ExternalID != identity.ExternalID {
			return nil, apperror.ErrConflict("email is bound to a different identity")
		}
		return user, nil
	}

	now := time.Now().UTC()
	user = &domain.User{
		ID:        uuid.New(),
		Email:     identity.Email,
		FirstName: identity.FirstName,
		LastName:  identity.LastName,
		Picture:   identity.Picture,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if identity.ExternalID != "" {
		extID := identity.ExternalID
		user.ExternalID = &extID
	}

	wallet := &domain.Wallet{
		ID:           uuid.New(),
		UserID:       user.ID,
		WalletNumber: domain.NewWalletNumber(),
		Balance:      0,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.userRepo.Create(ctx, dbTx, user); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create user: %w", err))
	}
	if err := s.walletRepo.Create(ctx, dbTx, wallet); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create wallet: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("user_id", user.ID.String()).
		Str("wallet_number", wallet.WalletNumber).
		Msg("user provisioned with wallet")

	return user, nil
}

// IssueToken signs a session token for an already provisioned user.
func (s *AuthServiceImpl) IssueToken(ctx context.Context, user *domain.User) (string, time.Time, error) {
	token, expiresAt, err := s.tokenSvc.Generate(user.ID, user.Email)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("generate token: %w", err))
	}
	return token, expiresAt, nil
}
