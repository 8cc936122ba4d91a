package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"custodial-wallet-backend/internal/core/domain"
	"custodial-wallet-backend/internal/core/ports"
	"custodial-wallet-backend/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// secretRandLen is the number of random bytes behind a key secret; hex
// encoding doubles it, so each secret is SecretPrefix plus 32 hex chars.
const secretRandLen = 16

// rolloverSuffix marks the reissued key's name so both generations stay
// distinguishable in listings.
const rolloverSuffix = " (rollover)"

// validityPattern accepts a positive integer followed by a unit:
// H (hours), D (days), M (calendar months), Y (calendar years).
var validityPattern = regexp.MustCompile(`^[1-9][0-9]*[HDMY]$`)

var knownScopes = map[string]bool{
	domain.ScopeDeposit:  true,
	domain.ScopeTransfer: true,
	domain.ScopeRead:     true,
}

// ApiKeyServiceImpl implements ports.ApiKeyService.
type ApiKeyServiceImpl struct {
	keyRepo  ports.ApiKeyRepository
	userRepo ports.UserRepository
	hashSvc  ports.HashService
	log      zerolog.Logger
}

// NewApiKeyService creates a new ApiKeyServiceImpl.
func NewApiKeyService(
	keyRepo ports.ApiKeyRepository,
	userRepo ports.UserRepository,
	hashSvc ports.HashService,
	log zerolog.Logger,
) *ApiKeyServiceImpl {
	return &ApiKeyServiceImpl{
		keyRepo:  keyRepo,
		userRepo: userRepo,
		hashSvc:  hashSvc,
		log:      log,
	}
}

// Issue mints a new API key for the user. The raw secret appears only in
// the returned IssuedKey; the store keeps its hash, lookup prefix and mask.
func (s *ApiKeyServiceImpl) Issue(ctx context.Context, userID uuid.UUID, name string, scopes []string, validity string) (*ports.IssuedKey, error) {
	if name == "" {
		return nil, apperror.Validation("key name is required")
	}
	if err := validateScopes(scopes); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	expiresAt, err := resolveValidity(validity, now)
	if err != nil {
		return nil, err
	}

	active, err := s.keyRepo.CountActive(ctx, userID, now)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("count active keys: %w", err))
	}
	if active >= domain.MaxActiveKeys {
		return nil, apperror.ErrKeyLimitExceeded()
	}

	issued, err := s.mint(ctx, userID, name, scopes, expiresAt, now)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("key_id", issued.Key.ID.String()).
		Str("user_id", userID.String()).
		Str("prefix", issued.Key.Prefix).
		Time("expires_at", expiresAt).
		Msg("api key issued")

	return issued, nil
}

// Validate resolves a raw secret to a key-origin principal. All failure
// modes short of a confirmed expired match collapse into Unauthenticated
// so callers leak nothing about which check failed.
func (s *ApiKeyServiceImpl) Validate(ctx context.Context, rawSecret string) (*domain.Principal, error) {
	if len(rawSecret) < domain.LookupPrefixLen || rawSecret[:len(domain.SecretPrefix)] != domain.SecretPrefix {
		return nil, apperror.ErrUnauthenticated()
	}

	candidates, err := s.keyRepo.ListCandidatesByPrefix(ctx, rawSecret[:domain.LookupPrefixLen])
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list key candidates: %w", err))
	}

	now := time.Now().UTC()
	for i := range candidates {
		key := &candidates[i]
		match, err := s.hashSvc.Verify(rawSecret, key.SecretHash)
		if err != nil {
			s.log.Warn().Err(err).Str("key_id", key.ID.String()).Msg("key hash verification errored, skipping candidate")
			continue
		}
		if !match {
			continue
		}
		if key.Revoked {
			return nil, apperror.ErrUnauthenticated()
		}
		if key.IsExpired(now) {
			return nil, apperror.ErrKeyExpired()
		}

		user, err := s.userRepo.GetByID(ctx, key.UserID)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("load key owner: %w", err))
		}
		if user == nil {
			return nil, apperror.ErrUnauthenticated()
		}

		return &domain.Principal{
			UserID: key.UserID,
			Email:  user.Email,
			Scopes: key.Scopes,
			Origin: domain.OriginKey,
		}, nil
	}

	return nil, apperror.ErrUnauthenticated()
}

// Revoke flags the key as revoked. Revocation is idempotent.
func (s *ApiKeyServiceImpl) Revoke(ctx context.Context, userID uuid.UUID, keyID uuid.UUID) error {
	key, err := s.ownedKey(ctx, userID, keyID)
	if err != nil {
		return err
	}
	if key.Revoked {
		return nil
	}

	if err := s.keyRepo.SetRevoked(ctx, key.ID); err != nil {
		return apperror.InternalError(fmt.Errorf("revoke key: %w", err))
	}

	s.log.Info().
		Str("key_id", key.ID.String()).
		Str("user_id", userID.String()).
		Msg("api key revoked")

	return nil
}

// Rollover revokes the key and reissues a replacement carrying the same
// scopes under a fresh secret and validity window.
func (s *ApiKeyServiceImpl) Rollover(ctx context.Context, userID uuid.UUID, keyID uuid.UUID, validity string) (*ports.IssuedKey, error) {
	old, err := s.ownedKey(ctx, userID, keyID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	expiresAt, err := resolveValidity(validity, now)
	if err != nil {
		return nil, err
	}

	if !old.Revoked {
		if err := s.keyRepo.SetRevoked(ctx, old.ID); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("revoke rolled-over key: %w", err))
		}
	}

	issued, err := s.mint(ctx, userID, old.Name+rolloverSuffix, old.Scopes, expiresAt, now)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("old_key_id", old.ID.String()).
		Str("new_key_id", issued.Key.ID.String()).
		Str("user_id", userID.String()).
		Msg("api key rolled over")

	return issued, nil
}

// List returns all of the user's keys, revoked and expired included.
func (s *ApiKeyServiceImpl) List(ctx context.Context, userID uuid.UUID) ([]domain.ApiKey, error) {
	keys, err := s.keyRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list keys: %w", err))
	}
	return keys, nil
}

// Get returns a single key owned by the user.
func (s *ApiKeyServiceImpl) Get(ctx context.Context, userID uuid.UUID, keyID uuid.UUID) (*domain.ApiKey, error) {
	return s.ownedKey(ctx, userID, keyID)
}

// mint generates, hashes and persists a new key record.
func (s *ApiKeyServiceImpl) mint(ctx context.Context, userID uuid.UUID, name string, scopes []string, expiresAt, now time.Time) (*ports.IssuedKey, error) {
	raw, err := newSecret()
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate secret: %w", err))
	}

	hash, err := s.hashSvc.Hash(raw)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("hash secret: %w", err))
	}

	key := domain.ApiKey{
		ID:         uuid.New(),
		UserID:     userID,
		Name:       name,
		SecretHash: hash,
		Prefix:     raw[:domain.LookupPrefixLen],
		MaskedKey:  domain.MaskSecret(raw),
		Scopes:     append([]string(nil), scopes...),
		ExpiresAt:  expiresAt,
		CreatedAt:  now,
	}

	// The insert itself re-checks the quota as a conditional write, so
	// concurrent issuance cannot slip past the CountActive pre-check.
	ok, err := s.keyRepo.Create(ctx, &key, domain.MaxActiveKeys)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create key: %w", err))
	}
	if !ok {
		return nil, apperror.ErrKeyLimitExceeded()
	}

	return &ports.IssuedKey{RawSecret: raw, Key: key}, nil
}

// ownedKey loads a key and enforces ownership. A key belonging to another
// user is reported as not found.
func (s *ApiKeyServiceImpl) ownedKey(ctx context.Context, userID uuid.UUID, keyID uuid.UUID) (*domain.ApiKey, error) {
	key, err := s.keyRepo.GetByID(ctx, keyID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get key: %w", err))
	}
	if key == nil || key.UserID != userID {
		return nil, apperror.ErrKeyNotFound()
	}
	return key, nil
}

func newSecret() (string, error) {
	buf := make([]byte, secretRandLen)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return domain.SecretPrefix + hex.EncodeToString(buf), nil
}

func validateScopes(scopes []string) error {
	if len(scopes) == 0 {
		return apperror.Validation("at least one scope is required")
	}
	for _, sc := range scopes {
		if !knownScopes[sc] {
			return apperror.Validation(fmt.Sprintf("unknown scope: %s", sc))
		}
	}
	return nil
}

// resolveValidity parses a validity string such as "24H", "30D", "6M" or
// "1Y" and returns the absolute expiry. Month and year units follow the
// calendar rather than fixed-length approximations.
func resolveValidity(validity string, now time.Time) (time.Time, error) {
	if !validityPattern.MatchString(validity) {
		return time.Time{}, apperror.ErrInvalidDuration()
	}

	unit := validity[len(validity)-1]
	n, err := strconv.Atoi(validity[:len(validity)-1])
	if err != nil {
		return time.Time{}, apperror.ErrInvalidDuration()
	}

	switch unit {
	case 'H':
		return now.Add(time.Duration(n) * time.Hour), nil
	case 'D':
		return now.AddDate(0, 0, n), nil
	case 'M':
		return now.AddDate(0, n, 0), nil
	case 'Y':
		return now.AddDate(n, 0, 0), nil
	default:
		return time.Time{}, apperror.ErrInvalidDuration()
	}
}
