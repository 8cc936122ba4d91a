package ports

import (
	"context"
	"time"

	"custodial-wallet-backend/internal/core/domain"

	"github.com/google/uuid"
)

//go:generate mockgen -source=services.go -destination=mocks/services_mock.go -package=mocks

// HashService computes adaptive one-way hashes of API-key secrets (Argon2id).
type HashService interface {
	Hash(secret string) (string, error)
	Verify(secret string, hash string) (bool, error)
}

// TokenService handles JWT session token operations. It is the externally
// supplied token verifier composed by the authentication resolver.
type TokenService interface {
	Generate(userID uuid.UUID, email string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	UserID uuid.UUID
	Email  string
}

// PaymentGateway opens hosted payment sessions with the external provider.
type PaymentGateway interface {
	InitializeTransaction(ctx context.Context, email string, amount int64, metadata map[string]any) (*GatewaySession, error)
}

// GatewaySession is the provider-assigned handle for a hosted payment page.
type GatewaySession struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
	Raw              []byte `json:"-"` // full provider response for metadata
}

// SettlementDedup is a best-effort fast path that remembers recently
// settled references so duplicate webhook deliveries skip the database.
// The status check inside the settlement transaction stays authoritative.
type SettlementDedup interface {
	AlreadySettled(ctx context.Context, reference string) (bool, error)
	MarkSettled(ctx context.Context, reference string, ttl time.Duration) error
}

// --- Service Ports (Business Logic) ---

// IssuedKey carries the one and only exposure of a raw API-key secret.
type IssuedKey struct {
	RawSecret string
	Key       domain.ApiKey
}

// ApiKeyService owns the API-key lifecycle: issuance, hashed storage,
// prefix-indexed validation, expiry, revocation, rollover.
type ApiKeyService interface {
	Issue(ctx context.Context, userID uuid.UUID, name string, scopes []string, validity string) (*IssuedKey, error)
	// Validate resolves a raw secret to a key-origin principal. Fails
	// closed: malformed input, unknown prefix, revoked or hash-mismatched
	// keys all yield Unauthenticated; an expired match yields Expired.
	Validate(ctx context.Context, rawSecret string) (*domain.Principal, error)
	Revoke(ctx context.Context, userID uuid.UUID, keyID uuid.UUID) error
	Rollover(ctx context.Context, userID uuid.UUID, keyID uuid.UUID, validity string) (*IssuedKey, error)
	List(ctx context.Context, userID uuid.UUID) ([]domain.ApiKey, error)
	Get(ctx context.Context, userID uuid.UUID, keyID uuid.UUID) (*domain.ApiKey, error)
}

// VerifiedIdentity is an identity already verified by an upstream provider.
type VerifiedIdentity struct {
	Email      string
	ExternalID string
	FirstName  string
	LastName   string
	Picture    string
}

// AuthService resolves request credentials to principals and provisions
// users from verified external identities.
type AuthService interface {
	// Resolve applies the credential decision order: a present API key is
	// authoritative (no token fallback on failure); otherwise the bearer
	// token is verified.
	Resolve(ctx context.Context, apiKey string, bearerToken string) (*domain.Principal, error)
	// EnsureFromIdentity finds or atomically creates the user and wallet
	// for a verified identity.
	EnsureFromIdentity(ctx context.Context, identity VerifiedIdentity) (*domain.User, error)
	IssueToken(ctx context.Context, user *domain.User) (string, time.Time, error)
}

// DepositStatusResult is the public read model for a deposit.
type DepositStatusResult struct {
	Reference string
	Status    domain.TransactionStatus
	Amount    int64
}

// RecipientInfo identifies a transfer target looked up by email.
type RecipientInfo struct {
	WalletID     uuid.UUID
	WalletNumber string
	DisplayName  string
	Email        string
}

// WalletService owns wallet balances and the transaction log.
type WalletService interface {
	Deposit(ctx context.Context, userID uuid.UUID, amount int64) (*GatewaySession, error)
	DepositStatus(ctx context.Context, reference string) (*DepositStatusResult, error)
	Transfer(ctx context.Context, senderUserID uuid.UUID, recipientWalletID uuid.UUID, amount int64) error
	Balance(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error)
	History(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Transaction, error)
	LookupRecipient(ctx context.Context, email string) (*RecipientInfo, error)
}

// SettlementService consumes gateway webhook events and settles pending
// deposits exactly once.
type SettlementService interface {
	Settle(ctx context.Context, signature string, rawPayload []byte) error
}
