package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SecretPrefix is the fixed, recognizable lead of every raw API key.
	SecretPrefix = "sk_live_"

	// LookupPrefixLen is how many leading characters of the raw secret are
	// stored in plaintext as the non-secret lookup prefix. The hash cannot
	// be queried by partial match, so this narrows candidates without a
	// full-table scan.
	LookupPrefixLen = 12

	// MaxActiveKeys caps simultaneously active (non-revoked, non-expired)
	// keys per user.
	MaxActiveKeys = 5
)

// ApiKey is a managed credential. The raw secret is returned exactly once
// at issuance; only its hash, lookup prefix and masked form are stored.
// Keys are never physically deleted, only flagged revoked.
type ApiKey struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	Name       string    `json:"name"`
	SecretHash string    `json:"-"` // Argon2id PHC string, never expose
	Prefix     string    `json:"prefix"`
	MaskedKey  string    `json:"masked_key"`
	Scopes     []string  `json:"scopes"`
	ExpiresAt  time.Time `json:"expires_at"`
	Revoked    bool      `json:"revoked"`
	CreatedAt  time.Time `json:"created_at"`
}

// IsExpired reports whether the key's validity has lapsed at the given time.
func (k *ApiKey) IsExpired(now time.Time) bool {
	return !k.ExpiresAt.After(now)
}

// IsActive reports whether the key counts against the active-key quota.
func (k *ApiKey) IsActive(now time.Time) bool {
	return !k.Revoked && !k.IsExpired(now)
}

// MaskSecret builds the display form of a raw secret:
// first LookupPrefixLen characters, an ellipsis, and the last 4.
func MaskSecret(raw string) string {
	if len(raw) <= LookupPrefixLen+4 {
		return raw
	}
	return raw[:LookupPrefixLen] + "..." + raw[len(raw)-4:]
}
