package domain

import "github.com/google/uuid"

// Scope names a permission a principal may exercise.
const (
	ScopeDeposit  = "deposit"
	ScopeTransfer = "transfer"
	ScopeRead     = "read"

	// ScopeWildcard satisfies any requirement. Reserved for token-origin
	// principals; never issued to API keys.
	ScopeWildcard = "*"
)

// CredentialOrigin tells which credential a principal was resolved from.
type CredentialOrigin string

const (
	OriginToken CredentialOrigin = "token"
	OriginKey   CredentialOrigin = "key"
)

// Principal is the authenticated identity plus permission scopes resolved
// from a request's credentials.
type Principal struct {
	UserID uuid.UUID        `json:"user_id"`
	Email  string           `json:"email"`
	Scopes []string         `json:"scopes"`
	Origin CredentialOrigin `json:"origin"`
}

// Can reports whether the principal may perform an operation declaring the
// given required scopes. The requirement lists alternatives: holding any one
// of them suffices. A principal with no scopes is always denied.
func (p *Principal) Can(required ...string) bool {
	if len(p.Scopes) == 0 {
		return false
	}
	for _, held := range p.Scopes {
		if held == ScopeWildcard {
			return true
		}
		for _, want := range required {
			if held == want {
				return true
			}
		}
	}
	return false
}
