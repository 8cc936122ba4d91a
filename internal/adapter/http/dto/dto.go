package dto

// TokenRequest carries a verified external identity exchanged for a
// session token. Verification of the identity itself happens upstream.
type TokenRequest struct {
	Email      string `json:"email" binding:"required,email"`
	ExternalID string `json:"external_id" binding:"omitempty,max=255"`
	FirstName  string `json:"first_name" binding:"omitempty,max=100"`
	LastName   string `json:"last_name" binding:"omitempty,max=100"`
	Picture    string `json:"picture" binding:"omitempty,safe_url"`
}

// TokenResponse is the response body for a successful token exchange.
type TokenResponse struct {
	Token  string       `json:"token"`
	Expiry int64        `json:"expiry"` // Unix timestamp
	User   UserResponse `json:"user"`
}

// UserResponse is the public view of a user.
type UserResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Picture   string `json:"picture,omitempty"`
}

// CreateKeyRequest is the request body for issuing an API key.
type CreateKeyRequest struct {
	Name     string   `json:"name" binding:"required,min=1,max=100"`
	Scopes   []string `json:"scopes" binding:"required,min=1"`
	Validity string   `json:"validity" binding:"required,key_validity"`
}

// RolloverKeyRequest is the request body for rolling over an API key.
type RolloverKeyRequest struct {
	Validity string `json:"validity" binding:"required,key_validity"`
}

// IssuedKeyResponse is returned exactly once at issuance or rollover.
// Key is the raw secret; it is never retrievable again.
type IssuedKeyResponse struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Key       string   `json:"key"`
	MaskedKey string   `json:"masked_key"`
	Scopes    []string `json:"scopes"`
	ExpiresAt string   `json:"expires_at"`
	CreatedAt string   `json:"created_at"`
}

// ApiKeyResponse is the listing view of a key. Only the masked form of
// the secret ever appears here.
type ApiKeyResponse struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	MaskedKey string   `json:"masked_key"`
	Scopes    []string `json:"scopes"`
	ExpiresAt string   `json:"expires_at"`
	Revoked   bool     `json:"revoked"`
	CreatedAt string   `json:"created_at"`
}

// DepositRequest is the request body for initiating a deposit.
type DepositRequest struct {
	Amount int64 `json:"amount" binding:"required,gt=0"`
}

// DepositResponse returns the hosted payment session handle.
type DepositResponse struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// DepositStatusResponse is the public read model for a deposit.
type DepositStatusResponse struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
	Amount    int64  `json:"amount"`
}

// TransferRequest is the request body for a wallet-to-wallet transfer.
type TransferRequest struct {
	RecipientWalletID string `json:"recipient_wallet_id" binding:"required,uuid"`
	Amount            int64  `json:"amount" binding:"required,gt=0"`
}

// BalanceResponse is the response for a balance query.
type BalanceResponse struct {
	WalletID     string `json:"wallet_id"`
	WalletNumber string `json:"wallet_number"`
	Balance      int64  `json:"balance"`
}

// TransactionResponse is one ledger entry in a history listing.
type TransactionResponse struct {
	ID          string `json:"id"`
	Amount      int64  `json:"amount"`
	Type        string `json:"type"`
	Status      string `json:"status"`
	Reference   string `json:"reference"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// RecipientResponse identifies a transfer target looked up by email.
type RecipientResponse struct {
	WalletID     string `json:"wallet_id"`
	WalletNumber string `json:"wallet_number"`
	DisplayName  string `json:"display_name"`
	Email        string `json:"email"`
}
