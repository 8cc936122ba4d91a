package domain

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
)

// Wallet holds a user's balance in integer minor units. Exactly one wallet
// exists per user. The balance is mutated only through conditional writes
// so that `balance >= 0` holds even under concurrent transfers.
type Wallet struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"user_id"`
	WalletNumber string    `json:"wallet_number"`
	Balance      int64     `json:"balance"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewWalletNumber generates an external-facing wallet number of the form
// W-<12 digits>. Uniqueness is enforced by the store.
func NewWalletNumber() string {
	max := big.NewInt(1_000_000_000_000)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		// crypto/rand only fails if the OS entropy source is broken.
		panic(fmt.Sprintf("wallet number generation: %v", err))
	}
	return fmt.Sprintf("W-%012d", n)
}
