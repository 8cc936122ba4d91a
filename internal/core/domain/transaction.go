package domain

import (
	"time"

	"github.com/google/uuid"
)

// TransactionType represents the kind of money movement.
type TransactionType string

const (
	TransactionTypeDeposit     TransactionType = "DEPOSIT"
	TransactionTypeTransferIn  TransactionType = "TRANSFER_IN"
	TransactionTypeTransferOut TransactionType = "TRANSFER_OUT"
)

// TransactionStatus represents the lifecycle state of a transaction.
type TransactionStatus string

const (
	TransactionStatusPending TransactionStatus = "PENDING"
	TransactionStatusSuccess TransactionStatus = "SUCCESS"
	TransactionStatusFailed  TransactionStatus = "FAILED"
)

// Transaction is an immutable, append-only ledger entry. Deposits start
// PENDING and flip to SUCCESS at most once on settlement; transfer legs are
// SUCCESS from creation. Reference is unique and drives settlement
// idempotency.
type Transaction struct {
	ID          uuid.UUID         `json:"id"`
	WalletID    uuid.UUID         `json:"wallet_id"`
	Amount      int64             `json:"amount"` // minor units, always positive
	Type        TransactionType   `json:"type"`
	Status      TransactionStatus `json:"status"`
	Reference   string            `json:"reference"`
	Description string            `json:"description,omitempty"`
	Metadata    []byte            `json:"metadata,omitempty"` // raw JSON
	CreatedAt   time.Time         `json:"created_at"`
}

// IsSettled returns true once the transaction has been credited.
func (t *Transaction) IsSettled() bool {
	return t.Status == TransactionStatusSuccess
}

// IsTerminal returns true if the transaction is in a final state.
func (t *Transaction) IsTerminal() bool {
	return t.Status == TransactionStatusSuccess || t.Status == TransactionStatusFailed
}
