package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"custodial-wallet-backend/internal/core/ports"
	"custodial-wallet-backend/pkg/apperror"

	"github.com/rs/zerolog"
)

// eventChargeSuccess is the only gateway event that settles a deposit.
const eventChargeSuccess = "charge.success"

// settlementDedupTTL bounds how long settled references stay in the fast
// path. The row status check remains authoritative after eviction.
const settlementDedupTTL = 24 * time.Hour

// settlementEvent is the gateway webhook envelope. Only the fields the
// settlement path reads are decoded; the full raw payload is preserved as
// transaction metadata.
type settlementEvent struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
		Amount    int64  `json:"amount"`
		Status    string `json:"status"`
	} `json:"data"`
}

// SettlementServiceImpl implements ports.SettlementService.
type SettlementServiceImpl struct {
	txRepo        ports.TransactionRepository
	walletRepo    ports.WalletRepository
	dedup         ports.SettlementDedup
	transactor    ports.DBTransactor
	webhookSecret []byte
	log           zerolog.Logger
}

// NewSettlementService creates a new SettlementServiceImpl.
func NewSettlementService(
	txRepo ports.TransactionRepository,
	walletRepo ports.WalletRepository,
	dedup ports.SettlementDedup,
	transactor ports.DBTransactor,
	webhookSecret string,
	log zerolog.Logger,
) *SettlementServiceImpl {
	return &SettlementServiceImpl{
		txRepo:        txRepo,
		walletRepo:    walletRepo,
		dedup:         dedup,
		transactor:    transactor,
		webhookSecret: []byte(webhookSecret),
		log:           log,
	}
}

// Settle consumes a gateway webhook delivery. The signature is verified
// over the raw bytes before anything is parsed. Unknown references and
// non-settling events are acknowledged without effect; a pending deposit
// matching the reference is credited exactly once, no matter how many
// times the gateway redelivers.
func (s *SettlementServiceImpl) Settle(ctx context.Context, signature string, rawPayload []byte) error {
	if !s.verifySignature(signature, rawPayload) {
		return apperror.ErrInvalidSignature()
	}

	var event settlementEvent
	if err := json.Unmarshal(rawPayload, &event); err != nil {
		return apperror.Validation("malformed webhook payload")
	}

	if event.Event != eventChargeSuccess {
		s.log.Debug().Str("event", event.Event).Msg("ignoring non-settling webhook event")
		return nil
	}
	if event.Data.Reference == "" {
		return apperror.Validation("webhook payload missing reference")
	}

	// Fast path: a reference we already settled recently skips the
	// database entirely. Errors here fall through to the locked check.
	seen, err := s.dedup.AlreadySettled(ctx, event.Data.Reference)
	if err != nil {
		s.log.Warn().Err(err).Str("reference", event.Data.Reference).Msg("settlement dedup check failed, falling through to DB")
	}
	if seen {
		s.log.Info().Str("reference", event.Data.Reference).Msg("duplicate settlement delivery ignored")
		return nil
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	txn, err := s.txRepo.GetByReferenceForUpdate(ctx, dbTx, event.Data.Reference)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("lock transaction: %w", err))
	}
	if txn == nil {
		s.log.Warn().Str("reference", event.Data.Reference).Msg("settlement for unknown reference acknowledged")
		return nil
	}
	if txn.IsSettled() {
		s.log.Info().Str("reference", event.Data.Reference).Msg("transaction already settled, acknowledging redelivery")
		return nil
	}

	if err := s.walletRepo.Credit(ctx, dbTx, txn.WalletID, txn.Amount); err != nil {
		return apperror.InternalError(fmt.Errorf("credit wallet: %w", err))
	}

	if err := s.txRepo.MarkSettled(ctx, dbTx, txn.ID, rawPayload); err != nil {
		return apperror.InternalError(fmt.Errorf("mark settled: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	// Post-commit: remember the reference in the fast path (best-effort).
	if err := s.dedup.MarkSettled(ctx, event.Data.Reference, settlementDedupTTL); err != nil {
		s.log.Warn().Err(err).Str("reference", event.Data.Reference).Msg("failed to record settlement in dedup cache")
	}

	s.log.Info().
		Str("tx_id", txn.ID.String()).
		Str("reference", txn.Reference).
		Int64("amount", txn.Amount).
		Msg("deposit settled")

	return nil
}

// verifySignature checks the hex HMAC-SHA512 of the raw body against the
// provider-sent header value using a constant-time comparison.
func (s *SettlementServiceImpl) verifySignature(signature string, rawPayload []byte) bool {
	if signature == "" || len(s.webhookSecret) == 0 {
		return false
	}
	mac := hmac.New(sha512.New, s.webhookSecret)
	mac.Write(rawPayload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
