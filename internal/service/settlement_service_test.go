package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"testing"

	"custodial-wallet-backend/internal/core/domain"
	"custodial-wallet-backend/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const testWebhookSecret = "whsec_test_secret"

type settlementTestDeps struct {
	svc        *SettlementServiceImpl
	txRepo     *mocks.MockTransactionRepository
	walletRepo *mocks.MockWalletRepository
	dedup      *mocks.MockSettlementDedup
	transactor *mocks.MockDBTransactor
	ctrl       *gomock.Controller
}

func setupSettlementService(t *testing.T) *settlementTestDeps {
	ctrl := gomock.NewController(t)
	d := &settlementTestDeps{
		txRepo:     mocks.NewMockTransactionRepository(ctrl),
		walletRepo: mocks.NewMockWalletRepository(ctrl),
		dedup:      mocks.NewMockSettlementDedup(ctrl),
		transactor: mocks.NewMockDBTransactor(ctrl),
		ctrl:       ctrl,
	}
	d.svc = NewSettlementService(d.txRepo, d.walletRepo, d.dedup, d.transactor, testWebhookSecret, zerolog.Nop())
	return d
}

func signPayload(payload []byte) string {
	mac := hmac.New(sha512.New, []byte(testWebhookSecret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func chargeSuccessPayload(reference string, amount int64) []byte {
	return []byte(fmt.Sprintf(
		`{"event":"charge.success","data":{"reference":%q,"amount":%d,"status":"success"}}`,
		reference, amount,
	))
}

func TestSettlementService_Settle_CreditsPendingDeposit(t *testing.T) {
	d := setupSettlementService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	walletID := uuid.New()
	txnID := uuid.New()
	tx := &mockTx{}

	payload := chargeSuccessPayload("ref_abc123", 50000)

	d.dedup.EXPECT().AlreadySettled(ctx, "ref_abc123").Return(false, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.txRepo.EXPECT().GetByReferenceForUpdate(ctx, tx, "ref_abc123").Return(&domain.Transaction{
		ID:        txnID,
		WalletID:  walletID,
		Amount:    50000,
		Type:      domain.TransactionTypeDeposit,
		Status:    domain.TransactionStatusPending,
		Reference: "ref_abc123",
	}, nil)
	d.walletRepo.EXPECT().Credit(ctx, tx, walletID, int64(50000)).Return(nil)
	d.txRepo.EXPECT().MarkSettled(ctx, tx, txnID, payload).Return(nil)
	d.dedup.EXPECT().MarkSettled(ctx, "ref_abc123", settlementDedupTTL).Return(nil)

	err := d.svc.Settle(ctx, signPayload(payload), payload)
	require.NoError(t, err)
}

func TestSettlementService_Settle_InvalidSignature(t *testing.T) {
	d := setupSettlementService(t)
	defer d.ctrl.Finish()

	payload := chargeSuccessPayload("ref_abc123", 50000)

	err := d.svc.Settle(context.Background(), "deadbeef", payload)
	assertAppError(t, err, "WBH_001")
}

func TestSettlementService_Settle_MissingSignature(t *testing.T) {
	d := setupSettlementService(t)
	defer d.ctrl.Finish()

	payload := chargeSuccessPayload("ref_abc123", 50000)

	err := d.svc.Settle(context.Background(), "", payload)
	assertAppError(t, err, "WBH_001")
}

func TestSettlementService_Settle_SignatureOverExactBytes(t *testing.T) {
	d := setupSettlementService(t)
	defer d.ctrl.Finish()

	// A signature over a re-serialized (whitespace-differing) body must fail.
	payload := chargeSuccessPayload("ref_abc123", 50000)
	reserialized := append([]byte(` `), payload...)

	err := d.svc.Settle(context.Background(), signPayload(reserialized), payload)
	assertAppError(t, err, "WBH_001")
}

func TestSettlementService_Settle_IgnoresOtherEvents(t *testing.T) {
	d := setupSettlementService(t)
	defer d.ctrl.Finish()

	payload := []byte(`{"event":"charge.failed","data":{"reference":"ref_x","amount":100}}`)

	err := d.svc.Settle(context.Background(), signPayload(payload), payload)
	require.NoError(t, err)
}

func TestSettlementService_Settle_UnknownReferenceAcknowledged(t *testing.T) {
	d := setupSettlementService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	payload := chargeSuccessPayload("ref_unknown", 100)

	d.dedup.EXPECT().AlreadySettled(ctx, "ref_unknown").Return(false, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.txRepo.EXPECT().GetByReferenceForUpdate(ctx, tx, "ref_unknown").Return(nil, nil)

	err := d.svc.Settle(ctx, signPayload(payload), payload)
	require.NoError(t, err)
}

func TestSettlementService_Settle_RedeliveryAfterSettlement(t *testing.T) {
	d := setupSettlementService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	payload := chargeSuccessPayload("ref_done", 100)

	d.dedup.EXPECT().AlreadySettled(ctx, "ref_done").Return(false, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	// Locked row is already SUCCESS: no credit, no status write.
	d.txRepo.EXPECT().GetByReferenceForUpdate(ctx, tx, "ref_done").Return(&domain.Transaction{
		ID:        uuid.New(),
		WalletID:  uuid.New(),
		Amount:    100,
		Type:      domain.TransactionTypeDeposit,
		Status:    domain.TransactionStatusSuccess,
		Reference: "ref_done",
	}, nil)

	err := d.svc.Settle(ctx, signPayload(payload), payload)
	require.NoError(t, err)
}

func TestSettlementService_Settle_DedupFastPath(t *testing.T) {
	d := setupSettlementService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	payload := chargeSuccessPayload("ref_cached", 100)

	// Cache hit skips the database entirely.
	d.dedup.EXPECT().AlreadySettled(ctx, "ref_cached").Return(true, nil)

	err := d.svc.Settle(ctx, signPayload(payload), payload)
	require.NoError(t, err)
}

func TestSettlementService_Settle_DedupFailureFallsThrough(t *testing.T) {
	d := setupSettlementService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	walletID := uuid.New()
	txnID := uuid.New()
	tx := &mockTx{}
	payload := chargeSuccessPayload("ref_redis_down", 300)

	// Cache errors are non-fatal; the locked row check decides.
	d.dedup.EXPECT().AlreadySettled(ctx, "ref_redis_down").Return(false, assert.AnError)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.txRepo.EXPECT().GetByReferenceForUpdate(ctx, tx, "ref_redis_down").Return(&domain.Transaction{
		ID:        txnID,
		WalletID:  walletID,
		Amount:    300,
		Type:      domain.TransactionTypeDeposit,
		Status:    domain.TransactionStatusPending,
		Reference: "ref_redis_down",
	}, nil)
	d.walletRepo.EXPECT().Credit(ctx, tx, walletID, int64(300)).Return(nil)
	d.txRepo.EXPECT().MarkSettled(ctx, tx, txnID, payload).Return(nil)
	d.dedup.EXPECT().MarkSettled(ctx, "ref_redis_down", settlementDedupTTL).Return(assert.AnError)

	err := d.svc.Settle(ctx, signPayload(payload), payload)
	require.NoError(t, err)
}

func TestSettlementService_Settle_MalformedPayload(t *testing.T) {
	d := setupSettlementService(t)
	defer d.ctrl.Finish()

	payload := []byte(`{not json`)

	err := d.svc.Settle(context.Background(), signPayload(payload), payload)
	assertAppError(t, err, "WAL_007")
}

func TestSettlementService_Settle_MissingReference(t *testing.T) {
	d := setupSettlementService(t)
	defer d.ctrl.Finish()

	payload := []byte(`{"event":"charge.success","data":{"amount":100}}`)

	err := d.svc.Settle(context.Background(), signPayload(payload), payload)
	assertAppError(t, err, "WAL_007")
}
