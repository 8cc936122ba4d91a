package service

import (
	"context"
	"testing"

	"custodial-wallet-backend/internal/core/domain"
	"custodial-wallet-backend/internal/core/ports"
	"custodial-wallet-backend/internal/core/ports/mocks"
	"custodial-wallet-backend/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type walletTestDeps struct {
	svc        *WalletServiceImpl
	walletRepo *mocks.MockWalletRepository
	txRepo     *mocks.MockTransactionRepository
	userRepo   *mocks.MockUserRepository
	gateway    *mocks.MockPaymentGateway
	transactor *mocks.MockDBTransactor
	ctrl       *gomock.Controller
}

func setupWalletService(t *testing.T) *walletTestDeps {
	ctrl := gomock.NewController(t)
	d := &walletTestDeps{
		walletRepo: mocks.NewMockWalletRepository(ctrl),
		txRepo:     mocks.NewMockTransactionRepository(ctrl),
		userRepo:   mocks.NewMockUserRepository(ctrl),
		gateway:    mocks.NewMockPaymentGateway(ctrl),
		transactor: mocks.NewMockDBTransactor(ctrl),
		ctrl:       ctrl,
	}
	d.svc = NewWalletService(d.walletRepo, d.txRepo, d.userRepo, d.gateway, d.transactor, zerolog.Nop())
	return d
}

// mockTx implements pgx.Tx for testing
type mockTx struct{ pgx.Tx }

func (m *mockTx) Rollback(_ context.Context) error { return nil }
func (m *mockTx) Commit(_ context.Context) error   { return nil }

// ==================== Deposit Tests ====================

func TestWalletService_Deposit_Success(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()
	walletID := uuid.New()
	tx := &mockTx{}

	d.walletRepo.EXPECT().GetByUserID(ctx, userID).Return(&domain.Wallet{ID: walletID, UserID: userID}, nil)
	d.userRepo.EXPECT().GetByID(ctx, userID).Return(&domain.User{ID: userID, Email: "alice@example.com"}, nil)
	d.gateway.EXPECT().InitializeTransaction(ctx, "alice@example.com", int64(50000), gomock.Any()).Return(&ports.GatewaySession{
		AuthorizationURL: "https://checkout.example.com/abc",
		AccessCode:       "ac_123",
		Reference:        "ref_abc123",
	}, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)

	var pending *domain.Transaction
	d.txRepo.EXPECT().Create(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ any, txn *domain.Transaction) error {
			pending = txn
			return nil
		})

	session, err := d.svc.Deposit(ctx, userID, 50000)
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, "ref_abc123", session.Reference)

	require.NotNil(t, pending)
	assert.Equal(t, walletID, pending.WalletID)
	assert.Equal(t, domain.TransactionTypeDeposit, pending.Type)
	assert.Equal(t, domain.TransactionStatusPending, pending.Status)
	assert.Equal(t, "ref_abc123", pending.Reference)
	assert.Equal(t, int64(50000), pending.Amount)
}

func TestWalletService_Deposit_InvalidAmount(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	session, err := d.svc.Deposit(context.Background(), uuid.New(), 0)
	assert.Nil(t, session)
	assertAppError(t, err, "WAL_001")
}

func TestWalletService_Deposit_GatewayDown(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()

	d.walletRepo.EXPECT().GetByUserID(ctx, userID).Return(&domain.Wallet{ID: uuid.New(), UserID: userID}, nil)
	d.userRepo.EXPECT().GetByID(ctx, userID).Return(&domain.User{ID: userID, Email: "bob@example.com"}, nil)
	d.gateway.EXPECT().InitializeTransaction(ctx, "bob@example.com", int64(100), gomock.Any()).Return(nil, assert.AnError)

	session, err := d.svc.Deposit(ctx, userID, 100)
	assert.Nil(t, session)
	assertAppError(t, err, "SYS_002")
}

func TestWalletService_Deposit_WalletNotFound(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()

	d.walletRepo.EXPECT().GetByUserID(ctx, userID).Return(nil, nil)

	session, err := d.svc.Deposit(ctx, userID, 100)
	assert.Nil(t, session)
	assertAppError(t, err, "WAL_003")
}

// ==================== DepositStatus Tests ====================

func TestWalletService_DepositStatus_Pending(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()

	d.txRepo.EXPECT().GetByReference(ctx, "ref_pending").Return(&domain.Transaction{
		Reference: "ref_pending",
		Type:      domain.TransactionTypeDeposit,
		Status:    domain.TransactionStatusPending,
		Amount:    25000,
	}, nil)

	result, err := d.svc.DepositStatus(ctx, "ref_pending")
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusPending, result.Status)
	assert.Equal(t, int64(25000), result.Amount)
}

func TestWalletService_DepositStatus_NotFound(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()

	d.txRepo.EXPECT().GetByReference(ctx, "ref_missing").Return(nil, nil)

	result, err := d.svc.DepositStatus(ctx, "ref_missing")
	assert.Nil(t, result)
	assertAppError(t, err, "WAL_005")
}

func TestWalletService_DepositStatus_TransferLegNotAddressable(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()

	// Transfer legs share the reference namespace but are not deposits.
	d.txRepo.EXPECT().GetByReference(ctx, "TRF-xyz").Return(&domain.Transaction{
		Reference: "TRF-xyz",
		Type:      domain.TransactionTypeTransferOut,
		Status:    domain.TransactionStatusSuccess,
	}, nil)

	result, err := d.svc.DepositStatus(ctx, "TRF-xyz")
	assert.Nil(t, result)
	assertAppError(t, err, "WAL_005")
}

// ==================== Transfer Tests ====================

func TestWalletService_Transfer_Success(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	senderUserID := uuid.New()
	senderWalletID := uuid.New()
	recipientWalletID := uuid.New()
	tx := &mockTx{}

	d.walletRepo.EXPECT().GetByUserID(ctx, senderUserID).Return(&domain.Wallet{
		ID: senderWalletID, UserID: senderUserID, WalletNumber: "W-000000000001",
	}, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByIDTx(ctx, tx, recipientWalletID).Return(&domain.Wallet{
		ID: recipientWalletID, WalletNumber: "W-000000000002",
	}, nil)
	d.walletRepo.EXPECT().Debit(ctx, tx, senderWalletID, int64(60)).Return(true, nil)
	d.walletRepo.EXPECT().Credit(ctx, tx, recipientWalletID, int64(60)).Return(nil)

	var legs []*domain.Transaction
	d.txRepo.EXPECT().Create(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ any, txn *domain.Transaction) error {
			legs = append(legs, txn)
			return nil
		}).Times(2)

	err := d.svc.Transfer(ctx, senderUserID, recipientWalletID, 60)
	require.NoError(t, err)

	require.Len(t, legs, 2)
	out, in := legs[0], legs[1]
	assert.Equal(t, domain.TransactionTypeTransferOut, out.Type)
	assert.Equal(t, domain.TransactionStatusSuccess, out.Status)
	assert.Equal(t, senderWalletID, out.WalletID)
	assert.Contains(t, out.Reference, "TRF-")

	assert.Equal(t, domain.TransactionTypeTransferIn, in.Type)
	assert.Equal(t, domain.TransactionStatusSuccess, in.Status)
	assert.Equal(t, recipientWalletID, in.WalletID)
	assert.Contains(t, in.Reference, "TRF-IN-")
}

func TestWalletService_Transfer_InsufficientBalance(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	senderUserID := uuid.New()
	senderWalletID := uuid.New()
	recipientWalletID := uuid.New()
	tx := &mockTx{}

	d.walletRepo.EXPECT().GetByUserID(ctx, senderUserID).Return(&domain.Wallet{
		ID: senderWalletID, UserID: senderUserID,
	}, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByIDTx(ctx, tx, recipientWalletID).Return(&domain.Wallet{ID: recipientWalletID}, nil)
	d.walletRepo.EXPECT().Debit(ctx, tx, senderWalletID, int64(1000)).Return(false, nil)

	err := d.svc.Transfer(ctx, senderUserID, recipientWalletID, 1000)
	assertAppError(t, err, "WAL_002")
}

func TestWalletService_Transfer_RecipientNotFound(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	senderUserID := uuid.New()
	recipientWalletID := uuid.New()
	tx := &mockTx{}

	d.walletRepo.EXPECT().GetByUserID(ctx, senderUserID).Return(&domain.Wallet{
		ID: uuid.New(), UserID: senderUserID,
	}, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	// Recipient check happens inside the transaction before any debit.
	d.walletRepo.EXPECT().GetByIDTx(ctx, tx, recipientWalletID).Return(nil, nil)

	err := d.svc.Transfer(ctx, senderUserID, recipientWalletID, 100)
	assertAppError(t, err, "WAL_004")
}

func TestWalletService_Transfer_SelfTransfer(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	senderUserID := uuid.New()
	walletID := uuid.New()

	d.walletRepo.EXPECT().GetByUserID(ctx, senderUserID).Return(&domain.Wallet{
		ID: walletID, UserID: senderUserID,
	}, nil)

	err := d.svc.Transfer(ctx, senderUserID, walletID, 100)
	assertAppError(t, err, "WAL_007")
}

func TestWalletService_Transfer_InvalidAmount(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	err := d.svc.Transfer(context.Background(), uuid.New(), uuid.New(), -5)
	assertAppError(t, err, "WAL_001")
}

// ==================== Balance & History Tests ====================

func TestWalletService_Balance(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()

	d.walletRepo.EXPECT().GetByUserID(ctx, userID).Return(&domain.Wallet{
		ID: uuid.New(), UserID: userID, Balance: 4200,
	}, nil)

	wallet, err := d.svc.Balance(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(4200), wallet.Balance)
}

func TestWalletService_History_DefaultLimit(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()
	walletID := uuid.New()

	d.walletRepo.EXPECT().GetByUserID(ctx, userID).Return(&domain.Wallet{ID: walletID, UserID: userID}, nil)
	d.txRepo.EXPECT().ListByWallet(ctx, walletID, defaultHistoryLimit).Return([]domain.Transaction{}, nil)

	_, err := d.svc.History(ctx, userID, 0)
	require.NoError(t, err)
}

func TestWalletService_History_CapsLimit(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()
	walletID := uuid.New()

	d.walletRepo.EXPECT().GetByUserID(ctx, userID).Return(&domain.Wallet{ID: walletID, UserID: userID}, nil)
	d.txRepo.EXPECT().ListByWallet(ctx, walletID, maxHistoryLimit).Return([]domain.Transaction{}, nil)

	_, err := d.svc.History(ctx, userID, 5000)
	require.NoError(t, err)
}

// ==================== LookupRecipient Tests ====================

func TestWalletService_LookupRecipient_Success(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()
	walletID := uuid.New()

	d.userRepo.EXPECT().GetByEmail(ctx, "carol@example.com").Return(&domain.User{
		ID: userID, Email: "carol@example.com", FirstName: "Carol", LastName: "Chen",
	}, nil)
	d.walletRepo.EXPECT().GetByUserID(ctx, userID).Return(&domain.Wallet{
		ID: walletID, UserID: userID, WalletNumber: "W-000000000042",
	}, nil)

	info, err := d.svc.LookupRecipient(ctx, "carol@example.com")
	require.NoError(t, err)
	assert.Equal(t, walletID, info.WalletID)
	assert.Equal(t, "W-000000000042", info.WalletNumber)
	assert.Equal(t, "Carol Chen", info.DisplayName)
}

func TestWalletService_LookupRecipient_NotFound(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()

	d.userRepo.EXPECT().GetByEmail(ctx, "nobody@example.com").Return(nil, nil)

	info, err := d.svc.LookupRecipient(ctx, "nobody@example.com")
	assert.Nil(t, info)
	assertAppError(t, err, "WAL_004")
}

// ==================== Helper ====================

func assertAppError(t *testing.T, err error, expectedCode string) {
	t.Helper()
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, expectedCode, appErr.Code)
}
